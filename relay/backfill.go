// Copyright 2024 The poolbridge Authors
// This file is part of relayd.
//
// relayd is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// relayd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with relayd. If not, see <http://www.gnu.org/licenses/>.

package relay

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

const (
	// DefaultBackfillInterval is how often the recent block window is rescanned.
	DefaultBackfillInterval = 5 * time.Minute
	// DefaultBackfillWindow is how many blocks back each sweep reaches.
	DefaultBackfillWindow = 1000
)

// Backfiller periodically rescans the recent block window for events the
// live subscription may have missed, during reconnects or before startup,
// and feeds them through the same ingestor. The dedup gate makes the
// overlap with the live stream harmless.
type Backfiller struct {
	backend   Backend
	ingestor  *Ingestor
	eventName string
	interval  time.Duration
	window    uint64
	log       log.Logger

	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewBackfiller builds a backfiller over one chain's bridge event. Zero
// interval and window select the defaults.
func NewBackfiller(backend Backend, ingestor *Ingestor, eventName string, interval time.Duration, window uint64) *Backfiller {
	if interval <= 0 {
		interval = DefaultBackfillInterval
	}
	if window == 0 {
		window = DefaultBackfillWindow
	}
	return &Backfiller{
		backend:   backend,
		ingestor:  ingestor,
		eventName: eventName,
		interval:  interval,
		window:    window,
		log:       log.New("backfill", backend.Name()),
	}
}

// Start runs an immediate sweep and then one per interval until Stop.
func (b *Backfiller) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.sweep(ctx)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.sweep(ctx)
			}
		}
	}()
}

// Stop halts the sweep loop. Idempotent.
func (b *Backfiller) Stop() {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		b.wg.Wait()
	})
}

func (b *Backfiller) sweep(ctx context.Context) {
	head, err := b.backend.BlockNumber(ctx)
	if err != nil {
		b.log.Warn("Backfill skipped, head unavailable", "err", err)
		return
	}
	from := uint64(0)
	if head > b.window {
		from = head - b.window
	}
	logs, err := b.backend.FilterEvent(ctx, b.eventName, from, head)
	if err != nil {
		b.log.Warn("Backfill query failed", "from", from, "to", head, "err", err)
		return
	}
	backfillCounter.Inc(int64(len(logs)))
	b.log.Debug("Backfill sweep", "from", from, "to", head, "logs", len(logs))
	for i := range logs {
		l := logs[i]
		b.ingestor.Ingest(ctx, &RawEvent{Log: &l})
	}
}
