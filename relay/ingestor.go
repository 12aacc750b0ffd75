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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/poolbridge/relayd/bridge"
	"github.com/poolbridge/relayd/store"
)

// Dispatcher receives deduplicated, decoded intents. *Relayer implements it.
type Dispatcher interface {
	RelayBuy(ctx context.Context, intent *BuyIntent) error
	RelaySell(ctx context.Context, intent *SellIntent) error
}

// Ingestor funnels one chain's events, live and backfilled, through the
// dedup gate and hands fresh intents to the dispatcher. Dedup order is
// memory first, store second: the memory index is authoritative within a
// process, the store catches events relayed before a restart.
type Ingestor struct {
	chainName  string
	kind       store.Kind
	dedup      *DedupIndex
	store      store.TxStore
	dispatcher Dispatcher
	log        log.Logger

	wg sync.WaitGroup
}

// NewIngestor wires an ingestor for one chain. kind selects the decoder:
// KindBuy for L1 AssetsBuy events, KindSell for L2 ASSETS_SOLD events.
func NewIngestor(chainName string, kind store.Kind, dedup *DedupIndex, st store.TxStore, dispatcher Dispatcher) *Ingestor {
	return &Ingestor{
		chainName:  chainName,
		kind:       kind,
		dedup:      dedup,
		store:      st,
		dispatcher: dispatcher,
		log:        log.New("ingestor", chainName),
	}
}

// Ingest runs one event through the gate. Accepted intents are dispatched
// on their own goroutine so a slow relay never stalls the stream.
func (in *Ingestor) Ingest(ctx context.Context, ev *RawEvent) {
	hash := ev.Hash()
	if hash == (common.Hash{}) {
		in.log.Warn("Event without transaction hash dropped")
		droppedCounter.Inc(1)
		return
	}
	if in.dedup.ContainsOrAdd(hash) {
		deduplicatedCounter.Inc(1)
		return
	}
	if exists, err := in.store.HashExists(ctx, hash.Hex()); err != nil {
		in.log.Error("Store lookup failed, dropping event", "tx", hash, "err", err)
		in.dedup.Remove(hash)
		droppedCounter.Inc(1)
		return
	} else if exists {
		// Relayed in a previous run. Keep the hash claimed.
		deduplicatedCounter.Inc(1)
		return
	}
	if ev.Log == nil {
		in.log.Warn("Event carries no log payload, skipping", "tx", hash)
		in.dedup.Remove(hash)
		droppedCounter.Inc(1)
		return
	}

	switch in.kind {
	case store.KindBuy:
		decoded, err := bridge.UnpackAssetsBuy(*ev.Log)
		if err != nil {
			in.log.Warn("Undecodable AssetsBuy log", "tx", hash, "err", err)
			in.dedup.Remove(hash)
			droppedCounter.Inc(1)
			return
		}
		intent := &BuyIntent{
			User:          decoded.User,
			AssetIn:       decoded.AssetIn,
			L2TargetToken: decoded.L2TargetToken,
			AmountIn:      decoded.AmountIn,
			Deadline:      decoded.Deadline,
			Nonce:         decoded.Nonce,
			EventHash:     hash,
		}
		ingestedCounter.Inc(1)
		in.wg.Add(1)
		go func() {
			defer in.wg.Done()
			if err := in.dispatcher.RelayBuy(ctx, intent); err != nil {
				in.log.Error("Buy relay failed", "tx", hash, "user", intent.User, "err", err)
			}
		}()

	case store.KindSell:
		decoded, err := bridge.UnpackAssetsSold(*ev.Log)
		if err != nil {
			in.log.Warn("Undecodable ASSETS_SOLD log", "tx", hash, "err", err)
			in.dedup.Remove(hash)
			droppedCounter.Inc(1)
			return
		}
		intent := &SellIntent{
			User:          decoded.User,
			TokenToSell:   decoded.TokenToSell,
			TargetL1Asset: decoded.TargetL1Asset,
			AmountIn:      decoded.AmountIn,
			Deadline:      decoded.Deadline,
			Nonce:         decoded.Nonce,
			EventHash:     hash,
		}
		ingestedCounter.Inc(1)
		in.wg.Add(1)
		go func() {
			defer in.wg.Done()
			if err := in.dispatcher.RelaySell(ctx, intent); err != nil {
				in.log.Error("Sell relay failed", "tx", hash, "user", intent.User, "err", err)
			}
		}()

	default:
		in.log.Error("Ingestor misconfigured", "kind", in.kind)
		in.dedup.Remove(hash)
	}
}

// Wait blocks until all in-flight dispatches finish.
func (in *Ingestor) Wait() {
	in.wg.Wait()
}
