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
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
)

const (
	// DefaultHealthInterval is the cadence of the liveness probe.
	DefaultHealthInterval = 30 * time.Second
	// DefaultReconnectBase is the first reconnect delay; each further
	// attempt doubles it.
	DefaultReconnectBase = 2 * time.Second
	// DefaultMaxReconnect is the number of consecutive reconnect attempts
	// before the chain is declared dead and its pipeline halted.
	DefaultMaxReconnect = 10

	healthProbeTimeout = 10 * time.Second
)

// Supervisor owns one chain's connection lifecycle: initial dial, the live
// event subscription, a periodic liveness probe, and exponential-backoff
// reconnection. Connect failures and health-probe failures share one
// consecutive-failure ledger; only a successful probe resets it. After
// DefaultMaxReconnect consecutive failures the supervisor halts its own
// chain; the sibling chain is unaffected.
type Supervisor struct {
	backend   Backend
	ingestor  *Ingestor
	eventName string

	healthInterval time.Duration
	reconnectBase  time.Duration
	maxReconnect   int
	log            log.Logger

	dialed  bool
	chainID *big.Int

	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// SupervisorConfig overrides the reconnect and probe timings. Zero values
// select the defaults.
type SupervisorConfig struct {
	HealthInterval time.Duration
	ReconnectBase  time.Duration
	MaxReconnect   int
}

// NewSupervisor builds a supervisor for one chain's bridge event stream.
func NewSupervisor(backend Backend, ingestor *Ingestor, eventName string, cfg SupervisorConfig) *Supervisor {
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = DefaultHealthInterval
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = DefaultReconnectBase
	}
	if cfg.MaxReconnect <= 0 {
		cfg.MaxReconnect = DefaultMaxReconnect
	}
	return &Supervisor{
		backend:        backend,
		ingestor:       ingestor,
		eventName:      eventName,
		healthInterval: cfg.HealthInterval,
		reconnectBase:  cfg.ReconnectBase,
		maxReconnect:   cfg.MaxReconnect,
		log:            log.New("supervisor", backend.Name()),
	}
}

// Start launches the connection loop. It returns immediately; dial failures
// are retried with backoff like any mid-stream disconnect.
func (s *Supervisor) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop cancels the loop, waits for it to drain and closes the backend.
// Idempotent.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.backend.Close()
	})
}

// newReconnectBackoff yields the deterministic 2s, 4s, 8s, ... schedule:
// attempt n waits base * 2^(n-1), capped at base * 2^9.
func newReconnectBackoff(base time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = base * 512
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (s *Supervisor) run(ctx context.Context) {
	defer s.wg.Done()

	// One ledger for connect and health failures alike. Anything short of a
	// passing probe leaves the current streak intact, so an endpoint that
	// accepts connections but cannot answer blockNumber still runs into the
	// attempt cap on the same backoff schedule.
	retries := 0
	bo := newReconnectBackoff(s.reconnectBase)
	for {
		sub, logCh, err := s.connect(ctx)
		if err == nil {
			s.log.Info("Event stream established", "event", s.eventName)
			err = s.stream(ctx, sub, logCh, func() {
				retries = 0
				bo.Reset()
			})
			sub.Unsubscribe()
		}
		if ctx.Err() != nil {
			return
		}

		retries++
		s.log.Warn("Chain connection unhealthy", "attempt", retries, "err", err)
		if retries >= s.maxReconnect {
			s.log.Error("Chain unreachable, halting its pipeline", "attempts", retries)
			return
		}
		reconnectCounter.Inc(1)
		wait := bo.NextBackOff()
		s.log.Info("Retrying connection", "in", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// connect dials on the first pass and swaps the streaming transport on
// every later one, then opens the subscription.
func (s *Supervisor) connect(ctx context.Context) (event.Subscription, chan types.Log, error) {
	if !s.dialed {
		if err := s.backend.Dial(ctx); err != nil {
			return nil, nil, err
		}
		s.dialed = true
	} else {
		if err := s.backend.Reconnect(ctx); err != nil {
			return nil, nil, err
		}
	}
	logCh := make(chan types.Log, 256)
	sub, err := s.backend.SubscribeEvent(ctx, s.eventName, logCh)
	if err != nil {
		return nil, nil, err
	}
	return sub, logCh, nil
}

// stream pumps logs into the ingestor until the subscription errors, the
// liveness probe fails or the context ends. healthy is invoked after every
// passing probe; it is the only thing that clears the failure streak.
func (s *Supervisor) stream(ctx context.Context, sub event.Subscription, logCh chan types.Log, healthy func()) error {
	// Probe straight away: a freshly accepted connection proves nothing
	// about the endpoint actually serving the chain.
	if err := s.probe(ctx); err != nil {
		return err
	}
	healthy()

	health := time.NewTicker(s.healthInterval)
	defer health.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case l := <-logCh:
			s.ingestor.Ingest(ctx, &RawEvent{Log: &l})
		case <-health.C:
			if err := s.probe(ctx); err != nil {
				return err
			}
			healthy()
		}
	}
}

// probe checks the streaming transport is alive and that the endpoint
// still serves the chain we bound to.
func (s *Supervisor) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	head, err := s.backend.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("liveness probe: %w", err)
	}
	id, err := s.backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id probe: %w", err)
	}
	if s.chainID == nil {
		s.chainID = id
	} else if s.chainID.Cmp(id) != 0 {
		s.log.Warn("Endpoint switched chains", "had", s.chainID, "got", id)
		had := s.chainID
		s.chainID = id
		return fmt.Errorf("chain id changed from %v to %v", had, id)
	}
	s.log.Debug("Liveness probe ok", "head", head)
	return nil
}
