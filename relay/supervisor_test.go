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
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/poolbridge/relayd/bridge"
	"github.com/poolbridge/relayd/store"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.FailNow(t, msg)
}

func TestReconnectBackoffSchedule(t *testing.T) {
	bo := newReconnectBackoff(2 * time.Second)
	want := []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		32 * time.Second, 64 * time.Second, 128 * time.Second, 256 * time.Second,
		512 * time.Second, 1024 * time.Second,
	}
	for i, w := range want {
		require.Equal(t, w, bo.NextBackOff(), "attempt %d", i+1)
	}
	// Further attempts stay at the cap.
	require.Equal(t, 1024*time.Second, bo.NextBackOff())
}

func TestSupervisorHaltsAfterMaxAttempts(t *testing.T) {
	fb := newFakeBackend("L1")
	fb.dialErr = errors.New("connection refused")

	in, _, _ := newBuyIngestor(store.NewMemStore())
	sup := NewSupervisor(fb, in, bridge.EventAssetsBuy, SupervisorConfig{
		HealthInterval: time.Hour,
		ReconnectBase:  time.Millisecond,
		MaxReconnect:   10,
	})
	sup.Start(context.Background())
	defer sup.Stop()

	waitFor(t, 10*time.Second, func() bool { return fb.dials() == 10 }, "expected 10 dial attempts")

	// The eleventh attempt is never scheduled.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 10, fb.dials())
	require.Zero(t, fb.reconnects(), "a failed initial dial is always retried as a dial")
}

func TestSupervisorHaltsOnHealthFailures(t *testing.T) {
	// The endpoint accepts connections and subscriptions but cannot answer
	// blockNumber. Health failures must burn down the same attempt budget
	// as connect failures.
	fb := newFakeBackend("L1")
	fb.blockErr = errors.New("the method eth_blockNumber does not exist")

	in, _, _ := newBuyIngestor(store.NewMemStore())
	sup := NewSupervisor(fb, in, bridge.EventAssetsBuy, SupervisorConfig{
		HealthInterval: time.Millisecond,
		ReconnectBase:  time.Millisecond,
		MaxReconnect:   10,
	})
	sup.Start(context.Background())
	defer sup.Stop()

	// Attempt 1 is the initial dial, attempts 2..10 swap the websocket.
	waitFor(t, 10*time.Second, func() bool { return fb.subCount() == 10 }, "expected 10 failed attempts")

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 10, fb.subCount(), "the eleventh attempt is never scheduled")
	require.Equal(t, 1, fb.dials())
	require.Equal(t, 9, fb.reconnects())
}

func TestSupervisorProbeSuccessResetsFailureStreak(t *testing.T) {
	fb := newFakeBackend("L1")
	fb.blockErr = errors.New("temporarily overloaded")

	in, _, disp := newBuyIngestor(store.NewMemStore())
	sup := NewSupervisor(fb, in, bridge.EventAssetsBuy, SupervisorConfig{
		HealthInterval: time.Millisecond,
		ReconnectBase:  time.Millisecond,
		MaxReconnect:   10,
	})
	sup.Start(context.Background())
	defer sup.Stop()

	// Burn a few attempts, then let the endpoint recover.
	waitFor(t, 10*time.Second, func() bool { return fb.subCount() >= 4 }, "no failed attempts recorded")
	fb.setBlockErr(nil)

	// The recovered stream delivers events again.
	waitFor(t, 10*time.Second, func() bool {
		sink := fb.sinkCh()
		if sink == nil {
			return false
		}
		select {
		case sink <- buyLog(t, common.HexToAddress("0x11"), common.HexToHash("0xfeed9")):
		default:
		}
		in.Wait()
		return disp.buyCount() > 0
	}, "stream did not recover after probes passed")

	// A fresh outage gets the full attempt budget back: one in-stream probe
	// failure plus nine reconnect attempts before the halt.
	stable := fb.subCount()
	fb.setBlockErr(errors.New("gone again"))
	waitFor(t, 10*time.Second, func() bool { return fb.subCount() == stable+9 }, "expected a full fresh attempt budget")

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, stable+9, fb.subCount(), "halt after ten consecutive failures")
}

func TestSupervisorStreamsAndReconnects(t *testing.T) {
	fb := newFakeBackend("L1")
	in, _, disp := newBuyIngestor(store.NewMemStore())
	sup := NewSupervisor(fb, in, bridge.EventAssetsBuy, SupervisorConfig{
		HealthInterval: time.Hour,
		ReconnectBase:  time.Millisecond,
		MaxReconnect:   10,
	})
	sup.Start(context.Background())
	defer sup.Stop()

	waitFor(t, 5*time.Second, func() bool { return fb.sinkCh() != nil }, "subscription never opened")
	require.Equal(t, 1, fb.dials())

	// A live event flows through to the dispatcher.
	fb.sinkCh() <- buyLog(t, common.HexToAddress("0x11"), common.HexToHash("0xfeed1"))
	waitFor(t, 5*time.Second, func() bool { in.Wait(); return disp.buyCount() == 1 }, "live event not dispatched")

	// Killing the subscription triggers a websocket swap and a fresh
	// subscription; the HTTP transport is never redialed.
	fb.lastSub().fail(errors.New("read: connection reset"))
	waitFor(t, 5*time.Second, func() bool { return fb.subCount() == 2 }, "no resubscription after stream loss")
	require.Equal(t, 1, fb.reconnects())
	require.Equal(t, 1, fb.dials())

	// The recovered stream still delivers, and the dedup gate drops the
	// replay of the first event.
	fb.sinkCh() <- buyLog(t, common.HexToAddress("0x11"), common.HexToHash("0xfeed1"))
	fb.sinkCh() <- buyLog(t, common.HexToAddress("0x11"), common.HexToHash("0xfeed2"))
	waitFor(t, 5*time.Second, func() bool { in.Wait(); return disp.buyCount() == 2 }, "recovered stream not dispatching")
}

func TestSupervisorStopIsIdempotent(t *testing.T) {
	fb := newFakeBackend("L1")
	in, _, _ := newBuyIngestor(store.NewMemStore())
	sup := NewSupervisor(fb, in, bridge.EventAssetsBuy, SupervisorConfig{HealthInterval: time.Hour})
	sup.Start(context.Background())

	waitFor(t, 5*time.Second, func() bool { return fb.sinkCh() != nil }, "subscription never opened")
	sup.Stop()
	sup.Stop()
}
