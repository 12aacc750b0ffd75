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
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/poolbridge/relayd/store"
)

// DedupIndex is the in-memory first line of defense against processing the
// same transaction hash twice. It is shared between the live streams and
// the backfillers of both chains.
type DedupIndex struct {
	mu   sync.Mutex
	seen map[common.Hash]struct{}
}

// NewDedupIndex returns an empty index.
func NewDedupIndex() *DedupIndex {
	return &DedupIndex{seen: make(map[common.Hash]struct{})}
}

// Seed loads the hashes of previously persisted records, so restarts do not
// re-relay transactions the store already knows.
func (d *DedupIndex) Seed(recs []*store.RelayRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range recs {
		if r.EventHash != "" {
			d.seen[common.HexToHash(r.EventHash)] = struct{}{}
		}
		if r.RelayHash != "" {
			d.seen[common.HexToHash(r.RelayHash)] = struct{}{}
		}
	}
}

// ContainsOrAdd atomically tests for h and marks it seen. Returns true if
// the hash was already present. Concurrent callers racing on the same hash
// get exactly one false.
func (d *DedupIndex) ContainsOrAdd(h common.Hash) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[h]; ok {
		return true
	}
	d.seen[h] = struct{}{}
	return false
}

// Remove forgets a hash. Used to roll back a claim when processing fails
// before anything was submitted, so a later retry is not silently dropped.
func (d *DedupIndex) Remove(h common.Hash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, h)
}

// Size reports the number of tracked hashes.
func (d *DedupIndex) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
