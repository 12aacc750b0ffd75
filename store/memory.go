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

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory TxStore with the same semantics as MongoStore.
// Used in tests and when no document database is configured. Contents do
// not survive a restart.
type MemStore struct {
	mu   sync.RWMutex
	recs map[string]*RelayRecord // by id
	seq  map[string]int64        // insertion order, tie-breaker for equal createdAt
	next int64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		recs: make(map[string]*RelayRecord),
		seq:  make(map[string]int64),
	}
}

func cloneRecord(r *RelayRecord) *RelayRecord {
	cp := *r
	return &cp
}

func (s *MemStore) UpsertByID(_ context.Context, rec *RelayRecord) (*RelayRecord, error) {
	rec.Normalize()
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneRecord(rec)
	stored.UpdatedAt = now
	if prev, ok := s.recs[rec.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = now
		s.next++
		s.seq[rec.ID] = s.next
	}
	s.recs[rec.ID] = stored
	return cloneRecord(stored), nil
}

func matchesHash(r *RelayRecord, h string) bool {
	h = strings.ToLower(h)
	if h == "" {
		return false
	}
	return r.EventHash == h || r.RelayHash == h
}

func (s *MemStore) HashExists(_ context.Context, h string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.recs {
		if matchesHash(r, h) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) FindByHash(_ context.Context, h string) (*RelayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.recs {
		if matchesHash(r, h) {
			return cloneRecord(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) UpdateStatusByHash(_ context.Context, h string, status Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if !matchesHash(r, h) {
			continue
		}
		if r.Status.Terminal() {
			return false, nil
		}
		r.Status = status
		r.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, nil
}

func (s *MemStore) ListAll(_ context.Context, limit int64) ([]*RelayRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sorted(func(*RelayRecord) bool { return true })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) ListPending(_ context.Context, limit int64) ([]*RelayRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sorted(func(r *RelayRecord) bool { return r.Status == StatusPending })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) ListPendingByUser(_ context.Context, user string) ([]*RelayRecord, error) {
	user = strings.ToLower(user)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(r *RelayRecord) bool {
		return r.Status == StatusPending && r.User == user
	}), nil
}

func (s *MemStore) ListPendingByChain(_ context.Context, chain Chain) ([]*RelayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(r *RelayRecord) bool {
		return r.Status == StatusPending && r.Chain == chain
	}), nil
}

// sorted returns clones of the matching records, newest first. Callers hold
// at least the read lock.
func (s *MemStore) sorted(match func(*RelayRecord) bool) []*RelayRecord {
	var out []*RelayRecord
	for _, r := range s.recs {
		if match(r) {
			out = append(out, cloneRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out
}

func (s *MemStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = make(map[string]*RelayRecord)
	s.seq = make(map[string]int64)
	return nil
}
