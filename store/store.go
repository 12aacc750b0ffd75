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
	"errors"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("store: record not found")

// DefaultListLimit bounds ListAll when the caller passes no limit.
const DefaultListLimit = 1000

// TxStore is the durable mapping from relay-record id to relay record.
// eventHash is sparse-unique across the store; it is the dedup key.
type TxStore interface {
	// UpsertByID inserts the record or updates the record with the same id
	// in place, and returns the stored state.
	UpsertByID(ctx context.Context, rec *RelayRecord) (*RelayRecord, error)

	// HashExists reports whether any record carries h as its eventHash or
	// relayHash.
	HashExists(ctx context.Context, h string) (bool, error)

	// FindByHash returns the first record matching h on either hash field,
	// or ErrNotFound.
	FindByHash(ctx context.Context, h string) (*RelayRecord, error)

	// UpdateStatusByHash sets status on the record matching either hash and
	// reports whether a row changed. Terminal statuses are never downgraded;
	// such calls return false.
	UpdateStatusByHash(ctx context.Context, h string, status Status) (bool, error)

	// ListAll returns up to limit records, most recent first by createdAt.
	// limit <= 0 applies DefaultListLimit.
	ListAll(ctx context.Context, limit int64) ([]*RelayRecord, error)

	// ListPending returns up to limit PENDING records, most recent first.
	// limit <= 0 applies DefaultListLimit.
	ListPending(ctx context.Context, limit int64) ([]*RelayRecord, error)

	// ListPendingByUser returns the user's PENDING records.
	ListPendingByUser(ctx context.Context, user string) ([]*RelayRecord, error)

	// ListPendingByChain returns the destination chain's PENDING records.
	ListPendingByChain(ctx context.Context, chain Chain) ([]*RelayRecord, error)

	// ClearAll removes every record. Administrative use only.
	ClearAll(ctx context.Context) error
}
