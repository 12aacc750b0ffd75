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

// Package store persists relay records and answers the dedup queries the
// ingestion pipeline depends on.
package store

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a relay record. Transitions are
// monotonic: PENDING may become CONFIRMED or FAILED, terminal states are
// absorbing.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether the status may never change again.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Chain tags the destination chain of a relay.
type Chain string

const (
	ChainL1 Chain = "L1"
	ChainL2 Chain = "L2"
)

// Kind tags the relay direction.
type Kind string

const (
	KindBuy  Kind = "BUY"  // L1 intent relayed to L2
	KindSell Kind = "SELL" // L2 intent relayed to L1
)

// RelayRecord is the persisted unit: one destination-chain transaction
// submitted on behalf of one source-chain intent.
type RelayRecord struct {
	ID          string    `bson:"id" json:"id"`
	Chain       Chain     `bson:"chain" json:"chain"`
	Kind        Kind      `bson:"kind" json:"kind"`
	User        string    `bson:"user" json:"user"`
	Amount      string    `bson:"amount" json:"amount"`
	SourceToken string    `bson:"sourceToken,omitempty" json:"sourceToken,omitempty"`
	DestToken   string    `bson:"destToken,omitempty" json:"destToken,omitempty"`
	EventHash   string    `bson:"eventHash,omitempty" json:"eventHash,omitempty"`
	RelayHash   string    `bson:"relayHash,omitempty" json:"relayHash,omitempty"`
	Status      Status    `bson:"status" json:"status"`
	Timestamp   int64     `bson:"timestamp" json:"timestamp"` // unix millis at creation
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Normalize lowercases the case-insensitive fields in place. All lookups
// lowercase their inputs the same way.
func (r *RelayRecord) Normalize() {
	r.User = strings.ToLower(r.User)
	r.SourceToken = strings.ToLower(r.SourceToken)
	r.DestToken = strings.ToLower(r.DestToken)
	r.EventHash = strings.ToLower(r.EventHash)
	r.RelayHash = strings.ToLower(r.RelayHash)
}
