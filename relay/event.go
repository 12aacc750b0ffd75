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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// RawEvent is an event as delivered by any of the sources feeding the
// ingestor. Live subscriptions only populate Log; other providers may
// attach the hash, the receipt or the transaction instead.
type RawEvent struct {
	TxHash  common.Hash
	Log     *types.Log
	Receipt *types.Receipt
	Tx      *types.Transaction
}

// Hash extracts the emitting transaction's hash, probing the carriers in a
// fixed order: explicit hash, log, receipt, transaction. Returns the zero
// hash when none is populated.
func (e *RawEvent) Hash() common.Hash {
	switch {
	case e.TxHash != (common.Hash{}):
		return e.TxHash
	case e.Log != nil && e.Log.TxHash != (common.Hash{}):
		return e.Log.TxHash
	case e.Receipt != nil && e.Receipt.TxHash != (common.Hash{}):
		return e.Receipt.TxHash
	case e.Tx != nil:
		return e.Tx.Hash()
	default:
		return common.Hash{}
	}
}
