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

package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// ConnectionError marks a dead or unreachable transport. The supervisor owns
// recovery through its reconnect loop.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("connection error in %s: %v", e.Op, e.Err) }
func (e *ConnectionError) Unwrap() error { return e.Err }

// ChainError marks an error response returned by the RPC endpoint itself.
// The transport is alive; the call is surfaced to the caller and the intent
// is left to the backfiller.
type ChainError struct {
	Op  string
	Err error
}

func (e *ChainError) Error() string { return fmt.Sprintf("chain error in %s: %v", e.Op, e.Err) }
func (e *ChainError) Unwrap() error { return e.Err }

// TxError marks a rejected transaction submission.
type TxError struct {
	Method string
	Err    error
}

func (e *TxError) Error() string { return fmt.Sprintf("sending %s: %v", e.Method, e.Err) }
func (e *TxError) Unwrap() error { return e.Err }

// IsAlreadyKnown reports whether a submission error means the node has the
// transaction in its pool already. Matches the node's message substring, the
// same one go-ethereum's txpool emits.
func IsAlreadyKnown(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already known")
}

// classify wraps err as a ChainError when the endpoint answered with an RPC
// error object, and as a ConnectionError otherwise.
func classify(op string, err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &ChainError{Op: op, Err: err}
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return &ChainError{Op: op, Err: err}
	}
	return &ConnectionError{Op: op, Err: err}
}
