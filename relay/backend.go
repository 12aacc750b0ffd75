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

// Package relay contains the event pipeline: supervised subscriptions,
// deduplicated ingestion, periodic backfill and the cross-chain relayer
// that turns bridge intents into signed transactions on the other side.
package relay

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// Backend is the slice of the chain client the relay pipeline uses.
// *chain.Client implements it; tests substitute fakes.
type Backend interface {
	Name() string

	Dial(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Close()

	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)

	SubscribeEvent(ctx context.Context, name string, sink chan<- types.Log) (event.Subscription, error)
	FilterEvent(ctx context.Context, name string, fromBlock, toBlock uint64) ([]types.Log, error)

	DomainSeparator(ctx context.Context) ([32]byte, error)
	UsedNonces(ctx context.Context, user common.Address) (*big.Int, error)
	UserLpShare(ctx context.Context, user, asset common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)

	ExecuteBuy(ctx context.Context, user, l2Token common.Address, amount, minOut, nonce, deadline *big.Int, sig []byte) (*types.Transaction, error)
	Withdraw(ctx context.Context, user, asset common.Address, lpShare, nonce, deadline *big.Int, sig []byte) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}
