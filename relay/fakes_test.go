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
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// fakeSub is a manually erroring event.Subscription.
type fakeSub struct {
	errCh chan error
	once  sync.Once
}

func newFakeSub() *fakeSub {
	return &fakeSub{errCh: make(chan error, 1)}
}

func (s *fakeSub) Err() <-chan error { return s.errCh }
func (s *fakeSub) Unsubscribe()      { s.once.Do(func() {}) }
func (s *fakeSub) fail(err error)    { s.errCh <- err }

type executeBuyCall struct {
	user, l2Token          common.Address
	amount, minOut         *big.Int
	nonce, deadline        *big.Int
	sig                    []byte
}

type withdrawCall struct {
	user, asset     common.Address
	lpShare         *big.Int
	nonce, deadline *big.Int
	sig             []byte
}

// fakeBackend is an in-memory Backend for pipeline tests.
type fakeBackend struct {
	name string

	mu             sync.Mutex
	dialErr        error
	reconnectErr   error
	subscribeErr   error
	dialCalls      int
	reconnectCalls int

	blockNumber uint64
	blockErr    error
	chainID     *big.Int

	domain    [32]byte
	usedNonce *big.Int
	decimals  uint8
	lpShare   *big.Int

	execErr     error
	withdrawErr error
	waitErr     error
	// receipt status applied to every mined transaction
	receiptStatus uint64

	filterLogs []types.Log
	filterFrom uint64
	filterTo   uint64

	txSeq        uint64
	executeCalls []executeBuyCall
	withdraws    []withdrawCall

	sink chan<- types.Log
	subs []*fakeSub
}

func newFakeBackend(name string) *fakeBackend {
	return &fakeBackend{
		name:          name,
		chainID:       big.NewInt(1337),
		domain:        [32]byte{0xd0},
		usedNonce:     big.NewInt(0),
		decimals:      18,
		lpShare:       big.NewInt(0),
		receiptStatus: types.ReceiptStatusSuccessful,
	}
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Dial(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialCalls++
	return f.dialErr
}

func (f *fakeBackend) Reconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnectCalls++
	return f.reconnectErr
}

func (f *fakeBackend) Close() {}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockNumber, f.blockErr
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeBackend) SubscribeEvent(_ context.Context, _ string, sink chan<- types.Log) (event.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	sub := newFakeSub()
	f.sink = sink
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeBackend) FilterEvent(_ context.Context, _ string, from, to uint64) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filterFrom, f.filterTo = from, to
	return f.filterLogs, nil
}

func (f *fakeBackend) DomainSeparator(context.Context) ([32]byte, error) {
	return f.domain, nil
}

func (f *fakeBackend) UsedNonces(context.Context, common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usedNonce == nil {
		return nil, f.blockErr
	}
	return new(big.Int).Set(f.usedNonce), nil
}

func (f *fakeBackend) UserLpShare(context.Context, common.Address, common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.lpShare), nil
}

func (f *fakeBackend) TokenDecimals(context.Context, common.Address) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decimals, nil
}

func (f *fakeBackend) newTx() *types.Transaction {
	f.txSeq++
	to := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	return types.NewTx(&types.LegacyTx{
		Nonce:    f.txSeq,
		To:       &to,
		Gas:      500_000,
		GasPrice: big.NewInt(1),
	})
}

func (f *fakeBackend) ExecuteBuy(_ context.Context, user, l2Token common.Address, amount, minOut, nonce, deadline *big.Int, sig []byte) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return nil, f.execErr
	}
	f.executeCalls = append(f.executeCalls, executeBuyCall{user, l2Token, amount, minOut, nonce, deadline, sig})
	return f.newTx(), nil
}

func (f *fakeBackend) Withdraw(_ context.Context, user, asset common.Address, lpShare, nonce, deadline *big.Int, sig []byte) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.withdrawErr != nil {
		return nil, f.withdrawErr
	}
	f.withdraws = append(f.withdraws, withdrawCall{user, asset, lpShare, nonce, deadline, sig})
	return f.newTx(), nil
}

func (f *fakeBackend) WaitMined(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	return &types.Receipt{
		Status:      f.receiptStatus,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(42),
	}, nil
}

func (f *fakeBackend) setBlockErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockErr = err
}

func (f *fakeBackend) dials() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialCalls
}

func (f *fakeBackend) reconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnectCalls
}

func (f *fakeBackend) sinkCh() chan<- types.Log {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sink
}

func (f *fakeBackend) subCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeBackend) lastSub() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

// recordingDispatcher captures dispatched intents.
type recordingDispatcher struct {
	mu    sync.Mutex
	buys  []*BuyIntent
	sells []*SellIntent
	err   error
}

func (d *recordingDispatcher) RelayBuy(_ context.Context, intent *BuyIntent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buys = append(d.buys, intent)
	return d.err
}

func (d *recordingDispatcher) RelaySell(_ context.Context, intent *SellIntent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sells = append(d.sells, intent)
	return d.err
}

func (d *recordingDispatcher) buyCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buys)
}

func (d *recordingDispatcher) sellCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sells)
}
