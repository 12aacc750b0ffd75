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
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestRawEventHashProbeOrder(t *testing.T) {
	explicit := common.HexToHash("0x01")
	fromLog := common.HexToHash("0x02")
	fromReceipt := common.HexToHash("0x03")

	to := common.HexToAddress("0xbb")
	tx := types.NewTx(&types.LegacyTx{Nonce: 9, To: &to, Gas: 21000, GasPrice: big.NewInt(1)})

	// The explicit hash wins over every other carrier.
	ev := &RawEvent{
		TxHash:  explicit,
		Log:     &types.Log{TxHash: fromLog},
		Receipt: &types.Receipt{TxHash: fromReceipt},
		Tx:      tx,
	}
	require.Equal(t, explicit, ev.Hash())

	ev.TxHash = common.Hash{}
	require.Equal(t, fromLog, ev.Hash())

	ev.Log = nil
	require.Equal(t, fromReceipt, ev.Hash())

	ev.Receipt = nil
	require.Equal(t, tx.Hash(), ev.Hash())

	ev.Tx = nil
	require.Equal(t, common.Hash{}, ev.Hash())
}

func TestRawEventEmptyCarriers(t *testing.T) {
	// A log carrier without a hash falls through to the next one.
	to := common.HexToAddress("0xbb")
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, To: &to, Gas: 21000, GasPrice: big.NewInt(1)})
	ev := &RawEvent{Log: &types.Log{}, Tx: tx}
	require.Equal(t, tx.Hash(), ev.Hash())
}
