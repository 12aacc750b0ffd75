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

package bridge

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestUnpackAssetsBuy(t *testing.T) {
	var (
		user     = common.HexToAddress("0x1111111111111111111111111111111111111111")
		assetIn  = common.HexToAddress("0x2222222222222222222222222222222222222222")
		l2Token  = common.HexToAddress("0x3333333333333333333333333333333333333333")
		amount   = big.NewInt(1_000_000)
		deadline = big.NewInt(1_900_000_000)
		nonce    = big.NewInt(7)
	)
	data, err := L1ABI.Events[EventAssetsBuy].Inputs.NonIndexed().Pack(assetIn, amount, l2Token, deadline, nonce)
	require.NoError(t, err)

	l := types.Log{
		Topics: []common.Hash{
			L1ABI.Events[EventAssetsBuy].ID,
			common.BytesToHash(common.LeftPadBytes(user.Bytes(), 32)),
		},
		Data:   data,
		TxHash: common.HexToHash("0xaa"),
	}
	ev, err := UnpackAssetsBuy(l)
	require.NoError(t, err)
	require.Equal(t, user, ev.User)
	require.Equal(t, assetIn, ev.AssetIn)
	require.Equal(t, l2Token, ev.L2TargetToken)
	require.Zero(t, amount.Cmp(ev.AmountIn))
	require.Zero(t, deadline.Cmp(ev.Deadline))
	require.Zero(t, nonce.Cmp(ev.Nonce))
}

func TestUnpackAssetsSold(t *testing.T) {
	var (
		user    = common.HexToAddress("0x4444444444444444444444444444444444444444")
		token   = common.HexToAddress("0x5555555555555555555555555555555555555555")
		l1Asset = common.HexToAddress("0x6666666666666666666666666666666666666666")
	)
	data, err := L2ABI.Events[EventAssetsSold].Inputs.NonIndexed().Pack(token, big.NewInt(42), l1Asset, big.NewInt(100), big.NewInt(1))
	require.NoError(t, err)

	l := types.Log{
		Topics: []common.Hash{
			L2ABI.Events[EventAssetsSold].ID,
			common.BytesToHash(common.LeftPadBytes(user.Bytes(), 32)),
		},
		Data: data,
	}
	ev, err := UnpackAssetsSold(l)
	require.NoError(t, err)
	require.Equal(t, user, ev.User)
	require.Equal(t, token, ev.TokenToSell)
	require.Equal(t, l1Asset, ev.TargetL1Asset)
	require.EqualValues(t, 42, ev.AmountIn.Int64())
}

func TestUnpackWrongTopic(t *testing.T) {
	l := types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}}
	_, err := UnpackAssetsBuy(l)
	require.Error(t, err)
}
