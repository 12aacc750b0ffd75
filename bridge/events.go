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
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var errWrongTopic = errors.New("bridge: log topic does not match event")

// AssetsBuyEvent is the decoded AssetsBuy intent emitted by the L1 bridge.
type AssetsBuyEvent struct {
	User          common.Address
	AssetIn       common.Address
	AmountIn      *big.Int
	L2TargetToken common.Address
	Deadline      *big.Int
	Nonce         *big.Int
}

// AssetsSoldEvent is the decoded ASSETS_SOLD intent emitted by the L2 bridge.
type AssetsSoldEvent struct {
	User          common.Address
	TokenToSell   common.Address
	AmountIn      *big.Int
	TargetL1Asset common.Address
	Deadline      *big.Int
	Nonce         *big.Int
}

// UnpackAssetsBuy decodes an AssetsBuy log. The user lives in the indexed
// topics, everything else in the data section.
func UnpackAssetsBuy(l types.Log) (*AssetsBuyEvent, error) {
	ev := new(AssetsBuyEvent)
	if err := unpackLog(L1ABI, ev, EventAssetsBuy, l); err != nil {
		return nil, err
	}
	return ev, nil
}

// UnpackAssetsSold decodes an ASSETS_SOLD log.
func UnpackAssetsSold(l types.Log) (*AssetsSoldEvent, error) {
	ev := new(AssetsSoldEvent)
	if err := unpackLog(L2ABI, ev, EventAssetsSold, l); err != nil {
		return nil, err
	}
	return ev, nil
}

func unpackLog(contract abi.ABI, out interface{}, name string, l types.Log) error {
	event, ok := contract.Events[name]
	if !ok {
		return fmt.Errorf("bridge: unknown event %q", name)
	}
	if len(l.Topics) == 0 || l.Topics[0] != event.ID {
		return errWrongTopic
	}
	if len(l.Data) > 0 {
		if err := contract.UnpackIntoInterface(out, name, l.Data); err != nil {
			return fmt.Errorf("unpacking %s data: %w", name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopics(out, indexed, l.Topics[1:]); err != nil {
		return fmt.Errorf("unpacking %s topics: %w", name, err)
	}
	return nil
}
