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

	"github.com/ethereum/go-ethereum/common"
)

// BuyIntent is a decoded AssetsBuy event together with the hash of the
// transaction that emitted it.
type BuyIntent struct {
	User          common.Address
	AssetIn       common.Address
	L2TargetToken common.Address
	AmountIn      *big.Int
	Deadline      *big.Int
	Nonce         *big.Int
	EventHash     common.Hash
}

// SellIntent is a decoded ASSETS_SOLD event together with the hash of the
// transaction that emitted it.
type SellIntent struct {
	User          common.Address
	TokenToSell   common.Address
	TargetL1Asset common.Address
	AmountIn      *big.Int
	Deadline      *big.Int
	Nonce         *big.Int
	EventHash     common.Hash
}
