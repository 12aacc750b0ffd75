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

// Package bridge holds the on-chain surface the relayer consumes: the ABIs
// of the two bridge contracts, the intent event names and typed decoders
// for the emitted logs.
package bridge

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Intent event names as emitted by the bridge contracts.
const (
	EventAssetsBuy  = "AssetsBuy"
	EventAssetsSold = "ASSETS_SOLD"
)

const l1BridgeJSON = `[
	{"type":"event","name":"AssetsBuy","inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"assetIn","type":"address","indexed":false},
		{"name":"amountIn","type":"uint256","indexed":false},
		{"name":"l2TargetToken","type":"address","indexed":false},
		{"name":"deadline","type":"uint256","indexed":false},
		{"name":"nonce","type":"uint256","indexed":false}]},
	{"type":"function","name":"DOMAIN_SEPARATOR","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"usedNonces","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getUserLpShare","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"asset","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[
		{"name":"user","type":"address"},
		{"name":"asset","type":"address"},
		{"name":"lpShare","type":"uint256"},
		{"name":"nonce","type":"uint256"},
		{"name":"deadline","type":"uint256"},
		{"name":"sig","type":"bytes"}],"outputs":[]}
]`

const l2BridgeJSON = `[
	{"type":"event","name":"ASSETS_SOLD","inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"tokenToSell","type":"address","indexed":false},
		{"name":"amountIn","type":"uint256","indexed":false},
		{"name":"targetL1Asset","type":"address","indexed":false},
		{"name":"deadline","type":"uint256","indexed":false},
		{"name":"nonce","type":"uint256","indexed":false}]},
	{"type":"function","name":"DOMAIN_SEPARATOR","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"usedNonces","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"executeBuy","stateMutability":"nonpayable","inputs":[
		{"name":"user","type":"address"},
		{"name":"l2Token","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"minOut","type":"uint256"},
		{"name":"nonce","type":"uint256"},
		{"name":"deadline","type":"uint256"},
		{"name":"sig","type":"bytes"}],"outputs":[]}
]`

const erc20JSON = `[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var (
	// L1ABI is the parsed interface of the L1 bridge contract.
	L1ABI abi.ABI
	// L2ABI is the parsed interface of the L2 bridge contract.
	L2ABI abi.ABI
	// ERC20ABI covers the decimals() read the relayer performs on tokens.
	ERC20ABI abi.ABI
)

func init() {
	L1ABI = mustParse(l1BridgeJSON)
	L2ABI = mustParse(l2BridgeJSON)
	ERC20ABI = mustParse(erc20JSON)
}

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("bridge: invalid embedded ABI: " + err.Error())
	}
	return parsed
}
