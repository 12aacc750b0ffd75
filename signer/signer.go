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

// Package signer builds the EIP-712 digests the bridge contracts verify and
// signs them with the operator key. Every produced signature is checked by
// recovering the address from the digest before it leaves this package.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSignatureMismatch means the address recovered from a fresh signature
// disagrees with the operator address. The intent must be abandoned.
var ErrSignatureMismatch = errors.New("signer: recovered address does not match operator")

// Type hashes of the structs the destination contracts verify.
var (
	BuyTypeHash = crypto.Keccak256Hash(
		[]byte("ASSETS_BUY(address user,address l2Token,address assetIn,uint256 amount,uint256 nonce,uint256 deadline)"))
	WithdrawTypeHash = crypto.Keccak256Hash(
		[]byte("ASSETS_SOLD(address user,address assetToWithdraw,uint256 nonce,uint256 deadline)"))
)

// Signer holds the operator key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// New parses a hex private key, with or without 0x prefix.
func New(hexkey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexkey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing operator key: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// FromKey wraps an already parsed operator key.
func FromKey(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address returns the operator address.
func (s *Signer) Address() common.Address { return s.address }

// BuyDigest computes the EIP-712 digest of an ASSETS_BUY authorization.
// The contract currently expects assetIn to be the zero address; callers
// pass it through unchanged.
func BuyDigest(domain [32]byte, user, l2Token, assetIn common.Address, amount, nonce, deadline *big.Int) common.Hash {
	structHash := crypto.Keccak256(
		BuyTypeHash.Bytes(),
		padAddress(user),
		padAddress(l2Token),
		padAddress(assetIn),
		padUint(amount),
		padUint(nonce),
		padUint(deadline),
	)
	return digest(domain, structHash)
}

// WithdrawDigest computes the EIP-712 digest of an ASSETS_SOLD authorization.
func WithdrawDigest(domain [32]byte, user, asset common.Address, nonce, deadline *big.Int) common.Hash {
	structHash := crypto.Keccak256(
		WithdrawTypeHash.Bytes(),
		padAddress(user),
		padAddress(asset),
		padUint(nonce),
		padUint(deadline),
	)
	return digest(domain, structHash)
}

// digest = keccak256(0x19 || 0x01 || domainSeparator || structHash)
func digest(domain [32]byte, structHash []byte) common.Hash {
	return crypto.Keccak256Hash([]byte("\x19\x01"), domain[:], structHash)
}

// Sign produces a 65-byte [R || S || V] signature with V in {27, 28},
// recovering the address first to assert it matches the operator.
func (s *Signer) Sign(d common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(d.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("signing digest: %w", err)
	}
	pub, err := crypto.SigToPub(d.Bytes(), sig)
	if err != nil {
		return nil, fmt.Errorf("recovering signer: %w", err)
	}
	if crypto.PubkeyToAddress(*pub) != s.address {
		return nil, ErrSignatureMismatch
	}
	out := make([]byte, 65)
	copy(out, sig)
	out[64] += 27
	return out, nil
}

func padAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

func padUint(x *big.Int) []byte {
	if x == nil {
		x = common.Big0
	}
	return common.LeftPadBytes(x.Bytes(), 32)
}
