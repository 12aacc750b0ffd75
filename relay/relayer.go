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
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/poolbridge/relayd/chain"
	"github.com/poolbridge/relayd/signer"
	"github.com/poolbridge/relayd/store"
)

// Relayer mirrors intents across the bridge: L1 buys become executeBuy
// transactions on L2, L2 sells become withdraw transactions on L1. Each
// submission carries a fresh operator signature over the destination
// chain's EIP-712 domain.
type Relayer struct {
	l1     Backend
	l2     Backend
	signer *signer.Signer
	store  store.TxStore
	dedup  *DedupIndex
	log    log.Logger
}

// NewRelayer wires the relayer over both chains.
func NewRelayer(l1, l2 Backend, sig *signer.Signer, st store.TxStore, dedup *DedupIndex) *Relayer {
	return &Relayer{
		l1:     l1,
		l2:     l2,
		signer: sig,
		store:  st,
		dedup:  dedup,
		log:    log.New("module", "relayer"),
	}
}

// RelayBuy turns an L1 AssetsBuy intent into an executeBuy on L2. Until a
// transaction is actually handed to the node, any failure releases the
// dedup claim so the backfiller can retry the event later.
func (r *Relayer) RelayBuy(ctx context.Context, intent *BuyIntent) error {
	logger := r.log.New("kind", "buy", "event", intent.EventHash, "user", intent.User)
	submitted := false
	defer func() {
		if !submitted {
			r.dedup.Remove(intent.EventHash)
		}
	}()

	used, err := r.l2.UsedNonces(ctx, intent.User)
	if err != nil {
		return fmt.Errorf("reading used nonce: %w", err)
	}
	nonce := new(big.Int).Add(used, big.NewInt(1))

	decimals, err := r.l1.TokenDecimals(ctx, intent.AssetIn)
	if err != nil {
		return fmt.Errorf("reading source token decimals: %w", err)
	}
	amount := NormalizeTo18(intent.AmountIn, decimals)

	domain, err := r.l2.DomainSeparator(ctx)
	if err != nil {
		return fmt.Errorf("reading domain separator: %w", err)
	}
	// The destination contract verifies the buy struct with a zero assetIn.
	digest := signer.BuyDigest(domain, intent.User, intent.L2TargetToken, common.Address{}, amount, nonce, intent.Deadline)
	sig, err := r.signer.Sign(digest)
	if err != nil {
		return fmt.Errorf("signing buy authorization: %w", err)
	}

	tx, err := r.l2.ExecuteBuy(ctx, intent.User, intent.L2TargetToken, amount, big.NewInt(0), nonce, intent.Deadline, sig)
	if err != nil {
		if chain.IsAlreadyKnown(err) {
			// Another path submitted this relay first. Keep the claim.
			submitted = true
			logger.Warn("Relay transaction already known", "err", err)
			return nil
		}
		return fmt.Errorf("submitting executeBuy: %w", err)
	}
	submitted = true
	submittedCounter.Inc(1)
	relayHash := tx.Hash()
	r.dedup.ContainsOrAdd(relayHash)
	logger.Info("Buy relayed", "tx", relayHash, "amount", amount, "nonce", nonce)

	rec := &store.RelayRecord{
		ID:          uuid.NewString(),
		Chain:       store.ChainL2,
		Kind:        store.KindBuy,
		User:        strings.ToLower(intent.User.Hex()),
		Amount:      FormatUnits(amount, 18),
		SourceToken: strings.ToLower(intent.AssetIn.Hex()),
		DestToken:   strings.ToLower(intent.L2TargetToken.Hex()),
		EventHash:   intent.EventHash.Hex(),
		RelayHash:   relayHash.Hex(),
		Status:      store.StatusPending,
		Timestamp:   time.Now().UnixMilli(),
	}
	if _, err := r.store.UpsertByID(ctx, rec); err != nil {
		logger.Error("Recording relay failed", "tx", relayHash, "err", err)
	}

	return r.finalize(ctx, logger, r.l2, tx, relayHash)
}

// RelaySell turns an L2 ASSETS_SOLD intent into a withdraw on L1. The
// withdrawn amount is the user's current LP share of the target asset as
// reported by the L1 bridge.
func (r *Relayer) RelaySell(ctx context.Context, intent *SellIntent) error {
	logger := r.log.New("kind", "sell", "event", intent.EventHash, "user", intent.User)
	submitted := false
	defer func() {
		if !submitted {
			r.dedup.Remove(intent.EventHash)
		}
	}()

	used, err := r.l1.UsedNonces(ctx, intent.User)
	if err != nil {
		return fmt.Errorf("reading used nonce: %w", err)
	}
	nonce := new(big.Int).Add(used, big.NewInt(1))

	lpShare, err := r.l1.UserLpShare(ctx, intent.User, intent.TargetL1Asset)
	if err != nil {
		return fmt.Errorf("reading lp share: %w", err)
	}
	if lpShare.Sign() == 0 {
		logger.Warn("User has no LP share to withdraw, skipping")
		droppedCounter.Inc(1)
		// Keep the claim: retrying a zero withdrawal cannot succeed either.
		submitted = true
		return nil
	}

	domain, err := r.l1.DomainSeparator(ctx)
	if err != nil {
		return fmt.Errorf("reading domain separator: %w", err)
	}
	digest := signer.WithdrawDigest(domain, intent.User, intent.TargetL1Asset, nonce, intent.Deadline)
	sig, err := r.signer.Sign(digest)
	if err != nil {
		return fmt.Errorf("signing withdraw authorization: %w", err)
	}

	tx, err := r.l1.Withdraw(ctx, intent.User, intent.TargetL1Asset, lpShare, nonce, intent.Deadline, sig)
	if err != nil {
		if chain.IsAlreadyKnown(err) {
			submitted = true
			logger.Warn("Relay transaction already known", "err", err)
			return nil
		}
		return fmt.Errorf("submitting withdraw: %w", err)
	}
	submitted = true
	submittedCounter.Inc(1)
	relayHash := tx.Hash()
	r.dedup.ContainsOrAdd(relayHash)
	logger.Info("Sell relayed", "tx", relayHash, "lpShare", lpShare, "nonce", nonce)

	rec := &store.RelayRecord{
		ID:          uuid.NewString(),
		Chain:       store.ChainL1,
		Kind:        store.KindSell,
		User:        strings.ToLower(intent.User.Hex()),
		Amount:      FormatUnits(lpShare, 18),
		SourceToken: strings.ToLower(intent.TokenToSell.Hex()),
		DestToken:   strings.ToLower(intent.TargetL1Asset.Hex()),
		EventHash:   intent.EventHash.Hex(),
		RelayHash:   relayHash.Hex(),
		Status:      store.StatusPending,
		Timestamp:   time.Now().UnixMilli(),
	}
	if _, err := r.store.UpsertByID(ctx, rec); err != nil {
		logger.Error("Recording relay failed", "tx", relayHash, "err", err)
	}

	return r.finalize(ctx, logger, r.l1, tx, relayHash)
}

// finalize waits for the relay transaction to mine and settles the record
// into CONFIRMED or FAILED. A wait error leaves the record PENDING for the
// next run to reconcile.
func (r *Relayer) finalize(ctx context.Context, logger log.Logger, backend Backend, tx *types.Transaction, relayHash common.Hash) error {
	receipt, err := backend.WaitMined(ctx, tx)
	if err != nil {
		return fmt.Errorf("waiting for relay %s: %w", relayHash, err)
	}

	status := store.StatusFailed
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = store.StatusConfirmed
		confirmedCounter.Inc(1)
	} else {
		failedCounter.Inc(1)
	}
	if _, err := r.store.UpdateStatusByHash(ctx, relayHash.Hex(), status); err != nil {
		logger.Error("Settling relay status failed", "tx", relayHash, "status", status, "err", err)
		return nil
	}
	if status == store.StatusConfirmed {
		logger.Info("Relay confirmed", "tx", relayHash, "block", receipt.BlockNumber)
	} else {
		logger.Warn("Relay reverted on-chain", "tx", relayHash, "block", receipt.BlockNumber)
	}
	return nil
}
