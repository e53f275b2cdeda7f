// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/xrouter/token"
)

// InitiateWithdraw queues a withdrawal request for the strategy. The
// amount is either a fixed value or the caller's entire position; the
// ledger records intent only — resolution happens at approval time.
func (r *Router) InitiateWithdraw(user common.Address, strategyID uint64, amount WithdrawalAmount) error {
	if amount.Kind == FixedAmount && (amount.Value == nil || amount.Value.Sign() == 0) {
		return ErrZeroAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.ledger(strategyID)
	w := l.enqueueWithdrawal(user, amount)
	if r.journal != nil {
		if err := r.journal.RecordWithdrawalEnqueued(strategyID, w.ID); err != nil {
			r.log.Warn("journal write failed", "strategy", strategyID, "id", w.ID, "err", err)
		}
	}

	r.log.Debug("withdrawal requested", "user", user, "strategy", strategyID, "id", w.ID, "kind", amount.Kind)
	r.emit(RequestedWithdrawEvent{Withdrawer: user, StrategyID: strategyID, Amount: amount.Magnitude()})
	return nil
}

// ApproveWithdraw settles one pending withdrawal using funds returned to
// the router, paying the resolved amount to the withdrawer. Settlement is
// strictly in order: only the request just above the watermark is
// approvable. A failed token transfer leaves the request pending and
// retryable with no ledger change. Relayer only.
func (r *Router) ApproveWithdraw(caller common.Address, nativeFee *big.Int, strategyID, withdrawalID uint64) error {
	if err := r.policy.Allow(caller); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.ledgers[strategyID]
	if l == nil {
		return ErrInvalidRequestID
	}
	w := l.pendingWithdrawals[withdrawalID]
	if w == nil || w.Status != WithdrawalPending || withdrawalID != l.maxProcessedWithdrawalID+1 {
		return ErrInvalidRequestID
	}
	if r.journal != nil {
		// A journaled outcome means this ID already settled before a restart.
		if _, done := r.journal.WithdrawalOutcome(strategyID, withdrawalID); done {
			return ErrInvalidRequestID
		}
	}

	resolved := l.resolveWithdrawal(w)

	// Payout precedes any ledger mutation; a false return from the token
	// keeps the request pending so the relayer can retry.
	if resolved.Sign() > 0 {
		if !r.stable.Transfer(r.addr, w.Withdrawer, resolved) {
			return ErrTransferFailed
		}
	}

	if err := l.settleWithdrawal(w, resolved); err != nil {
		return err
	}
	if r.journal != nil {
		if err := r.journal.RecordWithdrawalOutcome(strategyID, withdrawalID, WithdrawalSettled); err != nil {
			r.log.Warn("journal write failed", "strategy", strategyID, "id", withdrawalID, "err", err)
		}
	}

	r.log.Info("withdrawal settled",
		"strategy", strategyID, "id", withdrawalID,
		"withdrawer", w.Withdrawer, "resolved", resolved, "fee", nativeFee)
	r.emit(WithdrawnEvent{Withdrawer: w.Withdrawer, StrategyID: strategyID, Amount: resolved})
	return nil
}

// CancelWithdraw cancels every currently pending withdrawal request of a
// strategy, as driven by a failed bridge-back. No funds move; the pending
// total returns to zero and the withdrawers' shares are exactly as if the
// requests never happened. Relayer only.
func (r *Router) CancelWithdraw(caller common.Address, destChainID uint16, strategyID uint64) error {
	if err := r.policy.Allow(caller); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.ledgers[strategyID]
	if l == nil || l.maxProcessedWithdrawalID >= l.lastPendingWithdrawalID {
		return ErrInvalidRequestID
	}

	cancelled := l.cancelPending()
	for _, w := range cancelled {
		if r.journal != nil {
			if err := r.journal.RecordWithdrawalOutcome(strategyID, w.ID, WithdrawalCancelled); err != nil {
				r.log.Warn("journal write failed", "strategy", strategyID, "id", w.ID, "err", err)
			}
		}
		r.emit(CancelWithdrawnEvent{Withdrawer: w.Withdrawer, StrategyID: strategyID, Amount: w.Amount.Magnitude()})
	}

	r.log.Info("withdrawals cancelled",
		"strategy", strategyID, "destChain", destChainID, "count", len(cancelled))
	return nil
}

// WithdrawLossTokens sweeps tokens stranded at the router (bridge dust,
// mistaken sends) to the treasurer. Relayer only.
func (r *Router) WithdrawLossTokens(caller common.Address, tok token.Token, amount *big.Int) error {
	if err := r.policy.Allow(caller); err != nil {
		return err
	}
	if tok == nil || amount == nil || amount.Sign() == 0 {
		return ErrZeroAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !tok.Transfer(r.addr, r.treasurer, amount) {
		return ErrTransferFailed
	}
	r.log.Info("loss tokens swept", "token", tok.Address(), "amount", amount, "treasurer", r.treasurer)
	return nil
}
