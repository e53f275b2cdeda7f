// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// strategyLedger is the per-strategy accounting record. One is created
// lazily on first deposit to a strategy ID and never deleted. All access
// is serialized by the owning Router's lock.
type strategyLedger struct {
	strategyID uint64

	// Pending request queues. IDs are strictly increasing from 1, never
	// reused, never skipped. Records persist after processing; the
	// watermarks below mark everything at or below them as resolved.
	pendingDeposits    map[uint64]*PendingDeposit
	pendingWithdrawals map[uint64]*PendingWithdrawal

	lastPendingDepositID     uint64
	maxProcessedDepositID    uint64
	lastPendingWithdrawalID  uint64
	maxProcessedWithdrawalID uint64

	// Running totals over unresolved entries.
	pendingDepositTotal    *big.Int
	pendingWithdrawalTotal *big.Int

	// Share accounting aggregates.
	totalShares    *big.Int
	totalDeposited *big.Int

	// reportedTVL is the strategy's valuation after the most recent batch
	// transfer: the relayer-reported pre-transfer TVL plus the batch just
	// sent. Entire-position withdrawals resolve against it.
	reportedTVL *big.Int

	positions map[common.Address]*UserPosition
}

func newStrategyLedger(strategyID uint64) *strategyLedger {
	return &strategyLedger{
		strategyID:             strategyID,
		pendingDeposits:        make(map[uint64]*PendingDeposit),
		pendingWithdrawals:     make(map[uint64]*PendingWithdrawal),
		pendingDepositTotal:    big.NewInt(0),
		pendingWithdrawalTotal: big.NewInt(0),
		totalShares:            big.NewInt(0),
		totalDeposited:         big.NewInt(0),
		reportedTVL:            big.NewInt(0),
		positions:              make(map[common.Address]*UserPosition),
	}
}

func (l *strategyLedger) position(user common.Address) *UserPosition {
	p := l.positions[user]
	if p == nil {
		p = &UserPosition{Deposit: big.NewInt(0), Shares: big.NewInt(0)}
		l.positions[user] = p
	}
	return p
}

// enqueueDeposit assigns the next deposit ID and records the entry.
func (l *strategyLedger) enqueueDeposit(depositor common.Address, amount *big.Int, tokenIn common.Address) *PendingDeposit {
	l.lastPendingDepositID++
	d := &PendingDeposit{
		ID:        l.lastPendingDepositID,
		Depositor: depositor,
		Amount:    new(big.Int).Set(amount),
		TokenIn:   tokenIn,
	}
	l.pendingDeposits[d.ID] = d
	l.pendingDepositTotal.Add(l.pendingDepositTotal, amount)
	return d
}

// enqueueWithdrawal assigns the next withdrawal ID and records the request.
func (l *strategyLedger) enqueueWithdrawal(withdrawer common.Address, amount WithdrawalAmount) *PendingWithdrawal {
	l.lastPendingWithdrawalID++
	w := &PendingWithdrawal{
		ID:         l.lastPendingWithdrawalID,
		Withdrawer: withdrawer,
		Amount:     amount,
		Status:     WithdrawalPending,
	}
	l.pendingWithdrawals[w.ID] = w
	l.pendingWithdrawalTotal.Add(l.pendingWithdrawalTotal, amount.Magnitude())
	return w
}

// settleDepositBatch mints shares for every unprocessed deposit against the
// reported valuation and advances the deposit watermark over the whole
// queue. The batch settles as one unit; there is no partial-batch state.
func (l *strategyLedger) settleDepositBatch(reportedTVL *big.Int) (*big.Int, error) {
	if l.maxProcessedDepositID > l.lastPendingDepositID {
		return nil, fmt.Errorf("%w: deposit watermark %d ahead of queue %d (strategy %d)",
			ErrLedgerCorrupted, l.maxProcessedDepositID, l.lastPendingDepositID, l.strategyID)
	}

	batchTotal := big.NewInt(0)
	for id := l.maxProcessedDepositID + 1; id <= l.lastPendingDepositID; id++ {
		d := l.pendingDeposits[id]
		if d == nil {
			return nil, fmt.Errorf("%w: missing deposit %d (strategy %d)", ErrLedgerCorrupted, id, l.strategyID)
		}
		minted := sharesFor(d.Amount, l.totalShares, reportedTVL)
		p := l.position(d.Depositor)
		p.Deposit.Add(p.Deposit, d.Amount)
		p.Shares.Add(p.Shares, minted)
		l.totalShares.Add(l.totalShares, minted)
		l.totalDeposited.Add(l.totalDeposited, d.Amount)
		batchTotal.Add(batchTotal, d.Amount)
	}

	l.maxProcessedDepositID = l.lastPendingDepositID
	l.pendingDepositTotal.SetInt64(0)
	l.reportedTVL = new(big.Int).Add(reportedTVL, batchTotal)
	return batchTotal, nil
}

// sharesFor computes the shares minted for a transferred amount. The first
// transfer into an empty strategy bootstraps 1:1; a zero reported TVL also
// falls back to 1:1 so an empty or reset strategy never divides by zero.
func sharesFor(amount, totalShares, reportedTVL *big.Int) *big.Int {
	if totalShares.Sign() == 0 || reportedTVL.Sign() == 0 {
		return new(big.Int).Set(amount)
	}
	minted := new(big.Int).Mul(amount, totalShares)
	return minted.Div(minted, reportedTVL)
}

// resolveWithdrawal computes the payout for a request at current valuation.
// Entire-position requests resolve to the withdrawer's live share value,
// not a magnitude captured at request time.
func (l *strategyLedger) resolveWithdrawal(w *PendingWithdrawal) *big.Int {
	if w.Amount.Kind == FixedAmount {
		return new(big.Int).Set(w.Amount.Value)
	}
	p := l.position(w.Withdrawer)
	if l.totalShares.Sign() == 0 || p.Shares.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(p.Shares, l.reportedTVL)
	return out.Div(out, l.totalShares)
}

// settleWithdrawal commits a successful payout: debits the position and
// aggregates, retires the request and advances the withdrawal watermark.
// The token transfer has already succeeded when this runs.
func (l *strategyLedger) settleWithdrawal(w *PendingWithdrawal, resolved *big.Int) error {
	magnitude := w.Amount.Magnitude()
	if l.pendingWithdrawalTotal.Cmp(magnitude) < 0 {
		return fmt.Errorf("%w: pending withdrawals %s below request %d magnitude (strategy %d)",
			ErrLedgerCorrupted, l.pendingWithdrawalTotal, w.ID, l.strategyID)
	}
	if w.ID <= l.maxProcessedWithdrawalID {
		return fmt.Errorf("%w: withdrawal watermark would regress at %d (strategy %d)",
			ErrLedgerCorrupted, w.ID, l.strategyID)
	}

	p := l.position(w.Withdrawer)
	switch w.Amount.Kind {
	case EntirePosition:
		l.totalShares.Sub(l.totalShares, p.Shares)
		subClamp(l.totalDeposited, p.Deposit)
		p.Shares.SetInt64(0)
		p.Deposit.SetInt64(0)
	default:
		burned := burnFor(resolved, l.totalShares, l.reportedTVL)
		if burned.Cmp(p.Shares) > 0 {
			burned.Set(p.Shares)
		}
		p.Shares.Sub(p.Shares, burned)
		l.totalShares.Sub(l.totalShares, burned)
		subClamp(p.Deposit, resolved)
		subClamp(l.totalDeposited, resolved)
	}
	subClamp(l.reportedTVL, resolved)

	l.pendingWithdrawalTotal.Sub(l.pendingWithdrawalTotal, magnitude)
	w.Status = WithdrawalSettled
	l.maxProcessedWithdrawalID = w.ID
	return nil
}

// cancelPending marks every unresolved request cancelled, zeroes the
// pending total and advances the watermark past the queue. Positions are
// untouched: shares reappear exactly as if the requests never happened.
func (l *strategyLedger) cancelPending() []*PendingWithdrawal {
	var cancelled []*PendingWithdrawal
	for id := l.maxProcessedWithdrawalID + 1; id <= l.lastPendingWithdrawalID; id++ {
		w := l.pendingWithdrawals[id]
		if w == nil || w.Status != WithdrawalPending {
			continue
		}
		w.Status = WithdrawalCancelled
		cancelled = append(cancelled, w)
	}
	l.pendingWithdrawalTotal.SetInt64(0)
	l.maxProcessedWithdrawalID = l.lastPendingWithdrawalID
	return cancelled
}

// burnFor converts a payout back into shares at current valuation.
func burnFor(resolved, totalShares, reportedTVL *big.Int) *big.Int {
	if reportedTVL.Sign() == 0 || totalShares.Sign() == 0 {
		return new(big.Int).Set(resolved)
	}
	burned := new(big.Int).Mul(resolved, totalShares)
	return burned.Div(burned, reportedTVL)
}

// subClamp subtracts b from a in place, flooring at zero.
func subClamp(a, b *big.Int) {
	a.Sub(a, b)
	if a.Sign() < 0 {
		a.SetInt64(0)
	}
}
