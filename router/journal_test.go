// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"errors"
	"math/big"
	"testing"

	"github.com/luxfi/database/memdb"
)

func TestJournal_WatermarkRoundTrip(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	j := NewJournal(db)

	// Fresh strategy: all zero.
	mpd, lpd, mpw, lpw := j.Watermarks(testStrategy)
	if mpd != 0 || lpd != 0 || mpw != 0 || lpw != 0 {
		t.Fatalf("expected zero watermarks, got %d %d %d %d", mpd, lpd, mpw, lpw)
	}

	if err := j.RecordDepositWatermark(testStrategy, 5); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordWithdrawalOutcome(testStrategy, 3, WithdrawalSettled); err != nil {
		t.Fatal(err)
	}

	mpd, lpd, mpw, lpw = j.Watermarks(testStrategy)
	if mpd != 5 || lpd != 5 {
		t.Errorf("expected deposit watermarks 5/5, got %d/%d", mpd, lpd)
	}
	if mpw != 3 || lpw != 3 {
		t.Errorf("expected withdrawal watermarks 3/3, got %d/%d", mpw, lpw)
	}

	status, ok := j.WithdrawalOutcome(testStrategy, 3)
	if !ok || status != WithdrawalSettled {
		t.Errorf("expected settled outcome, got %v %v", status, ok)
	}
	if _, ok := j.WithdrawalOutcome(testStrategy, 4); ok {
		t.Error("unrecorded withdrawal must report no outcome")
	}
}

func TestJournal_EnqueuedIDsNeverReassigned(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	j := NewJournal(db)

	r, stable, gw := newTestRouter(t, WithJournal(j))

	// A deposit and a withdrawal request that never settle before the
	// restart.
	if err := r.Deposit(testUser1, testStrategy, big.NewInt(100)); err != nil {
		t.Fatal(err)
	}
	if err := r.InitiateWithdraw(testUser1, testStrategy, Fixed(big.NewInt(10))); err != nil {
		t.Fatal(err)
	}

	r2, err := New(testRouterAddr, testRelayer, testTreasurer, stable, testNativeChain, WithJournal(j))
	if err != nil {
		t.Fatal(err)
	}
	if err := r2.SetBridge(testRelayer, gw); err != nil {
		t.Fatal(err)
	}

	// The restored counters keep ID 1 consumed on both queues: the next
	// depositor and withdrawer get ID 2, never a reissued 1.
	if err := r2.Deposit(testUser2, testStrategy, big.NewInt(50)); err != nil {
		t.Fatal(err)
	}
	if got := r2.LastPendingDepositID(testStrategy); got != 2 {
		t.Errorf("expected deposit id 2 after restart, got %d", got)
	}
	if err := r2.InitiateWithdraw(testUser2, testStrategy, Fixed(big.NewInt(5))); err != nil {
		t.Fatal(err)
	}
	if got := r2.LastPendingWithdrawalID(testStrategy); got != 2 {
		t.Errorf("expected withdrawal id 2 after restart, got %d", got)
	}

	// The voided pre-restart entries do not block settlement of the new
	// ones: only the post-restart deposit is pending, and the batch
	// settles it cleanly.
	if got := r2.PendingStrategyDeposits(testStrategy); got.Cmp(big.NewInt(50)) != 0 {
		t.Errorf("expected pending 50, got %v", got)
	}
	if err := r2.TransferDeposits(testRelayer, batchFor(testStrategy, big.NewInt(50), big.NewInt(0))); err != nil {
		t.Fatalf("transfer after restart: %v", err)
	}
	if got := r2.MaxProcessedDepositID(testStrategy); got != 2 {
		t.Errorf("expected deposit watermark 2, got %d", got)
	}
	if err := r2.ApproveWithdraw(testRelayer, big.NewInt(0), testStrategy, 2); err != nil {
		t.Fatalf("approve post-restart request: %v", err)
	}
}

func TestJournal_RestartKeepsSettledSettled(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	j := NewJournal(db)

	r, stable, _ := newTestRouter(t, WithJournal(j))
	seedPosition(t, r, testUser1, big.NewInt(100))

	if err := r.InitiateWithdraw(testUser1, testStrategy, Fixed(big.NewInt(40))); err != nil {
		t.Fatal(err)
	}
	if err := r.ApproveWithdraw(testRelayer, big.NewInt(0), testStrategy, 1); err != nil {
		t.Fatal(err)
	}

	// A second router over the same journal restores the watermarks.
	r2, err := New(testRouterAddr, testRelayer, testTreasurer, stable, testNativeChain, WithJournal(j))
	if err != nil {
		t.Fatal(err)
	}
	if err := r2.InitiateWithdraw(testUser1, testStrategy, Fixed(big.NewInt(10))); err != nil {
		t.Fatal(err)
	}
	if got := r2.MaxProcessedDepositID(testStrategy); got != 1 {
		t.Errorf("expected restored deposit watermark 1, got %d", got)
	}
	if got := r2.MaxProcessedWithdrawalID(testStrategy); got != 1 {
		t.Errorf("expected restored withdrawal watermark 1, got %d", got)
	}
	// The restored counter continues past the settled id.
	if got := r2.LastPendingWithdrawalID(testStrategy); got != 2 {
		t.Errorf("expected new request id 2, got %d", got)
	}
	// The journaled outcome blocks re-settling id 1 even on a fresh ledger.
	if err := r2.ApproveWithdraw(testRelayer, big.NewInt(0), testStrategy, 1); !errors.Is(err, ErrInvalidRequestID) {
		t.Errorf("expected ErrInvalidRequestID for journaled id, got %v", err)
	}
}
