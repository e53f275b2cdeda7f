// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/database"
)

// Journal persists settlement watermarks and withdrawal outcomes behind a
// dependency-injected database handle. A restarted router restores its
// watermarks from the journal so already-settled request IDs stay settled;
// it is an idempotence record, not a full snapshot of pending queues.
type Journal struct {
	db database.Database
}

// NewJournal wraps a database handle. Tests pass memdb.New().
func NewJournal(db database.Database) *Journal {
	return &Journal{db: db}
}

// Key layout: one record per strategy holding the four watermarks, plus
// one status byte per resolved withdrawal.
const (
	journalWatermarkPrefix  = "wm/"
	journalWithdrawalPrefix = "ws/"
)

func watermarkKey(strategyID uint64) []byte {
	key := make([]byte, len(journalWatermarkPrefix)+8)
	copy(key, journalWatermarkPrefix)
	binary.BigEndian.PutUint64(key[len(journalWatermarkPrefix):], strategyID)
	return key
}

func withdrawalKey(strategyID, withdrawalID uint64) []byte {
	key := make([]byte, len(journalWithdrawalPrefix)+16)
	copy(key, journalWithdrawalPrefix)
	binary.BigEndian.PutUint64(key[len(journalWithdrawalPrefix):], strategyID)
	binary.BigEndian.PutUint64(key[len(journalWithdrawalPrefix)+8:], withdrawalID)
	return key
}

// RecordDepositWatermark persists the strategy's deposit watermarks after a
// batch settlement.
func (j *Journal) RecordDepositWatermark(strategyID, maxProcessed uint64) error {
	wm := j.load(strategyID)
	wm.maxProcessedDeposit = maxProcessed
	if wm.lastPendingDeposit < maxProcessed {
		wm.lastPendingDeposit = maxProcessed
	}
	return j.store(strategyID, wm)
}

// RecordDepositEnqueued persists the highest assigned deposit ID so a
// restarted router never hands the same ID to a different depositor.
func (j *Journal) RecordDepositEnqueued(strategyID, lastPending uint64) error {
	wm := j.load(strategyID)
	if lastPending <= wm.lastPendingDeposit {
		return nil
	}
	wm.lastPendingDeposit = lastPending
	return j.store(strategyID, wm)
}

// RecordWithdrawalEnqueued persists the highest assigned withdrawal ID.
func (j *Journal) RecordWithdrawalEnqueued(strategyID, lastPending uint64) error {
	wm := j.load(strategyID)
	if lastPending <= wm.lastPendingWithdrawal {
		return nil
	}
	wm.lastPendingWithdrawal = lastPending
	return j.store(strategyID, wm)
}

// RecordWithdrawalOutcome persists a withdrawal's terminal status and the
// advanced watermark.
func (j *Journal) RecordWithdrawalOutcome(strategyID, withdrawalID uint64, status WithdrawalStatus) error {
	if err := j.db.Put(withdrawalKey(strategyID, withdrawalID), []byte{byte(status)}); err != nil {
		return err
	}
	wm := j.load(strategyID)
	if withdrawalID > wm.maxProcessedWithdrawal {
		wm.maxProcessedWithdrawal = withdrawalID
	}
	if wm.lastPendingWithdrawal < wm.maxProcessedWithdrawal {
		wm.lastPendingWithdrawal = wm.maxProcessedWithdrawal
	}
	return j.store(strategyID, wm)
}

// WithdrawalOutcome returns the journaled terminal status for a request,
// if one was recorded.
func (j *Journal) WithdrawalOutcome(strategyID, withdrawalID uint64) (WithdrawalStatus, bool) {
	raw, err := j.db.Get(withdrawalKey(strategyID, withdrawalID))
	if err != nil || len(raw) != 1 {
		return WithdrawalPending, false
	}
	return WithdrawalStatus(raw[0]), true
}

// Watermarks returns the journaled watermarks for a strategy, zeroes if
// none were recorded.
func (j *Journal) Watermarks(strategyID uint64) (maxProcessedDeposit, lastPendingDeposit, maxProcessedWithdrawal, lastPendingWithdrawal uint64) {
	wm := j.load(strategyID)
	return wm.maxProcessedDeposit, wm.lastPendingDeposit, wm.maxProcessedWithdrawal, wm.lastPendingWithdrawal
}

type watermarks struct {
	maxProcessedDeposit    uint64
	lastPendingDeposit     uint64
	maxProcessedWithdrawal uint64
	lastPendingWithdrawal  uint64
}

func (j *Journal) load(strategyID uint64) watermarks {
	raw, err := j.db.Get(watermarkKey(strategyID))
	if err != nil || len(raw) != 32 {
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return watermarks{}
		}
		return watermarks{}
	}
	return watermarks{
		maxProcessedDeposit:    binary.BigEndian.Uint64(raw[0:8]),
		lastPendingDeposit:     binary.BigEndian.Uint64(raw[8:16]),
		maxProcessedWithdrawal: binary.BigEndian.Uint64(raw[16:24]),
		lastPendingWithdrawal:  binary.BigEndian.Uint64(raw[24:32]),
	}
}

func (j *Journal) store(strategyID uint64, wm watermarks) error {
	raw := make([]byte, 32)
	binary.BigEndian.PutUint64(raw[0:8], wm.maxProcessedDeposit)
	binary.BigEndian.PutUint64(raw[8:16], wm.lastPendingDeposit)
	binary.BigEndian.PutUint64(raw[16:24], wm.maxProcessedWithdrawal)
	binary.BigEndian.PutUint64(raw[24:32], wm.lastPendingWithdrawal)
	return j.db.Put(watermarkKey(strategyID), raw)
}
