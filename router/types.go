// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router implements the hub-side accounting engine for cross-chain
// strategy deposits and withdrawals. It keeps per-strategy ledgers of
// pending requests keyed by monotonic IDs, batches deposits out to building
// blocks over the bridge transport, mints proportional shares against the
// relayer-reported strategy valuation, and reconciles withdrawals when
// funds return. State-changing operations are serialized and atomic: a
// rejected call leaves every balance, queue and watermark untouched.
package router

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
)

// WithdrawalStatus is the lifecycle of a withdrawal request. Transitions
// run pending -> settled or pending -> cancelled, never backward.
type WithdrawalStatus uint8

const (
	WithdrawalPending WithdrawalStatus = iota
	WithdrawalSettled
	WithdrawalCancelled
)

func (s WithdrawalStatus) String() string {
	switch s {
	case WithdrawalPending:
		return "pending"
	case WithdrawalSettled:
		return "settled"
	case WithdrawalCancelled:
		return "cancelled"
	}
	return "unknown"
}

// WithdrawalKind distinguishes a fixed-amount request from a request for
// the withdrawer's entire position.
type WithdrawalKind uint8

const (
	// FixedAmount redeems a literal token amount captured at request time.
	FixedAmount WithdrawalKind = iota
	// EntirePosition redeems 100% of the withdrawer's shares at settlement
	// time, whatever they are then worth.
	EntirePosition
)

// WithdrawalAmount is the tagged request amount. An explicit variant
// replaces the reserved max-value sentinel so a legitimately huge literal
// amount can never collide with "withdraw everything".
type WithdrawalAmount struct {
	Kind  WithdrawalKind
	Value *big.Int // set for FixedAmount, nil for EntirePosition
}

// Fixed builds a fixed-amount withdrawal request.
func Fixed(v *big.Int) WithdrawalAmount {
	return WithdrawalAmount{Kind: FixedAmount, Value: new(big.Int).Set(v)}
}

// All builds an entire-position withdrawal request.
func All() WithdrawalAmount {
	return WithdrawalAmount{Kind: EntirePosition}
}

// maxIntent is the accounting magnitude of an entire-position request.
// The pending-withdrawals running total tracks requested intent, not a
// yet-resolved payout, so an entire-position request contributes the full
// 2^256-1 intent value exactly as the on-chain ledger did.
var maxIntent = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// MaxIntent returns the accounting magnitude used for entire-position
// requests in the pending-withdrawals total.
func MaxIntent() *big.Int { return new(big.Int).Set(maxIntent) }

// Magnitude returns the amount the request contributes to the strategy's
// pending-withdrawals total.
func (a WithdrawalAmount) Magnitude() *big.Int {
	if a.Kind == EntirePosition {
		return new(big.Int).Set(maxIntent)
	}
	return new(big.Int).Set(a.Value)
}

// PendingDeposit is one enqueued user deposit awaiting batch transfer.
type PendingDeposit struct {
	ID        uint64
	Depositor common.Address
	Amount    *big.Int
	TokenIn   common.Address
}

// PendingWithdrawal is one withdrawal request. Records persist after
// settlement or cancellation with their final status.
type PendingWithdrawal struct {
	ID         uint64
	Withdrawer common.Address
	Amount     WithdrawalAmount
	Status     WithdrawalStatus
}

// UserPosition is a user's settled stake in one strategy.
type UserPosition struct {
	Deposit *big.Int // principal currently deployed
	Shares  *big.Int // proportional claim on the strategy's pooled value
}

// TransferBatch is the relayer's instruction to bridge all outstanding
// pending deposits of a strategy to its building blocks. The destination
// arrays are parallel: one bridge send per entry.
type TransferBatch struct {
	DestChainIDs []uint16
	Destinations []common.Address
	Amounts      []*big.Int
	BridgeTokens []common.Address
	StrategyID   uint64
	// ReportedTVL is the strategy's pre-transfer valuation as observed by
	// the relayer. Shares for this batch are minted against it.
	ReportedTVL *big.Int
	// NativeFee is paid per bridge send for cross-chain messaging.
	NativeFee *big.Int
}

// Event is an observation emitted by the router for external indexing.
type Event interface {
	EventName() string
}

// DepositedEvent observes a user deposit entering the pending queue.
type DepositedEvent struct {
	Depositor  common.Address
	StrategyID uint64
	Amount     *big.Int
}

func (DepositedEvent) EventName() string { return "Deposited" }

// RequestedWithdrawEvent observes a new withdrawal request.
type RequestedWithdrawEvent struct {
	Withdrawer common.Address
	StrategyID uint64
	Amount     *big.Int // requested magnitude (intent value for entire-position)
}

func (RequestedWithdrawEvent) EventName() string { return "RequestedWithdraw" }

// WithdrawnEvent observes a settled withdrawal with its resolved payout.
type WithdrawnEvent struct {
	Withdrawer common.Address
	StrategyID uint64
	Amount     *big.Int
}

func (WithdrawnEvent) EventName() string { return "Withdrawn" }

// CancelWithdrawnEvent observes a cancelled withdrawal request.
type CancelWithdrawnEvent struct {
	Withdrawer common.Address
	StrategyID uint64
	Amount     *big.Int // cancelled magnitude
}

func (CancelWithdrawnEvent) EventName() string { return "CancelWithdrawn" }

// EventSink receives router events.
type EventSink func(Event)

// Input validation errors: caller-fixable, rejected before any state change.
var (
	ErrZeroAmount          = errors.New("zero amount")
	ErrZeroChainID         = errors.New("native chain id is zero")
	ErrTreasurerZero       = errors.New("treasurer is zero address")
	ErrRouterZero          = errors.New("router is zero address")
	ErrStableNotSet        = errors.New("stable token not set")
	ErrBridgeNotSet        = errors.New("bridge not set")
	ErrDestinationMismatch = errors.New("destination arrays length mismatch")
	ErrNoDepositToProcess  = errors.New("no deposit to process")
	ErrInvalidRequestID    = errors.New("invalid request id")
)

// External-dependency errors: the step that failed is identified; all
// ledger state is exactly as it was before the call.
var (
	ErrTransferFailed = errors.New("transfer failed")
)

// Consistency errors: a watermark moved backward or a running total went
// negative. These indicate a bug, never a caller mistake.
var (
	ErrLedgerCorrupted = errors.New("ledger invariant violated")
)
