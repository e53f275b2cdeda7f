// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridge models the cross-chain messaging transport that carries
// batched deposits out to building blocks and returns funds for settlement.
// Sends are fire-and-forget from the ledger's perspective: delivery failures
// surface later as MessageFailed observations and are retried explicitly.
package bridge

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
)

// TransferStatus tracks the lifecycle of a single cross-chain transfer.
type TransferStatus uint8

const (
	StatusPending TransferStatus = iota
	StatusDelivered
	StatusFailed
)

// Transfer is one recorded cross-chain send.
type Transfer struct {
	ID          [32]byte
	Token       common.Address
	Amount      *big.Int
	SourceChain uint16
	DestChain   uint16
	Destination common.Address
	DestToken   common.Address
	Fee         *big.Int
	Nonce       uint64
	Status      TransferStatus
}

// Transport is the send contract the router and building blocks depend on.
// The fee is paid in native currency alongside the call. Validate checks a
// prospective send without emitting it; Send must accept any request that
// Validate accepted, so callers can validate a whole batch and only then
// emit it as one unit.
type Transport interface {
	Validate(tok common.Address, amount *big.Int, destChainID uint16, fee *big.Int) error
	Send(tok common.Address, amount *big.Int, destChainID uint16, destination common.Address, destToken common.Address, fee *big.Int) error
}

// Event is an observation emitted by the transport for external indexing.
type Event interface {
	EventName() string
}

// BridgedEvent records a transfer leaving the source chain.
type BridgedEvent struct {
	ID        [32]byte
	Token     common.Address
	Amount    *big.Int
	DestChain uint16
	To        common.Address
}

func (BridgedEvent) EventName() string { return "Bridged" }

// MessageFailedEvent records a transfer whose destination delivery failed.
type MessageFailedEvent struct {
	ID        [32]byte
	DestChain uint16
	Reason    string
}

func (MessageFailedEvent) EventName() string { return "MessageFailed" }

// RetryMessageSuccessEvent records a previously failed transfer that was
// redelivered successfully.
type RetryMessageSuccessEvent struct {
	ID        [32]byte
	DestChain uint16
}

func (RetryMessageSuccessEvent) EventName() string { return "RetryMessageSuccess" }

// Sink receives transport events.
type Sink func(Event)

var (
	ErrChainNotSupported = errors.New("destination chain not supported")
	ErrInsufficientFee   = errors.New("insufficient native fee")
	ErrZeroAmount        = errors.New("zero amount")
	ErrUnknownTransfer   = errors.New("unknown transfer")
	ErrNotFailed         = errors.New("transfer has not failed")
)
