// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bb implements building blocks: uniform wrappers around
// heterogeneous yield strategies. Every block exposes the same open /
// close / report-value surface behind a single authorized caller; the
// protocol-specific legs (lending, staking, margin) stay thin because
// their internals live in third-party systems.
package bb

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
)

// InitParams is the initializer payload a proxy receives from the fabric.
type InitParams struct {
	Relayer       common.Address
	Stable        common.Address
	NativeChainID uint16
	NativeRouter  common.Address
}

// Block is the uniform strategy interface. Value flows in through
// OpenPosition, out through ClosePosition; ReportTVL is the valuation the
// relayer feeds back into the router's share math.
type Block interface {
	// Init configures a freshly deployed instance. A second call fails.
	Init(addr common.Address, params InitParams) error

	// OpenPosition deploys amount into the underlying protocol.
	OpenPosition(caller common.Address, amount *big.Int) error

	// ClosePosition unwinds amount and returns what was actually freed.
	ClosePosition(caller common.Address, amount *big.Int) (*big.Int, error)

	// ReportTVL returns the block's current total value.
	ReportTVL() *big.Int
}

// Beacon creates fresh implementation instances for the fabric to put
// behind proxies. One beacon per strategy implementation.
type Beacon interface {
	NewInstance() Block
}

// BeaconFunc adapts a constructor to the Beacon interface.
type BeaconFunc func() Block

func (f BeaconFunc) NewInstance() Block { return f() }

var (
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
	ErrRelayerZero        = errors.New("relayer zero address")
	ErrStableZero         = errors.New("stable zero address")
	ErrRouterZero         = errors.New("native router zero address")
	ErrZeroChainID        = errors.New("native chain id is zero")
	ErrZeroAmount         = errors.New("zero amount")
	ErrTransferFailed     = errors.New("transfer failed")
	ErrInsufficientValue  = errors.New("insufficient deployed value")
)
