// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bb

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

// GMXBlock wraps a liquidity-provision strategy: stable is staked into a
// pool index token and fee revenue accrues to the staked balance.
type GMXBlock struct {
	BaseBlock

	staked  *big.Int
	accrued *big.Int

	stateMu sync.RWMutex
}

var _ Block = (*GMXBlock)(nil)

// NewGMXBlock returns an uninitialized liquidity block.
func NewGMXBlock() *GMXBlock {
	return &GMXBlock{
		staked:  big.NewInt(0),
		accrued: big.NewInt(0),
	}
}

// GMXBeacon creates liquidity-block instances for the fabric.
func GMXBeacon() Beacon {
	return BeaconFunc(func() Block { return NewGMXBlock() })
}

// OpenPosition stakes amount into the pool. Relayer only.
func (b *GMXBlock) OpenPosition(caller common.Address, amount *big.Int) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() == 0 {
		return ErrZeroAmount
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.staked.Add(b.staked, amount)
	return nil
}

// ClosePosition unstakes amount from the pool. Relayer only.
func (b *GMXBlock) ClosePosition(caller common.Address, amount *big.Int) (*big.Int, error) {
	if err := b.allow(caller); err != nil {
		return nil, err
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if amount.Cmp(b.staked) > 0 {
		return nil, ErrInsufficientValue
	}
	b.staked.Sub(b.staked, amount)
	return new(big.Int).Set(amount), nil
}

// AccrueFees records externally reported pool fee revenue.
func (b *GMXBlock) AccrueFees(amount *big.Int) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.accrued.Add(b.accrued, amount)
}

// Compound folds accrued fees into the staked balance. Relayer only.
func (b *GMXBlock) Compound(caller common.Address) (*big.Int, error) {
	if err := b.allow(caller); err != nil {
		return nil, err
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	folded := new(big.Int).Set(b.accrued)
	b.staked.Add(b.staked, folded)
	b.accrued.SetInt64(0)
	return folded, nil
}

// ReportTVL implements Block: staked balance plus uncompounded fees.
func (b *GMXBlock) ReportTVL() *big.Int {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	tvl := new(big.Int).Add(b.staked, b.accrued)
	return tvl
}
