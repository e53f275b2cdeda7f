// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bb

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

// AaveBlock wraps a lending-market strategy: stable is supplied as
// collateral, optionally borrowed against, and accrued incentives are
// claimable. Protocol execution is external; the block tracks deployed
// value only.
type AaveBlock struct {
	BaseBlock

	supplied *big.Int
	borrowed *big.Int
	rewards  *big.Int

	stateMu sync.RWMutex
}

var _ Block = (*AaveBlock)(nil)

// NewAaveBlock returns an uninitialized lending block.
func NewAaveBlock() *AaveBlock {
	return &AaveBlock{
		supplied: big.NewInt(0),
		borrowed: big.NewInt(0),
		rewards:  big.NewInt(0),
	}
}

// AaveBeacon creates lending-block instances for the fabric.
func AaveBeacon() Beacon {
	return BeaconFunc(func() Block { return NewAaveBlock() })
}

// OpenPosition supplies amount into the lending market. Relayer only.
func (b *AaveBlock) OpenPosition(caller common.Address, amount *big.Int) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() == 0 {
		return ErrZeroAmount
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.supplied.Add(b.supplied, amount)
	return nil
}

// ClosePosition withdraws amount of supplied collateral. Relayer only.
func (b *AaveBlock) ClosePosition(caller common.Address, amount *big.Int) (*big.Int, error) {
	if err := b.allow(caller); err != nil {
		return nil, err
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	free := new(big.Int).Sub(b.supplied, b.borrowed)
	if amount.Cmp(free) > 0 {
		return nil, ErrInsufficientValue
	}
	b.supplied.Sub(b.supplied, amount)
	return new(big.Int).Set(amount), nil
}

// Borrow draws debt against supplied collateral. Relayer only.
func (b *AaveBlock) Borrow(caller common.Address, amount *big.Int) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	newDebt := new(big.Int).Add(b.borrowed, amount)
	if newDebt.Cmp(b.supplied) > 0 {
		return ErrInsufficientValue
	}
	b.borrowed = newDebt
	return nil
}

// Repay retires debt. Relayer only.
func (b *AaveBlock) Repay(caller common.Address, amount *big.Int) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if amount.Cmp(b.borrowed) > 0 {
		return ErrInsufficientValue
	}
	b.borrowed.Sub(b.borrowed, amount)
	return nil
}

// AccrueRewards records externally reported incentive accrual.
func (b *AaveBlock) AccrueRewards(amount *big.Int) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.rewards.Add(b.rewards, amount)
}

// ClaimRewards collects accrued incentives into supplied value. Relayer only.
func (b *AaveBlock) ClaimRewards(caller common.Address) (*big.Int, error) {
	if err := b.allow(caller); err != nil {
		return nil, err
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	claimed := new(big.Int).Set(b.rewards)
	b.supplied.Add(b.supplied, claimed)
	b.rewards.SetInt64(0)
	return claimed, nil
}

// ReportTVL implements Block: supplied minus debt plus unclaimed rewards.
func (b *AaveBlock) ReportTVL() *big.Int {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	tvl := new(big.Int).Sub(b.supplied, b.borrowed)
	tvl.Add(tvl, b.rewards)
	if tvl.Sign() < 0 {
		return big.NewInt(0)
	}
	return tvl
}
