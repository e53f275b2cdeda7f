// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bb

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

// PerpBlock wraps a perpetual-futures margin account: stable posted as
// margin, leverage-sized notional, and a running PnL mark from the
// relayer's price feed.
type PerpBlock struct {
	BaseBlock

	margin   *big.Int
	notional *big.Int
	pnl      *big.Int // signed mark against margin

	stateMu sync.RWMutex
}

var _ Block = (*PerpBlock)(nil)

// NewPerpBlock returns an uninitialized margin block.
func NewPerpBlock() *PerpBlock {
	return &PerpBlock{
		margin:   big.NewInt(0),
		notional: big.NewInt(0),
		pnl:      big.NewInt(0),
	}
}

// PerpBeacon creates margin-block instances for the fabric.
func PerpBeacon() Beacon {
	return BeaconFunc(func() Block { return NewPerpBlock() })
}

// OpenPosition posts amount as margin. Relayer only.
func (b *PerpBlock) OpenPosition(caller common.Address, amount *big.Int) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() == 0 {
		return ErrZeroAmount
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.margin.Add(b.margin, amount)
	return nil
}

// ClosePosition withdraws amount of free margin. Closing more than the
// equity (margin plus mark) fails. Relayer only.
func (b *PerpBlock) ClosePosition(caller common.Address, amount *big.Int) (*big.Int, error) {
	if err := b.allow(caller); err != nil {
		return nil, err
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	equity := new(big.Int).Add(b.margin, b.pnl)
	if amount.Cmp(equity) > 0 {
		return nil, ErrInsufficientValue
	}
	b.margin.Sub(b.margin, amount)
	if b.margin.Sign() < 0 {
		// drew from realized profit
		b.pnl.Add(b.pnl, b.margin)
		b.margin.SetInt64(0)
	}
	return new(big.Int).Set(amount), nil
}

// AdjustNotional resizes the open notional. Relayer only.
func (b *PerpBlock) AdjustNotional(caller common.Address, notional *big.Int) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	if notional.Sign() < 0 {
		return ErrZeroAmount
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.notional.Set(notional)
	return nil
}

// Mark records the signed PnL reported by the price feed.
func (b *PerpBlock) Mark(pnl *big.Int) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.pnl.Set(pnl)
}

// ReportTVL implements Block: margin adjusted by the current mark,
// floored at zero when the position is under water.
func (b *PerpBlock) ReportTVL() *big.Int {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	equity := new(big.Int).Add(b.margin, b.pnl)
	if equity.Sign() < 0 {
		return big.NewInt(0)
	}
	return equity
}
