// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token models the ERC20-style transfer collaborators the router
// custodies funds in. Transfers report failure through a boolean rather
// than an error, mirroring tokens that return false instead of reverting;
// callers must check the result explicitly.
package token

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Token is the transfer interface the router and building blocks consume.
type Token interface {
	// Address returns the token contract identity.
	Address() common.Address

	// Transfer moves amount from the implicit caller to `to`.
	// Returns false on failure without reverting.
	Transfer(from, to common.Address, amount *big.Int) bool

	// TransferFrom moves amount from `from` to `to` against a prior approval.
	TransferFrom(spender, from, to common.Address, amount *big.Int) bool

	// Approve lets spender pull up to amount from owner.
	Approve(owner, spender common.Address, amount *big.Int) bool

	// BalanceOf reports the current balance of addr.
	BalanceOf(addr common.Address) *big.Int
}

// StableToken is an in-memory fungible token with standard approval
// semantics. Balances use uint256 to match on-chain word arithmetic.
type StableToken struct {
	addr       common.Address
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int

	mu sync.RWMutex
}

// NewStableToken creates an empty token ledger at the given address.
func NewStableToken(addr common.Address) *StableToken {
	return &StableToken{
		addr:       addr,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

// Address implements Token.
func (t *StableToken) Address() common.Address { return t.addr }

// Mint credits amount to addr.
func (t *StableToken) Mint(addr common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, overflow := uint256.FromBig(amount)
	if overflow {
		return
	}
	bal := t.balances[addr]
	if bal == nil {
		bal = uint256.NewInt(0)
		t.balances[addr] = bal
	}
	bal.Add(bal, u)
}

// BalanceOf implements Token.
func (t *StableToken) BalanceOf(addr common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	bal := t.balances[addr]
	if bal == nil {
		return big.NewInt(0)
	}
	return bal.ToBig()
}

// Transfer implements Token.
func (t *StableToken) Transfer(from, to common.Address, amount *big.Int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

// TransferFrom implements Token. The spender must hold an allowance from
// the owner covering the amount.
func (t *StableToken) TransferFrom(spender, from, to common.Address, amount *big.Int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, overflow := uint256.FromBig(amount)
	if overflow {
		return false
	}
	if spender != from {
		allowed := t.allowance(from, spender)
		if allowed.Lt(u) {
			return false
		}
		allowed.Sub(allowed, u)
	}
	return t.move(from, to, amount)
}

// Approve implements Token.
func (t *StableToken) Approve(owner, spender common.Address, amount *big.Int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, overflow := uint256.FromBig(amount)
	if overflow {
		return false
	}
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	t.allowances[owner][spender] = u.Clone()
	return true
}

func (t *StableToken) allowance(owner, spender common.Address) *uint256.Int {
	m := t.allowances[owner]
	if m == nil {
		return uint256.NewInt(0)
	}
	a := m[spender]
	if a == nil {
		a = uint256.NewInt(0)
		m[spender] = a
	}
	return a
}

// move requires the caller to hold t.mu.
func (t *StableToken) move(from, to common.Address, amount *big.Int) bool {
	if amount == nil || amount.Sign() < 0 {
		return false
	}
	u, overflow := uint256.FromBig(amount)
	if overflow {
		return false
	}
	src := t.balances[from]
	if src == nil || src.Lt(u) {
		return false
	}
	dst := t.balances[to]
	if dst == nil {
		dst = uint256.NewInt(0)
		t.balances[to] = dst
	}
	src.Sub(src, u)
	dst.Add(dst, u)
	return true
}

// BlockedToken silently fails every transfer, modeling tokens whose
// transfer returns false rather than reverting. Used to exercise the
// router's explicit transfer-failed paths.
type BlockedToken struct {
	*StableToken
}

// NewBlockedToken creates a token whose transfers always fail.
func NewBlockedToken(addr common.Address) *BlockedToken {
	return &BlockedToken{StableToken: NewStableToken(addr)}
}

func (t *BlockedToken) Transfer(from, to common.Address, amount *big.Int) bool {
	return false
}

func (t *BlockedToken) TransferFrom(spender, from, to common.Address, amount *big.Int) bool {
	return false
}
