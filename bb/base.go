// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bb

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/xrouter/auth"
	"github.com/luxfi/xrouter/bridge"
	"github.com/luxfi/xrouter/token"
)

// BaseBlock carries the state and privileged plumbing shared by every
// building block: identity, relayer gating, stable/bridge wiring and the
// return path to the native router. Concrete blocks embed it.
type BaseBlock struct {
	addr          common.Address
	relayer       common.Address
	stable        common.Address
	nativeChainID uint16
	nativeRouter  common.Address

	policy      auth.Policy
	transport   bridge.Transport
	initialized bool

	mu sync.RWMutex
}

// Init implements the one-shot initializer. The fabric calls it right
// after deploying the proxy; a second call fails.
func (b *BaseBlock) Init(addr common.Address, params InitParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return ErrAlreadyInitialized
	}
	if params.Relayer == (common.Address{}) {
		return ErrRelayerZero
	}
	if params.Stable == (common.Address{}) {
		return ErrStableZero
	}
	if params.NativeRouter == (common.Address{}) {
		return ErrRouterZero
	}
	if params.NativeChainID == 0 {
		return ErrZeroChainID
	}

	policy, err := auth.NewRelayerPolicy(params.Relayer)
	if err != nil {
		return err
	}

	b.addr = addr
	b.relayer = params.Relayer
	b.stable = params.Stable
	b.nativeChainID = params.NativeChainID
	b.nativeRouter = params.NativeRouter
	b.policy = policy
	b.initialized = true
	return nil
}

// Address returns the block's proxy address.
func (b *BaseBlock) Address() common.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.addr
}

// Relayer returns the authorized caller.
func (b *BaseBlock) Relayer() common.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.relayer
}

// Stable returns the configured stable token address.
func (b *BaseBlock) Stable() common.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stable
}

// NativeRouter returns the router funds flow back to.
func (b *BaseBlock) NativeRouter() common.Address {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nativeRouter
}

// NativeChainID returns the chain the native router lives on.
func (b *BaseBlock) NativeChainID() uint16 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nativeChainID
}

// allow gates a privileged call. Requires an initialized block.
func (b *BaseBlock) allow(caller common.Address) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.initialized {
		return ErrNotInitialized
	}
	return b.policy.Allow(caller)
}

// SetRelayer rotates the authorized caller. Relayer only.
func (b *BaseBlock) SetRelayer(caller, relayer common.Address) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	policy, err := auth.NewRelayerPolicy(relayer)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.relayer = relayer
	b.policy = policy
	return nil
}

// SetStable swaps the stable token address. Relayer only.
func (b *BaseBlock) SetStable(caller, stable common.Address) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	if stable == (common.Address{}) {
		return ErrStableZero
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stable = stable
	return nil
}

// SetNativeRouter repoints the return path. Relayer only.
func (b *BaseBlock) SetNativeRouter(caller, router common.Address) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	if router == (common.Address{}) {
		return ErrRouterZero
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nativeRouter = router
	return nil
}

// SetBridge wires the cross-chain transport. Relayer only.
func (b *BaseBlock) SetBridge(caller common.Address, t bridge.Transport) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transport = t
	return nil
}

// Approve lets a spender pull tokens held by the block. Relayer only.
func (b *BaseBlock) Approve(caller common.Address, tok token.Token, spender common.Address, amount *big.Int) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	if !tok.Approve(b.Address(), spender, amount) {
		return ErrTransferFailed
	}
	return nil
}

// BackTokensToNative returns tokens held by the block to the native
// router on the same chain. Relayer only.
func (b *BaseBlock) BackTokensToNative(caller common.Address, tok token.Token, amount *big.Int) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() == 0 {
		return ErrZeroAmount
	}
	if !tok.Transfer(b.Address(), b.NativeRouter(), amount) {
		return ErrTransferFailed
	}
	return nil
}

// Bridge sends tokens held by the block back across chains, typically to
// the router for withdrawal settlement. Relayer only.
func (b *BaseBlock) Bridge(caller common.Address, tok common.Address, amount *big.Int, destChainID uint16, destination, destToken common.Address, fee *big.Int) error {
	if err := b.allow(caller); err != nil {
		return err
	}
	b.mu.RLock()
	transport := b.transport
	b.mu.RUnlock()
	if transport == nil {
		return ErrNotInitialized
	}
	return transport.Send(tok, amount, destChainID, destination, destToken, fee)
}
