// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Gateway is an in-process Transport that records every send and exposes
// the asynchronous failure/retry surface of a real messaging bridge.
// Delivery faults are injected per destination chain so callers can
// exercise the MessageFailed / RetryMessageSuccess paths.
type Gateway struct {
	sourceChain     uint16
	minFee          *big.Int
	supportedChains map[uint16]bool
	transfers       map[[32]byte]*Transfer
	order           [][32]byte
	failNext        map[uint16]string // destChain -> injected failure reason
	nonce           uint64
	sinks           []Sink

	mu sync.RWMutex
}

var _ Transport = (*Gateway)(nil)

// NewGateway creates a gateway originating from sourceChain. minFee is the
// native fee required per message; nil means free.
func NewGateway(sourceChain uint16, minFee *big.Int) *Gateway {
	if minFee == nil {
		minFee = big.NewInt(0)
	}
	return &Gateway{
		sourceChain:     sourceChain,
		minFee:          new(big.Int).Set(minFee),
		supportedChains: make(map[uint16]bool),
		transfers:       make(map[[32]byte]*Transfer),
		failNext:        make(map[uint16]string),
	}
}

// SupportChain enables sends to the given destination chain.
func (g *Gateway) SupportChain(chainID uint16) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.supportedChains[chainID] = true
}

// Subscribe registers a sink for transport events.
func (g *Gateway) Subscribe(s Sink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sinks = append(g.sinks, s)
}

// FailNextDelivery injects a delivery failure for the next send to
// destChain. The send itself succeeds; the transfer surfaces as failed.
func (g *Gateway) FailNextDelivery(destChain uint16, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext[destChain] = reason
}

// checkSend holds the acceptance rules shared by Validate and Send.
// Requires g.mu.
func (g *Gateway) checkSend(amount *big.Int, destChainID uint16, fee *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if !g.supportedChains[destChainID] {
		return ErrChainNotSupported
	}
	if fee == nil || fee.Cmp(g.minFee) < 0 {
		return ErrInsufficientFee
	}
	return nil
}

// Validate implements Transport.
func (g *Gateway) Validate(tok common.Address, amount *big.Int, destChainID uint16, fee *big.Int) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.checkSend(amount, destChainID, fee)
}

// Send implements Transport.
func (g *Gateway) Send(tok common.Address, amount *big.Int, destChainID uint16, destination common.Address, destToken common.Address, fee *big.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkSend(amount, destChainID, fee); err != nil {
		return err
	}

	nonce := g.nonce
	g.nonce++

	tr := &Transfer{
		ID:          transferID(tok, amount, g.sourceChain, destChainID, destination, nonce),
		Token:       tok,
		Amount:      new(big.Int).Set(amount),
		SourceChain: g.sourceChain,
		DestChain:   destChainID,
		Destination: destination,
		DestToken:   destToken,
		Fee:         new(big.Int).Set(fee),
		Nonce:       nonce,
		Status:      StatusDelivered,
	}

	if reason, ok := g.failNext[destChainID]; ok {
		delete(g.failNext, destChainID)
		tr.Status = StatusFailed
		g.transfers[tr.ID] = tr
		g.order = append(g.order, tr.ID)
		g.emit(MessageFailedEvent{ID: tr.ID, DestChain: destChainID, Reason: reason})
		return nil
	}

	g.transfers[tr.ID] = tr
	g.order = append(g.order, tr.ID)
	g.emit(BridgedEvent{ID: tr.ID, Token: tok, Amount: tr.Amount, DestChain: destChainID, To: destination})
	return nil
}

// RetryMessage redelivers a failed transfer.
func (g *Gateway) RetryMessage(id [32]byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	tr := g.transfers[id]
	if tr == nil {
		return ErrUnknownTransfer
	}
	if tr.Status != StatusFailed {
		return ErrNotFailed
	}
	tr.Status = StatusDelivered
	g.emit(RetryMessageSuccessEvent{ID: id, DestChain: tr.DestChain})
	return nil
}

// TransferByID returns a recorded transfer.
func (g *Gateway) TransferByID(id [32]byte) (*Transfer, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	tr, ok := g.transfers[id]
	return tr, ok
}

// Transfers returns all recorded transfers in send order.
func (g *Gateway) Transfers() []*Transfer {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Transfer, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.transfers[id])
	}
	return out
}

// emit requires g.mu held.
func (g *Gateway) emit(ev Event) {
	for _, s := range g.sinks {
		s(ev)
	}
}

func transferID(tok common.Address, amount *big.Int, srcChain, destChain uint16, destination common.Address, nonce uint64) [32]byte {
	h := blake3.New()
	h.Write(tok.Bytes())
	h.Write(amount.Bytes())

	var chains [4]byte
	binary.BigEndian.PutUint16(chains[0:2], srcChain)
	binary.BigEndian.PutUint16(chains[2:4], destChain)
	h.Write(chains[:])

	h.Write(destination.Bytes())

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h.Write(n[:])

	var id [32]byte
	h.Digest().Read(id[:])
	return id
}
