// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fabric deploys and tracks building-block instances. Beacons
// are registered under symbolic names; the relayer then instantiates a
// proxy per strategy, and every proxy created for the same beacon picks
// up its implementation.
package fabric

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/zeebo/blake3"

	"github.com/luxfi/xrouter/auth"
	"github.com/luxfi/xrouter/bb"
)

// Event is the notification surface for fabric observers.
type Event interface {
	EventName() string
}

// NewBBCreatedEvent fires once per successfully initialized proxy.
type NewBBCreatedEvent struct {
	BeaconName string
	StrategyID uint64
	Proxy      common.Address
	Ordinal    uint64
}

func (NewBBCreatedEvent) EventName() string { return "NewBBCreated" }

// EventSink receives fabric events synchronously.
type EventSink func(Event)

type entry struct {
	name       string
	strategyID uint64
	proxy      common.Address
	block      bb.Block
}

// Fabric is the building-block factory and registry.
type Fabric struct {
	addr   common.Address
	policy auth.Policy
	log    log.Logger

	beacons    map[string]bb.Beacon
	entries    []*entry // creation order
	byStrategy map[uint64]*entry
	byProxy    map[common.Address]*entry
	sinks      []EventSink

	mu sync.RWMutex
}

// Option configures a Fabric.
type Option func(*Fabric)

// WithLogger sets the fabric logger.
func WithLogger(l log.Logger) Option {
	return func(f *Fabric) { f.log = l }
}

// New returns a fabric gated on the given relayer.
func New(addr, relayer common.Address, opts ...Option) (*Fabric, error) {
	policy, err := auth.NewRelayerPolicy(relayer)
	if err != nil {
		return nil, err
	}
	f := &Fabric{
		addr:       addr,
		policy:     policy,
		log:        log.NewNoOpLogger(),
		beacons:    make(map[string]bb.Beacon),
		byStrategy: make(map[uint64]*entry),
		byProxy:    make(map[common.Address]*entry),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Subscribe registers a sink for proxy-creation events.
func (f *Fabric) Subscribe(sink EventSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, sink)
}

// RegisterBeacon binds name to a beacon. Re-registering a name upgrades
// the implementation for future proxies; existing proxies are untouched.
// Relayer only.
func (f *Fabric) RegisterBeacon(caller common.Address, name string, beacon bb.Beacon) error {
	if err := f.policy.Allow(caller); err != nil {
		return err
	}
	if beacon == nil {
		return ErrBeaconNotContract
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beacons[name] = beacon
	f.log.Debug("beacon registered", "name", name)
	return nil
}

// InitNewProxy instantiates the named beacon for a strategy and runs its
// one-shot init. A strategy gets at most one proxy. Relayer only.
func (f *Fabric) InitNewProxy(caller common.Address, name string, strategyID uint64, params bb.InitParams) (common.Address, error) {
	if err := f.policy.Allow(caller); err != nil {
		return common.Address{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	beacon, ok := f.beacons[name]
	if !ok {
		return common.Address{}, ErrBeaconNotContract
	}
	if _, dup := f.byStrategy[strategyID]; dup {
		return common.Address{}, ErrStrategyRegistered
	}

	ordinal := uint64(len(f.entries))
	proxy := f.proxyAddress(name, strategyID, ordinal)

	block := beacon.NewInstance()
	if err := block.Init(proxy, params); err != nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrLocalCallFailed, err)
	}

	e := &entry{name: name, strategyID: strategyID, proxy: proxy, block: block}
	f.entries = append(f.entries, e)
	f.byStrategy[strategyID] = e
	f.byProxy[proxy] = e

	f.log.Info("building block created",
		"name", name, "strategy", strategyID, "proxy", proxy, "ordinal", ordinal)
	ev := NewBBCreatedEvent{BeaconName: name, StrategyID: strategyID, Proxy: proxy, Ordinal: ordinal}
	for _, sink := range f.sinks {
		sink(ev)
	}
	return proxy, nil
}

// proxyAddress derives a deterministic address from the fabric address,
// beacon name, strategy and ordinal.
func (f *Fabric) proxyAddress(name string, strategyID, ordinal uint64) common.Address {
	h := blake3.New()
	h.Write(f.addr.Bytes())
	h.Write([]byte(name))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], strategyID)
	binary.BigEndian.PutUint64(buf[8:], ordinal)
	h.Write(buf[:])
	sum := h.Sum(nil)
	return common.BytesToAddress(sum[12:32])
}

// BlockByStrategy returns the proxy block serving a strategy.
func (f *Fabric) BlockByStrategy(strategyID uint64) (bb.Block, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.byStrategy[strategyID]
	if !ok {
		return nil, false
	}
	return e.block, true
}

// BlockByProxy returns the block behind a proxy address.
func (f *Fabric) BlockByProxy(proxy common.Address) (bb.Block, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.byProxy[proxy]
	if !ok {
		return nil, false
	}
	return e.block, true
}

// ProxyOf returns the proxy address created for a strategy.
func (f *Fabric) ProxyOf(strategyID uint64) (common.Address, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.byStrategy[strategyID]
	if !ok {
		return common.Address{}, false
	}
	return e.proxy, true
}

// AllBuildingBlocks returns proxies, their strategies and the beacon name
// each proxy was created from, in creation order, as parallel slices.
func (f *Fabric) AllBuildingBlocks() ([]common.Address, []uint64, []string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	proxies := make([]common.Address, len(f.entries))
	strategies := make([]uint64, len(f.entries))
	implementations := make([]string, len(f.entries))
	for i, e := range f.entries {
		proxies[i] = e.proxy
		strategies[i] = e.strategyID
		implementations[i] = e.name
	}
	return proxies, strategies, implementations
}

// Count returns the number of proxies created.
func (f *Fabric) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// TotalTVL sums the reported TVL across all building blocks.
func (f *Fabric) TotalTVL() *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	total := big.NewInt(0)
	for _, e := range f.entries {
		total.Add(total, e.block.ReportTVL())
	}
	return total
}

var (
	// ErrBeaconNotContract rejects proxy creation against an unknown or
	// nil beacon.
	ErrBeaconNotContract = errors.New("new beacon is not a contract")
	// ErrStrategyRegistered rejects a second proxy for a strategy.
	ErrStrategyRegistered = errors.New("strategy already registered")
	// ErrLocalCallFailed wraps a failed proxy init.
	ErrLocalCallFailed = errors.New("local call fail")
)
