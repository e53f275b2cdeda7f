// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package indexer folds router events into per-user, per-strategy
// deposit totals. It subscribes to a router's event sink and keeps a
// queryable aggregate, persisted so a restarted indexer resumes from
// its last state.
package indexer

import (
	"math/big"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/xrouter/router"
)

type key struct {
	user       common.Address
	strategyID uint64
}

// Indexer aggregates Deposited, Withdrawn and CancelWithdrawn events.
type Indexer struct {
	db  database.Database
	log log.Logger

	totals map[key]*big.Int
	events uint64

	mu sync.RWMutex
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the indexer logger.
func WithLogger(l log.Logger) Option {
	return func(ix *Indexer) { ix.log = l }
}

// New returns an indexer persisting to db.
func New(db database.Database, opts ...Option) *Indexer {
	ix := &Indexer{
		db:     db,
		log:    log.NewNoOpLogger(),
		totals: make(map[key]*big.Int),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Sink returns the function to hand to Router.Subscribe.
func (ix *Indexer) Sink() router.EventSink {
	return func(ev router.Event) {
		ix.Apply(ev)
	}
}

// Apply folds one event into the aggregate. Unknown event kinds are
// counted but otherwise ignored.
func (ix *Indexer) Apply(ev router.Event) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.events++

	switch e := ev.(type) {
	case router.DepositedEvent:
		ix.add(key{e.Depositor, e.StrategyID}, e.Amount)
	case router.WithdrawnEvent:
		ix.sub(key{e.Withdrawer, e.StrategyID}, e.Amount)
	case router.CancelWithdrawnEvent:
		// cancellation returns nothing to the user; deposits stand
	default:
		ix.log.Debug("unindexed event", "name", ev.EventName())
	}
}

func (ix *Indexer) add(k key, amount *big.Int) {
	t, ok := ix.totals[k]
	if !ok {
		t = big.NewInt(0)
		ix.totals[k] = t
	}
	t.Add(t, amount)
	ix.persist(k, t)
}

func (ix *Indexer) sub(k key, amount *big.Int) {
	t, ok := ix.totals[k]
	if !ok {
		t = big.NewInt(0)
		ix.totals[k] = t
	}
	t.Sub(t, amount)
	if t.Sign() < 0 {
		t.SetInt64(0)
	}
	ix.persist(k, t)
}

func (ix *Indexer) persist(k key, t *big.Int) {
	if ix.db == nil {
		return
	}
	if err := ix.db.Put(totalKey(k), t.Bytes()); err != nil {
		ix.log.Warn("indexer persist failed", "error", err)
	}
}

// NetDeposited returns the running net deposit total for a user on a
// strategy, consulting the database for state from prior runs.
func (ix *Indexer) NetDeposited(user common.Address, strategyID uint64) *big.Int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	k := key{user, strategyID}
	if t, ok := ix.totals[k]; ok {
		return new(big.Int).Set(t)
	}
	if ix.db != nil {
		if raw, err := ix.db.Get(totalKey(k)); err == nil {
			return new(big.Int).SetBytes(raw)
		}
	}
	return big.NewInt(0)
}

// EventsSeen returns the number of events applied this run.
func (ix *Indexer) EventsSeen() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.events
}

func totalKey(k key) []byte {
	buf := make([]byte, 0, 2+common.AddressLength+8)
	buf = append(buf, 't', '/')
	buf = append(buf, k.user.Bytes()...)
	for i := 7; i >= 0; i-- {
		buf = append(buf, byte(k.strategyID>>(uint(i)*8)))
	}
	return buf
}
