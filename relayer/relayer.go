// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package relayer runs the off-chain side of the router: a scheduled
// sweep that bridges accumulated deposits to their strategies, and
// settlement of withdrawal requests in watermark order. One relayer
// address drives every privileged call.
package relayer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/robfig/cron/v3"

	"github.com/luxfi/xrouter/fabric"
	"github.com/luxfi/xrouter/router"
)

// Route tells the sweep where a strategy's deposits are bridged.
type Route struct {
	DestChainID uint16
	Destination common.Address
	BridgeToken common.Address
}

// Config carries the relayer's operating parameters.
type Config struct {
	Relayer   common.Address
	NativeFee *big.Int
	CronSpec  string // with seconds field
	Workers   int
	QueueSize int
	Retry     RetryConfig
}

// DefaultConfig returns a relayer config sweeping every 30 seconds.
func DefaultConfig(relayer common.Address) Config {
	return Config{
		Relayer:   relayer,
		NativeFee: big.NewInt(0),
		CronSpec:  "*/30 * * * * *",
		Workers:   8,
		QueueSize: 64,
		Retry:     DefaultRetryConfig(),
	}
}

// Relayer sweeps deposits and settles withdrawals for one router.
type Relayer struct {
	cfg    Config
	rtr    *router.Router
	fab    *fabric.Fabric
	log    log.Logger
	pool   pond.Pool
	cron   *cron.Cron
	routes map[uint64]Route

	sweeps uint64
	mu     sync.RWMutex
}

// New wires a relayer over a router and its building-block fabric.
func New(cfg Config, rtr *router.Router, fab *fabric.Fabric, logger log.Logger) *Relayer {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Relayer{
		cfg:    cfg,
		rtr:    rtr,
		fab:    fab,
		log:    logger,
		pool:   pond.NewPool(cfg.Workers, pond.WithQueueSize(cfg.QueueSize)),
		routes: make(map[uint64]Route),
	}
}

// SetRoute binds a strategy to its bridge destination.
func (r *Relayer) SetRoute(strategyID uint64, route Route) error {
	if route.DestChainID == 0 {
		return ErrZeroChainID
	}
	if route.Destination == (common.Address{}) {
		return ErrZeroDestination
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[strategyID] = route
	return nil
}

// RouteOf returns the configured route for a strategy.
func (r *Relayer) RouteOf(strategyID uint64) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[strategyID]
	return route, ok
}

// Sweep bridges pending deposits for every routed strategy, fanning the
// strategies out over the worker pool. Strategies without pending
// deposits or without a route are skipped.
func (r *Relayer) Sweep(ctx context.Context) error {
	r.mu.Lock()
	r.sweeps++
	strategies := make([]uint64, 0, len(r.routes))
	for id := range r.routes {
		strategies = append(strategies, id)
	}
	r.mu.Unlock()

	group := r.pool.NewGroupContext(ctx)
	for _, id := range strategies {
		strategyID := id
		group.Submit(func() {
			if err := r.sweepStrategy(ctx, strategyID); err != nil {
				r.log.Warn("sweep failed", "strategy", strategyID, "error", err)
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return err
	}
	return nil
}

func (r *Relayer) sweepStrategy(ctx context.Context, strategyID uint64) error {
	pending := r.rtr.PendingStrategyDeposits(strategyID)
	if pending.Sign() == 0 {
		return nil
	}
	r.mu.RLock()
	route := r.routes[strategyID]
	r.mu.RUnlock()

	tvl := r.strategyTVL(strategyID)
	batch := router.TransferBatch{
		DestChainIDs: []uint16{route.DestChainID},
		Destinations: []common.Address{route.Destination},
		Amounts:      []*big.Int{pending},
		BridgeTokens: []common.Address{route.BridgeToken},
		StrategyID:   strategyID,
		ReportedTVL:  tvl,
		NativeFee:    r.cfg.NativeFee,
	}
	return withBackoff(ctx, r.cfg.Retry, r.log, "transfer deposits", func() error {
		return r.rtr.TransferDeposits(r.cfg.Relayer, batch)
	})
}

// strategyTVL asks the fabric's block for the strategy; strategies
// without a block report zero, which keeps the bootstrap 1:1 rate.
func (r *Relayer) strategyTVL(strategyID uint64) *big.Int {
	if r.fab == nil {
		return big.NewInt(0)
	}
	block, ok := r.fab.BlockByStrategy(strategyID)
	if !ok {
		return big.NewInt(0)
	}
	return block.ReportTVL()
}

// SettleNextWithdrawal approves the oldest pending withdrawal for a
// strategy, if any. Returns false when the strategy has nothing to
// settle.
func (r *Relayer) SettleNextWithdrawal(ctx context.Context, strategyID uint64) (bool, error) {
	last := r.rtr.LastPendingWithdrawalID(strategyID)
	next := r.rtr.MaxProcessedWithdrawalID(strategyID) + 1
	if next > last {
		return false, nil
	}
	err := withBackoff(ctx, r.cfg.Retry, r.log, "approve withdraw", func() error {
		return r.rtr.ApproveWithdraw(r.cfg.Relayer, r.cfg.NativeFee, strategyID, next)
	})
	if err != nil {
		return false, err
	}
	r.log.Info("withdrawal settled", "strategy", strategyID, "withdrawal", next)
	return true, nil
}

// CancelWithdrawals cancels every pending withdrawal on a strategy.
func (r *Relayer) CancelWithdrawals(destChainID uint16, strategyID uint64) error {
	return r.rtr.CancelWithdraw(r.cfg.Relayer, destChainID, strategyID)
}

// SetupScheduler registers the sweep on the cron spec from the config.
func (r *Relayer) SetupScheduler(ctx context.Context) error {
	r.cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := r.cron.AddFunc(r.cfg.CronSpec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
		if err := r.Sweep(rctx); err != nil {
			r.log.Warn("scheduled sweep error", "error", err)
		}
	})
	return err
}

// Start begins scheduled sweeping. SetupScheduler must have been called.
func (r *Relayer) Start() {
	r.cron.Start()
	r.log.Info("relayer sweep scheduled", "cronSpec", r.cfg.CronSpec)
}

// Stop drains scheduled runs and shuts the worker pool down.
func (r *Relayer) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	r.pool.StopAndWait()
}

// Sweeps returns the number of sweep passes started.
func (r *Relayer) Sweeps() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sweeps
}

var (
	// ErrZeroChainID rejects a route without a destination chain.
	ErrZeroChainID = errors.New("zero chain id")
	// ErrZeroDestination rejects a route without a destination address.
	ErrZeroDestination = errors.New("zero destination address")
)
