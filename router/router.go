// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/xrouter/auth"
	"github.com/luxfi/xrouter/bridge"
	"github.com/luxfi/xrouter/token"
)

// Router is the hub-side deposit/withdrawal engine. One instance owns all
// per-strategy ledgers; every mutation is routed through its methods under
// a single lock, so operations commit fully or not at all.
type Router struct {
	addr          common.Address // custody identity for token transfers
	treasurer     common.Address
	nativeChainID uint16

	policy    auth.Policy
	stable    token.Token
	transport bridge.Transport

	ledgers map[uint64]*strategyLedger
	journal *Journal
	sinks   []EventSink

	log log.Logger
	mu  sync.RWMutex
}

// Option configures optional router collaborators.
type Option func(*Router)

// WithJournal attaches a settlement journal for restart idempotence.
func WithJournal(j *Journal) Option {
	return func(r *Router) { r.journal = j }
}

// WithLogger sets the router's logger.
func WithLogger(l log.Logger) Option {
	return func(r *Router) { r.log = l }
}

// New creates a router custodying funds at addr, privileged by relayer,
// sweeping stuck funds to treasurer, holding stable as the deposit token.
func New(addr, relayer, treasurer common.Address, stable token.Token, nativeChainID uint16, opts ...Option) (*Router, error) {
	if addr == (common.Address{}) {
		return nil, ErrRouterZero
	}
	if treasurer == (common.Address{}) {
		return nil, ErrTreasurerZero
	}
	if stable == nil {
		return nil, ErrStableNotSet
	}
	if nativeChainID == 0 {
		return nil, ErrZeroChainID
	}
	policy, err := auth.NewRelayerPolicy(relayer)
	if err != nil {
		return nil, err
	}

	r := &Router{
		addr:          addr,
		treasurer:     treasurer,
		nativeChainID: nativeChainID,
		policy:        policy,
		stable:        stable,
		ledgers:       make(map[uint64]*strategyLedger),
		log:           log.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Address returns the router's custody address.
func (r *Router) Address() common.Address { return r.addr }

// Treasurer returns the configured treasury address.
func (r *Router) Treasurer() common.Address { return r.treasurer }

// NativeChainID returns the chain the router lives on.
func (r *Router) NativeChainID() uint16 { return r.nativeChainID }

// Stable returns the current deposit token.
func (r *Router) Stable() token.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stable
}

// Bridge returns the configured transport.
func (r *Router) Bridge() bridge.Transport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.transport
}

// SetBridge configures the cross-chain transport. Relayer only.
func (r *Router) SetBridge(caller common.Address, t bridge.Transport) error {
	if err := r.policy.Allow(caller); err != nil {
		return err
	}
	if t == nil {
		return ErrBridgeNotSet
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transport = t
	return nil
}

// SetStable swaps the deposit token. Relayer only.
func (r *Router) SetStable(caller common.Address, t token.Token) error {
	if err := r.policy.Allow(caller); err != nil {
		return err
	}
	if t == nil {
		return ErrStableNotSet
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stable = t
	return nil
}

// Subscribe registers a sink for router events.
func (r *Router) Subscribe(s EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Deposit pulls amount of the stable token from the caller and enqueues it
// for the strategy. Open to any user.
func (r *Router) Deposit(user common.Address, strategyID uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return ErrZeroAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// External pull first: the queue entry exists only if funds arrived.
	if !r.stable.TransferFrom(r.addr, user, r.addr, amount) {
		return ErrTransferFailed
	}

	l := r.ledger(strategyID)
	d := l.enqueueDeposit(user, amount, r.stable.Address())
	if r.journal != nil {
		if err := r.journal.RecordDepositEnqueued(strategyID, d.ID); err != nil {
			r.log.Warn("journal write failed", "strategy", strategyID, "id", d.ID, "err", err)
		}
	}

	r.log.Debug("deposit queued", "user", user, "strategy", strategyID, "id", d.ID, "amount", amount)
	r.emit(DepositedEvent{Depositor: user, StrategyID: strategyID, Amount: new(big.Int).Set(amount)})
	return nil
}

// TransferDeposits bridges every outstanding pending deposit of a strategy
// to its destinations as one batch, mints shares against the reported TVL
// and advances the deposit watermark over the whole queue. Relayer only.
func (r *Router) TransferDeposits(caller common.Address, batch TransferBatch) error {
	if err := r.policy.Allow(caller); err != nil {
		return err
	}
	n := len(batch.DestChainIDs)
	if len(batch.Destinations) != n || len(batch.Amounts) != n || len(batch.BridgeTokens) != n {
		return ErrDestinationMismatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.ledgers[batch.StrategyID]
	if l == nil || l.pendingDepositTotal.Sign() == 0 {
		return ErrNoDepositToProcess
	}
	if r.transport == nil {
		return ErrBridgeNotSet
	}

	reported := batch.ReportedTVL
	if reported == nil {
		reported = big.NewInt(0)
	}

	// Every destination is validated before any send is emitted: a batch
	// either leaves for all of its destinations or for none, so a retry
	// after a rejection never double-sends the accepted entries.
	for i := 0; i < n; i++ {
		if err := r.transport.Validate(batch.BridgeTokens[i], batch.Amounts[i], batch.DestChainIDs[i], batch.NativeFee); err != nil {
			return err
		}
	}
	for i := 0; i < n; i++ {
		if err := r.transport.Send(batch.BridgeTokens[i], batch.Amounts[i], batch.DestChainIDs[i], batch.Destinations[i], batch.BridgeTokens[i], batch.NativeFee); err != nil {
			return err
		}
	}

	batchTotal, err := l.settleDepositBatch(reported)
	if err != nil {
		return err
	}
	if r.journal != nil {
		if err := r.journal.RecordDepositWatermark(batch.StrategyID, l.maxProcessedDepositID); err != nil {
			r.log.Warn("journal write failed", "strategy", batch.StrategyID, "err", err)
		}
	}

	r.log.Info("deposits transferred",
		"strategy", batch.StrategyID, "batch", batchTotal,
		"destinations", n, "reportedTVL", reported,
		"maxProcessedDepositId", l.maxProcessedDepositID)
	return nil
}

// ledger returns the strategy's ledger, creating it lazily. Requires r.mu.
func (r *Router) ledger(strategyID uint64) *strategyLedger {
	l := r.ledgers[strategyID]
	if l == nil {
		l = newStrategyLedger(strategyID)
		if r.journal != nil {
			// Counters restore from the journal; queue contents do not.
			// Requests that were still unresolved at shutdown are voided
			// by starting both watermarks at the last assigned ID, so
			// their IDs stay consumed and are never handed out again.
			_, lpd, _, lpw := r.journal.Watermarks(strategyID)
			l.maxProcessedDepositID, l.lastPendingDepositID = lpd, lpd
			l.maxProcessedWithdrawalID, l.lastPendingWithdrawalID = lpw, lpw
		}
		r.ledgers[strategyID] = l
	}
	return l
}

// emit requires r.mu.
func (r *Router) emit(ev Event) {
	for _, s := range r.sinks {
		s(ev)
	}
}

// Read surface. Zero values are returned for strategies or IDs that were
// never seen, matching a mapping lookup on the original ledger.

// PendingStrategyDeposits returns the running total of unbridged deposits.
func (r *Router) PendingStrategyDeposits(strategyID uint64) *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		return new(big.Int).Set(l.pendingDepositTotal)
	}
	return big.NewInt(0)
}

// PendingStrategyWithdrawals returns the running total of unsettled
// withdrawal intent.
func (r *Router) PendingStrategyWithdrawals(strategyID uint64) *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		return new(big.Int).Set(l.pendingWithdrawalTotal)
	}
	return big.NewInt(0)
}

// LastPendingDepositID returns the highest assigned deposit ID.
func (r *Router) LastPendingDepositID(strategyID uint64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		return l.lastPendingDepositID
	}
	return 0
}

// MaxProcessedDepositID returns the deposit watermark: every ID at or
// below it has been bridged.
func (r *Router) MaxProcessedDepositID(strategyID uint64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		return l.maxProcessedDepositID
	}
	return 0
}

// LastPendingWithdrawalID returns the highest assigned withdrawal ID.
func (r *Router) LastPendingWithdrawalID(strategyID uint64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		return l.lastPendingWithdrawalID
	}
	return 0
}

// MaxProcessedWithdrawalID returns the withdrawal watermark.
func (r *Router) MaxProcessedWithdrawalID(strategyID uint64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		return l.maxProcessedWithdrawalID
	}
	return 0
}

// PendingDepositByID returns the recorded deposit entry, historical entries
// included.
func (r *Router) PendingDepositByID(strategyID, depositID uint64) (PendingDeposit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		if d := l.pendingDeposits[depositID]; d != nil {
			out := *d
			out.Amount = new(big.Int).Set(d.Amount)
			return out, true
		}
	}
	return PendingDeposit{}, false
}

// PendingWithdrawalByID returns the recorded withdrawal request with its
// current status; settled and cancelled records persist.
func (r *Router) PendingWithdrawalByID(strategyID, withdrawalID uint64) (PendingWithdrawal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		if w := l.pendingWithdrawals[withdrawalID]; w != nil {
			return *w, true
		}
	}
	return PendingWithdrawal{}, false
}

// UserPositionOf returns the user's settled stake in a strategy.
func (r *Router) UserPositionOf(user common.Address, strategyID uint64) UserPosition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		if p := l.positions[user]; p != nil {
			return UserPosition{Deposit: new(big.Int).Set(p.Deposit), Shares: new(big.Int).Set(p.Shares)}
		}
	}
	return UserPosition{Deposit: big.NewInt(0), Shares: big.NewInt(0)}
}

// TotalShares returns the strategy's outstanding shares.
func (r *Router) TotalShares(strategyID uint64) *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		return new(big.Int).Set(l.totalShares)
	}
	return big.NewInt(0)
}

// TotalDeposited returns the strategy's settled principal.
func (r *Router) TotalDeposited(strategyID uint64) *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		return new(big.Int).Set(l.totalDeposited)
	}
	return big.NewInt(0)
}

// StrategyTVL returns the strategy's valuation as of the latest settlement.
func (r *Router) StrategyTVL(strategyID uint64) *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l := r.ledgers[strategyID]; l != nil {
		return new(big.Int).Set(l.reportedTVL)
	}
	return big.NewInt(0)
}

// Strategies returns every strategy ID the router has seen.
func (r *Router) Strategies() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint64, 0, len(r.ledgers))
	for id := range r.ledgers {
		out = append(out, id)
	}
	return out
}
