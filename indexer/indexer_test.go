// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexer

import (
	"math/big"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/xrouter/router"
)

var (
	ixUser1 = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	ixUser2 = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func TestIndexer_FoldsDepositsAndWithdrawals(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	ix := New(db)

	ix.Apply(router.DepositedEvent{Depositor: ixUser1, StrategyID: 111, Amount: big.NewInt(100)})
	ix.Apply(router.DepositedEvent{Depositor: ixUser1, StrategyID: 111, Amount: big.NewInt(50)})
	ix.Apply(router.DepositedEvent{Depositor: ixUser2, StrategyID: 111, Amount: big.NewInt(70)})
	ix.Apply(router.DepositedEvent{Depositor: ixUser1, StrategyID: 222, Amount: big.NewInt(5)})
	ix.Apply(router.WithdrawnEvent{Withdrawer: ixUser1, StrategyID: 111, Amount: big.NewInt(60)})

	require.Equal(t, big.NewInt(90), ix.NetDeposited(ixUser1, 111))
	require.Equal(t, big.NewInt(70), ix.NetDeposited(ixUser2, 111))
	require.Equal(t, big.NewInt(5), ix.NetDeposited(ixUser1, 222))
	require.Zero(t, ix.NetDeposited(ixUser2, 222).Sign())
	require.Equal(t, uint64(5), ix.EventsSeen())
}

func TestIndexer_CancelLeavesTotals(t *testing.T) {
	ix := New(nil)

	ix.Apply(router.DepositedEvent{Depositor: ixUser1, StrategyID: 111, Amount: big.NewInt(100)})
	ix.Apply(router.CancelWithdrawnEvent{Withdrawer: ixUser1, StrategyID: 111, Amount: router.MaxIntent()})

	// A cancelled request moved no funds.
	require.Equal(t, big.NewInt(100), ix.NetDeposited(ixUser1, 111))
}

func TestIndexer_FloorsAtZero(t *testing.T) {
	ix := New(nil)

	ix.Apply(router.WithdrawnEvent{Withdrawer: ixUser1, StrategyID: 111, Amount: big.NewInt(40)})
	require.Zero(t, ix.NetDeposited(ixUser1, 111).Sign())
}

func TestIndexer_ResumesFromDatabase(t *testing.T) {
	db := memdb.New()
	defer db.Close()

	ix := New(db)
	ix.Apply(router.DepositedEvent{Depositor: ixUser1, StrategyID: 111, Amount: big.NewInt(100)})

	// A fresh indexer over the same database reads the persisted total.
	ix2 := New(db)
	require.Equal(t, big.NewInt(100), ix2.NetDeposited(ixUser1, 111))
	require.Zero(t, ix2.EventsSeen())
}

func TestIndexer_WiredToRouterSink(t *testing.T) {
	ix := New(nil)

	// The sink adapter forwards router events verbatim.
	sink := ix.Sink()
	sink(router.DepositedEvent{Depositor: ixUser1, StrategyID: 111, Amount: big.NewInt(10)})
	sink(router.RequestedWithdrawEvent{Withdrawer: ixUser1, StrategyID: 111, Amount: big.NewInt(10)})

	require.Equal(t, big.NewInt(10), ix.NetDeposited(ixUser1, 111))
	require.Equal(t, uint64(2), ix.EventsSeen())
}
