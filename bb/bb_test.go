// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bb

import (
	"errors"
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
)

var (
	testProxyAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testBBRelayer  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testBBStable   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testBBRouter   = common.HexToAddress("0x4444444444444444444444444444444444444444")
	testBBStranger = common.HexToAddress("0x5555555555555555555555555555555555555555")
)

func testParams() InitParams {
	return InitParams{
		Relayer:       testBBRelayer,
		Stable:        testBBStable,
		NativeChainID: 1,
		NativeRouter:  testBBRouter,
	}
}

func initBlock(t *testing.T, b Block) {
	t.Helper()
	if err := b.Init(testProxyAddr, testParams()); err != nil {
		t.Fatalf("init: %v", err)
	}
}

func TestBaseBlock_InitValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*InitParams)
		want   error
	}{
		{"zero relayer", func(p *InitParams) { p.Relayer = common.Address{} }, ErrRelayerZero},
		{"zero stable", func(p *InitParams) { p.Stable = common.Address{} }, ErrStableZero},
		{"zero router", func(p *InitParams) { p.NativeRouter = common.Address{} }, ErrRouterZero},
		{"zero chain", func(p *InitParams) { p.NativeChainID = 0 }, ErrZeroChainID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := testParams()
			tc.mutate(&params)
			b := NewAaveBlock()
			if err := b.Init(testProxyAddr, params); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBaseBlock_InitOnce(t *testing.T) {
	b := NewAaveBlock()
	initBlock(t, b)

	if err := b.Init(testProxyAddr, testParams()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
	if b.Relayer() != testBBRelayer || b.Stable() != testBBStable || b.NativeRouter() != testBBRouter {
		t.Error("init must record its params")
	}
}

func TestBaseBlock_UninitializedRejectsCalls(t *testing.T) {
	b := NewAaveBlock()
	if err := b.OpenPosition(testBBRelayer, big.NewInt(1)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestAaveBlock_Lifecycle(t *testing.T) {
	b := NewAaveBlock()
	initBlock(t, b)

	if err := b.OpenPosition(testBBStranger, big.NewInt(100)); err == nil {
		t.Error("non-relayer open must fail")
	}
	if err := b.OpenPosition(testBBRelayer, big.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("expected ErrZeroAmount, got %v", err)
	}
	if err := b.OpenPosition(testBBRelayer, big.NewInt(1000)); err != nil {
		t.Fatal(err)
	}

	// Borrow up to collateral, never past it.
	if err := b.Borrow(testBBRelayer, big.NewInt(1001)); !errors.Is(err, ErrInsufficientValue) {
		t.Errorf("expected ErrInsufficientValue, got %v", err)
	}
	if err := b.Borrow(testBBRelayer, big.NewInt(400)); err != nil {
		t.Fatal(err)
	}
	if got := b.ReportTVL(); got.Cmp(big.NewInt(600)) != 0 {
		t.Errorf("expected tvl 600 with debt, got %v", got)
	}

	// Only free collateral may close.
	if _, err := b.ClosePosition(testBBRelayer, big.NewInt(601)); !errors.Is(err, ErrInsufficientValue) {
		t.Errorf("expected ErrInsufficientValue, got %v", err)
	}
	if err := b.Repay(testBBRelayer, big.NewInt(400)); err != nil {
		t.Fatal(err)
	}

	b.AccrueRewards(big.NewInt(50))
	if got := b.ReportTVL(); got.Cmp(big.NewInt(1050)) != 0 {
		t.Errorf("expected tvl 1050 with rewards, got %v", got)
	}
	claimed, err := b.ClaimRewards(testBBRelayer)
	if err != nil {
		t.Fatal(err)
	}
	if claimed.Cmp(big.NewInt(50)) != 0 {
		t.Errorf("expected claim 50, got %v", claimed)
	}

	out, err := b.ClosePosition(testBBRelayer, big.NewInt(1050))
	if err != nil {
		t.Fatal(err)
	}
	if out.Cmp(big.NewInt(1050)) != 0 || b.ReportTVL().Sign() != 0 {
		t.Errorf("full close must drain the block, out %v tvl %v", out, b.ReportTVL())
	}
}

func TestGMXBlock_Compound(t *testing.T) {
	b := NewGMXBlock()
	initBlock(t, b)

	if err := b.OpenPosition(testBBRelayer, big.NewInt(500)); err != nil {
		t.Fatal(err)
	}
	b.AccrueFees(big.NewInt(25))
	if got := b.ReportTVL(); got.Cmp(big.NewInt(525)) != 0 {
		t.Errorf("expected tvl 525, got %v", got)
	}

	folded, err := b.Compound(testBBRelayer)
	if err != nil {
		t.Fatal(err)
	}
	if folded.Cmp(big.NewInt(25)) != 0 {
		t.Errorf("expected folded 25, got %v", folded)
	}

	// Fees are now part of the unstakeable balance.
	if _, err := b.ClosePosition(testBBRelayer, big.NewInt(525)); err != nil {
		t.Errorf("close of compounded balance: %v", err)
	}
	if _, err := b.ClosePosition(testBBRelayer, big.NewInt(1)); !errors.Is(err, ErrInsufficientValue) {
		t.Errorf("expected ErrInsufficientValue on empty pool, got %v", err)
	}
}

func TestPerpBlock_MarkToMarket(t *testing.T) {
	b := NewPerpBlock()
	initBlock(t, b)

	if err := b.OpenPosition(testBBRelayer, big.NewInt(1000)); err != nil {
		t.Fatal(err)
	}
	if err := b.AdjustNotional(testBBRelayer, big.NewInt(5000)); err != nil {
		t.Fatal(err)
	}

	b.Mark(big.NewInt(-300))
	if got := b.ReportTVL(); got.Cmp(big.NewInt(700)) != 0 {
		t.Errorf("expected equity 700 at a loss, got %v", got)
	}

	// Under water past the margin: TVL floors at zero.
	b.Mark(big.NewInt(-1500))
	if got := b.ReportTVL(); got.Sign() != 0 {
		t.Errorf("expected zero tvl under water, got %v", got)
	}

	// Closing beyond equity fails.
	b.Mark(big.NewInt(200))
	if _, err := b.ClosePosition(testBBRelayer, big.NewInt(1300)); !errors.Is(err, ErrInsufficientValue) {
		t.Errorf("expected ErrInsufficientValue, got %v", err)
	}
	out, err := b.ClosePosition(testBBRelayer, big.NewInt(1200))
	if err != nil {
		t.Fatal(err)
	}
	if out.Cmp(big.NewInt(1200)) != 0 {
		t.Errorf("expected close of full equity, got %v", out)
	}
	if got := b.ReportTVL(); got.Sign() != 0 {
		t.Errorf("expected empty account, got %v", got)
	}
}

func TestBaseBlock_SetterGating(t *testing.T) {
	b := NewGMXBlock()
	initBlock(t, b)

	newRelayer := common.HexToAddress("0x6666666666666666666666666666666666666666")
	if err := b.SetRelayer(testBBStranger, newRelayer); err == nil {
		t.Error("non-relayer rotation must fail")
	}
	if err := b.SetRelayer(testBBRelayer, newRelayer); err != nil {
		t.Fatal(err)
	}
	// Old key is dead, new key works.
	if err := b.OpenPosition(testBBRelayer, big.NewInt(1)); err == nil {
		t.Error("old relayer must lose access")
	}
	if err := b.OpenPosition(newRelayer, big.NewInt(1)); err != nil {
		t.Errorf("new relayer must gain access: %v", err)
	}

	if err := b.SetStable(newRelayer, common.Address{}); !errors.Is(err, ErrStableZero) {
		t.Errorf("expected ErrStableZero, got %v", err)
	}
	if err := b.SetNativeRouter(newRelayer, common.Address{}); !errors.Is(err, ErrRouterZero) {
		t.Errorf("expected ErrRouterZero, got %v", err)
	}
}
