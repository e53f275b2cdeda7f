// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/xrouter/router"
)

func TestAPI_Health(t *testing.T) {
	rl, _, _, _ := newTestRelayer(t)
	srv := httptest.NewServer(NewAPI(rl).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_PendingTotals(t *testing.T) {
	rl, rtr, _, _ := newTestRelayer(t)
	srv := httptest.NewServer(NewAPI(rl).Handler())
	defer srv.Close()

	require.NoError(t, rtr.Deposit(rlUser, rlStrategy, big.NewInt(123)))
	require.NoError(t, rtr.InitiateWithdraw(rlUser, rlStrategy, router.Fixed(big.NewInt(45))))

	resp, err := http.Get(srv.URL + "/strategies/111/pending")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "123", body["deposits"])
	require.Equal(t, "45", body["withdrawals"])
}

func TestAPI_BadStrategyID(t *testing.T) {
	rl, _, _, _ := newTestRelayer(t)
	srv := httptest.NewServer(NewAPI(rl).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/strategies/notanumber/pending")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_SweepAndSettle(t *testing.T) {
	rl, rtr, _, _ := newTestRelayer(t)
	srv := httptest.NewServer(NewAPI(rl).Handler())
	defer srv.Close()

	require.NoError(t, rtr.Deposit(rlUser, rlStrategy, big.NewInt(100)))

	resp, err := http.Post(srv.URL+"/strategies/111/sweep", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Zero(t, rtr.PendingStrategyDeposits(rlStrategy).Sign())

	require.NoError(t, rtr.InitiateWithdraw(rlUser, rlStrategy, router.Fixed(big.NewInt(40))))

	resp, err = http.Post(srv.URL+"/strategies/111/settle", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body["settled"])
	require.Equal(t, uint64(1), rtr.MaxProcessedWithdrawalID(rlStrategy))
}

func TestAPI_Cancel(t *testing.T) {
	rl, rtr, _, _ := newTestRelayer(t)
	srv := httptest.NewServer(NewAPI(rl).Handler())
	defer srv.Close()

	require.NoError(t, rtr.InitiateWithdraw(rlUser, rlStrategy, router.All()))

	resp, err := http.Post(srv.URL+"/strategies/111/cancel", "application/json",
		strings.NewReader(`{"destChainId":42}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Zero(t, rtr.PendingStrategyWithdrawals(rlStrategy).Sign())

	// Nothing left to cancel.
	resp, err = http.Post(srv.URL+"/strategies/111/cancel", "application/json",
		strings.NewReader(`{"destChainId":42}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}
