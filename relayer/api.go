// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// API exposes the relayer's operational surface over HTTP: health,
// per-strategy pending totals, and the settle / cancel triggers an
// operator needs when the scheduler is paused.
type API struct {
	relayer *Relayer
}

// NewAPI wraps a relayer for HTTP serving.
func NewAPI(r *Relayer) *API {
	return &API{relayer: r}
}

// Handler returns the routed HTTP handler.
func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })).Methods("GET")
	r.HandleFunc("/strategies/{id}/pending", a.handlePending).Methods("GET")
	r.HandleFunc("/strategies/{id}/sweep", a.handleSweep).Methods("POST")
	r.HandleFunc("/strategies/{id}/settle", a.handleSettle).Methods("POST")
	r.HandleFunc("/strategies/{id}/cancel", a.handleCancel).Methods("POST")
	return r
}

func strategyID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *API) handlePending(w http.ResponseWriter, r *http.Request) {
	id, err := strategyID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rtr := a.relayer.rtr
	writeJSON(w, http.StatusOK, map[string]string{
		"deposits":    rtr.PendingStrategyDeposits(id).String(),
		"withdrawals": rtr.PendingStrategyWithdrawals(id).String(),
	})
}

func (a *API) handleSweep(w http.ResponseWriter, r *http.Request) {
	id, err := strategyID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.relayer.sweepStrategy(r.Context(), id); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "swept"})
}

func (a *API) handleSettle(w http.ResponseWriter, r *http.Request) {
	id, err := strategyID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settled, err := a.relayer.SettleNextWithdrawal(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"settled": settled})
}

func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strategyID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		DestChainID uint16 `json:"destChainId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.relayer.CancelWithdrawals(body.DestChainID, id); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
