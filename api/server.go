// Copyright 2024 The poolbridge Authors
// This file is part of relayd.
//
// relayd is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// relayd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with relayd. If not, see <http://www.gnu.org/licenses/>.

// Package api exposes the read surface over relay records: listing, hash
// lookup and the pending views, plus an operational clear endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/poolbridge/relayd/store"
)

// Server serves the JSON API over a TxStore.
type Server struct {
	store store.TxStore
	log   log.Logger
	srv   *http.Server
}

// NewServer builds the router. Call Start to begin serving.
func NewServer(st store.TxStore) *Server {
	s := &Server{
		store: st,
		log:   log.New("module", "api"),
	}

	router := httprouter.New()
	router.GET("/v1/health", s.health)
	router.GET("/v1/transactions", s.listTransactions)
	router.GET("/v1/transactions/hash/:hash", s.findByHash)
	router.GET("/v1/transactions/pending", s.listPending)
	router.GET("/v1/transactions/pending/user/:address", s.pendingByUser)
	router.GET("/v1/transactions/pending/chain/:chain", s.pendingByChain)
	router.DELETE("/v1/transactions", s.clearTransactions)

	s.srv = &http.Server{
		Handler:           cors.Default().Handler(router),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the configured HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start serves on addr until Stop. It blocks, returning nil after a clean
// shutdown.
func (s *Server) Start(addr string) error {
	s.srv.Addr = addr
	s.log.Info("API listening", "addr", addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	recs, err := s.store.ListAll(r.Context(), limit)
	if err != nil {
		s.serverError(w, "listing records", err)
		return
	}
	writeJSON(w, http.StatusOK, records(recs))
}

func (s *Server) listPending(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	recs, err := s.store.ListPending(r.Context(), limit)
	if err != nil {
		s.serverError(w, "listing pending records", err)
		return
	}
	writeJSON(w, http.StatusOK, records(recs))
}

// limitParam parses the optional limit query. A false return means the
// response has already been written.
func limitParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return parsed, true
}

func (s *Server) findByHash(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rec, err := s.store.FindByHash(r.Context(), ps.ByName("hash"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		s.serverError(w, "looking up record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) pendingByUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	address := ps.ByName("address")
	if !common.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	recs, err := s.store.ListPendingByUser(r.Context(), address)
	if err != nil {
		s.serverError(w, "listing pending by user", err)
		return
	}
	writeJSON(w, http.StatusOK, records(recs))
}

func (s *Server) pendingByChain(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	chain := store.Chain(ps.ByName("chain"))
	if chain != store.ChainL1 && chain != store.ChainL2 {
		writeError(w, http.StatusBadRequest, "chain must be L1 or L2")
		return
	}
	recs, err := s.store.ListPendingByChain(r.Context(), chain)
	if err != nil {
		s.serverError(w, "listing pending by chain", err)
		return
	}
	writeJSON(w, http.StatusOK, records(recs))
}

func (s *Server) clearTransactions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		s.serverError(w, "clearing records", err)
		return
	}
	s.log.Warn("All relay records cleared via API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.log.Error("Request failed", "op", op, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// records never marshals as null.
func records(recs []*store.RelayRecord) []*store.RelayRecord {
	if recs == nil {
		return []*store.RelayRecord{}
	}
	return recs
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
