// Package bnhttp serves the read-only governance query API
// and a websocket event feed.
//
// Mutations are not exposed here: every mutating governance operation
// requires a host-authenticated caller identity, which plain HTTP
// does not provide.
package bnhttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Tobeyw/bane-labs/bn/bngov"
)

// GovernanceView is the subset of the governance engine
// the query API needs.
//
// [github.com/Tobeyw/bane-labs/bn/bnengine.Engine] satisfies this.
type GovernanceView interface {
	Drafts(ctx context.Context) ([]bngov.Draft, error)
	CurrentPhase(ctx context.Context) (bngov.Phase, error)
	PhaseByHeight(ctx context.Context, height uint64) (bngov.Phase, error)
	CurrentMiners(ctx context.Context) ([]bngov.Identity, error)
}

type Server struct {
	done chan struct{}
}

type ServerConfig struct {
	Listener net.Listener

	Gov GovernanceView

	// Hub enables GET /govern/events when set.
	Hub *EventHub
}

func NewServer(ctx context.Context, log *slog.Logger, cfg ServerConfig) *Server {
	srv := &http.Server{
		Handler: newMux(log, cfg),

		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	s := &Server{
		done: make(chan struct{}),
	}
	go s.serve(log, cfg.Listener, srv)
	go s.waitForShutdown(ctx, srv)

	return s
}

func (s *Server) Wait() {
	<-s.done
}

func (s *Server) waitForShutdown(ctx context.Context, srv *http.Server) {
	select {
	case <-s.done:
		// serve returned on its own, nothing left to do here.
		return
	case <-ctx.Done():
		_ = srv.Close()
	}
}

func (s *Server) serve(log *slog.Logger, ln net.Listener, srv *http.Server) {
	defer close(s.done)

	if err := srv.Serve(ln); err != nil {
		if errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrServerClosed) {
			log.Info("HTTP server shutting down")
		} else {
			log.Info("HTTP server shutting down due to error", "err", err)
		}
	}
}

func newMux(log *slog.Logger, cfg ServerConfig) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/govern/drafts", handleDrafts(log, cfg)).Methods("GET")
	r.HandleFunc("/govern/phases/current", handleCurrentPhase(log, cfg)).Methods("GET")
	r.HandleFunc("/govern/phases/{height}", handlePhaseByHeight(log, cfg)).Methods("GET")
	r.HandleFunc("/govern/committee", handleCommittee(log, cfg)).Methods("GET")

	if cfg.Hub != nil {
		r.HandleFunc("/govern/events", handleEvents(log, cfg)).Methods("GET")
	}

	return r
}

type phaseResponse struct {
	StartHeight uint64           `json:"start_height"`
	Miners      []bngov.Identity `json:"miners"`
	PreHeight   uint64           `json:"pre_height"`
	MinersHash  string           `json:"miners_hash"`
}

func newPhaseResponse(p bngov.Phase) phaseResponse {
	return phaseResponse{
		StartHeight: p.StartHeight,
		Miners:      p.Miners,
		PreHeight:   p.PreHeight,
		MinersHash:  bngov.MinerSetHash(p.Miners),
	}
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to write response", "err", err)
	}
}

func handleDrafts(log *slog.Logger, cfg ServerConfig) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		drafts, err := cfg.Gov.Drafts(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(log, w, struct {
			Drafts []bngov.Draft `json:"drafts"`
		}{Drafts: drafts})
	}
}

func handleCurrentPhase(log *slog.Logger, cfg ServerConfig) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		p, err := cfg.Gov.CurrentPhase(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(log, w, newPhaseResponse(p))
	}
}

func handlePhaseByHeight(log *slog.Logger, cfg ServerConfig) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		height, err := strconv.ParseUint(mux.Vars(req)["height"], 10, 64)
		if err != nil {
			http.Error(w, "invalid height: "+err.Error(), http.StatusBadRequest)
			return
		}

		p, err := cfg.Gov.PhaseByHeight(req.Context(), height)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(log, w, newPhaseResponse(p))
	}
}

func handleCommittee(log *slog.Logger, cfg ServerConfig) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		miners, err := cfg.Gov.CurrentMiners(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(log, w, struct {
			Miners     []bngov.Identity `json:"miners"`
			MinersHash string           `json:"miners_hash"`
		}{
			Miners:     miners,
			MinersHash: bngov.MinerSetHash(miners),
		})
	}
}
