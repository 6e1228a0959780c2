// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"github.com/blinklabs-io/tally/event"
	"github.com/blinklabs-io/tally/governance"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const DefaultListenAddress = ":8080"

type APIConfig struct {
	ListenAddress string
	// EventBufferSize is the number of recent notifications kept for
	// GET /api/v1/events
	EventBufferSize int
}

// API is the HTTP JSON interface to a governance node. The gRPC health and
// reflection services share its port.
type API struct {
	config     APIConfig
	logger     *slog.Logger
	node       Node
	eventBus   *event.EventBus
	events     *eventLog
	subIds     map[event.EventType]event.EventSubscriberId
	httpServer *http.Server
	listenAddr net.Addr
	mu         sync.Mutex
}

func New(
	cfg APIConfig,
	node Node,
	eventBus *event.EventBus,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &API{
		config:   cfg,
		logger:   logger.With("component", "api"),
		node:     node,
		eventBus: eventBus,
		events:   newEventLog(cfg.EventBufferSize),
	}
}

// Handler returns the request router
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /api/v1/supply", a.handleSupply)
	mux.HandleFunc("GET /api/v1/accounts/{account}/balance", a.handleBalance)
	mux.HandleFunc("POST /api/v1/transfers", a.handleTransfer)
	mux.HandleFunc("GET /api/v1/proposals", a.handleProposals)
	mux.HandleFunc("POST /api/v1/proposals", a.handleCreateProposal)
	mux.HandleFunc("GET /api/v1/proposals/active", a.handleActiveProposals)
	mux.HandleFunc("GET /api/v1/proposals/count", a.handleProposalCount)
	mux.HandleFunc("GET /api/v1/proposals/{id}", a.handleProposal)
	mux.HandleFunc("GET /api/v1/proposals/{id}/votes", a.handleVotes)
	mux.HandleFunc("POST /api/v1/proposals/{id}/votes", a.handleVote)
	mux.HandleFunc("GET /api/v1/proposals/{id}/votes/{account}", a.handleGetVote)
	mux.HandleFunc("GET /api/v1/events", a.handleEvents)

	compress1KB := connect.WithCompressMinBytes(1024)
	mux.Handle(
		grpchealth.NewHandler(
			grpchealth.NewStaticChecker(grpchealth.HealthV1ServiceName),
			compress1KB,
		),
	)
	reflector := grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName)
	mux.Handle(grpcreflect.NewHandlerV1(reflector, compress1KB))
	mux.Handle(grpcreflect.NewHandlerV1Alpha(reflector, compress1KB))
	return mux
}

// Start subscribes to notifications and begins serving in the background
func (a *API) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpServer != nil {
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr: a.config.ListenAddress,
		// Use h2c so we can serve HTTP/2 without TLS
		Handler:           h2c.NewHandler(a.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 60 * time.Second,
	}
	// Bind first so port conflicts are reported to the caller
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	a.httpServer = server
	a.listenAddr = ln.Addr()
	a.subscribe()
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("API server error", "error", err)
		}
	}()
	a.logger.Info("API listener started on " + ln.Addr().String())

	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the bound listen address while the server is running
func (a *API) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listenAddr
}

// Stop gracefully shuts down the HTTP server
func (a *API) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.listenAddr = nil
	a.unsubscribe()
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	a.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}

func (a *API) subscribe() {
	if a.eventBus == nil {
		return
	}
	a.subIds = make(map[event.EventType]event.EventSubscriberId)
	for _, eventType := range governance.EventTypes {
		a.subIds[eventType] = a.eventBus.SubscribeFunc(eventType, a.events.add)
	}
}

func (a *API) unsubscribe() {
	for eventType, subId := range a.subIds {
		a.eventBus.Unsubscribe(eventType, subId)
	}
	a.subIds = nil
}
