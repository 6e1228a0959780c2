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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/internal/config"
	"github.com/blinklabs-io/tally/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NodeConfig converts the loaded configuration into node options. Extra
// options are applied last.
func NodeConfig(
	cfg *config.Config,
	logger *slog.Logger,
	registry prometheus.Registerer,
	extra ...tally.ConfigOptionFunc,
) (tally.Config, error) {
	votingPeriod, err := cfg.VotingPeriodDuration()
	if err != nil {
		return tally.Config{}, err
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return tally.Config{}, err
	}
	opts := []tally.ConfigOptionFunc{
		tally.WithLogger(logger),
		tally.WithDatabasePath(cfg.DatabasePath),
		tally.WithBlobPlugin(cfg.BlobPlugin),
		tally.WithMetadataPlugin(cfg.MetadataPlugin),
		tally.WithVotingPeriod(votingPeriod),
		tally.WithShutdownTimeout(shutdownTimeout),
		tally.WithEventBufferSize(cfg.EventBufferSize),
		tally.WithTracing(cfg.Tracing),
		tally.WithTracingStdout(cfg.TracingStdout),
		tally.WithPrometheusRegistry(registry),
	}
	if cfg.GenesisSupply > 0 || cfg.GenesisAccount != "" {
		opts = append(
			opts,
			tally.WithGenesis(
				token.Account(cfg.GenesisAccount),
				cfg.GenesisSupply,
			),
		)
	}
	if cfg.ApiPort > 0 {
		opts = append(
			opts,
			tally.WithApiListenAddress(
				fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
			),
		)
	}
	opts = append(opts, extra...)
	return tally.NewConfig(opts...), nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	nodeCfg, err := NodeConfig(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	n, err := tally.New(nodeCfg)
	if err != nil {
		return err
	}
	// Metrics and debug listener
	var metricsServer *http.Server
	metricsErr := make(chan error, 1)
	if cfg.MetricsPort > 0 {
		http.Handle("/metrics", promhttp.Handler())
		metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				metricsErr <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		errChan <- n.Run(signalCtx)
	}()

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		// Run returns once the node has stopped
		runErr = <-errChan
	case runErr = <-errChan:
		if runErr != nil {
			logger.Error("node error", "error", runErr)
		}
	case err := <-metricsErr:
		logger.Error("metrics server error", "error", err)
		runErr = errors.Join(err, n.Stop())
		<-errChan
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}
	logger.Info("shutdown complete")
	return nil
}
