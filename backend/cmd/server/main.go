// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/efchatnet/efrelay/backend/api"
	"github.com/efchatnet/efrelay/backend/config"
	"github.com/efchatnet/efrelay/backend/relay"
	"github.com/efchatnet/efrelay/backend/storage"
	"github.com/efchatnet/efrelay/backend/storage/memory"
	redisstore "github.com/efchatnet/efrelay/backend/storage/redis"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfg     *config.Config
		port    string
		webDir  string
		redis   string
		sweep   time.Duration
		env     string
		level   string
		maxBody int64
	)

	root := &cobra.Command{
		Use:           "efrelay",
		Short:         "Ephemeral relay for end-to-end encrypted room messages",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}

			// Flags win over the environment when set explicitly.
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("web-dir") {
				cfg.WebDir = webDir
			}
			if flags.Changed("redis-url") {
				cfg.RedisURL = redis
			}
			if flags.Changed("sweep-interval") {
				cfg.SweepInterval = sweep
			}
			if flags.Changed("env") {
				cfg.Env = env
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = level
			}
			if flags.Changed("max-body-bytes") {
				cfg.MaxBodyBytes = maxBody
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	root.Flags().StringVar(&port, "port", "8080", "listen port (env PORT)")
	root.Flags().StringVar(&webDir, "web-dir", "build/web", "web client directory (env WEB_DIR)")
	root.Flags().StringVar(&redis, "redis-url", "", "redis:// URL; empty keeps rooms in memory (env REDIS_URL)")
	root.Flags().DurationVar(&sweep, "sweep-interval", 0, "compact expired messages every interval, 0 disables (env SWEEP_INTERVAL)")
	root.Flags().StringVar(&env, "env", "development", "development or production (env ENV)")
	root.Flags().StringVar(&level, "log-level", "info", "zerolog level (env LOG_LEVEL)")
	root.Flags().Int64Var(&maxBody, "max-body-bytes", 1<<20, "request body limit (env MAX_BODY_BYTES)")

	return root
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	return logger.Level(cfg.Level())
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, string, error) {
	if cfg.RedisURL == "" {
		return memory.NewStore(), "memory", nil
	}
	store, err := redisstore.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, "", err
	}
	return store, "redis", nil
}

func run(cfg *config.Config) error {
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, backend, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("store initialization failed")
		return err
	}
	defer store.Close()
	logger.Info().Str("backend", backend).Msg("relay store ready")

	router, relayAPI, err := api.NewRouter(logger, api.Options{
		Store:        store,
		Backend:      backend,
		WebDir:       cfg.WebDir,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	if cfg.SweepInterval > 0 {
		sweeper := relay.NewSweeper(relayAPI.Service(), cfg.SweepInterval, logger)
		go sweeper.Run(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("web_dir", cfg.WebDir).
			Msg("relay listening; API: POST/GET /api/messages, /api/participants, POST /api/wipe")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			logger.Error().Err(err).Msg("server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
