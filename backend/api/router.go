// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package api

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/efchatnet/efrelay/backend/handlers"
	"github.com/efchatnet/efrelay/backend/integration"
	"github.com/efchatnet/efrelay/backend/middleware"
	"github.com/efchatnet/efrelay/backend/storage"
)

const defaultMaxBodyBytes = 1 << 20

// Options configures the HTTP surface of the relay.
type Options struct {
	Store        storage.Store
	Backend      string // reported by /health, e.g. "memory" or "redis"
	WebDir       string
	MaxBodyBytes int64
	Clock        func() time.Time
}

// NewRouter wires the relay API, operational endpoints and the static web
// client into one handler.
func NewRouter(logger zerolog.Logger, opts Options) (http.Handler, *integration.RelayIntegration, error) {
	relayAPI, err := integration.NewRelayIntegration(&integration.Config{
		Store:  opts.Store,
		Logger: logger,
		Clock:  opts.Clock,
	})
	if err != nil {
		return nil, nil, err
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r := mux.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.MaxBodySize(maxBody))

	relayAPI.RegisterRoutes(r)

	health := handlers.NewHealthHandler(opts.Store, opts.Backend)
	r.HandleFunc("/health", health.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Everything else is the web client.
	r.PathPrefix("/").Handler(handlers.NewStaticHandler(opts.WebDir))

	// CORS wraps the router so preflight requests never reach route matching.
	return middleware.CORS()(r), relayAPI, nil
}
