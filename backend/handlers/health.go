// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const version = "0.1.0"

type Pinger interface {
	Ping(ctx context.Context) error
}

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Instance  string           `json:"instance"`
	Backend   string           `json:"backend"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

type HealthHandler struct {
	store    Pinger
	backend  string
	instance string
}

// NewHealthHandler creates a health handler. Each process gets a random
// instance id so that load-balanced replicas can be told apart.
func NewHealthHandler(store Pinger, backend string) *HealthHandler {
	return &HealthHandler{
		store:    store,
		backend:  backend,
		instance: uuid.New().String(),
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	status, code := "healthy", http.StatusOK

	start := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		checks["store"] = Check{Status: "fail", Message: "connection failed"}
		status, code = "degraded", http.StatusServiceUnavailable
	} else {
		checks["store"] = Check{Status: "pass", Latency: time.Since(start).String()}
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Version:   version,
		Instance:  h.instance,
		Backend:   h.backend,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
