// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "efrelay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "efrelay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Relay metrics
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "efrelay_messages_posted_total",
			Help: "Total messages appended to room logs",
		},
		[]string{"ttl"}, // "none" or "set"
	)

	ParticipantsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "efrelay_participants_upserted_total",
			Help: "Total participant key upserts",
		},
	)

	RoomsWiped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "efrelay_rooms_wiped_total",
			Help: "Total room ids processed by wipe",
		},
	)

	ValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "efrelay_validation_errors_total",
			Help: "Total requests rejected for missing or malformed fields",
		},
		[]string{"operation"},
	)

	// Sweeper metrics
	MessagesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "efrelay_messages_swept_total",
			Help: "Expired messages physically removed by the sweeper",
		},
	)
)
