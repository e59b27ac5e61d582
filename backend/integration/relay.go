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

package integration

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/efchatnet/efrelay/backend/handlers"
	"github.com/efchatnet/efrelay/backend/relay"
	"github.com/efchatnet/efrelay/backend/storage"
)

// RelayIntegration bundles the relay service and its HTTP handlers so the
// API can be mounted on the standalone server or on a host application's router.
type RelayIntegration struct {
	service            *relay.Service
	messageHandler     *handlers.MessageHandler
	participantHandler *handlers.ParticipantHandler
	wipeHandler        *handlers.WipeHandler
}

// Config holds configuration for the relay integration
type Config struct {
	Store  storage.Store
	Logger zerolog.Logger
	Clock  func() time.Time // optional, defaults to time.Now
}

// NewRelayIntegration creates the relay service on top of the given store.
func NewRelayIntegration(config *Config) (*RelayIntegration, error) {
	if config == nil || config.Store == nil {
		return nil, &relay.ValidationError{Message: "relay store is not configured"}
	}

	opts := []relay.Option{relay.WithLogger(config.Logger)}
	if config.Clock != nil {
		opts = append(opts, relay.WithClock(config.Clock))
	}
	svc := relay.NewService(config.Store, opts...)

	return &RelayIntegration{
		service:            svc,
		messageHandler:     handlers.NewMessageHandler(svc, config.Logger),
		participantHandler: handlers.NewParticipantHandler(svc, config.Logger),
		wipeHandler:        handlers.NewWipeHandler(svc, config.Logger),
	}, nil
}

// RegisterRoutes adds the relay endpoints under /api to an existing router.
func (e *RelayIntegration) RegisterRoutes(router *mux.Router) {
	// Routes are registered without a subrouter so that other methods and
	// unknown /api paths fall through to the host router's catch-all.
	router.HandleFunc("/api/messages", e.messageHandler.PostMessage).Methods("POST")
	router.HandleFunc("/api/messages", e.messageHandler.GetMessages).Methods("GET")

	router.HandleFunc("/api/participants", e.participantHandler.PostParticipant).Methods("POST")
	router.HandleFunc("/api/participants", e.participantHandler.GetParticipants).Methods("GET")

	router.HandleFunc("/api/wipe", e.wipeHandler.Wipe).Methods("POST")
}

// Service returns the underlying relay service
func (e *RelayIntegration) Service() *relay.Service {
	return e.service
}
