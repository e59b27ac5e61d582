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

// Package relay validates relay requests and applies them to a room store.
// Payloads, signatures and keys pass through untouched.
package relay

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/efchatnet/efrelay/backend/metrics"
	"github.com/efchatnet/efrelay/backend/models"
	"github.com/efchatnet/efrelay/backend/storage"
)

// isoMillis matches the timestamps clients produce for message "at" values.
const isoMillis = "2006-01-02T15:04:05.000Z"

const (
	msgMessageFieldsRequired     = "roomId and encrypted required"
	msgRoomRequired              = "roomId required"
	msgParticipantFieldsRequired = "roomId and alias required"
)

type Service struct {
	store  storage.Store
	now    func() time.Time
	logger zerolog.Logger
}

type Option func(*Service)

// WithClock overrides the clock used to stamp and expire new messages.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// PostMessage appends an encrypted message to the room's log.
func (s *Service) PostMessage(ctx context.Context, in models.MessageInput) error {
	if in.RoomID == "" || in.Encrypted == nil {
		metrics.ValidationErrors.WithLabelValues("post_message").Inc()
		return &ValidationError{Message: msgMessageFieldsRequired}
	}

	now := s.now()
	rec := models.MessageRecord{
		Encrypted:    *in.Encrypted,
		IsMe:         in.IsMe,
		At:           in.At,
		RatchetIndex: in.RatchetIndex,
		SenderAlias:  in.SenderAlias,
		Signature:    in.Signature,
		ExpiresAt:    models.ExpiryFor(now, in.ExpiresIn),
	}
	if rec.At == "" {
		rec.At = now.UTC().Format(isoMillis)
	}
	if rec.RatchetIndex < 0 {
		rec.RatchetIndex = 0
	}

	if err := s.store.AppendMessage(ctx, in.RoomID, rec); err != nil {
		return err
	}

	ttl := "none"
	if rec.ExpiresAt != nil {
		ttl = "set"
	}
	metrics.MessagesPosted.WithLabelValues(ttl).Inc()
	return nil
}

// GetMessages lists the room's messages that are still active at now.
func (s *Service) GetMessages(ctx context.Context, roomID string, now time.Time) ([]models.MessageRecord, error) {
	if roomID == "" {
		metrics.ValidationErrors.WithLabelValues("get_messages").Inc()
		return nil, &ValidationError{Message: msgRoomRequired}
	}
	return s.store.ListActiveMessages(ctx, roomID, now)
}

// PostParticipant records or updates an alias' public key in the room.
func (s *Service) PostParticipant(ctx context.Context, in models.ParticipantInput) error {
	alias := strings.TrimSpace(in.Alias)
	if in.RoomID == "" || !in.AliasOK || alias == "" {
		metrics.ValidationErrors.WithLabelValues("post_participant").Inc()
		return &ValidationError{Message: msgParticipantFieldsRequired}
	}

	if err := s.store.UpsertParticipant(ctx, in.RoomID, alias, in.PublicKey); err != nil {
		return err
	}
	metrics.ParticipantsUpserted.Inc()
	return nil
}

// GetParticipants lists the room's directory. Legacy bare-alias slots are
// returned with an empty public key; storage is not rewritten.
func (s *Service) GetParticipants(ctx context.Context, roomID string) ([]models.ParticipantEntry, error) {
	if roomID == "" {
		metrics.ValidationErrors.WithLabelValues("get_participants").Inc()
		return nil, &ValidationError{Message: msgRoomRequired}
	}

	stored, err := s.store.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ParticipantEntry, 0, len(stored))
	for _, p := range stored {
		entries = append(entries, p.Normalize())
	}
	return entries, nil
}

// Wipe deletes messages and participants of every named room. Unknown and
// empty ids are skipped.
func (s *Service) Wipe(ctx context.Context, roomIDs []string) error {
	wiped := 0
	for _, roomID := range roomIDs {
		if roomID == "" {
			continue
		}
		if err := s.store.WipeRoom(ctx, roomID); err != nil {
			return err
		}
		wiped++
	}

	metrics.RoomsWiped.Add(float64(wiped))
	s.logger.Debug().Int("rooms", wiped).Msg("rooms wiped")
	return nil
}

// Sweep physically removes messages that expired before now.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed, err := s.store.Compact(ctx, now)
	if removed > 0 {
		metrics.MessagesSwept.Add(float64(removed))
	}
	return removed, err
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
