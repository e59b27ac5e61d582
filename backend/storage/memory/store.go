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

// Package memory is the process-resident relay store. Nothing survives a
// restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/efchatnet/efrelay/backend/models"
)

type Store struct {
	mu           sync.RWMutex
	messages     map[string][]models.MessageRecord
	participants map[string][]models.StoredParticipant
}

func NewStore() *Store {
	return &Store{
		messages:     make(map[string][]models.MessageRecord),
		participants: make(map[string][]models.StoredParticipant),
	}
}

// AppendMessage adds a record to the end of the room's log, creating the room.
func (s *Store) AppendMessage(ctx context.Context, roomID string, rec models.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[roomID] = append(s.messages[roomID], rec)
	return nil
}

// ListActiveMessages returns a copy of the room's records that are active at now.
func (s *Store) ListActiveMessages(ctx context.Context, roomID string, now time.Time) ([]models.MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.FilterActive(s.messages[roomID], now), nil
}

func (s *Store) DeleteMessages(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, roomID)
	return nil
}

// UpsertParticipant updates alias in place when present, otherwise appends it.
func (s *Store) UpsertParticipant(ctx context.Context, roomID, alias string, publicKey *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.participants[roomID]
	for i, p := range list {
		if p.Alias() != alias {
			continue
		}
		entry := p.Normalize()
		if publicKey != nil {
			entry.PublicKey = *publicKey
		}
		list[i] = models.StoredParticipant{Entry: &entry}
		return nil
	}

	if alias == "" {
		return nil
	}
	entry := models.ParticipantEntry{Alias: alias}
	if publicKey != nil {
		entry.PublicKey = *publicKey
	}
	s.participants[roomID] = append(list, models.StoredParticipant{Entry: &entry})
	return nil
}

// ListParticipants returns the room's slots in insertion order.
func (s *Store) ListParticipants(ctx context.Context, roomID string) ([]models.StoredParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.participants[roomID]
	out := make([]models.StoredParticipant, 0, len(list))
	for _, p := range list {
		if p.Entry != nil {
			entry := *p.Entry
			p.Entry = &entry
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) DeleteParticipants(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.participants, roomID)
	return nil
}

// WipeRoom removes both structures of a room under a single write lock.
func (s *Store) WipeRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, roomID)
	delete(s.participants, roomID)
	return nil
}

// Compact drops records that are no longer active at now and returns how
// many were removed. Rooms left with no messages are deleted from the log map.
func (s *Store) Compact(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for roomID, records := range s.messages {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		active := models.FilterActive(records, now)
		if len(active) == len(records) {
			continue
		}
		removed += len(records) - len(active)
		if len(active) == 0 {
			delete(s.messages, roomID)
			continue
		}
		s.messages[roomID] = active
	}
	return removed, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
