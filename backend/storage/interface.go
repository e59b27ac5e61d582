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

package storage

import (
	"context"
	"time"

	"github.com/efchatnet/efrelay/backend/models"
)

// MessageLog is the per-room append-only message sequence.
type MessageLog interface {
	AppendMessage(ctx context.Context, roomID string, rec models.MessageRecord) error
	// ListActiveMessages returns records still active at now, in append order.
	// Unknown rooms yield an empty slice. Stored records are never removed here.
	ListActiveMessages(ctx context.Context, roomID string, now time.Time) ([]models.MessageRecord, error)
	DeleteMessages(ctx context.Context, roomID string) error
}

// KeyDirectory is the per-room alias -> public key directory.
type KeyDirectory interface {
	// UpsertParticipant inserts alias or updates its key. A nil publicKey
	// leaves an existing key untouched.
	UpsertParticipant(ctx context.Context, roomID, alias string, publicKey *string) error
	ListParticipants(ctx context.Context, roomID string) ([]models.StoredParticipant, error)
	DeleteParticipants(ctx context.Context, roomID string) error
}

// Compactor physically drops records that expired before now.
type Compactor interface {
	Compact(ctx context.Context, now time.Time) (int, error)
}

type Store interface {
	MessageLog
	KeyDirectory
	Compactor

	// WipeRoom deletes both the message log and the key directory of a room
	// as one unit.
	WipeRoom(ctx context.Context, roomID string) error
	Ping(ctx context.Context) error
	Close() error
}
