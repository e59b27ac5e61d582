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

package models

// ParticipantEntry maps a room-unique alias to its public signing key.
type ParticipantEntry struct {
	Alias     string `json:"alias"`
	PublicKey string `json:"publicKey"`
}

// StoredParticipant is a participant slot as held by a key directory.
// Older rooms may hold bare alias strings instead of structured entries;
// those slots have Entry == nil and LegacyAlias set.
type StoredParticipant struct {
	Entry       *ParticipantEntry
	LegacyAlias string
}

// Normalize returns the slot as a ParticipantEntry. Legacy slots get an empty key.
func (p StoredParticipant) Normalize() ParticipantEntry {
	if p.Entry != nil {
		return *p.Entry
	}
	return ParticipantEntry{Alias: p.LegacyAlias, PublicKey: ""}
}

// Alias returns the alias of either slot shape.
func (p StoredParticipant) Alias() string {
	if p.Entry != nil {
		return p.Entry.Alias
	}
	return p.LegacyAlias
}

// ParticipantInput carries caller-supplied fields for a participant upsert.
// AliasOK is false when the alias was missing or not a string.
// PublicKey is nil when the caller omitted it or sent null.
type ParticipantInput struct {
	RoomID    string
	Alias     string
	AliasOK   bool
	PublicKey *string
}
