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

package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/efchatnet/efrelay/backend/models"
)

type ParticipantService interface {
	PostParticipant(ctx context.Context, in models.ParticipantInput) error
	GetParticipants(ctx context.Context, roomID string) ([]models.ParticipantEntry, error)
}

// ParticipantHandler serves the per-room directory of aliases and public keys.
type ParticipantHandler struct {
	svc    ParticipantService
	logger zerolog.Logger
}

func NewParticipantHandler(svc ParticipantService, logger zerolog.Logger) *ParticipantHandler {
	return &ParticipantHandler{svc: svc, logger: logger}
}

// PostParticipant handles POST /api/participants.
func (h *ParticipantHandler) PostParticipant(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	alias, aliasOK := body["alias"].(string)
	in := models.ParticipantInput{
		RoomID:    roomIDField(body, "roomId"),
		Alias:     alias,
		AliasOK:   aliasOK && alias != "",
		PublicKey: optionalString(body, "publicKey"),
	}

	if err := h.svc.PostParticipant(r.Context(), in); err != nil {
		writeServiceError(w, h.logger, "post_participant", err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

// GetParticipants handles GET /api/participants?roomId=...
func (h *ParticipantHandler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")

	participants, err := h.svc.GetParticipants(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, h.logger, "get_participants", err)
		return
	}
	writeCORSJSON(w, http.StatusOK, participants)
}
