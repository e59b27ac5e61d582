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

	"github.com/rs/zerolog"

	"github.com/efchatnet/efrelay/backend/models"
)

type MessageService interface {
	PostMessage(ctx context.Context, in models.MessageInput) error
	GetMessages(ctx context.Context, roomID string, now time.Time) ([]models.MessageRecord, error)
	Now() time.Time
}

type MessageHandler struct {
	svc    MessageService
	logger zerolog.Logger
}

func NewMessageHandler(svc MessageService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, logger: logger}
}

// PostMessage handles POST /api/messages.
func (h *MessageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	in := models.MessageInput{
		RoomID:       roomIDField(body, "roomId"),
		Encrypted:    optionalString(body, "encrypted"),
		IsMe:         truthy(body["isMe"]),
		RatchetIndex: integerField(body, "ratchetIndex"),
		SenderAlias:  stringOrEmpty(body, "senderAlias"),
		Signature:    stringOrEmpty(body, "signature"),
		ExpiresIn:    numberField(body, "expiresIn"),
	}
	if truthy(body["at"]) {
		in.At = stringify(body["at"])
	}

	if err := h.svc.PostMessage(r.Context(), in); err != nil {
		writeServiceError(w, h.logger, "post_message", err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

// GetMessages handles GET /api/messages?roomId=...
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")

	messages, err := h.svc.GetMessages(r.Context(), roomID, h.svc.Now())
	if err != nil {
		writeServiceError(w, h.logger, "get_messages", err)
		return
	}
	writeCORSJSON(w, http.StatusOK, messages)
}
