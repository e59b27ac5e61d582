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

	"github.com/rs/zerolog"
)

type WipeService interface {
	Wipe(ctx context.Context, roomIDs []string) error
}

type WipeHandler struct {
	svc    WipeService
	logger zerolog.Logger
}

func NewWipeHandler(svc WipeService, logger zerolog.Logger) *WipeHandler {
	return &WipeHandler{svc: svc, logger: logger}
}

// Wipe handles POST /api/wipe. A missing or non-array roomIds wipes nothing.
func (h *WipeHandler) Wipe(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	var roomIDs []string
	if list, ok := body["roomIds"].([]interface{}); ok {
		roomIDs = make([]string, 0, len(list))
		for _, v := range list {
			if truthy(v) {
				roomIDs = append(roomIDs, stringify(v))
			}
		}
	}

	if err := h.svc.Wipe(r.Context(), roomIDs); err != nil {
		writeServiceError(w, h.logger, "wipe", err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}
