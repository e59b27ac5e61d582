// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/efrelay/backend/models"
	"github.com/efchatnet/efrelay/backend/relay"
	"github.com/efchatnet/efrelay/backend/storage/memory"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type testHandlers struct {
	messages     *MessageHandler
	participants *ParticipantHandler
	wipe         *WipeHandler
}

func newTestHandlers(t *testing.T) testHandlers {
	t.Helper()
	svc := relay.NewService(memory.NewStore(), relay.WithClock(func() time.Time { return testNow }))
	logger := zerolog.Nop()
	return testHandlers{
		messages:     NewMessageHandler(svc, logger),
		participants: NewParticipantHandler(svc, logger),
		wipe:         NewWipeHandler(svc, logger),
	}
}

func do(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestPostAndGetMessages(t *testing.T) {
	h := newTestHandlers(t)

	rec := do(h.messages.PostMessage, "POST", "/api/messages",
		`{"roomId":"r1","encrypted":"abc","isMe":1,"ratchetIndex":"5","senderAlias":"alice","signature":"sig","expiresIn":60}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = do(h.messages.GetMessages, "GET", "/api/messages?roomId=r1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	msgs := decode[[]map[string]interface{}](t, rec)
	require.Len(t, msgs, 1)
	assert.Equal(t, "abc", msgs[0]["encrypted"])
	assert.Equal(t, true, msgs[0]["isMe"])
	assert.Equal(t, "2025-03-01T12:00:00.000Z", msgs[0]["at"])
	assert.Equal(t, float64(5), msgs[0]["ratchetIndex"])
	assert.Equal(t, "alice", msgs[0]["senderAlias"])
	assert.Equal(t, "sig", msgs[0]["signature"])
	assert.Equal(t, float64(testNow.Add(time.Minute).UnixMilli()), msgs[0]["expiresAt"])
}

func TestGetMessagesNullExpiryWhenUnset(t *testing.T) {
	h := newTestHandlers(t)

	require.Equal(t, http.StatusOK, do(h.messages.PostMessage, "POST", "/api/messages",
		`{"roomId":"r1","encrypted":"abc","at":"2024-05-05T00:00:00.000Z"}`).Code)

	rec := do(h.messages.GetMessages, "GET", "/api/messages?roomId=r1", "")
	msgs := decode[[]map[string]interface{}](t, rec)
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "expiresAt")
	assert.Nil(t, msgs[0]["expiresAt"])
	assert.Equal(t, "2024-05-05T00:00:00.000Z", msgs[0]["at"])
	assert.Equal(t, "", msgs[0]["senderAlias"])
}

func TestGetMessagesUnknownRoomIsEmptyArray(t *testing.T) {
	h := newTestHandlers(t)

	rec := do(h.messages.GetMessages, "GET", "/api/messages?roomId=nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMessageValidation(t *testing.T) {
	h := newTestHandlers(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing room", `{"encrypted":"x"}`},
		{"null room", `{"roomId":null,"encrypted":"x"}`},
		{"empty room", `{"roomId":"","encrypted":"x"}`},
		{"missing payload", `{"roomId":"r"}`},
		{"null payload", `{"roomId":"r","encrypted":null}`},
		{"malformed json", `{"roomId":"r",`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h.messages.PostMessage, "POST", "/api/messages", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"roomId and encrypted required"}`, rec.Body.String())
		})
	}

	rec := do(h.messages.GetMessages, "GET", "/api/messages", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"roomId required"}`, rec.Body.String())
}

func TestPostAndGetParticipants(t *testing.T) {
	h := newTestHandlers(t)

	for _, body := range []string{
		`{"roomId":"r1","alias":" alice ","publicKey":"k1"}`,
		`{"roomId":"r1","alias":"bob"}`,
		`{"roomId":"r1","alias":"alice","publicKey":null}`,
		`{"roomId":"r1","alias":"bob","publicKey":"kb"}`,
	} {
		rec := do(h.participants.PostParticipant, "POST", "/api/participants", body)
		require.Equal(t, http.StatusOK, rec.Code, body)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	}

	rec := do(h.participants.GetParticipants, "GET", "/api/participants?roomId=r1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `[{"alias":"alice","publicKey":"k1"},{"alias":"bob","publicKey":"kb"}]`, rec.Body.String())
}

func TestParticipantValidation(t *testing.T) {
	h := newTestHandlers(t)

	for _, body := range []string{
		`{"alias":"alice"}`,
		`{"roomId":"r1"}`,
		`{"roomId":"r1","alias":""}`,
		`{"roomId":"r1","alias":"   "}`,
		`{"roomId":"r1","alias":42}`,
		`not json`,
	} {
		rec := do(h.participants.PostParticipant, "POST", "/api/participants", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"roomId and alias required"}`, rec.Body.String(), body)
	}

	rec := do(h.participants.GetParticipants, "GET", "/api/participants?roomId=", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"roomId required"}`, rec.Body.String())
}

func TestWipeHandler(t *testing.T) {
	h := newTestHandlers(t)

	for _, room := range []string{"A", "B", "7"} {
		require.Equal(t, http.StatusOK, do(h.messages.PostMessage, "POST", "/api/messages",
			`{"roomId":"`+room+`","encrypted":"x"}`).Code)
	}

	rec := do(h.wipe.Wipe, "POST", "/api/wipe", `{"roomIds":["A",7,null,"",false]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	for room, want := range map[string]string{"A": `[]`, "7": `[]`} {
		rec := do(h.messages.GetMessages, "GET", "/api/messages?roomId="+room, "")
		assert.JSONEq(t, want, rec.Body.String(), room)
	}
	rec = do(h.messages.GetMessages, "GET", "/api/messages?roomId=B", "")
	assert.Len(t, decode[[]map[string]interface{}](t, rec), 1)
}

func TestWipeAlwaysSucceeds(t *testing.T) {
	h := newTestHandlers(t)

	for _, body := range []string{``, `{}`, `{"roomIds":"A"}`, `{"roomIds":null}`, `[1]`, `garbage`} {
		rec := do(h.wipe.Wipe, "POST", "/api/wipe", body)
		assert.Equal(t, http.StatusOK, rec.Code, body)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String(), body)
	}
}

func TestOversizedBodiesAreRejected(t *testing.T) {
	h := newTestHandlers(t)

	require.Equal(t, http.StatusOK, do(h.participants.PostParticipant, "POST", "/api/participants",
		`{"roomId":"A","alias":"alice"}`).Code)

	limited := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, 16)
			next(w, r)
		}
	}
	big := `{"roomIds":["A"],"pad":"` + strings.Repeat("x", 64) + `"}`

	for name, handler := range map[string]http.HandlerFunc{
		"wipe":        limited(h.wipe.Wipe),
		"message":     limited(h.messages.PostMessage),
		"participant": limited(h.participants.PostParticipant),
	} {
		rec := do(handler, "POST", "/api/x", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, name)
		assert.JSONEq(t, `{"error":"request body too large"}`, rec.Body.String(), name)
	}

	// The rejected wipe left the room alone.
	rec := do(h.participants.GetParticipants, "GET", "/api/participants?roomId=A", "")
	assert.JSONEq(t, `[{"alias":"alice","publicKey":""}]`, rec.Body.String())
}

type failingService struct{}

func (failingService) PostMessage(context.Context, models.MessageInput) error {
	return errors.New("redis: connection refused")
}

func (failingService) GetMessages(context.Context, string, time.Time) ([]models.MessageRecord, error) {
	return nil, errors.New("redis: connection refused")
}

func (failingService) Now() time.Time { return testNow }

func TestBackendFailureIsInternalError(t *testing.T) {
	h := NewMessageHandler(failingService{}, zerolog.Nop())

	rec := do(h.PostMessage, "POST", "/api/messages", `{"roomId":"r","encrypted":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())

	rec = do(h.GetMessages, "GET", "/api/messages?roomId=r", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
}
