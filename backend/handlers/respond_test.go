// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
		want bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"zero", float64(0), false},
		{"nan", math.NaN(), false},
		{"number", float64(-2), true},
		{"empty string", "", false},
		{"string", "0", true},
		{"empty array", []interface{}{}, true},
		{"empty object", map[string]interface{}{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truthy(tt.v))
		})
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "room", stringify("room"))
	assert.Equal(t, "42", stringify(float64(42)))
	assert.Equal(t, "1.5", stringify(1.5))
	assert.Equal(t, "true", stringify(true))
	assert.Equal(t, "null", stringify(nil))
	assert.Equal(t, `{"a":1}`, stringify(map[string]interface{}{"a": float64(1)}))
	assert.Equal(t, `["x"]`, stringify([]interface{}{"x"}))
}

func TestFieldCoercion(t *testing.T) {
	body := map[string]interface{}{
		"numericRoom": float64(12),
		"zeroRoom":    float64(0),
		"nullKey":     nil,
		"key":         "k",
		"objKey":      map[string]interface{}{"kty": "EC"},
		"ratchet":     "17",
		"ratchetFrac": 3.9,
		"ratchetBad":  "abc",
		"ratchetHuge": 1e20,
		"ratchetBig":  "1e400",
		"ratchetLow":  -1e20,
		"ttl":         2.5,
		"ttlString":   "10",
	}

	assert.Equal(t, "12", roomIDField(body, "numericRoom"))
	assert.Equal(t, "", roomIDField(body, "zeroRoom"))
	assert.Equal(t, "", roomIDField(body, "missing"))

	assert.Nil(t, optionalString(body, "nullKey"))
	assert.Nil(t, optionalString(body, "missing"))
	require.NotNil(t, optionalString(body, "key"))
	assert.Equal(t, "k", *optionalString(body, "key"))
	assert.Equal(t, `{"kty":"EC"}`, stringOrEmpty(body, "objKey"))
	assert.Equal(t, "", stringOrEmpty(body, "missing"))

	assert.Equal(t, int64(17), integerField(body, "ratchet"))
	assert.Equal(t, int64(3), integerField(body, "ratchetFrac"))
	assert.Equal(t, int64(0), integerField(body, "ratchetBad"))
	assert.Equal(t, int64(math.MaxInt64), integerField(body, "ratchetHuge"))
	assert.Equal(t, int64(math.MaxInt64), integerField(body, "ratchetBig"))
	assert.Equal(t, int64(math.MinInt64), integerField(body, "ratchetLow"))
	assert.Equal(t, int64(0), integerField(body, "missing"))

	assert.Equal(t, 2.5, numberField(body, "ttl"))
	assert.Equal(t, float64(0), numberField(body, "ttlString"))
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]interface{}
	}{
		{"object", `{"roomId":"r"}`, map[string]interface{}{"roomId": "r"}},
		{"empty", ``, map[string]interface{}{}},
		{"malformed", `{"roomId":`, map[string]interface{}{}},
		{"array", `[1,2]`, map[string]interface{}{}},
		{"null", `null`, map[string]interface{}{}},
		{"string", `"hi"`, map[string]interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/messages", strings.NewReader(tt.body))
			body, err := decodeBody(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestDecodeBodyReportsOversize(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/wipe", strings.NewReader(`{"roomIds":["`+strings.Repeat("a", 64)+`"]}`))
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	_, err := decodeBody(req)
	require.Error(t, err)

	writeBodyError(rec, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"request body too large"}`, rec.Body.String())
}

func TestWriteBodyErrorOtherFailures(t *testing.T) {
	rec := httptest.NewRecorder()
	writeBodyError(rec, io.ErrUnexpectedEOF)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"request body unreadable"}`, rec.Body.String())
}
