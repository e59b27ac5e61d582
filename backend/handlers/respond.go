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
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/efchatnet/efrelay/backend/relay"
)

var okResponse = map[string]bool{"ok": true}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeCORSJSON is writeJSON for read endpoints, which are readable from any origin.
func writeCORSJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, status, data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps validation errors to 400 and everything else to 500.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, op string, err error) {
	var verr *relay.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}
	logger.Error().Err(err).Str("op", op).Msg("relay operation failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decodeBody reads a JSON object body. Malformed or non-object bodies
// decode to an empty object so that field checks report the problem.
// Read failures, including bodies over the size limit, are returned.
func decodeBody(r *http.Request) (map[string]interface{}, error) {
	body := map[string]interface{}{}
	if r.Body == nil {
		return body, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(data, &body); err != nil || body == nil {
		return map[string]interface{}{}, nil
	}
	return body, nil
}

// writeBodyError answers a body that could not be read.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "request body unreadable")
}

// truthy follows JavaScript truthiness for decoded JSON values.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	default:
		return true
	}
}

// stringify renders a decoded JSON value as a string. Objects and arrays
// keep their JSON encoding.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// roomIDField returns the room id in string form, or "" when it is missing or falsy.
func roomIDField(body map[string]interface{}, key string) string {
	v := body[key]
	if !truthy(v) {
		return ""
	}
	return stringify(v)
}

// optionalString returns nil when the field is absent or null.
func optionalString(body map[string]interface{}, key string) *string {
	v, ok := body[key]
	if !ok || v == nil {
		return nil
	}
	s := stringify(v)
	return &s
}

func stringOrEmpty(body map[string]interface{}, key string) string {
	if s := optionalString(body, key); s != nil {
		return *s
	}
	return ""
}

// integerField reads numbers and numeric strings, truncating fractions and
// saturating at the int64 bounds. Anything else yields 0.
func integerField(body map[string]interface{}, key string) int64 {
	switch t := body[key].(type) {
	case float64:
		return saturateInt(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0
		}
		return saturateInt(f)
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

func saturateInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// numberField returns the field only when it is a JSON number.
func numberField(body map[string]interface{}, key string) float64 {
	if f, ok := body[key].(float64); ok {
		return f
	}
	return 0
}
