// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import (
	"math"
	"time"
)

// IsActive reports whether a record is still visible at now.
// A record expires once now reaches its ExpiresAt instant.
func IsActive(rec MessageRecord, now time.Time) bool {
	return rec.ExpiresAt == nil || *rec.ExpiresAt > now.UnixMilli()
}

// ExpiryFor returns the absolute expiry for a TTL given in seconds,
// or nil when ttlSeconds is not positive.
func ExpiryFor(now time.Time, ttlSeconds float64) *int64 {
	if !(ttlSeconds > 0) {
		return nil
	}
	nowMs := now.UnixMilli()
	ttlMs := ttlSeconds * 1000
	// TTLs past the int64 range never expire.
	if ttlMs >= float64(math.MaxInt64-nowMs) {
		at := int64(math.MaxInt64)
		return &at
	}
	at := nowMs + int64(ttlMs)
	if at < nowMs {
		at = math.MaxInt64
	}
	return &at
}

// FilterActive returns the records visible at now, keeping their order.
// The input slice is not modified.
func FilterActive(records []MessageRecord, now time.Time) []MessageRecord {
	active := make([]MessageRecord, 0, len(records))
	for _, rec := range records {
		if IsActive(rec, now) {
			active = append(active, rec)
		}
	}
	return active
}
