// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efchatnet/efrelay/backend/models"
)

const (
	// Redis key prefixes
	roomPrefix       = "relay:room:"   // relay:room:{roomId}:...
	messagesSuffix   = ":messages"     // list of JSON message records, append order
	participantsSuff = ":participants" // hash alias -> public key
	aliasesSuffix    = ":aliases"      // list of aliases, insertion order

	maxTxRetries = 5
)

// Store keeps relay rooms in Redis. Keys carry no TTL; message expiry is
// applied when reading, like the in-memory store.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return NewStore(rdb), nil
}

func messagesKey(roomID string) string     { return roomPrefix + roomID + messagesSuffix }
func participantsKey(roomID string) string { return roomPrefix + roomID + participantsSuff }
func aliasesKey(roomID string) string      { return roomPrefix + roomID + aliasesSuffix }

// AppendMessage pushes the record onto the tail of the room's list.
func (s *Store) AppendMessage(ctx context.Context, roomID string, rec models.MessageRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := s.rdb.RPush(ctx, messagesKey(roomID), data).Err(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListActiveMessages reads the whole list and filters out expired records.
func (s *Store) ListActiveMessages(ctx context.Context, roomID string, now time.Time) ([]models.MessageRecord, error) {
	records, _, err := s.readMessages(ctx, s.rdb, messagesKey(roomID))
	if err != nil {
		return nil, err
	}
	return models.FilterActive(records, now), nil
}

// listReader is satisfied by both *redis.Client and *redis.Tx.
type listReader interface {
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// readMessages decodes the list at key and reports how many entries were
// malformed and skipped.
func (s *Store) readMessages(ctx context.Context, c listReader, key string) ([]models.MessageRecord, int, error) {
	raw, err := c.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read messages: %w", err)
	}

	records := make([]models.MessageRecord, 0, len(raw))
	malformed := 0
	for _, data := range raw {
		var rec models.MessageRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			malformed++
			continue
		}
		records = append(records, rec)
	}
	return records, malformed, nil
}

func (s *Store) DeleteMessages(ctx context.Context, roomID string) error {
	if err := s.rdb.Del(ctx, messagesKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// UpsertParticipant sets the alias' key inside a WATCH transaction so that
// concurrent upserts of one alias never list it twice.
func (s *Store) UpsertParticipant(ctx context.Context, roomID, alias string, publicKey *string) error {
	if alias == "" {
		return nil
	}
	hkey, akey := participantsKey(roomID), aliasesKey(roomID)

	txf := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, hkey, alias).Result()
		if err != nil {
			return err
		}
		listed := true
		if _, err := tx.LPos(ctx, akey, alias, redis.LPosArgs{}).Result(); err != nil {
			if !errors.Is(err, redis.Nil) {
				return err
			}
			listed = false
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			switch {
			case publicKey != nil:
				pipe.HSet(ctx, hkey, alias, *publicKey)
			case !exists:
				pipe.HSet(ctx, hkey, alias, "")
			}
			if !listed {
				pipe.RPush(ctx, akey, alias)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, hkey, akey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to upsert participant: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to upsert participant: %w", redis.TxFailedErr)
}

// ListParticipants returns aliases in insertion order. An alias listed
// without a hash field is a legacy bare-alias slot.
func (s *Store) ListParticipants(ctx context.Context, roomID string) ([]models.StoredParticipant, error) {
	var aliasesCmd *redis.StringSliceCmd
	var keysCmd *redis.MapStringStringCmd
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		aliasesCmd = pipe.LRange(ctx, aliasesKey(roomID), 0, -1)
		keysCmd = pipe.HGetAll(ctx, participantsKey(roomID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}

	aliases := aliasesCmd.Val()
	keys := keysCmd.Val()

	out := make([]models.StoredParticipant, 0, len(aliases))
	seen := make(map[string]bool, len(aliases))
	for _, alias := range aliases {
		if seen[alias] {
			continue
		}
		seen[alias] = true
		if key, ok := keys[alias]; ok {
			out = append(out, models.StoredParticipant{Entry: &models.ParticipantEntry{Alias: alias, PublicKey: key}})
			continue
		}
		out = append(out, models.StoredParticipant{LegacyAlias: alias})
	}

	// Hash fields missing from the order list go last, sorted for stable output.
	var orphans []string
	for alias := range keys {
		if !seen[alias] {
			orphans = append(orphans, alias)
		}
	}
	sort.Strings(orphans)
	for _, alias := range orphans {
		out = append(out, models.StoredParticipant{Entry: &models.ParticipantEntry{Alias: alias, PublicKey: keys[alias]}})
	}

	return out, nil
}

func (s *Store) DeleteParticipants(ctx context.Context, roomID string) error {
	if err := s.rdb.Del(ctx, participantsKey(roomID), aliasesKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete participants: %w", err)
	}
	return nil
}

// WipeRoom deletes every key of the room in one MULTI/EXEC.
func (s *Store) WipeRoom(ctx context.Context, roomID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, messagesKey(roomID), participantsKey(roomID), aliasesKey(roomID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to wipe room: %w", err)
	}
	return nil
}

// Compact removes expired and malformed records from every room's message
// list and returns how many were removed.
// Each list is rewritten inside a WATCH transaction; a list that changed
// underneath is skipped until the next run.
func (s *Store) Compact(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := s.rdb.Scan(ctx, 0, roomPrefix+"*"+messagesSuffix, 0).Iterator()

	for iter.Next(ctx) {
		key := iter.Val()
		if !strings.HasSuffix(key, messagesSuffix) {
			continue
		}

		var dropped int
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			records, malformed, err := s.readMessages(ctx, tx, key)
			if err != nil {
				return err
			}
			active := models.FilterActive(records, now)
			if len(active) == len(records) && malformed == 0 {
				return nil
			}

			payloads := make([]interface{}, 0, len(active))
			for _, rec := range active {
				data, err := json.Marshal(rec)
				if err != nil {
					return fmt.Errorf("failed to marshal message: %w", err)
				}
				payloads = append(payloads, data)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				if len(payloads) > 0 {
					pipe.RPush(ctx, key, payloads...)
				}
				return nil
			})
			if err == nil {
				dropped = len(records) - len(active) + malformed
			}
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to compact %s: %w", key, err)
		}
		removed += dropped
	}

	return removed, iter.Err()
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}
