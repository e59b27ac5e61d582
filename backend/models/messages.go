// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

// MessageRecord is an encrypted room message as stored and returned by the relay.
// The relay never interprets Encrypted, Signature or RatchetIndex.
type MessageRecord struct {
	Encrypted    string `json:"encrypted"`
	IsMe         bool   `json:"isMe"`
	At           string `json:"at"`
	RatchetIndex int64  `json:"ratchetIndex"`
	SenderAlias  string `json:"senderAlias"`
	Signature    string `json:"signature"`
	ExpiresAt    *int64 `json:"expiresAt"` // epoch ms, nil = never
}

// MessageInput carries caller-supplied fields for a new message.
// Encrypted is nil when the caller did not send a payload.
type MessageInput struct {
	RoomID       string
	Encrypted    *string
	IsMe         bool
	At           string
	RatchetIndex int64
	SenderAlias  string
	Signature    string
	ExpiresIn    float64 // seconds; <= 0 disables expiry
}
