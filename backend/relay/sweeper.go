// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically compacts expired messages out of the store.
// Reads filter expired records regardless; the sweeper only bounds memory.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(svc *Service, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, logger: logger}
}

// Run sweeps every interval until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info().Dur("interval", sw.interval).Msg("expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			sw.logger.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			sw.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns the number of removed records.
func (sw *Sweeper) RunOnce(ctx context.Context) int {
	removed, err := sw.svc.Sweep(ctx, sw.svc.Now())
	if err != nil {
		sw.logger.Error().Err(err).Int("removed", removed).Msg("expiry sweep failed")
		return removed
	}
	if removed > 0 {
		sw.logger.Info().Int("removed", removed).Msg("expired messages swept")
	}
	return removed
}
