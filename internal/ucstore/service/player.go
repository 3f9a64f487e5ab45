package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/cache"
	"github.com/25x8/uc-store/internal/ucstore/models"
)

const (
	// MinPlayerIDLength is the shortest accepted game account id
	MinPlayerIDLength = 6
	playerCacheTTL    = 10 * time.Minute
)

// PlayerResolver validates player ids and resolves them to display names
type PlayerResolver struct {
	lookup PlayerLookup
	cache  cache.Cache
	delay  time.Duration
}

// NewPlayerResolver creates a resolver. delay is the simulated upstream latency
// applied to every accepted request; c may be nil to disable caching.
func NewPlayerResolver(lookup PlayerLookup, c cache.Cache, delay time.Duration) *PlayerResolver {
	if lookup == nil {
		lookup = StaticLookup{}
	}
	return &PlayerResolver{lookup: lookup, cache: c, delay: delay}
}

// Resolve validates playerID, waits out the simulated latency and returns the player
func (r *PlayerResolver) Resolve(ctx context.Context, playerID string) (*models.Player, error) {
	playerID = strings.TrimSpace(playerID)
	if len(playerID) < MinPlayerIDLength {
		return nil, fmt.Errorf("player id must be at least %d characters: %w", MinPlayerIDLength, models.ErrValidation)
	}

	if err := sleepContext(ctx, r.delay); err != nil {
		return nil, err
	}

	key := cache.Key("ucstore", "player", playerID)
	if r.cache != nil {
		name, err := r.cache.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "player cache read failed", "player_id", playerID, "error", err)
		} else if name != "" {
			return &models.Player{PlayerID: playerID, PlayerName: name}, nil
		}
	}

	player, err := r.lookup.LookupPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, player.PlayerName, playerCacheTTL); err != nil {
			slog.WarnContext(ctx, "player cache write failed", "player_id", playerID, "error", err)
		}
	}
	return player, nil
}

// sleepContext suspends the caller for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
