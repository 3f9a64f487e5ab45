package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/25x8/uc-store/internal/ucstore/utils"
	"github.com/go-resty/resty/v2"
)

// PlayerLookup resolves a game account id to its display name
type PlayerLookup interface {
	LookupPlayer(ctx context.Context, playerID string) (*models.Player, error)
}

// FallbackName is the display name used when no upstream answer is available
func FallbackName(playerID string) string {
	return "Player#" + utils.Last(playerID, 4)
}

// StaticLookup derives the display name from the id itself
type StaticLookup struct{}

func (StaticLookup) LookupPlayer(_ context.Context, playerID string) (*models.Player, error) {
	return &models.Player{PlayerID: playerID, PlayerName: FallbackName(playerID)}, nil
}

const (
	gameIDCheckerHost = "id-game-checker.p.rapidapi.com"
	gameIDCheckerURL  = "https://" + gameIDCheckerHost
)

// gameIDResponse is the body returned by the game id checker
type gameIDResponse struct {
	Error string `json:"error,omitempty"`
	Msg   string `json:"msg"`
	Data  struct {
		Username string `json:"username"`
		IsBan    int    `json:"is_ban"`
	} `json:"data"`
}

// GameIDLookup queries the RapidAPI game id checker
type GameIDLookup struct {
	client *resty.Client
}

// NewGameIDLookup creates an upstream lookup. An empty baseURL selects the public endpoint.
func NewGameIDLookup(baseURL, apiKey string) *GameIDLookup {
	if baseURL == "" {
		baseURL = gameIDCheckerURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("x-rapidapi-host", gameIDCheckerHost).
		SetHeader("x-rapidapi-key", apiKey)

	return &GameIDLookup{client: client}
}

// LookupPlayer fetches the player. Unknown and banned accounts yield ErrNotFound;
// transport errors and non-200 answers fall back to the derived name.
func (l *GameIDLookup) LookupPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	var body gameIDResponse
	resp, err := l.client.R().
		SetContext(ctx).
		SetPathParam("id", playerID).
		SetResult(&body).
		Get("/pubgm-global/{id}")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.WarnContext(ctx, "player lookup failed, using fallback name", "player_id", playerID, "error", err)
		return &models.Player{PlayerID: playerID, PlayerName: FallbackName(playerID)}, nil
	}

	if resp.StatusCode() != http.StatusOK {
		slog.WarnContext(ctx, "player lookup returned non-200, using fallback name",
			"player_id", playerID, "status", resp.StatusCode())
		return &models.Player{PlayerID: playerID, PlayerName: FallbackName(playerID)}, nil
	}

	if body.Error != "" || body.Msg != "id_found" {
		return nil, fmt.Errorf("player %s: %w", playerID, models.ErrNotFound)
	}
	if body.Data.IsBan == 1 {
		return nil, fmt.Errorf("player %s is banned: %w", playerID, models.ErrNotFound)
	}

	name := body.Data.Username
	if name == "" {
		name = FallbackName(playerID)
	}
	return &models.Player{PlayerID: playerID, PlayerName: name}, nil
}
