// Package saltyboy reads the public salty-boy stats API. The API tracks
// every fighter's rating and match history independently of our own store,
// which makes it the authority for fighter stats and the source for
// backfilling matches we missed while offline.
package saltyboy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diegowsan/saltyboyC/internal/config"
	"github.com/diegowsan/saltyboyC/internal/constants"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

const currentMatchInfoPath = "/api/current_match_info"

// MatchRecord is one historical match as the stats API reports it. Pool
// totals are null for matches the API observed without pool data.
type MatchRecord struct {
	ID          int64   `json:"id"`
	FighterRed  int64   `json:"fighter_red"`
	FighterBlue int64   `json:"fighter_blue"`
	Winner      int64   `json:"winner"`
	Format      string  `json:"match_format"`
	Tier        string  `json:"tier"`
	Date        APITime `json:"date"`
	StreakRed   int     `json:"streak_red"`
	StreakBlue  int     `json:"streak_blue"`
	BetRed      *int64  `json:"bet_red"`
	BetBlue     *int64  `json:"bet_blue"`
	Colour      string  `json:"colour"`
}

// FighterInfo carries the API's view of one fighter plus their full match
// history.
type FighterInfo struct {
	ID      int64         `json:"id"`
	Name    string        `json:"name"`
	Tier    string        `json:"tier"`
	Elo     float64       `json:"elo"`
	TierElo float64       `json:"tier_elo"`
	Matches []MatchRecord `json:"matches"`
}

// MatchInfo is the response for the match currently open for betting. Either
// side can be nil when the API has never seen that fighter.
type MatchInfo struct {
	FighterRedInfo  *FighterInfo `json:"fighter_red_info"`
	FighterBlueInfo *FighterInfo `json:"fighter_blue_info"`
}

// APITime accepts the API's ISO timestamps with or without a zone suffix.
type APITime struct {
	time.Time
}

func (t *APITime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

type Client struct {
	client  *fasthttp.Client
	baseURL string
	logger  zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		client: &fasthttp.Client{
			ReadTimeout:  constants.StatsRequestTimeout,
			WriteTimeout: constants.StatsRequestTimeout,
		},
		baseURL: strings.TrimSuffix(cfg.SaltyBoyURL, "/"),
		logger:  logger,
	}
}

// CurrentMatchInfo fetches both fighters' stats and histories for the match
// currently open for betting, retrying transient failures.
func (c *Client) CurrentMatchInfo(ctx context.Context) (*MatchInfo, error) {
	var info *MatchInfo
	backoff := retry.WithMaxRetries(constants.StatsRetryAttempts, retry.NewConstant(constants.StatsRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req := fasthttp.AcquireRequest()
		defer fasthttp.ReleaseRequest(req)
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(c.baseURL + currentMatchInfoPath)
		req.Header.SetMethod(fasthttp.MethodGet)

		if err := c.client.DoTimeout(req, resp, constants.StatsRequestTimeout); err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode() != fasthttp.StatusOK {
			return retry.RetryableError(fmt.Errorf("unexpected status %d", resp.StatusCode()))
		}

		parsed, err := ParseMatchInfo(resp.Body())
		if err != nil {
			return err
		}
		info = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current match info: %w", err)
	}
	return info, nil
}

func ParseMatchInfo(body []byte) (*MatchInfo, error) {
	var info MatchInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("malformed match info payload: %w", err)
	}
	return &info, nil
}
