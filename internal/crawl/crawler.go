// Package crawl drives one schedule-to-records pass over a single crawl
// target. Fetches are strictly sequential: the crawl delay is one shared
// budget per fetcher instance and concurrent requests would violate it.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tobyfan1980/nfl-project/internal/config"
	"github.com/tobyfan1980/nfl-project/internal/fetcher"
	"github.com/tobyfan1980/nfl-project/internal/parser"
	"github.com/tobyfan1980/nfl-project/internal/robots"
	"github.com/tobyfan1980/nfl-project/pkg/types"
)

// ResolveScheduleURL deterministically maps a target to its schedule page.
// Pure: no I/O, same input always yields the same URL.
func ResolveScheduleURL(baseURL string, target types.CrawlTarget) string {
	return fmt.Sprintf("%s/years/%d/%s.htm", strings.TrimRight(baseURL, "/"), target.Season, target.Period.Slug())
}

// Crawler fetches and assembles all game records for one target.
type Crawler struct {
	cfg     config.Config
	fetcher *fetcher.Client
	logger  *slog.Logger
}

// New wires up the robots policy and fetcher for a crawl run. A robots
// fetch failure is downgraded to a warning: the fallback policy allows
// everything but keeps the delay floor.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Crawler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", uuid.NewString())

	policy, err := robots.Load(ctx, nil, robots.Options{
		RobotsURL: cfg.Site.RobotsURL,
		UserAgent: cfg.Site.UserAgent,
		MinDelay:  cfg.Crawl.Delay.Duration,
	})
	if err != nil {
		if !errors.Is(err, robots.ErrPolicyFetch) {
			return nil, err
		}
		logger.Warn("robots policy unavailable, proceeding with fallback", "error", err)
	}

	client, err := fetcher.New(fetcher.Options{
		UserAgent:    cfg.Site.UserAgent,
		Timeout:      cfg.Crawl.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
		Policy:       policy,
		RateLimit: fetcher.RateLimitSettings{
			Requests: cfg.Crawl.RateLimit.Requests,
			Window:   cfg.Crawl.RateLimit.Window.Duration,
		},
		Retry: fetcher.RetrySettings{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff.Duration,
			MaxBackoff:     cfg.Retry.MaxBackoff.Duration,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}

	return &Crawler{cfg: cfg, fetcher: client, logger: logger}, nil
}

// Run performs the full schedule-to-records pass. Schedule failures abort
// the crawl; per-game failures are counted and skipped. On cancellation the
// partial result is returned alongside the context error.
func (c *Crawler) Run(ctx context.Context, target types.CrawlTarget) (*types.CrawlResult, error) {
	scheduleURL := ResolveScheduleURL(c.cfg.Site.BaseURL, target)
	c.logger.Info("fetching schedule", "season", target.Season, "period", target.Period.String(), "url", scheduleURL)

	outcome := c.fetcher.Fetch(ctx, scheduleURL)
	switch outcome.Kind {
	case fetcher.OutcomeSkipped:
		return nil, fmt.Errorf("schedule page disallowed by robots policy: %w", outcome.Err)
	case fetcher.OutcomeFailed:
		return nil, fmt.Errorf("schedule page fetch failed: %w", outcome.Err)
	}

	refs, err := parser.ParseSchedule(string(outcome.Body), target)
	if err != nil {
		return nil, fmt.Errorf("parse schedule page: %w", err)
	}
	c.logger.Info("discovered games", "count", len(refs))

	result := &types.CrawlResult{Target: target}
	order := make(map[string]int, len(refs))

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("crawl cancelled, emitting partial result",
				"completed", len(result.Games), "remaining", len(refs)-i)
			c.sortGames(result, order)
			return result, err
		}

		rec, ok := c.crawlGame(ctx, ref)
		if !ok {
			result.Failed++
			continue
		}
		order[rec.Key()] = i
		result.Games = append(result.Games, rec)
	}

	c.sortGames(result, order)
	c.logger.Info("crawl complete", "games", len(result.Games), "failed", result.Failed)
	return result, nil
}

func (c *Crawler) crawlGame(ctx context.Context, ref types.GameRef) (types.GameRecord, bool) {
	gameURL := ref.BoxscoreURL
	if !strings.HasPrefix(gameURL, "http://") && !strings.HasPrefix(gameURL, "https://") {
		if !strings.HasPrefix(gameURL, "/") {
			gameURL = "/" + gameURL
		}
		gameURL = c.cfg.Site.BaseURL + gameURL
	}
	logger := c.logger.With("home", ref.HomeTeam, "away", ref.AwayTeam)

	outcome := c.fetcher.Fetch(ctx, gameURL)
	if !outcome.Success() {
		logger.Warn("skipping game, boxscore unavailable",
			"outcome", outcome.Kind.String(), "attempts", outcome.Attempts, "error", outcome.Err)
		return types.GameRecord{}, false
	}

	rec, err := parser.ParseDetail(string(outcome.Body))
	if err != nil {
		logger.Warn("skipping game, boxscore unparseable", "error", err)
		return types.GameRecord{}, false
	}

	if rec.HomeRushingYards == nil || rec.HomePassingYards == nil {
		logger.Debug("boxscore missing some team stats, recording gaps")
	}
	return rec, true
}

// sortGames orders records by date ascending, stable: same-day games keep
// their schedule-page discovery order.
func (c *Crawler) sortGames(result *types.CrawlResult, order map[string]int) {
	sort.SliceStable(result.Games, func(i, j int) bool {
		a, b := result.Games[i], result.Games[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return order[a.Key()] < order[b.Key()]
	})
}
