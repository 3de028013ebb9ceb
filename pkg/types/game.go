package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTarget indicates a crawl target with a bad season or period.
// Targets failing validation never reach the network.
var ErrInvalidTarget = errors.New("invalid crawl target")

// Playoff round names accepted as an alternative to a numeric week.
const (
	RoundWildCard   = "wild-card"
	RoundDivisional = "divisional"
	RoundConference = "conference"
	RoundSuperBowl  = "super-bowl"
)

// Period addresses one slice of a season: a regular-season week (1-18)
// or a named playoff round.
type Period struct {
	week  int
	round string
}

// ParsePeriod validates and converts the raw CLI form of a period.
func ParsePeriod(raw string) (Period, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Period{}, fmt.Errorf("%w: empty period", ErrInvalidTarget)
	}

	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 || n > 18 {
			return Period{}, fmt.Errorf("%w: week must be between 1 and 18, got %d", ErrInvalidTarget, n)
		}
		return Period{week: n}, nil
	}

	switch raw {
	case RoundWildCard, RoundDivisional, RoundConference, RoundSuperBowl:
		return Period{round: raw}, nil
	}
	return Period{}, fmt.Errorf("%w: period %q must be 1-18 or one of %s, %s, %s, %s",
		ErrInvalidTarget, raw, RoundWildCard, RoundDivisional, RoundConference, RoundSuperBowl)
}

// IsPlayoff reports whether the period names a playoff round.
func (p Period) IsPlayoff() bool {
	return p.round != ""
}

// Week returns the regular-season week number, or 0 for playoff rounds.
func (p Period) Week() int {
	return p.week
}

// Slug returns the form used in schedule URLs: "week_5" or "wild-card".
func (p Period) Slug() string {
	if p.IsPlayoff() {
		return p.round
	}
	return fmt.Sprintf("week_%d", p.week)
}

func (p Period) String() string {
	if p.IsPlayoff() {
		return p.round
	}
	return strconv.Itoa(p.week)
}

// CrawlTarget identifies one season/period to crawl. Immutable once built.
type CrawlTarget struct {
	Season int
	Period Period
}

// NewCrawlTarget validates the season and period before any I/O can happen.
func NewCrawlTarget(season int, period string) (CrawlTarget, error) {
	if season <= 0 {
		return CrawlTarget{}, fmt.Errorf("%w: season must be a positive year, got %d", ErrInvalidTarget, season)
	}
	p, err := ParsePeriod(period)
	if err != nil {
		return CrawlTarget{}, err
	}
	return CrawlTarget{Season: season, Period: p}, nil
}

// GameRef points at one game's detail (boxscore) page, discovered on a
// schedule page. Team names are as printed there; the home side is inferred
// from the boxscore URL and may be revised by the detail parser.
type GameRef struct {
	BoxscoreURL string
	HomeTeam    string
	AwayTeam    string
}

// GameRecord is the extracted per-game field set. Rushing and passing
// yards are nil when the detail page did not expose them; that is a
// recorded gap, not an error.
type GameRecord struct {
	Date      time.Time
	HomeTeam  string
	AwayTeam  string
	HomeScore int
	AwayScore int

	HomeRushingYards *int
	AwayRushingYards *int
	HomePassingYards *int
	AwayPassingYards *int
}

// Key uniquely identifies a game within a crawl result.
func (g GameRecord) Key() string {
	return g.Date.Format("2006-01-02") + "/" + g.HomeTeam + "/" + g.AwayTeam
}

// CrawlResult is the ordered outcome of one crawl: records sorted by date
// ascending plus a count of games that could not be fetched or parsed.
type CrawlResult struct {
	Target CrawlTarget
	Games  []GameRecord
	Failed int
}
