package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tobyfan1980/nfl-project/pkg/types"
)

// ErrUnparseableDetail indicates a detail page missing one of the required
// fields (date, both teams, both scores). Optional stats never trigger it.
var ErrUnparseableDetail = errors.New("unparseable detail page")

// Date renderings seen on detail pages.
var detailDateLayouts = []string{
	"Monday Jan 2, 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
}

// ParseDetail extracts one game's record from a boxscore page. The score
// box lists the away team first, then the home team, matching the column
// order of the team-stats table. Rushing and passing yards are best-effort:
// structural drift there degrades the record to a gap instead of an error.
func ParseDetail(markup string) (types.GameRecord, error) {
	doc, err := parseDocument(markup)
	if err != nil {
		return types.GameRecord{}, fmt.Errorf("%w: %v", ErrUnparseableDetail, err)
	}

	var rec types.GameRecord

	blocks := doc.Find("div.scorebox > div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return !s.HasClass("scorebox_meta")
	})
	if blocks.Length() < 2 {
		return types.GameRecord{}, fmt.Errorf("%w: found %d team blocks, need 2", ErrUnparseableDetail, blocks.Length())
	}

	awayBlock := blocks.Eq(0)
	homeBlock := blocks.Eq(1)

	rec.AwayTeam = cleanText(awayBlock.Find("a[href*='/teams/']").First().Text())
	rec.HomeTeam = cleanText(homeBlock.Find("a[href*='/teams/']").First().Text())
	if rec.AwayTeam == "" || rec.HomeTeam == "" {
		return types.GameRecord{}, fmt.Errorf("%w: missing team name", ErrUnparseableDetail)
	}

	awayScore, aerr := parseCell(awayBlock.Find("div.score").First().Text())
	homeScore, herr := parseCell(homeBlock.Find("div.score").First().Text())
	if aerr != nil || herr != nil {
		return types.GameRecord{}, fmt.Errorf("%w: missing score", ErrUnparseableDetail)
	}
	rec.AwayScore = awayScore
	rec.HomeScore = homeScore

	date, ok := parseDetailDate(doc)
	if !ok {
		return types.GameRecord{}, fmt.Errorf("%w: missing or unrecognised date", ErrUnparseableDetail)
	}
	rec.Date = date

	extractTeamStats(doc, &rec)
	return rec, nil
}

func parseDetailDate(doc *goquery.Document) (time.Time, bool) {
	var date time.Time
	found := false
	doc.Find("div.scorebox_meta div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		for _, layout := range detailDateLayouts {
			if parsed, err := time.Parse(layout, text); err == nil {
				date = parsed
				found = true
				return false
			}
		}
		return true
	})
	return date, found
}

// extractTeamStats walks the team-stats table: one row per statistic, a
// header cell naming it, then away and home value cells.
func extractTeamStats(doc *goquery.Document, rec *types.GameRecord) {
	table := doc.Find("div#div_team_stats table").First()
	if table.Length() == 0 {
		table = doc.Find("table#team_stats").First()
	}
	if table.Length() == 0 {
		return
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.ToLower(cleanText(row.Find("th").First().Text()))
		cells := row.Find("td")
		if name == "" || cells.Length() < 2 {
			return
		}
		awayRaw := cleanText(cells.Eq(0).Text())
		homeRaw := cleanText(cells.Eq(1).Text())

		switch {
		case strings.Contains(name, "rush") && (strings.Contains(name, "yds") || strings.Contains(name, "tds")):
			// Cells come as attempts-yards-touchdowns, eg. "25-120-1".
			if away, home, ok := parseRushYards(awayRaw, homeRaw); ok {
				rec.AwayRushingYards = &away
				rec.HomeRushingYards = &home
			}
		case strings.Contains(name, "pass") && strings.Contains(name, "yds"):
			away, aerr := parseCell(awayRaw)
			home, herr := parseCell(homeRaw)
			if aerr == nil && herr == nil {
				rec.AwayPassingYards = &away
				rec.HomePassingYards = &home
			}
		}
	})
}

func parseRushYards(awayRaw, homeRaw string) (away, home int, ok bool) {
	awayParts := strings.Split(awayRaw, "-")
	homeParts := strings.Split(homeRaw, "-")
	if len(awayParts) < 2 || len(homeParts) < 2 {
		return 0, 0, false
	}
	away, aerr := parseCell(awayParts[1])
	home, herr := parseCell(homeParts[1])
	if aerr != nil || herr != nil {
		return 0, 0, false
	}
	return away, home, true
}

func parseCell(raw string) (int, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, errors.New("empty cell")
	}
	return strconv.Atoi(raw)
}
