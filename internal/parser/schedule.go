package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tobyfan1980/nfl-project/pkg/types"
)

// ParseSchedule extracts boxscore references from a week's schedule page,
// in document order. A game is kept only when both team names resolve; the
// home side is inferred from the boxscore URL abbreviation, falling back to
// the winner when the abbreviation is unknown.
func ParseSchedule(markup string, target types.CrawlTarget) ([]types.GameRef, error) {
	doc, err := parseDocument(markup)
	if err != nil {
		return nil, fmt.Errorf("parse schedule markup: %w", err)
	}

	var refs []types.GameRef
	doc.Find("div.game_summary").Each(func(_ int, summary *goquery.Selection) {
		table := summary.Find("table.teams").First()
		if table.Length() == 0 {
			return
		}

		winner := cleanText(table.Find("tr.winner a[href*='/teams/']").First().Text())
		loser := cleanText(table.Find("tr.loser a[href*='/teams/']").First().Text())
		if winner == "" || loser == "" {
			return
		}

		href, ok := table.Find("td.gamelink a[href*='/boxscores/']").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		href = strings.TrimSpace(href)

		home, away := winner, loser
		if franchise := homeTeamFromURL(href); franchise != "" {
			if matchesTeam(franchise, loser) && !matchesTeam(franchise, winner) {
				home, away = loser, winner
			}
		}

		refs = append(refs, types.GameRef{
			BoxscoreURL: href,
			HomeTeam:    home,
			AwayTeam:    away,
		})
	})

	if refs == nil {
		return nil, fmt.Errorf("no game summaries found for %d %s", target.Season, target.Period.Slug())
	}
	return refs, nil
}
