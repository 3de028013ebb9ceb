package parser

import (
	"regexp"
	"strings"
)

// teamNames maps the abbreviation embedded in boxscore URLs to the full
// franchise name as printed on schedule pages.
var teamNames = map[string]string{
	"ari": "Arizona Cardinals", "atl": "Atlanta Falcons", "bal": "Baltimore Ravens",
	"buf": "Buffalo Bills", "car": "Carolina Panthers", "chi": "Chicago Bears",
	"cin": "Cincinnati Bengals", "cle": "Cleveland Browns", "dal": "Dallas Cowboys",
	"den": "Denver Broncos", "det": "Detroit Lions", "gb": "Green Bay Packers",
	"hou": "Houston Texans", "ind": "Indianapolis Colts", "jax": "Jacksonville Jaguars",
	"kan": "Kansas City Chiefs", "kc": "Kansas City Chiefs", "lv": "Las Vegas Raiders",
	"lac": "Los Angeles Chargers", "lar": "Los Angeles Rams", "mia": "Miami Dolphins",
	"min": "Minnesota Vikings", "ne": "New England Patriots", "no": "New Orleans Saints",
	"nyg": "New York Giants", "nyj": "New York Jets", "phi": "Philadelphia Eagles",
	"pit": "Pittsburgh Steelers", "sf": "San Francisco 49ers", "sea": "Seattle Seahawks",
	"tb": "Tampa Bay Buccaneers", "ten": "Tennessee Titans", "was": "Washington Football Team",
	"rav": "Baltimore Ravens", "jag": "Jacksonville Jaguars",
}

// Boxscore URLs look like /boxscores/20200913 0buf.htm (date, heading digit,
// home-team abbreviation).
var boxscoreHomeRe = regexp.MustCompile(`\d{8}0?([a-z]{2,3})\.htm`)

// homeTeamFromURL resolves the home franchise name from a boxscore href,
// or "" when the abbreviation is unknown.
func homeTeamFromURL(href string) string {
	m := boxscoreHomeRe.FindStringSubmatch(strings.ToLower(href))
	if m == nil {
		return ""
	}
	return teamNames[m[1]]
}

// matchesTeam reports whether name plausibly refers to the franchise,
// tolerating partial renderings like "Chiefs" or "Kansas City".
func matchesTeam(franchise, name string) bool {
	if franchise == "" || name == "" {
		return false
	}
	if strings.EqualFold(franchise, name) {
		return true
	}
	lower := strings.ToLower(name)
	for _, word := range strings.Fields(strings.ToLower(franchise)) {
		if len(word) > 3 && strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
