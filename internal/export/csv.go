// Package export serializes crawl results to CSV, one row per game.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tobyfan1980/nfl-project/pkg/types"
)

var header = []string{
	"Date", "Home Team", "Away Team", "Home Score", "Away Score",
	"Home Rushing Yards", "Away Rushing Yards", "Home Passing Yards", "Away Passing Yards",
}

// WriteCSV emits the result in the fixed column order. Missing optional
// stats become empty cells, never a placeholder word.
func WriteCSV(w io.Writer, result *types.CrawlResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, g := range result.Games {
		row := []string{
			g.Date.Format("2006-01-02"),
			g.HomeTeam,
			g.AwayTeam,
			strconv.Itoa(g.HomeScore),
			strconv.Itoa(g.AwayScore),
			optionalCell(g.HomeRushingYards),
			optionalCell(g.AwayRushingYards),
			optionalCell(g.HomePassingYards),
			optionalCell(g.AwayPassingYards),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", g.Key(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the result to path, creating parent directories.
func WriteFile(path string, result *types.CrawlResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer fh.Close()

	if err := WriteCSV(fh, result); err != nil {
		return err
	}
	return fh.Close()
}

// DefaultPath names the output file after the target, hyphens flattened:
// dev_data/nfl_2020_week_wild_card_game_stats.csv.
func DefaultPath(dir string, target types.CrawlTarget) string {
	slug := strings.ReplaceAll(target.Period.String(), "-", "_")
	return filepath.Join(dir, fmt.Sprintf("nfl_%d_week_%s_game_stats.csv", target.Season, slug))
}

func optionalCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
