package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tobyfan1980/nfl-project/pkg/types"
)

func intp(v int) *int { return &v }

func sampleResult(t *testing.T) *types.CrawlResult {
	t.Helper()
	target, err := types.NewCrawlTarget(2020, "1")
	require.NoError(t, err)

	return &types.CrawlResult{
		Target: target,
		Games: []types.GameRecord{
			{
				Date:             time.Date(2020, 9, 13, 0, 0, 0, 0, time.UTC),
				HomeTeam:         "Buffalo Bills",
				AwayTeam:         "New York Jets",
				HomeScore:        27,
				AwayScore:        17,
				HomeRushingYards: intp(150),
				AwayRushingYards: intp(52),
				HomePassingYards: intp(254),
				AwayPassingYards: intp(239),
			},
			{
				Date:      time.Date(2020, 9, 14, 0, 0, 0, 0, time.UTC),
				HomeTeam:  "Kansas City Chiefs",
				AwayTeam:  "Houston Texans",
				HomeScore: 34,
				AwayScore: 20,
				// Stats missing: cells must be empty, not a placeholder.
			},
		},
		Failed: 1,
	}
}

func TestWriteCSV(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, sampleResult(t)))

	rows, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, []string{
		"Date", "Home Team", "Away Team", "Home Score", "Away Score",
		"Home Rushing Yards", "Away Rushing Yards", "Home Passing Yards", "Away Passing Yards",
	}, rows[0])

	require.Equal(t, []string{
		"2020-09-13", "Buffalo Bills", "New York Jets", "27", "17", "150", "52", "254", "239",
	}, rows[1])

	require.Equal(t, []string{
		"2020-09-14", "Kansas City Chiefs", "Houston Texans", "34", "20", "", "", "", "",
	}, rows[2])
}

func TestWriteFileCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")

	require.NoError(t, WriteFile(path, sampleResult(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "Date,Home Team,Away Team"))
}

func TestDefaultPath(t *testing.T) {
	weekTarget, err := types.NewCrawlTarget(2020, "5")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("dev_data", "nfl_2020_week_5_game_stats.csv"),
		DefaultPath("dev_data", weekTarget))

	playoffTarget, err := types.NewCrawlTarget(2019, "wild-card")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("out", "nfl_2019_week_wild_card_game_stats.csv"),
		DefaultPath("out", playoffTarget))
}
