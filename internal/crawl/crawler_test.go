package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tobyfan1980/nfl-project/internal/config"
	"github.com/tobyfan1980/nfl-project/pkg/types"
)

func TestResolveScheduleURL(t *testing.T) {
	weekTarget, err := types.NewCrawlTarget(2020, "1")
	require.NoError(t, err)
	playoffTarget, err := types.NewCrawlTarget(2019, "super-bowl")
	require.NoError(t, err)

	require.Equal(t, "https://www.pro-football-reference.com/years/2020/week_1.htm",
		ResolveScheduleURL("https://www.pro-football-reference.com", weekTarget))
	require.Equal(t, "https://www.pro-football-reference.com/years/2019/super-bowl.htm",
		ResolveScheduleURL("https://www.pro-football-reference.com/", playoffTarget))

	// Pure and deterministic: repeated calls agree.
	for i := 0; i < 5; i++ {
		require.Equal(t,
			ResolveScheduleURL("https://x.test", weekTarget),
			ResolveScheduleURL("https://x.test", weekTarget))
	}
}

// mockSite serves a schedule page plus boxscores and counts hits per path.
type mockSite struct {
	mux  *http.ServeMux
	srv  *httptest.Server
	hits map[string]*atomic.Int32
}

func newMockSite(t *testing.T) *mockSite {
	t.Helper()
	site := &mockSite{mux: http.NewServeMux(), hits: make(map[string]*atomic.Int32)}
	site.srv = httptest.NewServer(site.mux)
	t.Cleanup(site.srv.Close)
	return site
}

func (m *mockSite) page(path, body string) {
	counter := &atomic.Int32{}
	m.hits[path] = counter
	m.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		w.Write([]byte(body))
	})
}

func (m *mockSite) config() config.Config {
	cfg := config.Default()
	cfg.Site.BaseURL = m.srv.URL
	cfg.Site.RobotsURL = m.srv.URL + "/robots.txt"
	cfg.Crawl.Delay = config.DurationFrom(time.Millisecond)
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.InitialBackoff = config.DurationFrom(time.Millisecond)
	cfg.Retry.MaxBackoff = config.DurationFrom(5 * time.Millisecond)
	return cfg
}

func scheduleSummary(team1, href, team2 string) string {
	return fmt.Sprintf(`<div class="game_summary expanded nohover">
  <table class="teams">
    <tr class="winner">
      <td><a href="/teams/x/2020.htm">%s</a></td>
      <td class="right">30</td>
      <td class="right gamelink"><a href="%s">Final</a></td>
    </tr>
    <tr class="loser">
      <td><a href="/teams/y/2020.htm">%s</a></td>
      <td class="right">10</td>
    </tr>
  </table>
</div>`, team1, href, team2)
}

func boxscore(date, away string, awayScore int, home string, homeScore int) string {
	return fmt.Sprintf(`<div class="scorebox">
  <div><a href="/teams/a/2020.htm">%s</a><div class="score">%d</div></div>
  <div><a href="/teams/h/2020.htm">%s</a><div class="score">%d</div></div>
  <div class="scorebox_meta"><div>%s</div></div>
</div>
<div id="div_team_stats"><table>
  <tr><th>Rush-Yds-TDs</th><td>20-80-1</td><td>30-150-2</td></tr>
  <tr><th>Net Pass Yds</th><td>210</td><td>260</td></tr>
</table></div>`, away, awayScore, home, homeScore, date)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTarget(t *testing.T) types.CrawlTarget {
	t.Helper()
	target, err := types.NewCrawlTarget(2020, "1")
	require.NoError(t, err)
	return target
}

func TestCrawlTwoGames(t *testing.T) {
	site := newMockSite(t)
	site.page("/robots.txt", "User-agent: *\nDisallow:\n")
	// Later game listed first: output must still be date ascending.
	site.page("/years/2020/week_1.htm",
		scheduleSummary("Kansas City Chiefs", "/boxscores/202009140kan.htm", "Houston Texans")+
			scheduleSummary("Buffalo Bills", "/boxscores/202009130buf.htm", "New York Jets"))
	site.page("/boxscores/202009140kan.htm",
		boxscore("Sep 14, 2020", "Houston Texans", 20, "Kansas City Chiefs", 34))
	site.page("/boxscores/202009130buf.htm",
		boxscore("Sep 13, 2020", "New York Jets", 17, "Buffalo Bills", 27))

	crawler, err := New(context.Background(), site.config(), testLogger())
	require.NoError(t, err)

	result, err := crawler.Run(context.Background(), testTarget(t))
	require.NoError(t, err)

	require.Len(t, result.Games, 2)
	require.Equal(t, 0, result.Failed)
	require.Equal(t, "Buffalo Bills", result.Games[0].HomeTeam)
	require.Equal(t, "Kansas City Chiefs", result.Games[1].HomeTeam)
	require.True(t, result.Games[0].Date.Before(result.Games[1].Date))

	require.NotNil(t, result.Games[0].HomeRushingYards)
	require.Equal(t, 150, *result.Games[0].HomeRushingYards)
	require.Equal(t, 80, *result.Games[0].AwayRushingYards)
	require.Equal(t, 260, *result.Games[0].HomePassingYards)
	require.Equal(t, 210, *result.Games[0].AwayPassingYards)
}

func TestCrawlMalformedBoxscoreCountsFailure(t *testing.T) {
	site := newMockSite(t)
	site.page("/robots.txt", "User-agent: *\nDisallow:\n")
	site.page("/years/2020/week_1.htm",
		scheduleSummary("Buffalo Bills", "/boxscores/202009130buf.htm", "New York Jets")+
			scheduleSummary("Kansas City Chiefs", "/boxscores/202009140kan.htm", "Houston Texans"))
	site.page("/boxscores/202009130buf.htm",
		boxscore("Sep 13, 2020", "New York Jets", 17, "Buffalo Bills", 27))
	// Second boxscore has no scores at all.
	site.page("/boxscores/202009140kan.htm", "<html><body><p>under construction</p></body></html>")

	crawler, err := New(context.Background(), site.config(), testLogger())
	require.NoError(t, err)

	result, err := crawler.Run(context.Background(), testTarget(t))
	require.NoError(t, err)

	require.Len(t, result.Games, 1)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, "Buffalo Bills", result.Games[0].HomeTeam)
}

func TestCrawlScheduleDisallowedAborts(t *testing.T) {
	site := newMockSite(t)
	site.page("/robots.txt", "User-agent: *\nDisallow: /years/\n")
	site.page("/years/2020/week_1.htm", "should never be served")
	site.page("/boxscores/202009130buf.htm", "should never be served")

	crawler, err := New(context.Background(), site.config(), testLogger())
	require.NoError(t, err)

	result, err := crawler.Run(context.Background(), testTarget(t))
	require.Error(t, err)
	require.Nil(t, result)

	// Robots blocked the schedule: zero page fetches happened at all.
	require.EqualValues(t, 0, site.hits["/years/2020/week_1.htm"].Load())
	require.EqualValues(t, 0, site.hits["/boxscores/202009130buf.htm"].Load())
}

func TestCrawlScheduleFetchFailureAborts(t *testing.T) {
	site := newMockSite(t)
	site.page("/robots.txt", "User-agent: *\nDisallow:\n")
	// No schedule route registered: the mux serves 404, terminal for 4xx.

	crawler, err := New(context.Background(), site.config(), testLogger())
	require.NoError(t, err)

	result, err := crawler.Run(context.Background(), testTarget(t))
	require.Error(t, err)
	require.Nil(t, result)
}

func TestCrawlCancellationEmitsPartialResult(t *testing.T) {
	site := newMockSite(t)
	site.page("/robots.txt", "User-agent: *\nDisallow:\n")
	site.page("/years/2020/week_1.htm",
		scheduleSummary("Buffalo Bills", "/boxscores/202009130buf.htm", "New York Jets")+
			scheduleSummary("Kansas City Chiefs", "/boxscores/202009140kan.htm", "Houston Texans")+
			scheduleSummary("Seattle Seahawks", "/boxscores/202009130sea.htm", "Atlanta Falcons"))
	site.page("/boxscores/202009130buf.htm",
		boxscore("Sep 13, 2020", "New York Jets", 17, "Buffalo Bills", 27))

	ctx, cancel := context.WithCancel(context.Background())
	// The second boxscore cancels the crawl; the loop checks the context
	// before each remaining game, so the third is never requested.
	site.mux.HandleFunc("/boxscores/202009140kan.htm", func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.Write([]byte(boxscore("Sep 14, 2020", "Houston Texans", 20, "Kansas City Chiefs", 34)))
	})
	site.mux.HandleFunc("/boxscores/202009130sea.htm", func(w http.ResponseWriter, r *http.Request) {
		t.Error("third boxscore should not be fetched after cancellation")
	})

	crawler, err := New(context.Background(), site.config(), testLogger())
	require.NoError(t, err)

	result, err := crawler.Run(ctx, testTarget(t))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)

	// The first game always lands; the second may fail if cancellation
	// cut its response short. Either way the result is partial, not empty.
	require.GreaterOrEqual(t, len(result.Games), 1)
	require.Equal(t, "Buffalo Bills", result.Games[0].HomeTeam)
	require.Equal(t, 2, len(result.Games)+result.Failed)
}

func TestCrawlRobotsUnavailableFallsBack(t *testing.T) {
	site := newMockSite(t)
	// No robots route: 404 triggers the allow-all fallback.
	site.page("/years/2020/week_1.htm",
		scheduleSummary("Buffalo Bills", "/boxscores/202009130buf.htm", "New York Jets"))
	site.page("/boxscores/202009130buf.htm",
		boxscore("Sep 13, 2020", "New York Jets", 17, "Buffalo Bills", 27))

	cfg := site.config()
	crawler, err := New(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	result, err := crawler.Run(context.Background(), testTarget(t))
	require.NoError(t, err)
	require.Len(t, result.Games, 1)
	require.Equal(t, 0, result.Failed)
}
