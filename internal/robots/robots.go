package robots

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
)

// ErrPolicyFetch indicates the robots document could not be retrieved or
// parsed. The returned policy is still usable: it allows everything and
// keeps the configured delay floor. Callers log the error and continue.
var ErrPolicyFetch = errors.New("robots policy fetch failed")

const maxRobotsBytes = 512 << 10

// Policy holds one site's robots rules for the lifetime of a crawl run.
// Read-only after Load.
type Policy struct {
	group    *robotstxt.Group
	rules    []pathRule
	minDelay time.Duration
	delay    time.Duration
}

// pathRule is a plain-prefix Allow or Disallow line from the agent's group.
// Rules using wildcards stay with the parsed matcher.
type pathRule struct {
	allow  bool
	prefix string
}

// Options configures how the robots document is fetched and evaluated.
type Options struct {
	// RobotsURL is the absolute URL of the robots document.
	RobotsURL string
	UserAgent string
	// MinDelay is the floor for the crawl delay. A site-declared delay may
	// raise the effective value but never lower it below this.
	MinDelay time.Duration
}

// Load fetches and parses the site's robots document. On failure it returns
// a permissive fallback policy together with ErrPolicyFetch; the fallback
// keeps the delay floor so the crawler stays polite regardless.
func Load(ctx context.Context, client *http.Client, opts Options) (*Policy, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	fallback := &Policy{minDelay: opts.MinDelay, delay: opts.MinDelay}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.RobotsURL, nil)
	if err != nil {
		return fallback, fmt.Errorf("%w: build request: %v", ErrPolicyFetch, err)
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fallback, fmt.Errorf("%w: %v", ErrPolicyFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fallback, fmt.Errorf("%w: status %d", ErrPolicyFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return fallback, fmt.Errorf("%w: read: %v", ErrPolicyFetch, err)
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return fallback, fmt.Errorf("%w: parse: %v", ErrPolicyFetch, err)
	}

	group := data.FindGroup(opts.UserAgent)
	if group == nil {
		group = data.FindGroup("*")
	}

	p := &Policy{
		group:    group,
		rules:    scanRules(body, opts.UserAgent),
		minDelay: opts.MinDelay,
		delay:    opts.MinDelay,
	}
	if group != nil && group.CrawlDelay > p.delay {
		p.delay = group.CrawlDelay
	}
	return p, nil
}

// Allowed reports whether the path may be fetched. The longest matching
// prefix decides; when an Allow and a Disallow rule match at equal length
// the path is disallowed. Evaluation is pure: repeated calls against the
// same policy always agree.
func (p *Policy) Allowed(path string) bool {
	if p == nil || p.group == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	var allowLen, disallowLen int
	disallowed := false
	for _, r := range p.rules {
		if !strings.HasPrefix(path, r.prefix) {
			continue
		}
		if r.allow {
			if len(r.prefix) > allowLen {
				allowLen = len(r.prefix)
			}
		} else {
			disallowed = true
			if len(r.prefix) > disallowLen {
				disallowLen = len(r.prefix)
			}
		}
	}
	if disallowed && disallowLen >= allowLen {
		return false
	}
	return p.group.Test(path)
}

// CrawlDelay returns the minimum time between requests to the site. Never
// below the configured floor, whatever the site declares.
func (p *Policy) CrawlDelay() time.Duration {
	if p == nil {
		return 0
	}
	if p.delay < p.minDelay {
		return p.minDelay
	}
	return p.delay
}

// scanRules collects the plain-prefix rules from the most specific group
// matching agent, falling back to the wildcard group. Group selection
// mirrors the matcher: a group applies when its User-agent token is a
// case-insensitive substring of the agent, longer tokens winning.
func scanRules(body []byte, agent string) []pathRule {
	agent = strings.ToLower(agent)

	var (
		best      []pathRule
		bestScore = -1
		group     []pathRule
		score     = -1
		inRules   bool
	)
	flush := func() {
		if score > bestScore {
			bestScore, best = score, group
		}
		group, score, inRules = nil, -1, false
	}

	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if inRules {
				flush()
			}
			switch token := strings.ToLower(value); {
			case token == "*":
				if score < 0 {
					score = 0
				}
			case token != "" && strings.Contains(agent, token):
				if len(token) > score {
					score = len(token)
				}
			}
		case "allow", "disallow":
			inRules = true
			if score < 0 || value == "" || strings.ContainsAny(value, "*$") {
				continue
			}
			group = append(group, pathRule{allow: key == "allow", prefix: value})
		}
	}
	flush()
	return best
}
