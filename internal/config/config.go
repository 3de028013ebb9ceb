package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything needed to run a crawl.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Crawl   CrawlConfig   `yaml:"crawl"`
	Retry   RetryConfig   `yaml:"retry"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// SiteConfig identifies the source site and how the crawler presents itself.
type SiteConfig struct {
	BaseURL   string `yaml:"base_url"`
	RobotsURL string `yaml:"robots_url"`
	UserAgent string `yaml:"user_agent"`
}

// CrawlConfig controls politeness and request limits.
type CrawlConfig struct {
	// Delay is the floor for time between requests. The site's declared
	// crawl-delay may raise it but never lower it.
	Delay          Duration        `yaml:"delay"`
	RequestTimeout Duration        `yaml:"request_timeout"`
	MaxBodyBytes   int64           `yaml:"max_body_bytes"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig caps requests per window on top of the inter-request delay.
// Zero values disable the cap.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// RetryConfig controls backoff after throttling or server errors.
type RetryConfig struct {
	// MaxAttempts bounds total tries for one URL, the first included.
	MaxAttempts    int      `yaml:"max_attempts"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`
}

// OutputConfig controls where the CSV lands.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// LoggingConfig controls log verbosity and handler format.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is one of "text", "json", or "console".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Site: SiteConfig{
			BaseURL:   "https://www.pro-football-reference.com",
			UserAgent: "Mozilla/5.0 (compatible; NFLStatsCrawler/1.0; +https://github.com/tobyfan1980/nfl-project)",
		},
		Crawl: CrawlConfig{
			Delay:          DurationFrom(2 * time.Second),
			RequestTimeout: DurationFrom(15 * time.Second),
			MaxBodyBytes:   6 * 1024 * 1024,
		},
		Retry: RetryConfig{
			MaxAttempts:    5,
			InitialBackoff: DurationFrom(time.Second),
			MaxBackoff:     DurationFrom(60 * time.Second),
		},
		Output: OutputConfig{
			Directory: "dev_data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file. An
// empty path yields the validated defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		cfg.normalise()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()

	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c *Config) normalise() {
	c.Site.BaseURL = strings.TrimRight(strings.TrimSpace(c.Site.BaseURL), "/")
	c.Site.RobotsURL = strings.TrimSpace(c.Site.RobotsURL)
	if c.Site.RobotsURL == "" && c.Site.BaseURL != "" {
		c.Site.RobotsURL = c.Site.BaseURL + "/robots.txt"
	}
}

// Validate enforces required invariants for the crawler configuration.
func (c Config) Validate() error {
	if c.Site.BaseURL == "" {
		return errors.New("site.base_url must be set")
	}
	if !strings.HasPrefix(c.Site.BaseURL, "http://") && !strings.HasPrefix(c.Site.BaseURL, "https://") {
		return fmt.Errorf("site.base_url must be an http(s) URL (got %q)", c.Site.BaseURL)
	}
	if c.Site.UserAgent == "" {
		return errors.New("site.user_agent must be set")
	}
	if c.Crawl.Delay.Duration < 0 {
		return fmt.Errorf("crawl.delay must be >= 0 (got %s)", c.Crawl.Delay)
	}
	if c.Crawl.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("crawl.request_timeout must be > 0 (got %s)", c.Crawl.RequestTimeout)
	}
	if c.Crawl.MaxBodyBytes <= 0 {
		return fmt.Errorf("crawl.max_body_bytes must be > 0 (got %d)", c.Crawl.MaxBodyBytes)
	}
	if rl := c.Crawl.RateLimit; rl.Requests < 0 {
		return fmt.Errorf("crawl.rate_limit.requests must be >= 0 (got %d)", rl.Requests)
	} else if rl.Requests > 0 && rl.Window.Duration <= 0 {
		return errors.New("crawl.rate_limit.window must be > 0 when requests is set")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1 (got %d)", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialBackoff.Duration <= 0 {
		return fmt.Errorf("retry.initial_backoff must be > 0 (got %s)", c.Retry.InitialBackoff)
	}
	if c.Retry.MaxBackoff.Duration < c.Retry.InitialBackoff.Duration {
		return fmt.Errorf("retry.max_backoff must be >= retry.initial_backoff (got %s)", c.Retry.MaxBackoff)
	}
	if c.Output.Directory == "" {
		return errors.New("output.directory must be set")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json", "console":
	default:
		return fmt.Errorf("unsupported logging.format %q", c.Logging.Format)
	}
	return nil
}
