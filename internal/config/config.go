// Package config handles WebMCP configuration loading.
//
// A config file is optional. When none is found every setting keeps the
// value from [Default], so a bare `webmcp serve` works with DuckDuckGo
// and no credentials.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted during loading.
const (
	EnvConfigPath = "WEBMCP_CONFIG"
	EnvLogLevel   = "WEBMCP_LOG_LEVEL"
)

// ErrNoConfig is returned by [FindConfig] when no file exists on the
// search path. Callers treat it as "use defaults".
var ErrNoConfig = errors.New("no config file found")

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config or WEBMCP_CONFIG) is checked first.
// Then: ./config.yaml, ~/.config/webmcp/config.yaml, /etc/webmcp/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "webmcp", "config.yaml"))
	}

	paths = append(paths, "/etc/webmcp/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns [ErrNoConfig] (wrapped) if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv(EnvConfigPath)
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfig, DefaultSearchPaths())
}

// Config holds all WebMCP configuration.
type Config struct {
	LogLevel  string       `yaml:"log_level"`
	LogFormat string       `yaml:"log_format"` // text or json
	LogFile   string       `yaml:"log_file"`   // empty logs to stderr
	Search    SearchConfig `yaml:"search"`
	Fetch     FetchConfig  `yaml:"fetch"`
}

// SearchConfig selects and configures the web search backend.
type SearchConfig struct {
	// Provider is the primary backend: duckduckgo, searxng, or brave.
	Provider     string        `yaml:"provider"`
	Timeout      time.Duration `yaml:"timeout"`
	DefaultLimit int           `yaml:"default_limit"`
	// MaxResults is the hard ceiling applied to any requested limit.
	MaxResults int    `yaml:"max_results"`
	Language   string `yaml:"language"`

	DuckDuckGo DuckDuckGoConfig `yaml:"duckduckgo"`
	SearXNG    SearXNGConfig    `yaml:"searxng"`
	Brave      BraveConfig      `yaml:"brave"`
}

// DuckDuckGoConfig configures the keyless HTML endpoint.
type DuckDuckGoConfig struct {
	URL    string `yaml:"url"`
	Region string `yaml:"region"` // kl parameter, e.g. us-en
}

// SearXNGConfig points at a SearXNG instance.
type SearXNGConfig struct {
	URL string `yaml:"url"`
}

// Configured reports whether a SearXNG URL is set.
func (c SearXNGConfig) Configured() bool { return c.URL != "" }

// BraveConfig holds the Brave Search API credentials.
type BraveConfig struct {
	APIKey string `yaml:"api_key"`
}

// Configured reports whether a Brave API key is set.
func (c BraveConfig) Configured() bool { return c.APIKey != "" }

// FetchConfig bounds every outbound page download.
type FetchConfig struct {
	// Timeout applies to url_info requests.
	Timeout time.Duration `yaml:"timeout"`
	// ContentTimeout applies to each result page fetched by web_search.
	ContentTimeout  time.Duration `yaml:"content_timeout"`
	MaxBytes        int64         `yaml:"max_bytes"`
	MaxConcurrency  int           `yaml:"max_concurrency"`
	ContentMaxChars int           `yaml:"content_max_chars"`
	PreviewMaxChars int           `yaml:"preview_max_chars"`
	Extractor       string        `yaml:"extractor"` // readability or basic
	Format          string        `yaml:"format"`    // text or markdown
	UserAgent       string        `yaml:"user_agent"`
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Search: SearchConfig{
			Provider:     "duckduckgo",
			Timeout:      15 * time.Second,
			DefaultLimit: 5,
			MaxResults:   20,
			DuckDuckGo: DuckDuckGoConfig{
				URL: "https://html.duckduckgo.com/html/",
			},
		},
		Fetch: FetchConfig{
			Timeout:         30 * time.Second,
			ContentTimeout:  10 * time.Second,
			MaxBytes:        5 * 1024 * 1024,
			MaxConcurrency:  5,
			ContentMaxChars: 2000,
			PreviewMaxChars: 500,
			Extractor:       "readability",
			Format:          "text",
		},
	}
}

// Load reads configuration from a YAML file on top of [Default].
// A .env file in the working directory, if present, is loaded into the
// environment before ${VAR} references are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	return cfg, nil
}

// loadDotEnv loads .env from the working directory into the
// environment. A missing file is not an error.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

// LoadOrDefault finds and loads the config file. When no file exists
// anywhere on the search path the defaults are returned with an empty
// path. An explicit path that does not exist is still an error.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := FindConfig(explicit)
	if errors.Is(err, ErrNoConfig) {
		if err := loadDotEnv(); err != nil {
			return nil, "", err
		}
		cfg := Default()
		cfg.applyEnv()
		return cfg, "", cfg.Validate()
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, path, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format %q invalid (expected text or json)", c.LogFormat)
	}

	s := c.Search
	switch strings.ToLower(s.Provider) {
	case "duckduckgo":
		if s.DuckDuckGo.URL == "" {
			return fmt.Errorf("search.duckduckgo.url is required")
		}
	case "searxng":
		if !s.SearXNG.Configured() {
			return fmt.Errorf("search.provider is searxng but search.searxng.url is empty")
		}
	case "brave":
		if !s.Brave.Configured() {
			return fmt.Errorf("search.provider is brave but search.brave.api_key is empty")
		}
	default:
		return fmt.Errorf("search.provider %q unknown (expected duckduckgo, searxng, or brave)", s.Provider)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("search.timeout must be positive")
	}
	if s.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive")
	}
	if s.DefaultLimit < 0 || s.DefaultLimit > s.MaxResults {
		return fmt.Errorf("search.default_limit %d out of range 0..%d", s.DefaultLimit, s.MaxResults)
	}

	f := c.Fetch
	if f.Timeout <= 0 || f.ContentTimeout <= 0 {
		return fmt.Errorf("fetch.timeout and fetch.content_timeout must be positive")
	}
	if f.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be positive")
	}
	if f.MaxConcurrency <= 0 {
		return fmt.Errorf("fetch.max_concurrency must be positive")
	}
	if f.ContentMaxChars <= 0 || f.PreviewMaxChars <= 0 {
		return fmt.Errorf("fetch.content_max_chars and fetch.preview_max_chars must be positive")
	}
	switch f.Extractor {
	case "readability", "basic":
	default:
		return fmt.Errorf("fetch.extractor %q invalid (expected readability or basic)", f.Extractor)
	}
	switch f.Format {
	case "text", "markdown":
	default:
		return fmt.Errorf("fetch.format %q invalid (expected text or markdown)", f.Format)
	}

	return nil
}
