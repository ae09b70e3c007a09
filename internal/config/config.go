package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for librarian.
type Config struct {
	ContentRoot  string          `mapstructure:"content_root"`
	CatalogName  string          `mapstructure:"catalog_name"`
	BaseURL      string          `mapstructure:"base_url"`
	ListingPath  string          `mapstructure:"listing_path"`
	ListingQuery string          `mapstructure:"listing_query"`
	LinkPrefix   string          `mapstructure:"link_prefix"`
	Renderer     string          `mapstructure:"renderer"`
	Headless     bool            `mapstructure:"headless"`
	UserAgent    string          `mapstructure:"user_agent"`
	EntryDelay   time.Duration   `mapstructure:"entry_delay"`
	WaitTimeout  time.Duration   `mapstructure:"wait_timeout"`
	WaitUntil    string          `mapstructure:"wait_until"`
	Limit        int             `mapstructure:"limit"`
	CacheDir     string          `mapstructure:"cache_dir"`
	CacheTTL     time.Duration   `mapstructure:"cache_ttl"`
	NoCache      bool            `mapstructure:"no_cache"`
	RateLimit    float64         `mapstructure:"rate_limit"`
	Selectors    SelectorsConfig `mapstructure:"selectors"`
	Publish      PublishConfig   `mapstructure:"publish"`
	GitHub       GitHubConfig    `mapstructure:"github"`
	LogLevel     string          `mapstructure:"log_level"`
}

// SelectorsConfig locates content in the rendered pages.
type SelectorsConfig struct {
	Container      string        `mapstructure:"container"`
	ListingLinks   string        `mapstructure:"listing_links"`
	Versions       string        `mapstructure:"versions"`
	ExpandTrigger  string        `mapstructure:"expand_trigger"`
	ExpandedRegion string        `mapstructure:"expanded_region"`
	ExpandedLinks  string        `mapstructure:"expanded_links"`
	ExpandTimeout  time.Duration `mapstructure:"expand_timeout"`
}

// PublishConfig controls committing snapshots and opening a pull request.
type PublishConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	RepoPath string `mapstructure:"repo_path"`
	Draft    bool   `mapstructure:"draft"`
}

// GitHubConfig holds GitHub-related settings.
type GitHubConfig struct {
	Token      string `mapstructure:"token"`
	Owner      string `mapstructure:"owner"`
	Repo       string `mapstructure:"repo"`
	BaseBranch string `mapstructure:"base_branch"`
}

var waitPolicies = map[string]bool{"load": true, "domcontentloaded": true, "networkidle": true}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("content_root", "public/data")
	v.SetDefault("catalog_name", "ollama-models")
	v.SetDefault("base_url", "https://ollama.com")
	v.SetDefault("listing_path", "/library")
	v.SetDefault("listing_query", "")
	v.SetDefault("link_prefix", "/library/")
	v.SetDefault("renderer", "playwright")
	v.SetDefault("headless", true)
	v.SetDefault("user_agent", "")
	v.SetDefault("entry_delay", "3s")
	v.SetDefault("wait_timeout", "30s")
	v.SetDefault("wait_until", "networkidle")
	v.SetDefault("limit", 0)
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("no_cache", false)
	v.SetDefault("rate_limit", 1.0)
	v.SetDefault("selectors.container", "main")
	v.SetDefault("selectors.listing_links", `a[href^="/library/"]`)
	v.SetDefault("selectors.versions", `a[href^="/library/{name}:"]`)
	v.SetDefault("selectors.expand_trigger", `button[name="tag"]`)
	v.SetDefault("selectors.expanded_region", "#tags-nav")
	v.SetDefault("selectors.expanded_links", `#tags-nav a[href^="/library/"]`)
	v.SetDefault("selectors.expand_timeout", "1s")
	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.repo_path", ".")
	v.SetDefault("publish.draft", false)
	v.SetDefault("github.base_branch", "main")
	v.SetDefault("log_level", "info")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/librarian")
	}

	// Environment variables
	v.SetEnvPrefix("LIBRARIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("github.token", "GITHUB_TOKEN", "LIBRARIAN_GITHUB_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the crawler cannot run with.
func (c *Config) Validate() error {
	if c.CatalogName == "" {
		return fmt.Errorf("invalid config: catalog_name is empty")
	}
	if c.ContentRoot == "" {
		return fmt.Errorf("invalid config: content_root is empty")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("invalid config: base_url %q is not an http(s) URL", c.BaseURL)
	}
	if !waitPolicies[c.WaitUntil] {
		return fmt.Errorf("invalid config: wait_until %q, expected load, domcontentloaded or networkidle", c.WaitUntil)
	}
	if !logLevels[c.LogLevel] {
		return fmt.Errorf("invalid config: log_level %q", c.LogLevel)
	}
	if c.EntryDelay < 0 || c.WaitTimeout < 0 || c.Selectors.ExpandTimeout < 0 {
		return fmt.Errorf("invalid config: durations must not be negative")
	}
	if c.Limit < 0 {
		return fmt.Errorf("invalid config: limit must not be negative")
	}
	if c.Publish.Enabled && (c.GitHub.Owner == "" || c.GitHub.Repo == "") {
		return fmt.Errorf("invalid config: publish.enabled needs github.owner and github.repo")
	}
	return nil
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "librarian-cache")
	}
	return filepath.Join(home, ".cache", "librarian")
}
