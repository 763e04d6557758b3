package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/orion-content/orion/internal/models"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	API       API       `yaml:"api"`
	Sites     Sites     `yaml:"sites"`
	Scheduler Scheduler `yaml:"scheduler"`
	Quality   Quality   `yaml:"quality"`
	Research  Research  `yaml:"research"`
	Trends    Trends    `yaml:"trends"`
	Output    Output    `yaml:"output"`
	Logging   Logging   `yaml:"logging"`
}

type API struct {
	BaseURL  string `yaml:"base_url"`
	TokenEnv string `yaml:"token_env"`
}

// Token reads the API token from the configured environment variable.
func (a API) Token() string {
	return os.Getenv(a.TokenEnv)
}

type Sites struct {
	List     []string     `yaml:"list"`
	Defaults SiteDefaults `yaml:"defaults"`
	Entries  []SiteEntry  `yaml:"entries"`
}

// Entry returns the configured entry for a site key, or nil.
func (s Sites) Entry(key string) *SiteEntry {
	for i := range s.Entries {
		if s.Entries[i].Key == key {
			return &s.Entries[i]
		}
	}
	return nil
}

type SiteDefaults struct {
	TopicCount     string `yaml:"topic_count"`
	PromptStrategy string `yaml:"prompt_strategy"`
}

type SiteEntry struct {
	Key            string          `yaml:"key"`
	Cron           string          `yaml:"cron"`
	TopicCount     string          `yaml:"topic_count"`
	PromptStrategy string          `yaml:"prompt_strategy"`
	WordPress      WordPress       `yaml:"wordpress"`
	Strategy       models.Strategy `yaml:"strategy"`
}

type WordPress struct {
	BaseURL     string `yaml:"base_url"`
	Username    string `yaml:"username"`
	AppPassword string `yaml:"app_password"`
}

type Scheduler struct {
	Parallel         bool `yaml:"parallel"`
	MaxWorkers       int  `yaml:"max_workers"`
	JitterMaxSeconds int  `yaml:"jitter_max_seconds"`
}

type Quality struct {
	OriginalityProvider string `yaml:"originality_provider"`
}

type Research struct {
	Enabled   bool     `yaml:"enabled"`
	APIKeyEnv string   `yaml:"api_key_env"`
	Topics    []string `yaml:"topics"`
}

type Trends struct {
	Feeds []Feed `yaml:"feeds"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// FeedURLs returns the configured trend feed URLs.
func (t Trends) FeedURLs() []string {
	urls := make([]string, 0, len(t.Feeds))
	for _, f := range t.Feeds {
		if f.URL != "" {
			urls = append(urls, f.URL)
		}
	}
	return urls
}

// ConfigDir returns the XDG config directory for orion.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "orion")
}

// DataDir returns the XDG data directory for orion.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "orion")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/orion/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'orion init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		API: API{
			BaseURL:  "http://localhost:3000",
			TokenEnv: "ORION_API_TOKEN",
		},
		Sites: Sites{
			Defaults: SiteDefaults{
				TopicCount:     "5",
				PromptStrategy: "default",
			},
		},
		Scheduler: Scheduler{
			MaxWorkers:       3,
			JitterMaxSeconds: 180,
		},
		Research: Research{APIKeyEnv: "PERPLEXITY_API_KEY"},
		Logging:  Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// ValidationError reports an invalid config field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
}

// cronParser accepts the standard 5-field cron format.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Validate checks field formats: cron specs, topic counts, worker limits.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return ValidationError{Field: "api.base_url", Msg: "must not be empty"}
	}
	if c.Scheduler.MaxWorkers < 1 {
		return ValidationError{Field: "scheduler.max_workers", Msg: "must be at least 1"}
	}
	if c.Scheduler.JitterMaxSeconds < 0 {
		return ValidationError{Field: "scheduler.jitter_max_seconds", Msg: "must not be negative"}
	}
	if c.Sites.Defaults.TopicCount != "" {
		if _, _, err := ParseTopicCount(c.Sites.Defaults.TopicCount); err != nil {
			return ValidationError{Field: "sites.defaults.topic_count", Msg: err.Error()}
		}
	}
	for _, entry := range c.Sites.Entries {
		if entry.Key == "" {
			return ValidationError{Field: "sites.entries", Msg: "entry without a key"}
		}
		if entry.Cron != "" {
			if _, err := cronParser.Parse(entry.Cron); err != nil {
				return ValidationError{
					Field: "sites.entries." + entry.Key + ".cron",
					Msg:   fmt.Sprintf("invalid cron spec %q: %v", entry.Cron, err),
				}
			}
		}
		if entry.TopicCount != "" {
			if _, _, err := ParseTopicCount(entry.TopicCount); err != nil {
				return ValidationError{
					Field: "sites.entries." + entry.Key + ".topic_count",
					Msg:   err.Error(),
				}
			}
		}
	}
	return nil
}

// ParseTopicCount parses a fixed count ("5") or a range ("3-7"). Counts must
// fall in [1,20] and ranges must not be inverted.
func ParseTopicCount(s string) (min, max int, err error) {
	s = strings.TrimSpace(s)
	if lo, hi, ok := strings.Cut(s, "-"); ok {
		min, err = strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid topic count range %q", s)
		}
		max, err = strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid topic count range %q", s)
		}
	} else {
		min, err = strconv.Atoi(s)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid topic count %q", s)
		}
		max = min
	}
	if min < 1 || max > 20 || min > max {
		return 0, 0, fmt.Errorf("topic count %q out of range (1-20)", s)
	}
	return min, max, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
