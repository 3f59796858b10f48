// Package config handles standupbot configuration file parsing.
//
// The file defaults to standupbot.yaml in the working directory and contains:
//
//	bot_access_token: "xoxb-..."     - Slack bot token (or SLACK_BOT_TOKEN)
//	post_to_channel: "standup"       - Channel that receives published lists
//	bot_name: "Standup"              - Display name for bot replies
//	log_level: "info"                - debug, info, warn, error
//	metrics_addr: ":9090"            - Prometheus listener, empty to disable
//	state_file: "standupbot.json"    - Task list snapshot, empty to keep lists in memory only
//	reconnect_delay: "10s"           - Delay between connection attempts
//	high_activity_window: "30s"      - How long a command keeps fast polling on
//	fast_poll_interval: "100ms"      - Poll interval while active
//	slow_poll_interval: "1s"         - Poll interval while idle
//
// Environment variables override the file for the token, channel, bot name,
// log level, metrics address and state file.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beadhub/standupbot/internal/logger"
)

// FileName is the default configuration file name.
const FileName = "standupbot.yaml"

// Environment variable names.
const (
	EnvBotToken       = "SLACK_BOT_TOKEN"
	EnvPublishChannel = "STANDUPBOT_PUBLISH_CHANNEL"
	EnvBotName        = "STANDUPBOT_BOT_NAME"
	EnvLogLevel       = "STANDUPBOT_LOG_LEVEL"
	EnvMetricsAddr    = "STANDUPBOT_METRICS_ADDR"
	EnvStateFile      = "STANDUPBOT_STATE_FILE"
)

// customPath holds an optional custom config file path.
// When empty, Load() uses the default FileName.
var customPath string

// SetPath sets a custom config file path for Load() to use.
// Pass an empty string to reset to the default path.
func SetPath(path string) {
	customPath = path
}

// GetPath returns the current config file path.
// Returns the custom path if set, otherwise the default FileName.
func GetPath() string {
	if customPath != "" {
		return customPath
	}
	return FileName
}

var (
	channelNamePattern = regexp.MustCompile(`^#?[a-z0-9][a-z0-9_-]{0,79}$`)
	channelIDPattern   = regexp.MustCompile(`^[CG][A-Z0-9]{8,}$`)
)

// Config represents the standupbot configuration.
type Config struct {
	BotAccessToken     string        `yaml:"bot_access_token"`
	PostToChannel      string        `yaml:"post_to_channel"`
	BotName            string        `yaml:"bot_name,omitempty"`
	LogLevel           string        `yaml:"log_level,omitempty"`
	MetricsAddr        string        `yaml:"metrics_addr,omitempty"`
	StateFile          string        `yaml:"state_file,omitempty"`
	ReconnectDelay     time.Duration `yaml:"reconnect_delay,omitempty"`
	HighActivityWindow time.Duration `yaml:"high_activity_window,omitempty"`
	FastPollInterval   time.Duration `yaml:"fast_poll_interval,omitempty"`
	SlowPollInterval   time.Duration `yaml:"slow_poll_interval,omitempty"`
}

// Default returns a config with every optional field set.
func Default() *Config {
	return &Config{
		BotName:            "Standup",
		LogLevel:           "info",
		ReconnectDelay:     10 * time.Second,
		HighActivityWindow: 30 * time.Second,
		FastPollInterval:   100 * time.Millisecond,
		SlowPollInterval:   time.Second,
	}
}

// Load reads the config file, then applies environment overrides.
// A missing default file is not an error, so the bot can be configured
// from the environment alone. A missing custom file is.
func Load() (*Config, error) {
	cfg, err := LoadFrom(GetPath())
	if err != nil {
		if !os.IsNotExist(err) || customPath != "" {
			return nil, err
		}
		cfg = Default()
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// LoadFrom reads and parses a configuration file from a specific path.
// Fields absent from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err // Return unwrapped for os.IsNotExist() checks
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from the environment. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	override := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	override(EnvBotToken, &c.BotAccessToken)
	override(EnvPublishChannel, &c.PostToChannel)
	override(EnvBotName, &c.BotName)
	override(EnvLogLevel, &c.LogLevel)
	override(EnvMetricsAddr, &c.MetricsAddr)
	override(EnvStateFile, &c.StateFile)
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	if c.BotAccessToken == "" {
		return fmt.Errorf("bot_access_token is required (or set %s)", EnvBotToken)
	}
	if !strings.HasPrefix(c.BotAccessToken, "xox") {
		return fmt.Errorf("bot_access_token must be a Slack token (xoxb-...)")
	}
	if c.PostToChannel == "" {
		return fmt.Errorf("post_to_channel is required (or set %s)", EnvPublishChannel)
	}
	if !IsValidChannel(c.PostToChannel) {
		return fmt.Errorf("post_to_channel must be a channel name (lowercase letters, digits, hyphens, underscores) or a channel ID")
	}
	if c.BotName == "" {
		return fmt.Errorf("bot_name must not be empty")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"reconnect_delay", c.ReconnectDelay},
		{"high_activity_window", c.HighActivityWindow},
		{"fast_poll_interval", c.FastPollInterval},
		{"slow_poll_interval", c.SlowPollInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	return nil
}

// IsValidChannel reports whether s is a channel name, optionally prefixed
// with "#", or a channel ID.
func IsValidChannel(s string) bool {
	return channelNamePattern.MatchString(s) || channelIDPattern.MatchString(s)
}
