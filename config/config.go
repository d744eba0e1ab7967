// Package config loads the bot configuration and provides a typed Config used
// across the service. Configuration is layered: built-in defaults, then a TOML
// file, then MINUTEBOT_-prefixed environment variables. Secrets (the GitHub
// token and the IRC server password) are read from the environment only and
// never from the file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Version is the bot version, overridable at build time with -ldflags.
var Version = "1.0.0"

// GithubModeReal and GithubModeMock select whether comment tasks talk to the
// real GitHub API or replay comments over chat for testing.
const (
	GithubModeReal = "real"
	GithubModeMock = "mock"
)

// ChannelConfig describes a single IRC channel the bot minutes.
type ChannelConfig struct {
	// Group is the name of the working group that uses this channel. It
	// appears in the header of every posted comment.
	Group string `koanf:"group"`
	// GithubReposAllowed lists "owner/repo" entries the bot may comment on.
	// An entry of the form "owner/*" allows every repo under that owner.
	GithubReposAllowed []string `koanf:"github_repos_allowed"`
	// PublishResolutionsOnly restricts comments to topics that produced at
	// least one resolution, and omits the full IRC log from the comment.
	PublishResolutionsOnly bool `koanf:"publish_resolutions_only"`
}

type Config struct {
	// IRC identity and server.
	Nick     string `koanf:"nick"`
	Username string `koanf:"username"`
	Server   string `koanf:"server"`
	Port     int    `koanf:"port"`
	UseTLS   bool   `koanf:"use_tls"`

	// Source is the URL of the bot's own source repo, reported by "intro".
	Source string `koanf:"source"`
	// Owners are the IRC nicks of the people running the bot.
	Owners []string `koanf:"owners"`

	// GithubUAString is the User-Agent used for GitHub API requests.
	GithubUAString string `koanf:"github_uastring"`
	// GithubMode is "real" or "mock" (see GithubMode* constants).
	GithubMode string `koanf:"github_mode"`

	// ActivityTimeoutMinutes auto-ends a stale open topic after this many
	// minutes without channel activity. 0 disables the timer.
	ActivityTimeoutMinutes int `koanf:"activity_timeout_minutes"`

	// HTTPAddr is the listen address of the health/status/metrics server.
	HTTPAddr string `koanf:"http_addr"`

	// Channels maps channel names ("#css") to their per-channel settings.
	Channels map[string]ChannelConfig `koanf:"channels"`

	// Env-only secrets.
	GithubAccessToken string `koanf:"-"`
	ServerPassword    string `koanf:"-"`
}

// Load reads defaults, then the TOML file at path (or, when path is empty,
// MINUTEBOT_CONFIG / ./minutebot.toml), then MINUTEBOT_-prefixed environment
// variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	_ = k.Load(confmap.Provider(map[string]interface{}{
		"nick":            "minutebot",
		"username":        "minutebot",
		"port":            6697,
		"use_tls":         true,
		"github_uastring": "minutebot/" + Version,
		"github_mode":     GithubModeReal,
		"http_addr":       ":8080",
	}, "."), nil)

	if path == "" {
		path = os.Getenv("MINUTEBOT_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("minutebot.toml"); err == nil {
			path = "minutebot.toml"
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("MINUTEBOT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "MINUTEBOT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.GithubAccessToken = os.Getenv("GITHUB_TOKEN")
	cfg.ServerPassword = os.Getenv("IRC_PASSWORD")

	return &cfg, nil
}

// Validate checks fields required to connect and operate.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server is required")
	}
	if c.Nick == "" {
		return fmt.Errorf("nick is required")
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("at least one [channels.\"#name\"] section is required")
	}
	for name, ch := range c.Channels {
		if !strings.HasPrefix(name, "#") {
			return fmt.Errorf("channel %q must start with '#'", name)
		}
		if ch.Group == "" {
			return fmt.Errorf("channel %q is missing a group name", name)
		}
	}
	if c.GithubMode != GithubModeReal && c.GithubMode != GithubModeMock {
		return fmt.Errorf("github_mode must be %q or %q", GithubModeReal, GithubModeMock)
	}
	if c.GithubMode == GithubModeReal && c.GithubAccessToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is required unless github_mode is %q", GithubModeMock)
	}
	return nil
}

// Channel returns the configuration for a channel, or nil if the channel is
// not configured. Callers rely on nil to produce the "no configuration of
// allowed repositories" chat response.
func (c *Config) Channel(name string) *ChannelConfig {
	ch, ok := c.Channels[name]
	if !ok {
		return nil
	}
	return &ch
}

// ActivityTimeout returns the inactivity timeout as a duration; zero disables
// the activity timer.
func (c *Config) ActivityTimeout() time.Duration {
	return time.Duration(c.ActivityTimeoutMinutes) * time.Minute
}

// Addr returns the IRC server dial address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}
