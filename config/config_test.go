package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minutebot.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `server = "irc.example.org"`))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Nick != "minutebot" {
		t.Errorf("Nick = %q, want default minutebot", cfg.Nick)
	}
	if cfg.Port != 6697 || !cfg.UseTLS {
		t.Errorf("expected default TLS port 6697, got %d tls=%v", cfg.Port, cfg.UseTLS)
	}
	if cfg.GithubMode != GithubModeReal {
		t.Errorf("GithubMode = %q, want %q", cfg.GithubMode, GithubModeReal)
	}
	if cfg.Addr() != "irc.example.org:6697" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoadChannels(t *testing.T) {
	path := writeConfig(t, `
server = "irc.w3.org"
port = 6679
use_tls = false
activity_timeout_minutes = 10
owners = ["dbaron"]

[channels."#css"]
group = "CSS Working Group"
github_repos_allowed = ["w3c/csswg-drafts", "w3c/*"]

[channels."#apa"]
group = "APA Working Group"
github_repos_allowed = ["w3c/apa"]
publish_resolutions_only = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	css := cfg.Channel("#css")
	if css == nil {
		t.Fatal("Channel(#css) = nil")
	}
	if css.Group != "CSS Working Group" {
		t.Errorf("group = %q", css.Group)
	}
	if len(css.GithubReposAllowed) != 2 {
		t.Errorf("allowed repos = %v", css.GithubReposAllowed)
	}
	if css.PublishResolutionsOnly {
		t.Error("#css should not be resolutions-only")
	}
	apa := cfg.Channel("#apa")
	if apa == nil || !apa.PublishResolutionsOnly {
		t.Errorf("#apa should be resolutions-only, got %+v", apa)
	}
	if cfg.Channel("#unknown") != nil {
		t.Error("Channel(#unknown) should be nil")
	}
	if got := cfg.ActivityTimeout(); got != 10*time.Minute {
		t.Errorf("ActivityTimeout() = %v", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MINUTEBOT_NICK", "gh-minutes")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	cfg, err := Load(writeConfig(t, `server = "irc.example.org"`))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Nick != "gh-minutes" {
		t.Errorf("Nick = %q, want env override gh-minutes", cfg.Nick)
	}
	if cfg.GithubAccessToken != "ghp_test" {
		t.Errorf("GithubAccessToken not read from env")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Nick:       "minutebot",
			Server:     "irc.w3.org",
			GithubMode: GithubModeMock,
			Channels: map[string]ChannelConfig{
				"#css": {Group: "CSS Working Group"},
			},
		}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.Server = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing server accepted")
	}

	cfg = base()
	cfg.Channels = nil
	if err := cfg.Validate(); err == nil {
		t.Error("missing channels accepted")
	}

	cfg = base()
	cfg.Channels = map[string]ChannelConfig{"css": {Group: "g"}}
	if err := cfg.Validate(); err == nil {
		t.Error("channel without # accepted")
	}

	cfg = base()
	cfg.GithubMode = GithubModeReal
	if err := cfg.Validate(); err == nil {
		t.Error("real mode without GITHUB_TOKEN accepted")
	}
}
