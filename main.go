// Command minutebot is the IRC meeting-minutes bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to the configured IRC server, joins the configured channels,
//     and minutes their discussions topic by topic.
//   - Posts each discussion of a GitHub issue as a comment on that issue
//     (or replays it locally in mock mode).
//   - Exposes a minimal HTTP server with /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wgmeet/minutebot/chat"
	"github.com/wgmeet/minutebot/config"
	"github.com/wgmeet/minutebot/githubapi"
	"github.com/wgmeet/minutebot/minutes"
	"github.com/wgmeet/minutebot/server"
	"github.com/wgmeet/minutebot/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config; the path may come from argv for compatibility with init scripts,
	// otherwise MINUTEBOT_CONFIG or ./minutebot.toml.
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("minutebot", config.Version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wiring: the IRC client is the registry's sender, the GitHub client is
	// its commenter, and the client needs both back for command handling.
	ircClient := chat.NewClient(cfg)
	gh := githubapi.NewClient(cfg, ircClient)
	registry := minutes.NewRegistry(cfg, ircClient, gh)
	ircClient.Bind(registry, gh)

	if cfg.GithubMode == config.GithubModeMock {
		slog.Warn("running in mock github mode; comments will be replayed over IRC instead of posted")
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/status/metrics)
	go func() {
		if err := server.Start(ctx, cfg, registry); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// IRC connection; a clean exit here (QUIT on shutdown) ends the process.
	if err := ircClient.Run(ctx); err != nil {
		slog.Error("irc client exited with error", slog.Any("err", err))
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("shutting down")
}
