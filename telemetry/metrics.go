// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	LinesSeen      prometheus.Counter
	TopicsStarted  prometheus.Counter
	CommentsPosted prometheus.Counter
	CommentsFailed prometheus.Counter
	LabelsRemoved  prometheus.Counter

	// Histograms (seconds)
	CommentDuration prometheus.Observer

	// Gauges
	OpenTopicsGauge prometheus.Gauge
	ConnectedGauge  prometheus.Gauge // 1=connected to IRC, 0=not
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		LinesSeen = promauto.NewCounter(prometheus.CounterOpts{Name: "minutebot_lines_seen_total", Help: "Number of channel lines fed to the minuting state machine"})
		TopicsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "minutebot_topics_started_total", Help: "Number of topics started"})
		CommentsPosted = promauto.NewCounter(prometheus.CounterOpts{Name: "minutebot_comments_posted_total", Help: "Number of GitHub comments posted successfully"})
		CommentsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "minutebot_comments_failed_total", Help: "Number of GitHub comment attempts that failed"})
		LabelsRemoved = promauto.NewCounter(prometheus.CounterOpts{Name: "minutebot_labels_removed_total", Help: "Number of Agenda+ labels removed from issues"})
		CommentDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "minutebot_comment_duration_seconds", Help: "GitHub comment task duration seconds", Buckets: prometheus.DefBuckets})
		OpenTopicsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "minutebot_open_topics", Help: "Current number of channels with an open topic"})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "minutebot_irc_connected", Help: "IRC connection up=1 down=0"})
	})
}

// IncLinesSeen counts one line through the state machine.
func IncLinesSeen() {
	if LinesSeen != nil {
		LinesSeen.Inc()
	}
}

// IncTopicsStarted counts one topic start.
func IncTopicsStarted() {
	if TopicsStarted != nil {
		TopicsStarted.Inc()
	}
}

// AddOpenTopics moves the open-topic gauge by delta.
func AddOpenTopics(delta float64) {
	if OpenTopicsGauge != nil {
		OpenTopicsGauge.Add(delta)
	}
}

// IncCommentsPosted counts one successful comment.
func IncCommentsPosted() {
	if CommentsPosted != nil {
		CommentsPosted.Inc()
	}
}

// IncCommentsFailed counts one failed comment attempt.
func IncCommentsFailed() {
	if CommentsFailed != nil {
		CommentsFailed.Inc()
	}
}

// IncLabelsRemoved counts one Agenda+ label removal.
func IncLabelsRemoved() {
	if LabelsRemoved != nil {
		LabelsRemoved.Inc()
	}
}

// SetConnected sets the IRC connection gauge.
func SetConnected(up bool) {
	if ConnectedGauge != nil {
		if up {
			ConnectedGauge.Set(1)
		} else {
			ConnectedGauge.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
