// Package moderation forwards user reports to whoever reviews them.
package moderation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oggyb/matcha/internal/metrics"
)

// ErrQueueFull is returned by Enqueue when the sink cannot take more alerts.
var ErrQueueFull = errors.New("moderation queue is full")

// Alert is raised once per first report of a pair.
type Alert struct {
	ReporterID uint64    `json:"reporter_id"`
	ReportedID uint64    `json:"reported_id"`
	Reason     string    `json:"reason"`
	ReportedAt time.Time `json:"reported_at"`
}

// Sink accepts alerts without blocking the caller. Delivery is best-effort.
type Sink interface {
	Enqueue(ctx context.Context, a Alert) error
}

// LogSink writes alerts to the log. Used when no webhook is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Enqueue(_ context.Context, a Alert) error {
	s.logger.Warn("user reported",
		"reporter_id", a.ReporterID,
		"reported_id", a.ReportedID,
		"reason", a.Reason,
	)
	metrics.ModerationAlerts.WithLabelValues("sent").Inc()
	return nil
}
