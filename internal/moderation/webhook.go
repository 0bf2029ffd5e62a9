package moderation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/oggyb/matcha/internal/config"
	"github.com/oggyb/matcha/internal/metrics"
)

const breakerName = "moderation-webhook"

// WebhookSink POSTs alerts as JSON to an external endpoint from a single
// worker. Enqueue only touches the bounded queue.
type WebhookSink struct {
	url    string
	client *http.Client
	queue  chan Alert
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger *slog.Logger
}

// NewWebhookSink creates the sink. Call Run to start delivering.
//
// Circuit breaker configuration:
//   - Opens after 5 consecutive failures
//   - 30 seconds before trying again (half-open, 1 probe)
func NewWebhookSink(cfg *config.Config, logger *slog.Logger) *WebhookSink {
	size := cfg.Moderation.QueueSize
	if size <= 0 {
		size = 128
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &WebhookSink{
		url:    cfg.Moderation.WebhookURL,
		client: &http.Client{Timeout: cfg.Moderation.Timeout},
		queue:  make(chan Alert, size),
		cb:     cb,
		logger: logger,
	}
}

// Enqueue never blocks; a full queue drops the alert and returns ErrQueueFull.
func (s *WebhookSink) Enqueue(_ context.Context, a Alert) error {
	select {
	case s.queue <- a:
		return nil
	default:
		metrics.ModerationAlerts.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Run delivers queued alerts until ctx is done. Failures are logged, never
// retried; the breaker stops hammering a dead endpoint.
func (s *WebhookSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case a := <-s.queue:
			s.deliver(ctx, a)
		}
	}
}

func (s *WebhookSink) deliver(ctx context.Context, a Alert) {
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, a)
	})
	switch {
	case err == nil:
		metrics.ModerationAlerts.WithLabelValues("sent").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ModerationAlerts.WithLabelValues("rejected").Inc()
		s.logger.Warn("moderation alert rejected by circuit breaker",
			"reporter_id", a.ReporterID, "reported_id", a.ReportedID)
	default:
		metrics.ModerationAlerts.WithLabelValues("failed").Inc()
		s.logger.Warn("moderation alert failed",
			"reporter_id", a.ReporterID, "reported_id", a.ReportedID, "err", err)
	}
}

func (s *WebhookSink) post(ctx context.Context, a Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

// State exposes the breaker state for health output and tests.
func (s *WebhookSink) State() gobreaker.State {
	return s.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
