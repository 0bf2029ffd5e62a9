package moderation_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matcha/internal/config"
	"github.com/oggyb/matcha/internal/logger"
	"github.com/oggyb/matcha/internal/moderation"
)

type recorder struct {
	mu     sync.Mutex
	alerts []moderation.Alert
	status int
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var a moderation.Alert
	_ = json.NewDecoder(req.Body).Decode(&a)

	r.mu.Lock()
	r.alerts = append(r.alerts, a)
	status := r.status
	r.mu.Unlock()

	if status == 0 {
		status = http.StatusAccepted
	}
	w.WriteHeader(status)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

func newSink(t *testing.T, url string, queue int) *moderation.WebhookSink {
	t.Helper()
	cfg := config.New()
	cfg.Moderation.WebhookURL = url
	cfg.Moderation.QueueSize = queue
	cfg.Moderation.Timeout = time.Second
	return moderation.NewWebhookSink(cfg, logger.Discard())
}

func run(t *testing.T, sink *moderation.WebhookSink) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sink.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestWebhookDeliversAlert(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	sink := newSink(t, srv.URL, 8)
	run(t, sink)

	require.NoError(t, sink.Enqueue(context.Background(), moderation.Alert{ReporterID: 1, ReportedID: 2, Reason: "fake profile"}))

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, uint64(1), rec.alerts[0].ReporterID)
	assert.Equal(t, uint64(2), rec.alerts[0].ReportedID)
	assert.Equal(t, "fake profile", rec.alerts[0].Reason)
}

func TestEnqueueNeverBlocks(t *testing.T) {
	sink := newSink(t, "http://127.0.0.1:1", 1) // not running

	require.NoError(t, sink.Enqueue(context.Background(), moderation.Alert{ReporterID: 1, ReportedID: 2}))

	done := make(chan error)
	go func() { done <- sink.Enqueue(context.Background(), moderation.Alert{ReporterID: 1, ReportedID: 3}) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, moderation.ErrQueueFull)
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked")
	}
}

func TestBreakerOpensOnRepeatedFailures(t *testing.T) {
	rec := &recorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	sink := newSink(t, srv.URL, 16)
	run(t, sink)

	for i := 0; i < 8; i++ {
		require.NoError(t, sink.Enqueue(context.Background(), moderation.Alert{ReporterID: 1, ReportedID: uint64(i + 2)}))
	}

	require.Eventually(t, func() bool { return sink.State() == gobreaker.StateOpen }, 2*time.Second, 10*time.Millisecond)
	// the remaining alerts are rejected without reaching the endpoint
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 5, rec.count())
}

func TestLogSink(t *testing.T) {
	sink := moderation.NewLogSink(logger.Discard())
	assert.NoError(t, sink.Enqueue(context.Background(), moderation.Alert{ReporterID: 1, ReportedID: 2}))
}
