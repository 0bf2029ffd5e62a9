package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("DB_NAME", "")

	cfg := New()

	assert.Equal(t, "50051", cfg.GRPC.Port)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, time.Hour, cfg.Visits.DedupWindow)
	assert.Equal(t, 50, cfg.Notifications.ListLimit)
	assert.Contains(t, cfg.DB.DSN, "/matcha?parseTime=true")
	assert.False(t, cfg.Auth.HeaderIdentity)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("MYSQL_DSN", "u:p@tcp(db:3306)/x")
	t.Setenv("VISIT_DEDUP_WINDOW", "30m")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("AUTH_HEADER_IDENTITY", "yes")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := New()

	assert.Equal(t, "u:p@tcp(db:3306)/x", cfg.DB.DSN)
	assert.Equal(t, 30*time.Minute, cfg.Visits.DedupWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Realtime.AllowedOrigins)
	assert.True(t, cfg.Auth.HeaderIdentity)
	assert.Equal(t, 0, cfg.Redis.DB)
}
