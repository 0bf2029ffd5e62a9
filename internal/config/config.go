package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		LogSQL   bool
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	HTTP struct {
		Host string
		Port string
	}

	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
		// HeaderIdentity trusts a plain x-user-id header. Development only.
		HeaderIdentity bool
	}

	Realtime struct {
		SendBuffer     int
		InboundRate    float64
		InboundBurst   int
		AllowedOrigins []string
		// ConnectPerMinute limits websocket handshakes per client IP; 0 disables.
		ConnectPerMinute int
	}

	Moderation struct {
		WebhookURL string
		QueueSize  int
		Timeout    time.Duration
	}

	Visits struct {
		DedupWindow time.Duration
	}

	Notifications struct {
		ListLimit int
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "matcha")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "matcha")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}
	cfg.DB.LogSQL = isTruthy(os.Getenv("DB_LOG_SQL"))

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// HTTP (websocket, metrics, health)
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	// Auth
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.Auth.TokenTTL = getEnvDuration("JWT_TTL", 24*time.Hour)
	cfg.Auth.HeaderIdentity = isTruthy(getEnvDefault("AUTH_HEADER_IDENTITY", "false"))

	// Realtime
	cfg.Realtime.SendBuffer = getEnvInt("WS_SEND_BUFFER", 64)
	cfg.Realtime.InboundRate = getEnvFloat("WS_INBOUND_RATE", 5)
	cfg.Realtime.InboundBurst = getEnvInt("WS_INBOUND_BURST", 10)
	cfg.Realtime.AllowedOrigins = splitList(getEnvDefault("WS_ALLOWED_ORIGINS", "http://localhost:5173"))
	cfg.Realtime.ConnectPerMinute = getEnvInt("WS_CONNECT_PER_MINUTE", 30)

	// Moderation
	cfg.Moderation.WebhookURL = os.Getenv("MODERATION_WEBHOOK_URL")
	cfg.Moderation.QueueSize = getEnvInt("MODERATION_QUEUE_SIZE", 128)
	cfg.Moderation.Timeout = getEnvDuration("MODERATION_TIMEOUT", 5*time.Second)

	cfg.Visits.DedupWindow = getEnvDuration("VISIT_DEDUP_WINDOW", time.Hour)
	cfg.Notifications.ListLimit = getEnvInt("NOTIFICATIONS_LIST_LIMIT", 50)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v, err := strconv.ParseFloat(getEnvDefault(k, ""), 64); err == nil {
		return v
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
