package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSessionSecret signs cookies when SESSION_SECRET is unset.
// It is meant for local development only.
const DefaultSessionSecret = "bff-default-dev-secret-change-me"

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Upstream commerce API
	APIURL           string
	TenantID         string // tenant queried by the dashboard
	RegisterTenantID string // tenant new accounts are created in

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxConcurrency int

	// Workspaces / cookies
	SessionTTL     time.Duration
	SessionSecret  string
	CookieSecure   bool
	RestoreSession bool // recover the session from the token cookie on a fresh workspace

	// Rendering
	RenderWait  time.Duration // how long a page waits for in-flight fetches
	ChartWidth  int
	ChartHeight int

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		APIURL:           strings.TrimRight(v.GetString("API_URL"), "/"),
		TenantID:         v.GetString("TENANT_ID"),
		RegisterTenantID: v.GetString("REGISTER_TENANT_ID"),

		HTTPTimeout: v.GetDuration("HTTP_TIMEOUT"),

		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),

		SessionTTL:     v.GetDuration("SESSION_TTL"),
		SessionSecret:  v.GetString("SESSION_SECRET"),
		CookieSecure:   v.GetBool("COOKIE_SECURE"),
		RestoreSession: v.GetBool("RESTORE_SESSION"),

		RenderWait:  v.GetDuration("RENDER_WAIT"),
		ChartWidth:  v.GetInt("CHART_WIDTH"),
		ChartHeight: v.GetInt("CHART_HEIGHT"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("API_URL", "http://localhost:5000")
	v.SetDefault("TENANT_ID", "sneha-xeno-store")
	v.SetDefault("REGISTER_TENANT_ID", "default")

	v.SetDefault("HTTP_TIMEOUT", 10*time.Second)
	v.SetDefault("MAX_CONCURRENCY", 50)

	v.SetDefault("SESSION_TTL", 24*time.Hour)
	v.SetDefault("SESSION_SECRET", DefaultSessionSecret)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("RESTORE_SESSION", false)

	v.SetDefault("RENDER_WAIT", 2*time.Second)
	v.SetDefault("CHART_WIDTH", 600)
	v.SetDefault("CHART_HEIGHT", 300)

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
}
