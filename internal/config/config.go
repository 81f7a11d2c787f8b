package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	HTTP    HTTPConfig
	DB      DBConfig
	Ingest  IngestConfig
	Plan    PlanConfig
	Tiers   TiersConfig
	Store   StoreConfig
	Tracing TracingConfig
}

type HTTPConfig struct {
	Addr         string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DBConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string
	DSN    string
}

// IngestConfig controls authentication of bot writers.
type IngestConfig struct {
	// SharedSecret authorizes any tenant when presented as a bearer token.
	SharedSecret string
	// AllowLoopback accepts unauthenticated writes from 127.0.0.1/::1.
	// Co-located bot processes rely on this; keep it enabled for them.
	AllowLoopback bool
	// RateLimit is the per-tenant ingest budget per RateWindow.
	RateLimit  int
	RateWindow time.Duration
}

type PlanConfig struct {
	// ResolveTimeout bounds the tier lookup on the write path.
	ResolveTimeout time.Duration
	// CacheTTL controls caller-side caching of resolved tiers.
	CacheTTL time.Duration
}

// TierConfig sets the retention and delivery policy for one tier.
type TierConfig struct {
	TTL             time.Duration
	RealtimeEnabled bool
}

// TiersConfig overrides the per-tier policy table. A tier with a
// non-positive TTL falls back to the compiled-in default.
type TiersConfig struct {
	Free  TierConfig
	Basic TierConfig
	Pro   TierConfig
}

type StoreConfig struct {
	// SweepInterval controls how often expired snapshots are reclaimed.
	// Zero disables the sweeper; expiry is still enforced lazily on read.
	SweepInterval time.Duration
}

type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from the environment, with an optional .env file
// for local development.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ServiceName:    getEnv("SERVICE_NAME", "tunedeck"),
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		HTTP: HTTPConfig{
			Addr:         getEnv("HTTP_ADDR", ":8080"),
			CORSOrigins:  splitList(getEnv("HTTP_CORS_ORIGINS", "")),
			ReadTimeout:  getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("HTTP_WRITE_TIMEOUT", 0),
		},
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DB_DSN", "file:tunedeck.db?cache=shared"),
		},
		Ingest: IngestConfig{
			SharedSecret:  os.Getenv("INGEST_SHARED_SECRET"),
			AllowLoopback: getBool("INGEST_ALLOW_LOOPBACK", true),
			RateLimit:     getInt("INGEST_RATE_LIMIT", 120),
			RateWindow:    getDuration("INGEST_RATE_WINDOW", time.Minute),
		},
		Plan: PlanConfig{
			ResolveTimeout: getDuration("PLAN_RESOLVE_TIMEOUT", 500*time.Millisecond),
			CacheTTL:       getDuration("PLAN_CACHE_TTL", 30*time.Second),
		},
		Tiers: TiersConfig{
			Free: TierConfig{
				TTL:             getDuration("TIER_FREE_TTL", 2*time.Minute),
				RealtimeEnabled: getBool("TIER_FREE_REALTIME", false),
			},
			Basic: TierConfig{
				TTL:             getDuration("TIER_BASIC_TTL", 15*time.Minute),
				RealtimeEnabled: getBool("TIER_BASIC_REALTIME", true),
			},
			Pro: TierConfig{
				TTL:             getDuration("TIER_PRO_TTL", time.Hour),
				RealtimeEnabled: getBool("TIER_PRO_REALTIME", true),
			},
		},
		Store: StoreConfig{
			SweepInterval: getDuration("STORE_SWEEP_INTERVAL", 5*time.Minute),
		},
		Tracing: TracingConfig{
			Enabled:          getBool("TRACING_ENABLED", false),
			ExporterEndpoint: os.Getenv("TRACING_EXPORTER_ENDPOINT"),
			ExporterProtocol: getEnv("TRACING_EXPORTER_PROTOCOL", "grpc"),
			SamplingRatio:    getFloat("TRACING_SAMPLING_RATIO", 1.0),
		},
	}

	return cfg, nil
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
