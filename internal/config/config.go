package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	BlobBasePath string // uploaded course material

	CacheURL string // empty disables the statistics cache
	CacheTTL time.Duration

	GeminiAPIKey  string
	GeminiBaseURL string // override for tests and proxies
	GeminiModel   string
	AITimeout     time.Duration

	AuthHMACSecret string
	SeedDemoUsers  bool

	FallbackQuizPath string // optional JSON served when generation output is unusable

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:         addr,
		DBDriver:         envOr("DB_DRIVER", "sqlite"),
		DBDSN:            envOr("DB_DSN", ""),
		BlobBasePath:     envOr("BLOB_BASE_PATH", "./data"),
		CacheURL:         os.Getenv("CACHE_URL"),
		CacheTTL:         envDuration("CACHE_TTL_SEC", 300),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:    os.Getenv("GEMINI_BASE_URL"),
		GeminiModel:      envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		AITimeout:        envDuration("AI_TIMEOUT_SEC", 120),
		AuthHMACSecret:   envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		SeedDemoUsers:    envBool("SEED_DEMO_USERS", true),
		FallbackQuizPath: os.Getenv("FALLBACK_QUIZ_PATH"),
		CORSOrigins:      csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envDuration(k string, defSec int) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defSec) * time.Second
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
