package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port         string
	APIBaseURL   string
	APITimeout   time.Duration
	SessionDSN   string
	SessionTTL   time.Duration
	LogFile      string
	TemplatesDir string
	StaticDir    string
	RateLimit    int // requests per minute per IP; 0 disables the global limiter
	CookieSecure bool
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	base := strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	dsn := os.Getenv("SESSION_DSN")
	if dsn == "" {
		dsn = "libdesk.db"
	} // sqlite file in project root
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./libdesk.log"
	}
	tmpl := os.Getenv("TEMPLATES_DIR")
	if tmpl == "" {
		tmpl = "./web/templates"
	}
	static := os.Getenv("STATIC_DIR")
	if static == "" {
		static = "./web/static"
	}

	cfg := Config{
		Port:         port,
		APIBaseURL:   base,
		APITimeout:   duration("API_TIMEOUT", 10*time.Second),
		SessionDSN:   dsn,
		SessionTTL:   duration("SESSION_TTL", 12*time.Hour),
		LogFile:      logFile,
		TemplatesDir: tmpl,
		StaticDir:    static,
		RateLimit:    integer("RATE_LIMIT", 120),
		CookieSecure: os.Getenv("COOKIE_SECURE") == "true",
	}
	log.Printf("[config] PORT=%s API_BASE_URL=%s API_TIMEOUT=%s SESSION_DSN=%s SESSION_TTL=%s LOG_FILE=%s RATE_LIMIT=%d",
		cfg.Port, cfg.APIBaseURL, cfg.APITimeout, cfg.SessionDSN, cfg.SessionTTL, cfg.LogFile, cfg.RateLimit)
	return cfg
}

func duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("[warn] %s=%q is not a valid duration, using %s", key, v, def)
		return def
	}
	return d
}

func integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("[warn] %s=%q is not a valid number, using %d", key, v, def)
		return def
	}
	return n
}
