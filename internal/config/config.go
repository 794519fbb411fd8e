package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	GenAI     GenAIConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Workers   WorkersConfig
	App       AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	// URL connects with the elevated role that may read and write any row.
	URL string
}

type AuthConfig struct {
	Provider                string
	SupabaseURL             string
	SupabaseAnonKey         string
	FirebaseCredentialsPath string
}

type GenAIConfig struct {
	APIKey string
	Model  string
	RPS    float64
	Burst  int
}

type RedisConfig struct {
	URL     string
	LockTTL time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type WorkersConfig struct {
	OrphanSweepEnabled  bool
	OrphanSweepInterval time.Duration
	OrphanSweepGrace    time.Duration
}

type AppConfig struct {
	Environment string
	LogMode     string
}

const (
	AuthProviderSupabase = "supabase"
	AuthProviderFirebase = "firebase"
)

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv without touching .env files.
func FromEnv(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}
	cfg := &Config{
		Server: ServerConfig{
			Port: e.str("PORT", "18911"),
		},
		Database: DatabaseConfig{
			URL: e.str("DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			Provider:                strings.ToLower(e.str("AUTH_PROVIDER", AuthProviderSupabase)),
			SupabaseURL:             strings.TrimRight(e.str("SUPABASE_URL", ""), "/"),
			SupabaseAnonKey:         e.str("SUPABASE_ANON_KEY", ""),
			FirebaseCredentialsPath: e.str("FIREBASE_CREDENTIALS_PATH", ""),
		},
		GenAI: GenAIConfig{
			APIKey: e.str("GEMINI_API_KEY", ""),
			Model:  e.str("GEMINI_MODEL", "gemini-pro"),
			RPS:    e.float("GEMINI_RPS", 2),
			Burst:  e.int("GEMINI_BURST", 4),
		},
		Redis: RedisConfig{
			URL:     e.str("REDIS_URL", ""),
			LockTTL: e.seconds("MATERIALIZE_LOCK_TTL_SECONDS", 120*time.Second),
		},
		RateLimit: RateLimitConfig{
			RPS:   e.float("RATE_LIMIT_RPS", 1),
			Burst: e.int("RATE_LIMIT_BURST", 5),
		},
		Workers: WorkersConfig{
			OrphanSweepEnabled:  e.bool("ORPHAN_SWEEP_ENABLED", true),
			OrphanSweepInterval: e.seconds("ORPHAN_SWEEP_INTERVAL_SECONDS", time.Hour),
			OrphanSweepGrace:    time.Duration(e.int("ORPHAN_SWEEP_GRACE_MINUTES", 60)) * time.Minute,
		},
		App: AppConfig{
			Environment: e.str("APP_ENV", "development"),
			LogMode:     e.str("LOG_MODE", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Database.URL == "" && c.IsProduction() {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	if c.GenAI.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	switch c.Auth.Provider {
	case AuthProviderSupabase:
		if c.Auth.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if c.Auth.SupabaseAnonKey == "" {
			return fmt.Errorf("SUPABASE_ANON_KEY is required")
		}
	case AuthProviderFirebase:
		if c.Auth.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
		}
	default:
		return fmt.Errorf("invalid AUTH_PROVIDER %q (must be %q or %q)", c.Auth.Provider, AuthProviderSupabase, AuthProviderFirebase)
	}
	return nil
}

type env struct {
	getenv func(string) string
}

func (e env) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e env) int(key string, def int) int {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, def)
		return def
	}
	return n
}

func (e env) float(key string, def float64) float64 {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, def)
		return def
	}
	return f
}

func (e env) bool(key string, def bool) bool {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (e env) seconds(key string, def time.Duration) time.Duration {
	secs := e.int(key, 0)
	if secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}
