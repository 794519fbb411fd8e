package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/cors"

	"github.com/PortNumber53/content-calendar/internal/auth"
	"github.com/PortNumber53/content-calendar/internal/calendar"
	"github.com/PortNumber53/content-calendar/internal/config"
	"github.com/PortNumber53/content-calendar/internal/genai"
	"github.com/PortNumber53/content-calendar/internal/handlers"
	"github.com/PortNumber53/content-calendar/internal/logger"
	"github.com/PortNumber53/content-calendar/internal/middleware"
	"github.com/PortNumber53/content-calendar/internal/redislock"
	"github.com/PortNumber53/content-calendar/internal/store"
	"github.com/PortNumber53/content-calendar/internal/store/memory"
	"github.com/PortNumber53/content-calendar/internal/workers"
)

func main() {
	if err := run(defaultDeps()); err != nil {
		log.Fatal(err)
	}
}

// calendarStore is what both the Postgres and the in-memory store provide.
type calendarStore interface {
	calendar.Store
	handlers.Reader
	workers.OrphanSweeper
}

type deps struct {
	loadEnv        func(...string) error
	getenv         func(string) string
	newLogger      func(mode string) (*logger.Logger, error)
	openDB         func(driverName, dataSourceName string) (*sql.DB, error)
	migrateUp      func(*sql.DB) error
	newVerifier    func(context.Context, config.AuthConfig) (auth.Verifier, error)
	newGenerator   func(context.Context, config.GenAIConfig, *logger.Logger) (calendar.Generator, error)
	newLocker      func(context.Context, config.RedisConfig, *logger.Logger) (calendar.Locker, func(), error)
	listenAndServe func(*http.Server) error
	notify         func(chan<- os.Signal, ...os.Signal)
	stopCh         chan os.Signal
}

func defaultDeps() deps {
	return deps{
		loadEnv:        godotenv.Load,
		getenv:         os.Getenv,
		newLogger:      logger.New,
		openDB:         sql.Open,
		migrateUp:      migrateUp,
		newVerifier:    newVerifier,
		newGenerator:   newGenerator,
		newLocker:      newLocker,
		listenAndServe: func(s *http.Server) error { return s.ListenAndServe() },
		notify:         signal.Notify,
	}
}

func run(d deps) error {
	if d.loadEnv != nil {
		_ = d.loadEnv()
	}
	if d.getenv == nil {
		return fmt.Errorf("getenv dependency is required")
	}
	cfg, err := config.FromEnv(d.getenv)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lg := logger.Nop()
	if d.newLogger != nil {
		if lg, err = d.newLogger(cfg.App.LogMode); err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
	}
	defer lg.Sync()

	// Root context for background workers and graceful shutdown
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := openStore(rootCtx, cfg, d, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	if d.newVerifier == nil || d.newGenerator == nil {
		return fmt.Errorf("newVerifier and newGenerator dependencies are required")
	}
	verifier, err := d.newVerifier(rootCtx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to init auth provider %s: %w", cfg.Auth.Provider, err)
	}
	gen, err := d.newGenerator(rootCtx, cfg.GenAI, lg)
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	var matOpts []calendar.MaterializerOption
	if cfg.Redis.URL != "" && d.newLocker != nil {
		locker, closeLocker, err := d.newLocker(rootCtx, cfg.Redis, lg)
		if err != nil {
			return fmt.Errorf("failed to init redis lock: %w", err)
		}
		defer closeLocker()
		matOpts = append(matOpts, calendar.WithLocker(locker))
		lg.Info("materialize lock enabled", "ttl", cfg.Redis.LockTTL)
	}

	h := handlers.New(
		auth.NewAuthenticator(verifier),
		calendar.NewPlanner(gen, st, lg),
		calendar.NewMaterializer(gen, st, lg, matOpts...),
		st,
		lg,
	)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	r := buildRouter(h, limiter.Middleware)

	srv := &http.Server{
		Handler:      withCORS(middleware.RequestLogger(lg)(r)),
		Addr:         ":" + cfg.Server.Port,
		WriteTimeout: 90 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	if cfg.Workers.OrphanSweepEnabled {
		w := &workers.OrphanCalendarWorker{
			Store:    st,
			Grace:    cfg.Workers.OrphanSweepGrace,
			Interval: cfg.Workers.OrphanSweepInterval,
			Log:      lg,
		}
		go w.Start(rootCtx)
	} else {
		lg.Info("orphan sweeper disabled via ORPHAN_SWEEP_ENABLED")
	}

	// Handle graceful shutdown on SIGINT/SIGTERM
	stop := d.stopCh
	if stop == nil {
		stop = make(chan os.Signal, 1)
	}
	if d.notify != nil {
		d.notify(stop, os.Interrupt, syscall.SIGTERM)
	}
	go func() {
		<-stop
		lg.Info("shutting down server")
		cancel()
		ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := srv.Shutdown(ctx); err != nil {
			lg.Error("server shutdown error", "error", err)
		}
	}()

	if d.listenAndServe == nil {
		return fmt.Errorf("listenAndServe dependency is required")
	}
	lg.Info("server starting", "port", cfg.Server.Port, "env", cfg.App.Environment)
	if err := d.listenAndServe(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	lg.Info("server stopped")
	return nil
}

// openStore connects to Postgres and migrates it, or falls back to the
// in-memory store when DATABASE_URL is unset.
func openStore(ctx context.Context, cfg *config.Config, d deps, lg *logger.Logger) (calendarStore, func(), error) {
	if cfg.Database.URL == "" {
		lg.Warn("DATABASE_URL not set, using in-memory store")
		return memory.New(), func() {}, nil
	}
	if d.openDB == nil {
		return nil, nil, fmt.Errorf("openDB dependency is required")
	}
	db, err := d.openDB("postgres", cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if d.migrateUp != nil {
		if err := d.migrateUp(db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
		lg.Info("database is up-to-date")
	}
	return store.New(db), func() { _ = db.Close() }, nil
}

func buildRouter(h *handlers.Handler, limit func(http.Handler) http.Handler) *mux.Router {
	r := mux.NewRouter()
	handlers.RegisterRoutes(h, r, limit)
	return r
}

func withCORS(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "apikey", "x-client-info"},
		AllowCredentials: true,
	})
	return c.Handler(next)
}

func migrateUp(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://db/migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func newVerifier(ctx context.Context, cfg config.AuthConfig) (auth.Verifier, error) {
	switch cfg.Provider {
	case config.AuthProviderFirebase:
		return auth.NewFirebaseVerifier(ctx, cfg.FirebaseCredentialsPath)
	case config.AuthProviderSupabase:
		return auth.NewSupabaseVerifier(cfg.SupabaseURL, cfg.SupabaseAnonKey), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Provider)
	}
}

func newGenerator(ctx context.Context, cfg config.GenAIConfig, lg *logger.Logger) (calendar.Generator, error) {
	return genai.NewGeminiClient(ctx, genai.Config{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
		RPS:    cfg.RPS,
		Burst:  cfg.Burst,
	}, lg)
}

func newLocker(ctx context.Context, cfg config.RedisConfig, lg *logger.Logger) (calendar.Locker, func(), error) {
	client, err := redislock.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	return redislock.New(client, cfg.LockTTL, lg), func() { _ = client.Close() }, nil
}
