package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/PortNumber53/content-calendar/internal/auth"
	"github.com/PortNumber53/content-calendar/internal/calendar"
	"github.com/PortNumber53/content-calendar/internal/config"
	"github.com/PortNumber53/content-calendar/internal/handlers"
	"github.com/PortNumber53/content-calendar/internal/logger"
)

type nopVerifier struct{}

func (nopVerifier) Verify(context.Context, string) (auth.Principal, error) {
	return auth.Principal{ID: "u1"}, nil
}

type nopGenerator struct{}

func (nopGenerator) GenerateText(context.Context, string) (string, error) { return "", nil }
func (nopGenerator) GenerateJSON(context.Context, string) (string, error) { return "[]", nil }

func testEnv(extra map[string]string) func(string) string {
	env := map[string]string{
		"GEMINI_API_KEY":       "k",
		"SUPABASE_URL":         "https://example.supabase.co",
		"SUPABASE_ANON_KEY":    "anon",
		"ORPHAN_SWEEP_ENABLED": "false",
	}
	for k, v := range extra {
		env[k] = v
	}
	return func(k string) string { return env[k] }
}

func testDeps(getenv func(string) string) deps {
	stop := make(chan os.Signal, 1)
	stop <- os.Interrupt
	return deps{
		getenv: getenv,
		newVerifier: func(context.Context, config.AuthConfig) (auth.Verifier, error) {
			return nopVerifier{}, nil
		},
		newGenerator: func(context.Context, config.GenAIConfig, *logger.Logger) (calendar.Generator, error) {
			return nopGenerator{}, nil
		},
		listenAndServe: func(*http.Server) error { return http.ErrServerClosed },
		stopCh:         stop,
	}
}

func TestBuildRouter_HealthOK(t *testing.T) {
	r := buildRouter(handlers.New(nil, nil, nil, nil, nil), nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body == "" || body[0] != '{' {
		t.Fatalf("expected json response, got %q", body)
	}
}

func TestWithCORS_Preflight(t *testing.T) {
	h := withCORS(buildRouter(handlers.New(nil, nil, nil, nil, nil), nil))
	req := httptest.NewRequest(http.MethodOptions, "/create-calendar", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected CORS headers, got %#v", rr.Header())
	}
}

func TestRun_Smoke_NoRealListen(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectClose()

	d := testDeps(testEnv(map[string]string{"DATABASE_URL": "postgres://example"}))
	var migrated bool
	d.openDB = func(driverName, dataSourceName string) (*sql.DB, error) {
		if driverName != "postgres" || dataSourceName != "postgres://example" {
			t.Fatalf("unexpected open %q %q", driverName, dataSourceName)
		}
		return db, nil
	}
	d.migrateUp = func(*sql.DB) error { migrated = true; return nil }

	if err := run(d); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if !migrated {
		t.Fatalf("expected migrations to run")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestRun_InMemoryWithoutDatabaseURL(t *testing.T) {
	d := testDeps(testEnv(nil))
	d.openDB = func(string, string) (*sql.DB, error) {
		t.Fatalf("openDB should not be called without DATABASE_URL")
		return nil, nil
	}
	if err := run(d); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	d := testDeps(func(string) string { return "" })
	if err := run(d); err == nil {
		t.Fatalf("expected error without GEMINI_API_KEY")
	}
}

func TestRun_MissingOpenDB(t *testing.T) {
	d := testDeps(testEnv(map[string]string{"DATABASE_URL": "postgres://example"}))
	if err := run(d); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRun_MigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()

	d := testDeps(testEnv(map[string]string{"DATABASE_URL": "postgres://example"}))
	d.openDB = func(string, string) (*sql.DB, error) { return db, nil }
	d.migrateUp = func(*sql.DB) error { return errors.New("dirty") }
	if err := run(d); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRun_ListenError(t *testing.T) {
	d := testDeps(testEnv(nil))
	d.stopCh = make(chan os.Signal, 1)
	d.listenAndServe = func(*http.Server) error { return errors.New("address in use") }
	if err := run(d); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDefaultDeps_HasRequiredFields(t *testing.T) {
	d := defaultDeps()
	if d.getenv == nil || d.openDB == nil || d.migrateUp == nil || d.listenAndServe == nil || d.notify == nil ||
		d.newVerifier == nil || d.newGenerator == nil || d.newLocker == nil || d.newLogger == nil {
		t.Fatalf("expected all default deps to be non-nil: %#v", d)
	}
}

func TestMigrateUp_NilDB(t *testing.T) {
	if err := migrateUp(nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewVerifier(t *testing.T) {
	v, err := newVerifier(context.Background(), config.AuthConfig{Provider: config.AuthProviderSupabase, SupabaseURL: "https://x", SupabaseAnonKey: "a"})
	if err != nil || v == nil {
		t.Fatalf("expected supabase verifier, got %v %v", v, err)
	}
	if _, err := newVerifier(context.Background(), config.AuthConfig{Provider: "ldap"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	if _, err := newVerifier(context.Background(), config.AuthConfig{Provider: config.AuthProviderFirebase}); err == nil {
		t.Fatalf("expected error without credentials path")
	}
}
