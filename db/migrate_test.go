package main

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-migrate/migrate/v4"
)

type recordingMigrator struct {
	calls   []string
	steps   []int
	forced  []int
	version uint
	dirty   bool
	err     error
}

func (m *recordingMigrator) Up() error   { m.calls = append(m.calls, "up"); return m.err }
func (m *recordingMigrator) Down() error { m.calls = append(m.calls, "down"); return m.err }

func (m *recordingMigrator) Steps(n int) error {
	m.steps = append(m.steps, n)
	return m.err
}

func (m *recordingMigrator) Force(v int) error {
	m.forced = append(m.forced, v)
	return m.err
}

func (m *recordingMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

// harness wires the command to sqlmock and a recording migrator.
type harness struct {
	m       *recordingMigrator
	source  string
	opened  int
	dbURL   string
	openErr error
}

func (h *harness) deps(t *testing.T) deps {
	t.Helper()
	return deps{
		getenv: func(k string) string {
			if k == "DATABASE_URL" {
				return h.dbURL
			}
			return ""
		},
		openDB: func(string, string) (*sql.DB, error) {
			h.opened++
			if h.openErr != nil {
				return nil, h.openErr
			}
			db, _, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			return db, nil
		},
		newMigrator: func(_ *sql.DB, source string) (migrator, error) {
			h.source = source
			return h.m, nil
		},
	}
}

func execCommand(t *testing.T, d deps, args ...string) (string, error) {
	t.Helper()
	cmd := newCommand(d)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommand_Flags(t *testing.T) {
	cmd := newCommand(deps{})
	if !cmd.SilenceUsage || !cmd.SilenceErrors {
		t.Fatalf("usage and errors must be silenced")
	}
	for name, want := range map[string]string{
		"direction":   "up",
		"steps":       "0",
		"force":       "0",
		"force-dirty": "false",
		"source":      migrationsSource,
	} {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("missing --%s", name)
		}
		if f.DefValue != want {
			t.Fatalf("--%s default: expected %q got %q", name, want, f.DefValue)
		}
	}
}

func TestCommand_RejectsBadInvocationsBeforeDB(t *testing.T) {
	for name, args := range map[string][]string{
		"positional":       {"up"},
		"direction":        {"--direction", "sideways"},
		"negative steps":   {"--steps", "-1"},
		"negative force":   {"--force", "-2"},
		"force both ways":  {"--force", "3", "--force-dirty"},
		"unknown flag":     {"--all"},
		"single dash long": {"-direction", "up"},
	} {
		t.Run(name, func(t *testing.T) {
			h := &harness{m: &recordingMigrator{}, dbURL: "postgres://example"}
			out, err := execCommand(t, h.deps(t), args...)
			if err == nil {
				t.Fatalf("expected error, output %q", out)
			}
			if h.opened != 0 {
				t.Fatalf("database must not be opened")
			}
			if strings.Contains(out, "Usage:") {
				t.Fatalf("usage must not be printed: %q", out)
			}
		})
	}
}

func TestCommand_UpUsesContentCalendarSource(t *testing.T) {
	h := &harness{m: &recordingMigrator{}, dbURL: "postgres://example"}
	out, err := execCommand(t, h.deps(t))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "Migrated up\n" {
		t.Fatalf("unexpected output %q", out)
	}
	if h.source != migrationsSource || len(h.m.calls) != 1 || h.m.calls[0] != "up" {
		t.Fatalf("expected Up on %s, got %v on %s", migrationsSource, h.m.calls, h.source)
	}
}

func TestCommand_DownSteps(t *testing.T) {
	h := &harness{m: &recordingMigrator{}, dbURL: "postgres://example"}
	if _, err := execCommand(t, h.deps(t), "--direction=down", "--steps=2", "--source=file:///tmp/m"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(h.m.steps) != 1 || h.m.steps[0] != -2 {
		t.Fatalf("expected Steps(-2), got %v", h.m.steps)
	}
	if h.source != "file:///tmp/m" {
		t.Fatalf("--source not passed through: %q", h.source)
	}
}

func TestCommand_NoChange(t *testing.T) {
	h := &harness{m: &recordingMigrator{err: migrate.ErrNoChange}, dbURL: "postgres://example"}
	out, err := execCommand(t, h.deps(t))
	if err != nil || out != "Schema already up to date\n" {
		t.Fatalf("expected no-change message, got %q err=%v", out, err)
	}
}

func TestCommand_ForceZeroIsHonoured(t *testing.T) {
	h := &harness{m: &recordingMigrator{}, dbURL: "postgres://example"}
	out, err := execCommand(t, h.deps(t), "--force", "0")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(h.m.forced) != 1 || h.m.forced[0] != 0 || len(h.m.calls) != 0 {
		t.Fatalf("expected only Force(0), got forced=%v calls=%v", h.m.forced, h.m.calls)
	}
	if out != "Schema forced to version 0\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCommand_ForceDirty(t *testing.T) {
	clean := &harness{m: &recordingMigrator{version: 1}, dbURL: "postgres://example"}
	if out, _ := execCommand(t, clean.deps(t), "--force-dirty"); out != "Schema version 1 is clean\n" || len(clean.m.forced) != 0 {
		t.Fatalf("clean schema must not be forced: %q %v", out, clean.m.forced)
	}

	dirty := &harness{m: &recordingMigrator{version: 1, dirty: true}, dbURL: "postgres://example"}
	if _, err := execCommand(t, dirty.deps(t), "--force-dirty"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(dirty.m.forced) != 1 || dirty.m.forced[0] != 1 {
		t.Fatalf("expected Force(1), got %v", dirty.m.forced)
	}
}

func TestCommand_EnvironmentErrors(t *testing.T) {
	noURL := &harness{m: &recordingMigrator{}}
	if _, err := execCommand(t, noURL.deps(t)); err == nil || noURL.opened != 0 {
		t.Fatalf("missing DATABASE_URL must fail before opening (err=%v)", err)
	}

	openFail := &harness{m: &recordingMigrator{}, dbURL: "postgres://example", openErr: sql.ErrConnDone}
	if _, err := execCommand(t, openFail.deps(t)); !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}

	broken := &harness{m: &recordingMigrator{err: sql.ErrTxDone}, dbURL: "postgres://example"}
	if _, err := execCommand(t, broken.deps(t)); !errors.Is(err, sql.ErrTxDone) {
		t.Fatalf("expected wrapped migrate error, got %v", err)
	}
}

func TestMigrationsSource_PointsAtSchema(t *testing.T) {
	dir := strings.TrimPrefix(migrationsSource, "file://")
	if dir != "db/migrations" {
		t.Fatalf("unexpected source dir %q", dir)
	}
	// Tests run from db/, the command from the repository root.
	for _, name := range []string{"000001_content_calendar.up.sql", "000001_content_calendar.down.sql"} {
		if _, err := os.Stat(filepath.Join("migrations", name)); err != nil {
			t.Fatalf("missing migration %s: %v", name, err)
		}
	}
}

func TestDefaultDeps(t *testing.T) {
	d := defaultDeps()
	if d.loadEnv == nil || d.getenv == nil || d.openDB == nil || d.newMigrator == nil {
		t.Fatalf("default deps must be populated")
	}
}
