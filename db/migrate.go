package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

// migrationsSource is resolved from the repository root, where the
// content calendar schema lives under db/migrations.
const migrationsSource = "file://db/migrations"

func main() {
	if err := newCommand(defaultDeps()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

type deps struct {
	loadEnv     func(...string) error
	getenv      func(string) string
	openDB      func(driverName, dataSourceName string) (*sql.DB, error)
	newMigrator func(db *sql.DB, source string) (migrator, error)
}

func defaultDeps() deps {
	return deps{
		loadEnv:     godotenv.Load,
		getenv:      os.Getenv,
		openDB:      sql.Open,
		newMigrator: postgresMigrator,
	}
}

// migrator is the part of *migrate.Migrate the command drives.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (version uint, dirty bool, err error)
}

func postgresMigrator(db *sql.DB, source string) (migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration source %s: %w", source, err)
	}
	return m, nil
}

type options struct {
	direction  string
	steps      int
	force      int
	forceSet   bool
	forceDirty bool
	source     string
}

func (o options) validate() error {
	if o.direction != "up" && o.direction != "down" {
		return fmt.Errorf("invalid --direction %q: want up or down", o.direction)
	}
	if o.steps < 0 {
		return fmt.Errorf("invalid --steps %d: must be >= 0", o.steps)
	}
	if o.forceSet && o.force < 0 {
		return fmt.Errorf("invalid --force %d: must be >= 0", o.force)
	}
	if o.forceSet && o.forceDirty {
		return errors.New("--force and --force-dirty are mutually exclusive")
	}
	return nil
}

// newCommand builds the migrate command. Its result line goes to the
// command's output writer.
func newCommand(d deps) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply content calendar database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.forceSet = cmd.Flags().Changed("force")
			if err := o.validate(); err != nil {
				return err
			}
			msg, err := execute(o, d)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), msg+"\n")
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.direction, "direction", "up", "up or down")
	f.IntVar(&o.steps, "steps", 0, "number of migrations to apply (0 = all)")
	f.IntVar(&o.force, "force", 0, "set the schema version and clear the dirty flag")
	f.BoolVar(&o.forceDirty, "force-dirty", false, "clear the dirty flag at the current version")
	f.StringVar(&o.source, "source", migrationsSource, "migration source URL")
	return cmd
}

func execute(o options, d deps) (string, error) {
	if d.loadEnv != nil {
		_ = d.loadEnv()
	}
	databaseURL := ""
	if d.getenv != nil {
		databaseURL = d.getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return "", errors.New("DATABASE_URL is required")
	}
	if d.openDB == nil || d.newMigrator == nil {
		return "", errors.New("database dependencies are not configured")
	}

	db, err := d.openDB("postgres", databaseURL)
	if err != nil {
		return "", fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	m, err := d.newMigrator(db, o.source)
	if err != nil {
		return "", err
	}

	switch {
	case o.forceDirty:
		return clearDirty(m)
	case o.forceSet:
		if err := m.Force(o.force); err != nil {
			return "", fmt.Errorf("force version %d: %w", o.force, err)
		}
		return fmt.Sprintf("Schema forced to version %d", o.force), nil
	}

	err = applyDirection(m, o.direction, o.steps)
	if errors.Is(err, migrate.ErrNoChange) {
		return "Schema already up to date", nil
	}
	if err != nil {
		return "", fmt.Errorf("migrate %s: %w", o.direction, err)
	}
	return fmt.Sprintf("Migrated %s", o.direction), nil
}

func clearDirty(m migrator) (string, error) {
	v, dirty, err := m.Version()
	if err != nil {
		return "", fmt.Errorf("read schema version: %w", err)
	}
	if !dirty {
		return fmt.Sprintf("Schema version %d is clean", v), nil
	}
	if err := m.Force(int(v)); err != nil {
		return "", fmt.Errorf("clear dirty version %d: %w", v, err)
	}
	return fmt.Sprintf("Cleared dirty flag at version %d", v), nil
}

func applyDirection(m migrator, direction string, steps int) error {
	switch {
	case direction == "up" && steps > 0:
		return m.Steps(steps)
	case direction == "up":
		return m.Up()
	case direction == "down" && steps > 0:
		return m.Steps(-steps)
	case direction == "down":
		return m.Down()
	}
	return fmt.Errorf("invalid direction %q", direction)
}
