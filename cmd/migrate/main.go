// Package main provides a CLI tool for database migrations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-triage-service/internal/config"
	"github.com/helixir/paper-triage-service/internal/database"
	"github.com/helixir/paper-triage-service/internal/observability"
)

const connectTimeout = 30 * time.Second

var errNoAction = errors.New("no action specified")

type actionKind int

const (
	actionUp actionKind = iota + 1
	actionDown
	actionSteps
	actionVersion
	actionForce
)

// action is one parsed invocation.
type action struct {
	kind actionKind
	n    int
	path string
}

func main() {
	a, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if err := run(a); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs accepts exactly one of -up, -down, -steps N, -version, -force V.
func parseArgs(args []string, stderr io.Writer) (action, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	up := fs.Bool("up", false, "Run all pending migrations")
	down := fs.Bool("down", false, "Roll back all migrations")
	steps := fs.Int("steps", 0, "Run N migration steps (positive=up, negative=down)")
	version := fs.Bool("version", false, "Print the current migration version")
	force := fs.Int("force", -1, "Force set migration version (use to recover from failed migrations)")
	path := fs.String("path", "", "Override the migrations directory path")
	if err := fs.Parse(args); err != nil {
		return action{}, err
	}

	var chosen []action
	if *up {
		chosen = append(chosen, action{kind: actionUp})
	}
	if *down {
		chosen = append(chosen, action{kind: actionDown})
	}
	if *steps != 0 {
		chosen = append(chosen, action{kind: actionSteps, n: *steps})
	}
	if *version {
		chosen = append(chosen, action{kind: actionVersion})
	}
	if *force >= 0 {
		chosen = append(chosen, action{kind: actionForce, n: *force})
	}

	switch len(chosen) {
	case 0:
		fs.Usage()
		fmt.Fprintln(stderr, "\nPlease specify one of: -up, -down, -steps N, -version, -force V")
		return action{}, errNoAction
	case 1:
		chosen[0].path = *path
		return chosen[0], nil
	default:
		return action{}, fmt.Errorf("specify only one action at a time")
	}
}

func run(a action) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if a.path != "" {
		migrationDir = a.path
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := apply(migrator, a, logger); err != nil {
		return err
	}
	printVersion(migrator, logger)
	return nil
}

// migrations is the subset of *database.Migrator used by apply.
type migrations interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
}

func apply(m migrations, a action, logger zerolog.Logger) error {
	switch a.kind {
	case actionUp:
		logger.Info().Msg("running all pending migrations")
		if err := m.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case actionDown:
		logger.Warn().Msg("rolling back all migrations")
		if err := m.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case actionSteps:
		logger.Info().Int("steps", a.n).Msg("running migration steps")
		if err := m.Steps(a.n); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case actionForce:
		logger.Warn().Int("version", a.n).Msg("forcing migration version")
		if err := m.Force(a.n); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	case actionVersion:
	default:
		return errNoAction
	}
	return nil
}

func printVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
