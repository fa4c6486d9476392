// Package main provides the papertriage operator CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/helixir/paper-triage-service/internal/app"
	"github.com/helixir/paper-triage-service/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	envFile    string
	runTimeout time.Duration
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "papertriage",
	Short: "Operate the paper triage pipeline",
	Long: `papertriage runs collection stages on demand, imports keyword,
feed and interest seeds, and inspects review settings.

Configuration is read the same way as the server: config.yaml plus
PAPERTRIAGE_* environment variables. A .env file is loaded first when present.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnv,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before configuration")
	rootCmd.PersistentFlags().DurationVar(&runTimeout, "timeout", 0, "Abort the command after this long (0 = no limit)")
	rootCmd.Version = Version
}

// loadEnv loads envFile without overriding variables already set.
func loadEnv(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

// withApp builds the pipeline, runs fn and releases it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg, "cli")

	ctx, cancel := app.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	a, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
