package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig selects how log lines are rendered and where they go.
type LoggingConfig struct {
	Level      string // trace, debug, info, warn, error, fatal, panic
	Format     string // json, or console/pretty for human output
	Output     string // stdout or stderr
	AddSource  bool
	TimeFormat string
}

// DefaultLoggingConfig logs JSON at info level to stdout.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger builds the process logger. It also sets the zerolog global level
// and time format, so call it once at startup.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	return newLogger(cfg, outputFor(cfg.Output))
}

func newLogger(cfg LoggingConfig, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = cfg.TimeFormat
	if zerolog.TimeFieldFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
	}

	lc := zerolog.New(out).With().Timestamp()
	if cfg.AddSource {
		lc = lc.Caller()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	return lc.Logger().Level(level)
}

func outputFor(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps a level name to zerolog, accepting "warning" and falling
// back to info for anything unknown.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || l == zerolog.NoLevel || l == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return l
}

// WithKeywordContext tags a logger with the keyword being collected.
func WithKeywordContext(logger zerolog.Logger, keywordID, keyword string) zerolog.Logger {
	return logger.With().Str("keyword_id", keywordID).Str("keyword", keyword).Logger()
}

// WithFeedContext tags a logger with the feed being polled.
func WithFeedContext(logger zerolog.Logger, feedID, feedURL string) zerolog.Logger {
	return logger.With().Str("feed_id", feedID).Str("feed_url", feedURL).Logger()
}

// WithSeedContext tags a logger with the citation seed being explored.
func WithSeedContext(logger zerolog.Logger, seedID, doi string) zerolog.Logger {
	return logger.With().Str("seed_paper_id", seedID).Str("doi", doi).Logger()
}
