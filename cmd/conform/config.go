package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatDump = "dump"
)

// Config is read from the environment (and a .env file), then overridden
// by command line flags.
type Config struct {
	RulesPath  string `env:"CONFORM_RULES"`
	InputPath  string `env:"CONFORM_INPUT"`
	Format     string `env:"CONFORM_FORMAT" envDefault:"json"`
	PGConnURL  string `env:"CONFORM_PG_URL"`
	LogLevel   string `env:"CONFORM_LOG_LEVEL" envDefault:"warn"`
	LogFormat  string `env:"CONFORM_LOG_FORMAT" envDefault:"text"`
	InputZone  string `env:"CONFORM_INPUT_TIMEZONE" envDefault:"UTC"`
	TargetZone string `env:"CONFORM_TARGET_TIMEZONE" envDefault:"UTC"`
}

var ErrMissingPath = errors.New("rules and input paths are required")

func loadConfig(args []string, stderr io.Writer) (Config, error) {
	// The .env file is optional
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	fs := flag.NewFlagSet("conform", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "YAML field map file")
	fs.StringVar(&cfg.InputPath, "input", cfg.InputPath, "JSON input file, - for stdin")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: json, text or dump")
	fs.StringVar(&cfg.PGConnURL, "pg", cfg.PGConnURL, "PostgreSQL URL enabling the d.* conformers")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	fs.StringVar(&cfg.InputZone, "input-tz", cfg.InputZone, "time zone of zoneless input times")
	fs.StringVar(&cfg.TargetZone, "target-tz", cfg.TargetZone, "time zone times are converted to")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.RulesPath == "" || cfg.InputPath == "" {
		return Config{}, ErrMissingPath
	}
	switch cfg.Format {
	case FormatJSON, FormatText, FormatDump:
	default:
		return Config{}, fmt.Errorf("invalid format %q: must be %q, %q or %q", cfg.Format, FormatJSON, FormatText, FormatDump)
	}
	return cfg, nil
}

func newLogger(cfg Config, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"text\"", cfg.LogFormat)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
