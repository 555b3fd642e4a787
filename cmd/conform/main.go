// Command conform applies a YAML field map to a JSON input document and
// prints the conformed output and the validation errors.
//
//	conform -rules rules.yaml -input input.json [-format json|text|dump]
//	        [-input-tz UTC] [-target-tz UTC]
//
// The exit code is 0 when the input conforms, 1 when validation errors were
// recorded and 2 on usage or configuration errors.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	conform "github.com/SimonDaKappa/go-conform"
	"github.com/SimonDaKappa/go-conform/conformers"
	"github.com/SimonDaKappa/go-conform/dbconform"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Result is what the command prints.
type Result struct {
	Valid  bool           `json:"valid"`
	Output map[string]any `json:"output"`
	Errors conform.Errors `json:"errors"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "conform:", err)
		return 2
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "conform:", err)
		return 2
	}

	rulesFile, err := os.Open(cfg.RulesPath)
	if err != nil {
		fmt.Fprintln(stderr, "conform:", err)
		return 2
	}
	fm, err := conform.ReadFieldMapYAML(rulesFile)
	rulesFile.Close()
	if err != nil {
		fmt.Fprintln(stderr, "conform:", err)
		return 2
	}

	data, err := readInput(cfg.InputPath)
	if err != nil {
		fmt.Fprintln(stderr, "conform:", err)
		return 2
	}
	input, err := conform.InputFromJSON(data)
	if err != nil {
		fmt.Fprintln(stderr, "conform:", err)
		return 2
	}

	opts, err := conformerOpts(cfg)
	if err != nil {
		fmt.Fprintln(stderr, "conform:", err)
		return 2
	}
	reg := conformers.NewRegistry(opts)

	if cfg.PGConnURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PGConnURL)
		if err != nil {
			fmt.Fprintln(stderr, "conform: connect:", err)
			return 2
		}
		defer pool.Close()
		if err := dbconform.Register(reg, pool); err != nil {
			fmt.Fprintln(stderr, "conform:", err)
			return 2
		}
	}

	session := conform.NewSession(input, conform.SessionOpts{Registry: reg, Logger: logger})
	output, err := session.Apply(ctx, fm)
	if err != nil {
		fmt.Fprintln(stderr, "conform:", err)
		return 2
	}

	res := Result{
		Valid:  session.Errors().IsEmpty(),
		Output: output,
		Errors: session.StandardErrors(),
	}
	logger.Debug("field map applied",
		"fields", len(fm),
		"errors", len(res.Errors),
	)

	if err := write(stdout, cfg.Format, res); err != nil {
		fmt.Fprintln(stderr, "conform:", err)
		return 2
	}
	if !res.Valid {
		return 1
	}
	return 0
}

func conformerOpts(cfg Config) (conformers.Opts, error) {
	in, err := time.LoadLocation(cfg.InputZone)
	if err != nil {
		return conformers.Opts{}, fmt.Errorf("input timezone: %w", err)
	}
	target, err := time.LoadLocation(cfg.TargetZone)
	if err != nil {
		return conformers.Opts{}, fmt.Errorf("target timezone: %w", err)
	}
	return conformers.Opts{InputLocation: in, TargetLocation: target}, nil
}

func write(w io.Writer, format string, res Result) error {
	switch format {
	case FormatDump:
		spew.Fdump(w, res)
		return nil
	case FormatText:
		return writeText(w, res)
	default:
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}
}

func writeText(w io.Writer, res Result) error {
	keys := make([]string, 0, len(res.Output))
	for k := range res.Output {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := &strings.Builder{}
	for _, k := range keys {
		fmt.Fprintf(b, "%s = %s\n", k, conform.ToString(res.Output[k]))
	}
	for _, e := range res.Errors {
		fmt.Fprintf(b, "error %s [%s]: %s\n", strings.Join(e.Fields, ","), e.Type, e.Message)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
