package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesYAML = `
name: "f.trim f.name !v.filled"
email: f.trim v.email
age: [f.int, [v.range, 18, 130]]
`

func writeFiles(t *testing.T, input string) (rules, in string) {
	t.Helper()
	dir := t.TempDir()
	rules = filepath.Join(dir, "rules.yaml")
	in = filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(rules, []byte(rulesYAML), 0o600))
	require.NoError(t, os.WriteFile(in, []byte(input), 0o600))
	return rules, in
}

// clearEnv keeps the caller's environment out of loadConfig.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CONFORM_RULES", "CONFORM_INPUT", "CONFORM_FORMAT", "CONFORM_PG_URL",
		"CONFORM_LOG_LEVEL", "CONFORM_LOG_FORMAT", "CONFORM_INPUT_TIMEZONE", "CONFORM_TARGET_TIMEZONE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestRun(t *testing.T) {
	clearEnv(t)

	t.Run("Valid", func(t *testing.T) {
		rules, in := writeFiles(t, `{"name":" smith, john ","email":"bob@bob.com","age":"42"}`)
		var stdout, stderr bytes.Buffer

		code := run(context.Background(), []string{"-rules", rules, "-input", in}, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())

		var res struct {
			Valid  bool           `json:"valid"`
			Output map[string]any `json:"output"`
			Errors []any          `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
		assert.True(t, res.Valid)
		assert.Equal(t, "John Smith", res.Output["name"])
		assert.Equal(t, 42.0, res.Output["age"])
		assert.Empty(t, res.Errors)
	})

	t.Run("Invalid", func(t *testing.T) {
		rules, in := writeFiles(t, `{"name":"","email":"nope","age":12}`)
		var stdout, stderr bytes.Buffer

		code := run(context.Background(), []string{"-rules", rules, "-input", in}, &stdout, &stderr)
		require.Equal(t, 1, code, stderr.String())

		var res struct {
			Valid  bool `json:"valid"`
			Errors []struct {
				Type   string   `json:"type"`
				Fields []string `json:"fields"`
			} `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
		assert.False(t, res.Valid)
		require.Len(t, res.Errors, 3)
		assert.Equal(t, "v.filled", res.Errors[0].Type)
		assert.Equal(t, "v.email", res.Errors[1].Type)
		assert.Equal(t, []string{"age"}, res.Errors[2].Fields)
	})

	t.Run("TextFormat", func(t *testing.T) {
		rules, in := writeFiles(t, `{"name":"al","email":"x","age":20}`)
		var stdout, stderr bytes.Buffer

		code := run(context.Background(), []string{"-rules", rules, "-input", in, "-format", "text"}, &stdout, &stderr)
		require.Equal(t, 1, code, stderr.String())
		assert.Equal(t, "age = 20\nname = Al\nerror email [v.email]: v.email\n", stdout.String())
	})

	t.Run("DumpFormat", func(t *testing.T) {
		rules, in := writeFiles(t, `{"name":"al","email":"a@b.co","age":20}`)
		var stdout, stderr bytes.Buffer

		code := run(context.Background(), []string{"-rules", rules, "-input", in, "-format", "dump"}, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())
		assert.Contains(t, stdout.String(), "Valid: (bool) true")
	})

	t.Run("DebugLogging", func(t *testing.T) {
		rules, in := writeFiles(t, `{"name":"al","email":"a@b.co","age":20}`)
		var stdout, stderr bytes.Buffer

		code := run(context.Background(), []string{"-rules", rules, "-input", in, "-log-level", "debug", "-log-format", "json"}, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())
		assert.Contains(t, stderr.String(), `"msg":"field map applied"`)
	})

	t.Run("UsageErrors", func(t *testing.T) {
		rules, in := writeFiles(t, `{}`)
		for name, args := range map[string][]string{
			"MissingPaths":   {},
			"BadFormat":      {"-rules", rules, "-input", in, "-format", "xml"},
			"BadLogLevel":    {"-rules", rules, "-input", in, "-log-level", "loud"},
			"MissingRules":   {"-rules", filepath.Join(t.TempDir(), "nope.yaml"), "-input", in},
			"UnknownFlag":    {"-nope"},
			"BadTimezone":    {"-rules", rules, "-input", in, "-target-tz", "Nowhere/Foo"},
			"InputNotObject": {"-rules", rules, "-input", writeRaw(t, `[1]`)},
		} {
			t.Run(name, func(t *testing.T) {
				var stdout, stderr bytes.Buffer
				assert.Equal(t, 2, run(context.Background(), args, &stdout, &stderr))
				assert.Empty(t, stdout.String())
			})
		}
	})

	t.Run("UnresolvedRule", func(t *testing.T) {
		dir := t.TempDir()
		rules := filepath.Join(dir, "rules.yaml")
		require.NoError(t, os.WriteFile(rules, []byte("id: d.in_table|users\n"), 0o600))
		var stdout, stderr bytes.Buffer

		code := run(context.Background(), []string{"-rules", rules, "-input", writeRaw(t, `{"id":1}`)}, &stdout, &stderr)
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr.String(), "fn_path is not a function path")
	})
}

func TestLoadConfigEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFORM_RULES", "env-rules.yaml")
	t.Setenv("CONFORM_INPUT", "env-input.json")
	t.Setenv("CONFORM_FORMAT", "text")

	cfg, err := loadConfig([]string{"-format", "dump"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "env-rules.yaml", cfg.RulesPath)
	assert.Equal(t, "env-input.json", cfg.InputPath)
	assert.Equal(t, FormatDump, cfg.Format)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "UTC", cfg.InputZone)
}

func TestLoadConfigTimezoneFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFORM_INPUT_TIMEZONE", "Europe/Paris")
	t.Setenv("CONFORM_TARGET_TIMEZONE", "Europe/Paris")

	cfg, err := loadConfig([]string{"-rules", "r.yaml", "-input", "i.json", "-target-tz", "America/New_York"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", cfg.InputZone)
	assert.Equal(t, "America/New_York", cfg.TargetZone)
}

func writeRaw(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
