package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"persistbench/config"
)

const memoryConf = `
records: 10
repetitions: 1
backends:
  - name: a
    engine: memory
  - name: b
    engine: memory
`

func writeConf(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execRun(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRunCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

func TestRunReturnsConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		conf  string
		extra []string
		check func(error) bool
	}{
		{
			name:  "malformed yaml",
			conf:  "records: [",
			check: func(err error) bool { return strings.Contains(err.Error(), "parse config") },
		},
		{
			name:  "missing file",
			check: func(err error) bool { return errors.Is(err, os.ErrNotExist) },
		},
		{
			name:  "invalid override",
			conf:  memoryConf,
			extra: []string{"--records", "-1"},
			check: func(err error) bool { return errors.Is(err, config.ErrInvalidSettings) },
		},
		{
			name:  "unknown phase override",
			conf:  memoryConf,
			extra: []string{"--phase", "delete"},
			check: func(err error) bool { return errors.Is(err, config.ErrUnknownPhase) },
		},
		{
			name:  "unknown format",
			conf:  memoryConf,
			extra: []string{"--format", "xml"},
			check: func(err error) bool { return strings.Contains(err.Error(), "unknown report format") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "absent.yaml")
			if tt.conf != "" {
				path = writeConf(t, tt.conf)
			}
			err := execRun(t, append([]string{"--conf", path}, tt.extra...)...)
			if err == nil || !tt.check(err) {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestRunUnknownEngine(t *testing.T) {
	path := writeConf(t, "backends:\n  - engine: nosuchengine\n")
	if err := execRun(t, "--conf", path); err == nil || !strings.Contains(err.Error(), "nosuchengine") {
		t.Errorf("err = %v, want unknown engine error", err)
	}
}

func TestRunWritesMetrics(t *testing.T) {
	setupLogging(true, "info")
	metricsFile := filepath.Join(t.TempDir(), "bench.prom")
	err := execRun(t, "--conf", writeConf(t, memoryConf), "--format", "csv", "--metrics-file", metricsFile)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "persistbench_operation_average_seconds") {
		t.Errorf("metrics file lacks averages:\n%s", data)
	}
}

func TestBackendsListsDefaults(t *testing.T) {
	var out strings.Builder
	cmd := newBackendsCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"memory", "latency", "sqlite", "dsn", "redis", "riak"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("backends output lacks %q:\n%s", want, out.String())
		}
	}
}
