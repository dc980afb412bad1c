//go:build integration

package native

import (
	"context"
	"os"
	"testing"

	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/engines/enginetest"
)

// Server-backed runs need a reachable database: set PERSISTBENCH_POSTGRES_DSN or
// PERSISTBENCH_MYSQL_DSN and run with -tags integration.
func newServer(t *testing.T, name string, env string) enginetest.NewBackend {
	dsn := os.Getenv(env)
	if dsn == "" {
		t.Skipf("%s not set", env)
	}
	return func(t *testing.T) engine.Backend {
		be, err := engine.New(context.Background(), name, map[string]string{KeyDSN: dsn})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { be.Close() })
		return be
	}
}

func TestPostgresContract(t *testing.T) {
	enginetest.RunContract(t, newServer(t, "postgres", "PERSISTBENCH_POSTGRES_DSN"))
}

func TestMySQLContract(t *testing.T) {
	enginetest.RunContract(t, newServer(t, "mysql", "PERSISTBENCH_MYSQL_DSN"))
}
