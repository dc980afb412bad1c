package native

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/engines/enginetest"
)

func newSQLite(name string, scoped string) enginetest.NewBackend {
	return func(t *testing.T) engine.Backend {
		t.Helper()
		config := engine.MergeConfig(engine.GetDefaults(name), map[string]string{
			KeyDSN:    filepath.Join(t.TempDir(), "bench.db"),
			KeyScoped: scoped,
		})
		be, err := engine.New(context.Background(), name, config)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { be.Close() })
		return be
	}
}

func TestSQLiteContract(t *testing.T) {
	enginetest.RunContract(t, newSQLite("sqlite", "false"))
}

func TestSQLiteScopedContract(t *testing.T) {
	enginetest.RunContract(t, newSQLite("sqlite", "true"))
}

func TestSQLite3Contract(t *testing.T) {
	enginetest.RunContract(t, newSQLite("sqlite3", "true"))
}

func TestSQLitePatternIgnoresCase(t *testing.T) {
	ctx := context.Background()
	be := newSQLite("sqlite", "false")(t)
	if err := be.InsertBulk(ctx, []engine.Person{{ID: 1, Name: "Alice", Age: 30}}); err != nil {
		t.Fatal(err)
	}
	if err := be.UpdateByNamePattern(ctx, "al%", "matched", 1); err != nil {
		t.Fatal(err)
	}
	p, _, err := be.FetchSingle(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "matched" {
		t.Errorf("name = %q, want matched", p.Name)
	}
}

func TestSize(t *testing.T) {
	ctx := context.Background()
	be := newSQLite("sqlite", "false")(t)
	if err := be.InsertBulk(ctx, enginetest.Persons(200)); err != nil {
		t.Fatal(err)
	}
	size, err := be.(engine.Sizer).Size(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if size <= 0 {
		t.Errorf("size = %d, want > 0", size)
	}
}

func TestClosed(t *testing.T) {
	be := newSQLite("sqlite", "false")(t)
	if err := be.Close(); err != nil {
		t.Fatal(err)
	}
	if err := be.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := be.FetchAll(context.Background()); !errors.Is(err, engine.ErrClosed) {
		t.Errorf("FetchAll after Close = %v, want ErrClosed", err)
	}
}

func TestMissingDSN(t *testing.T) {
	_, err := New(context.Background(), "sqlite", map[string]string{KeyDSN: ""})
	var ce *engine.ConfigError
	if !errors.As(err, &ce) || ce.Field != KeyDSN {
		t.Errorf("err = %v, want dsn ConfigError", err)
	}
}

func TestRegistered(t *testing.T) {
	for _, name := range []string{"sqlite", "sqlite3", "postgres", "mysql"} {
		if !engine.IsRegistered(name) {
			t.Errorf("%s not registered", name)
		}
		if engine.GetDefaults(name)[KeyDSN] == "" {
			t.Errorf("%s has no default dsn", name)
		}
	}
}
