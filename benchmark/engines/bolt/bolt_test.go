package bolt

import (
	"context"
	"path/filepath"
	"testing"

	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/engines/enginetest"
)

func newTestBackend(t *testing.T) engine.Backend {
	t.Helper()
	be, err := engine.New(context.Background(), "bolt", map[string]string{
		KeyPath:   filepath.Join(t.TempDir(), "bench.db"),
		KeyNoSync: "true",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { be.Close() })
	return be
}

func TestContract(t *testing.T) {
	enginetest.RunContract(t, newTestBackend)
}

func TestSize(t *testing.T) {
	ctx := context.Background()
	be := newTestBackend(t)
	if err := be.InsertBulk(ctx, enginetest.Persons(100)); err != nil {
		t.Fatal(err)
	}
	size, err := be.(engine.Sizer).Size(ctx)
	if err != nil || size <= 0 {
		t.Errorf("Size = %d, %v", size, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bench.db")
	config := map[string]string{KeyPath: path}

	be, err := NewFactory(ctx, config)
	if err != nil {
		t.Fatal(err)
	}
	if err := be.InsertBulk(ctx, enginetest.Persons(7)); err != nil {
		t.Fatal(err)
	}
	be.Close()

	be, err = NewFactory(ctx, config)
	if err != nil {
		t.Fatal(err)
	}
	defer be.Close()
	if n, err := be.FetchAll(ctx); err != nil || n != 7 {
		t.Errorf("FetchAll after reopen = %d, %v", n, err)
	}
}
