package badger

import (
	"context"
	"errors"
	"testing"

	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/engines/enginetest"
)

func newInMemory(t *testing.T) engine.Backend {
	t.Helper()
	be, err := NewFactory(context.Background(), map[string]string{KeyInMemory: "true"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { be.Close() })
	return be
}

func newOnDisk(t *testing.T) engine.Backend {
	t.Helper()
	be, err := engine.New(context.Background(), "badger", map[string]string{KeyPath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { be.Close() })
	return be
}

func TestContractInMemory(t *testing.T) {
	enginetest.RunContract(t, newInMemory)
}

func TestContractOnDisk(t *testing.T) {
	enginetest.RunContract(t, newOnDisk)
}

func TestPatternIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	be := newInMemory(t)
	if err := be.InsertBulk(ctx, []engine.Person{{ID: 1, Name: "Alice", Age: 30}}); err != nil {
		t.Fatal(err)
	}
	if err := be.UpdateByNamePattern(ctx, "al%", "matched", 1); err != nil {
		t.Fatal(err)
	}
	p, _, _ := be.FetchSingle(ctx, 1)
	if p.Name != "Alice" {
		t.Errorf("name = %q, want Alice untouched", p.Name)
	}
}

func TestInvalidOption(t *testing.T) {
	if _, err := NewFactory(context.Background(), map[string]string{KeyInMemory: "maybe"}); err == nil {
		t.Error("expected an error for in_memory=maybe")
	}
}

func TestValueLogFileSize(t *testing.T) {
	for _, v := range []string{"abc", "-1"} {
		_, err := NewFactory(context.Background(), map[string]string{KeyInMemory: "true", KeyValueLogFileSize: v})
		var ce *engine.ConfigError
		if !errors.As(err, &ce) || ce.Field != KeyValueLogFileSize {
			t.Errorf("%s=%s: err = %v, want ConfigError on %s", KeyValueLogFileSize, v, err, KeyValueLogFileSize)
		}
	}

	be, err := NewFactory(context.Background(), map[string]string{KeyInMemory: "true", KeyValueLogFileSize: "16777216"})
	if err != nil {
		t.Fatal(err)
	}
	defer be.Close()
}
