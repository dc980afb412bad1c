package update

import (
	"context"
	"testing"

	"persistbench/benchmark"
	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/engines/memory"
)

func persons(ages ...int) []engine.Person {
	out := make([]engine.Person, len(ages))
	for i, age := range ages {
		out[i] = engine.Person{ID: int64(i), Name: "p", Age: age}
	}
	return out
}

func TestPopulateFillsEveryTarget(t *testing.T) {
	ctx := context.Background()
	a, b := memory.NewStore(), memory.NewStore()
	targets := []benchmark.Target{
		{Name: "a", Backend: memory.NewWithStore(a, 0)},
		{Name: "b", Backend: memory.NewWithStore(b, 0)},
	}
	if err := New().Populate(ctx, targets, persons(20, 30, 50)); err != nil {
		t.Fatal(err)
	}
	if a.Len() != 3 || b.Len() != 3 {
		t.Errorf("populated %d and %d records, want 3 each", a.Len(), b.Len())
	}
}

func TestOperationsInReportOrder(t *testing.T) {
	ops := New().Prepare(nil)
	want := []string{LabelSingle, LabelBulk, LabelConditional, LabelIncremental, LabelMultiple}
	if len(ops) != len(want) {
		t.Fatalf("got %d operations, want %d", len(ops), len(want))
	}
	for i, op := range ops {
		if op.Label != want[i] {
			t.Errorf("operation %d = %q, want %q", i, op.Label, want[i])
		}
	}
}

// One pass of every operation over ages 10, 30, 50 with ids 0..2.
func TestOperationsInSequence(t *testing.T) {
	ctx := context.Background()
	be := memory.NewWithStore(memory.NewStore(), 0)
	if err := be.InsertBulk(ctx, persons(10, 30, 50)); err != nil {
		t.Fatal(err)
	}

	for _, op := range New().Prepare(nil) {
		if err := op.Run(ctx, be); err != nil {
			t.Fatalf("%s: %v", op.Label, err)
		}
	}

	// bulk sets every age to 30, the range update catches all of them and sets 35,
	// the increment makes 36, then ids 1 and 2 get the multiple update.
	want := map[int64]engine.Person{
		0: {ID: 0, Name: "Range Updated", Age: 36},
		1: {ID: 1, Name: "Multiple Updated", Age: 28},
		2: {ID: 2, Name: "Multiple Updated", Age: 28},
	}
	for id, w := range want {
		got, found, err := be.FetchSingle(ctx, id)
		if err != nil || !found {
			t.Fatalf("fetch %d: found=%v err=%v", id, found, err)
		}
		if got != w {
			t.Errorf("record %d = %v, want %v", id, got, w)
		}
	}
}
