package insert

import (
	"context"
	"testing"

	"persistbench/benchmark"
	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/engines/memory"
	"persistbench/benchmark/workload"
)

func TestPopulateIsNoop(t *testing.T) {
	store := memory.NewStore()
	targets := []benchmark.Target{{Name: "m", Backend: memory.NewWithStore(store, 0)}}
	if err := New().Populate(context.Background(), targets, workload.Generate(5)); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Errorf("populate stored %d records", store.Len())
	}
}

func TestEveryOperationLeavesTheWorkload(t *testing.T) {
	ctx := context.Background()
	persons := workload.Generate(50)
	ops := New().Prepare(persons)
	if len(ops) != 2 || ops[0].Label != LabelSingle || ops[1].Label != LabelBulk {
		t.Fatalf("operations = %+v", ops)
	}

	for _, op := range ops {
		store := memory.NewStore()
		be := memory.NewWithStore(store, 0)
		if err := be.InsertBulk(ctx, []engine.Person{{ID: 999, Name: "stale", Age: 1}}); err != nil {
			t.Fatal(err)
		}
		// repeated runs must not accumulate
		for range 3 {
			if err := op.Run(ctx, be); err != nil {
				t.Fatalf("%s: %v", op.Label, err)
			}
		}
		if store.Len() != len(persons) {
			t.Errorf("%s left %d records, want %d", op.Label, store.Len(), len(persons))
		}
		if _, found, _ := be.FetchSingle(ctx, 999); found {
			t.Errorf("%s kept a record from before", op.Label)
		}
	}
}
