// Package insert measures inserting the workload one record per unit of work
// against inserting it in a single unit of work.
package insert

import (
	"context"

	"persistbench/benchmark"
	engine "persistbench/benchmark/engines/abstract"
)

const (
	Name = "insert"

	LabelSingle = "Insert Single"
	LabelBulk   = "Insert Bulk"
)

// Insert needs no population: both operations clear the dataset before inserting,
// so every repetition reloads the full workload.
type Insert struct{}

func New() *Insert {
	return &Insert{}
}

func (i *Insert) Name() string {
	return Name
}

func (i *Insert) Populate(ctx context.Context, targets []benchmark.Target, workload []engine.Person) error {
	return nil
}

func (i *Insert) Prepare(workload []engine.Person) []benchmark.Operation {
	return []benchmark.Operation{
		{Label: LabelSingle, Run: func(ctx context.Context, b engine.Backend) error {
			return b.InsertSingle(ctx, workload)
		}},
		{Label: LabelBulk, Run: func(ctx context.Context, b engine.Backend) error {
			return b.InsertBulk(ctx, workload)
		}},
	}
}

func (i *Insert) GetConfigs() map[string]string {
	return map[string]string{"benchmark": Name}
}
