package benchmark

import (
	"context"

	engine "persistbench/benchmark/engines/abstract"
)

// Target is a named backend taking part in a run.
type Target struct {
	Name    string
	Backend engine.Backend
}

// Operation is one measured step of a benchmark. Label is the name results report.
type Operation struct {
	Label string
	Run   func(ctx context.Context, backend engine.Backend) error
}

type Benchmark interface {
	// Name used in logs and to select the benchmark from a config file
	Name() string
	// Prepares every backend before measurement starts; never timed
	Populate(ctx context.Context, targets []Target, workload []engine.Person) error
	// Returns the operations to measure, in the order their results are reported
	Prepare(workload []engine.Person) []Operation
	// Returns the benchmark-specific configurations
	GetConfigs() map[string]string
}
