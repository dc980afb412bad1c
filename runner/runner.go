// Package runner sequences benchmarks across every registered backend and turns the
// collected timing series into ordered results.
//
// All work happens on the calling goroutine: backends are measured one after
// another and repetitions never overlap, so callers that must stay responsive
// should invoke the runner from a goroutine of their own.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"persistbench/benchmark"
	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/insert"
	"persistbench/benchmark/result"
	"persistbench/benchmark/update"
	"persistbench/benchmark/workload"
	"persistbench/worker"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

var (
	ErrNoTargets       = errors.New("at least one backend is required")
	ErrDuplicateTarget = errors.New("duplicate backend name")
	ErrInvalidRecords  = errors.New("records must not be negative")
)

// Observer receives every timed repetition and every finished result.
type Observer interface {
	ObserveRepetition(backend string, operation string, seconds float64)
	ObserveResult(r *result.Result)
}

type Config struct {
	Records     int
	Repetitions int // zero means worker.DefaultRepetitions
	Observer    Observer
	RunID       string // generated per run when empty
}

// Runner keeps no state between calls besides its configuration: every call
// generates its own workload and builds fresh results.
type Runner struct {
	records     int
	repetitions int
	targets     []benchmark.Target
	names       []string
	observer    Observer
	runID       string
	generate    func(count int) []engine.Person
}

func New(cfg Config, targets ...benchmark.Target) (*Runner, error) {
	if cfg.Records < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRecords, cfg.Records)
	}
	if cfg.Repetitions < 0 {
		return nil, fmt.Errorf("%w: %d", worker.ErrInvalidRepetitions, cfg.Repetitions)
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	names := make([]string, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if seen[t.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTarget, t.Name)
		}
		seen[t.Name] = true
		names = append(names, t.Name)
	}

	repetitions := cfg.Repetitions
	if repetitions == 0 {
		repetitions = worker.DefaultRepetitions
	}

	return &Runner{
		records:     cfg.Records,
		repetitions: repetitions,
		targets:     targets,
		names:       names,
		observer:    cfg.Observer,
		runID:       cfg.RunID,
		generate:    workload.Generate,
	}, nil
}

func (r *Runner) Records() int {
	return r.records
}

func (r *Runner) Repetitions() int {
	return r.repetitions
}

// RunInsertBenchmarks returns the "Insert Single" and "Insert Bulk" results.
func (r *Runner) RunInsertBenchmarks(ctx context.Context) ([]*result.Result, error) {
	return r.Run(ctx, insert.New())
}

// RunUpdateBenchmarks primes every backend with one untimed bulk insert and returns
// the five update results.
func (r *Runner) RunUpdateBenchmarks(ctx context.Context) ([]*result.Result, error) {
	return r.Run(ctx, update.New())
}

// RunAllBenchmarks runs the insert benchmarks, then the update benchmarks, and
// returns all seven results in that order.
func (r *Runner) RunAllBenchmarks(ctx context.Context) ([]*result.Result, error) {
	return r.Run(ctx, insert.New(), update.New())
}

// Run executes the benchmarks in order and concatenates their results. Any backend
// error aborts the whole run.
func (r *Runner) Run(ctx context.Context, benchmarks ...benchmark.Benchmark) ([]*result.Result, error) {
	runID := r.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	zlog.Info().Str("run", runID).Int("records", r.records).Int("repetitions", r.repetitions).
		Strs("backends", r.names).Msg("Run started")

	var results []*result.Result
	for _, b := range benchmarks {
		rs, err := r.runBenchmark(ctx, runID, b)
		if err != nil {
			zlog.Error().Str("run", runID).Str("benchmark", b.Name()).Err(err).Msg("Run aborted")
			return nil, err
		}
		results = append(results, rs...)
	}

	zlog.Info().Str("run", runID).Int("results", len(results)).Msg("Run ended")
	return results, nil
}

func (r *Runner) runBenchmark(ctx context.Context, runID string, b benchmark.Benchmark) ([]*result.Result, error) {
	log := zlog.Info().Str("run", runID).Str("benchmark", b.Name())
	for k, v := range b.GetConfigs() {
		log = log.Str(k, v)
	}
	log.Msg("Benchmark started")

	persons := r.generate(r.records)

	if err := b.Populate(ctx, r.targets, persons); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}

	operations := b.Prepare(persons)

	// operation label -> backend name -> series
	series := make(map[string]map[string][]float64, len(operations))
	for _, op := range operations {
		series[op.Label] = make(map[string][]float64, len(r.targets))
	}

	for _, t := range r.targets {
		w, err := worker.NewWorker(runID, t.Name, r.repetitions)
		if err != nil {
			return nil, err
		}

		for _, op := range operations {
			m, err := w.Run(op.Label, func() error { return op.Run(ctx, t.Backend) })
			if err != nil {
				return nil, err
			}
			series[op.Label][t.Name] = m.Rts

			if r.observer != nil {
				for _, rt := range m.Rts {
					r.observer.ObserveRepetition(t.Name, op.Label, rt)
				}
			}
		}

		r.logSize(ctx, runID, b.Name(), t)
	}

	results := make([]*result.Result, 0, len(operations))
	for _, op := range operations {
		res, err := result.New(op.Label, r.names, series[op.Label])
		if err != nil {
			return nil, err
		}
		if r.observer != nil {
			r.observer.ObserveResult(res)
		}
		zlog.Info().Str("run", runID).Str("operation", res.Operation).Str("fastest", res.FastestLabel()).
			Float64("improvement", res.Improvement()).Msg("Result")
		results = append(results, res)
	}

	return results, nil
}

// logSize reports the storage footprint of backends that can measure it.
func (r *Runner) logSize(ctx context.Context, runID string, benchmarkName string, t benchmark.Target) {
	sizer, ok := t.Backend.(engine.Sizer)
	if !ok {
		return
	}
	size, err := sizer.Size(ctx)
	if err != nil {
		zlog.Warn().Str("run", runID).Str("backend", t.Name).Err(err).Msg("Size unavailable")
		return
	}
	zlog.Info().Str("run", runID).Str("benchmark", benchmarkName).Str("backend", t.Name).
		Str("endSize", strconv.FormatInt(size, 10)).Msg("Storage size")
}
