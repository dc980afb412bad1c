package worker

import (
	"errors"
	"fmt"
	"time"

	"persistbench/util"

	zlog "github.com/rs/zerolog/log"
)

// DefaultRepetitions is used when a worker is created with zero repetitions.
const DefaultRepetitions = 10

var ErrInvalidRepetitions = errors.New("repetitions must not be negative")

// Worker times one operation of one backend over a fixed number of repetitions.
// Repetitions run strictly one after another on the calling goroutine, so any
// mutation performed by an operation is visible to the next repetition.
type Worker struct {
	runID       string
	backend     string
	repetitions int
}

type Metric struct {
	Rts           []float64 // elapsed seconds of each repetition, in execution order
	TotalRt       float64   // sum of Rts
	CompleteCount int       // number of completed repetitions
}

func NewWorker(runID string, backend string, repetitions int) (*Worker, error) {
	if repetitions < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRepetitions, repetitions)
	}
	if repetitions == 0 {
		repetitions = DefaultRepetitions
	}
	return &Worker{runID: runID, backend: backend, repetitions: repetitions}, nil
}

func (w *Worker) Repetitions() int {
	return w.repetitions
}

// Run executes op w.repetitions times and returns the raw series. Only the call to
// op is inside the timed window. The first error aborts the series.
func (w *Worker) Run(operation string, op func() error) (*Metric, error) {
	metric := &Metric{Rts: make([]float64, 0, w.repetitions)}

	for rep := 0; rep < w.repetitions; rep++ {
		start := time.Now()
		err := op()
		rt := util.SecondsSince(start)

		if err != nil {
			zlog.Error().Str("run", w.runID).Str("backend", w.backend).Str("operation", operation).
				Int("rep", rep).Err(err).Msg("aborted")
			return nil, fmt.Errorf("%s %q repetition %d: %w", w.backend, operation, rep, err)
		}

		metric.Rts = append(metric.Rts, rt)
		metric.TotalRt += rt
		metric.CompleteCount++

		zlog.Debug().Str("run", w.runID).Str("backend", w.backend).Str("operation", operation).
			Int("rep", rep).Float64("rt", rt).Msg("completed")
	}

	return metric, nil
}

// Measure is Run without a worker: it times op repetitions times and returns the
// elapsed seconds of each call.
func Measure(repetitions int, op func() error) ([]float64, error) {
	w, err := NewWorker("", "", repetitions)
	if err != nil {
		return nil, err
	}
	m, err := w.Run("", op)
	if err != nil {
		return nil, err
	}
	return m.Rts, nil
}
