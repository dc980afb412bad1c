// Package result aggregates timing series into per-operation comparisons.
package result

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"persistbench/util"
)

var (
	ErrNoSamples       = errors.New("timing series is empty")
	ErrMissingBackend  = errors.New("no timing series for backend")
	ErrNegativeAverage = errors.New("average must not be negative")
)

// Stats summarises one backend's timing series for an operation, in seconds.
type Stats struct {
	Average float64
	Min     float64
	Max     float64
	P95     float64
	Samples int
}

// Result compares the backends on a single operation. Backends keeps the order the
// backends were registered in, which is also the order ties are reported in.
type Result struct {
	Operation string
	Backends  []string
	Stats     map[string]Stats
}

// Average returns the arithmetic mean of a series.
func Average(series []float64) (float64, error) {
	if len(series) == 0 {
		return 0, ErrNoSamples
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series)), nil
}

func summarize(series []float64) (Stats, error) {
	avg, err := Average(series)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Average: avg, Min: series[0], Max: series[0], Samples: len(series)}
	for _, v := range series[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.P95 = util.Percentile(series, 95)
	return s, nil
}

// New builds a Result from the raw timing series of every backend.
func New(operation string, backends []string, series map[string][]float64) (*Result, error) {
	r := &Result{Operation: operation, Backends: backends, Stats: make(map[string]Stats, len(backends))}
	for _, b := range backends {
		s, ok := series[b]
		if !ok {
			return nil, fmt.Errorf("%s: %w %q", operation, ErrMissingBackend, b)
		}
		stats, err := summarize(s)
		if err != nil {
			return nil, fmt.Errorf("%s: backend %q: %w", operation, b, err)
		}
		if stats.Average < 0 {
			return nil, fmt.Errorf("%s: backend %q: %w", operation, b, ErrNegativeAverage)
		}
		r.Stats[b] = stats
	}
	return r, nil
}

// FromAverages builds a Result when only the per-backend averages are known.
func FromAverages(operation string, backends []string, averages map[string]float64) (*Result, error) {
	r := &Result{Operation: operation, Backends: backends, Stats: make(map[string]Stats, len(backends))}
	for _, b := range backends {
		avg, ok := averages[b]
		if !ok {
			return nil, fmt.Errorf("%s: %w %q", operation, ErrMissingBackend, b)
		}
		if avg < 0 {
			return nil, fmt.Errorf("%s: backend %q: %w", operation, b, ErrNegativeAverage)
		}
		r.Stats[b] = Stats{Average: avg, Min: avg, Max: avg, P95: avg, Samples: 1}
	}
	return r, nil
}

// Average returns the average seconds of a backend.
func (r *Result) Average(backend string) float64 {
	return r.Stats[backend].Average
}

// Fastest returns every backend whose average equals the minimum exactly, in
// registration order. More than one name means a tie.
func (r *Result) Fastest() []string {
	if len(r.Backends) == 0 {
		return nil
	}
	lowest := math.Inf(1)
	for _, b := range r.Backends {
		lowest = math.Min(lowest, r.Stats[b].Average)
	}
	var fastest []string
	for _, b := range r.Backends {
		if r.Stats[b].Average == lowest {
			fastest = append(fastest, b)
		}
	}
	return fastest
}

func (r *Result) IsTie() bool {
	return len(r.Fastest()) > 1
}

// FastestLabel names the fastest backend, or "Tie: A & B" when several share the
// minimum average.
func (r *Result) FastestLabel() string {
	fastest := r.Fastest()
	switch len(fastest) {
	case 0:
		return ""
	case 1:
		return fastest[0]
	default:
		return "Tie: " + strings.Join(fastest, " & ")
	}
}

// Improvement is how much faster the fastest backend is than the slowest, as a
// percentage of the slowest average. It is 0 when the slowest average is 0.
func (r *Result) Improvement() float64 {
	if len(r.Backends) == 0 {
		return 0
	}
	lowest, highest := math.Inf(1), math.Inf(-1)
	for _, b := range r.Backends {
		avg := r.Stats[b].Average
		lowest = math.Min(lowest, avg)
		highest = math.Max(highest, avg)
	}
	if highest == 0 {
		return 0
	}
	return (highest - lowest) / highest * 100
}
