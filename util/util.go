package util

import (
	"math"
	"slices"
	"time"
)

// Returns the seconds elapsed since start, read from the monotonic clock
func SecondsSince(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// Computes a percentile (0-100) from an array, interpolating between the closest
// ranks. The input is not modified.
func Percentile(a []float64, p int) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	if len(a) == 1 {
		return a[0]
	}

	sorted := slices.Clone(a)
	slices.Sort(sorted)

	r := (float64(p) / 100) * float64(len(sorted)-1)
	ri := int(r)
	if ri >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	rf := r - float64(ri)
	return sorted[ri] + rf*(sorted[ri+1]-sorted[ri])
}
