package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"persistbench/benchmark/result"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveResult(t *testing.T) {
	m := New()
	r, err := result.FromAverages("Update Bulk", []string{"A", "B"}, map[string]float64{"A": 0.2, "B": 0.05})
	if err != nil {
		t.Fatal(err)
	}
	m.ObserveResult(r)

	if got := testutil.ToFloat64(m.OperationAverage.WithLabelValues("B", "Update Bulk")); got != 0.05 {
		t.Errorf("average(B) = %v, want 0.05", got)
	}
	if got := testutil.ToFloat64(m.Improvement.WithLabelValues("Update Bulk")); got < 74.999 || got > 75.001 {
		t.Errorf("improvement = %v, want 75", got)
	}
}

func TestObserveRepetition(t *testing.T) {
	m := New()
	for i := 0; i < 3; i++ {
		m.ObserveRepetition("A", "Insert Bulk", 0.01)
	}
	if n := testutil.CollectAndCount(m.RepetitionDuration); n != 1 {
		t.Errorf("series = %d, want 1", n)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveRepetition("A", "Insert Single", 0.002)

	path := filepath.Join(t.TempDir(), "persistbench.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "persistbench_repetition_duration_seconds_count") {
		t.Errorf("textfile missing histogram:\n%s", data)
	}
}
