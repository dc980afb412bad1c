package worker

import (
	"errors"
	"testing"
	"time"
)

func TestRunRecordsEveryRepetition(t *testing.T) {
	w, err := NewWorker("run", "memory", 4)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	m, err := w.Run("sleep", func() error {
		calls++
		time.Sleep(time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 4 || m.CompleteCount != 4 || len(m.Rts) != 4 {
		t.Fatalf("calls=%d complete=%d rts=%d, want 4", calls, m.CompleteCount, len(m.Rts))
	}

	var sum float64
	for _, rt := range m.Rts {
		if rt < 0.001 {
			t.Errorf("rt = %v, want >= 1ms", rt)
		}
		sum += rt
	}
	if sum != m.TotalRt {
		t.Errorf("TotalRt = %v, sum of Rts = %v", m.TotalRt, sum)
	}
}

func TestRunIsSequentialAndCompounds(t *testing.T) {
	state := 0
	rts, err := Measure(10, func() error {
		state++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if state != 10 || len(rts) != 10 {
		t.Errorf("state=%d len=%d, want 10", state, len(rts))
	}
}

func TestRunAbortsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Measure(5, func() error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRepetitionDefaults(t *testing.T) {
	w, err := NewWorker("", "b", 0)
	if err != nil {
		t.Fatal(err)
	}
	if w.Repetitions() != DefaultRepetitions {
		t.Errorf("Repetitions = %d, want %d", w.Repetitions(), DefaultRepetitions)
	}
	if _, err := NewWorker("", "b", -1); !errors.Is(err, ErrInvalidRepetitions) {
		t.Errorf("NewWorker(-1) = %v, want ErrInvalidRepetitions", err)
	}
}
