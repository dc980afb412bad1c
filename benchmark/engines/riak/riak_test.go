package riak_engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	engine "persistbench/benchmark/engines/abstract"
)

func TestConfigValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"no addresses":     {KeyAddresses: ""},
		"zero concurrency": {KeyAddresses: "127.0.0.1:8087", KeyConcurrency: "0"},
		"bad port":         {KeyAddresses: "127.0.0.1:8087", KeyStorageInfoPort: "http"},
	}
	for name, config := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewFactory(context.Background(), config)
			var ce *engine.ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("err = %v, want *ConfigError", err)
			}
		})
	}
}

func TestParallelBoundsConcurrency(t *testing.T) {
	r := &Riak{concurrency: 3}
	var inFlight, peak atomic.Int32

	items := make([]int, 50)
	err := parallel(r, items, func(int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestParallelReturnsError(t *testing.T) {
	r := &Riak{concurrency: 4}
	boom := errors.New("boom")
	err := parallel(r, []int{1, 2, 3}, func(i int) error {
		if i == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestSizeWithoutSidecar(t *testing.T) {
	r := &Riak{}
	if _, err := r.Size(context.Background()); err == nil {
		t.Error("expected an error without a storage info port")
	}
}

func TestTimeoutFollowsDeadline(t *testing.T) {
	if _, ok := timeout(context.Background()); ok {
		t.Error("timeout without a deadline should not be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	d, ok := timeout(ctx)
	if !ok || d <= 0 || d > time.Hour {
		t.Errorf("timeout = %v, %v, want (0, 1h]", d, ok)
	}
}

// A done ctx stops every command before it reaches the client, which is nil here.
func TestCanceledContextSkipsCommands(t *testing.T) {
	r := &Riak{bucketType: "default", bucket: engine.Table, concurrency: 2}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.store(ctx, engine.Person{ID: 1, Name: "a", Age: 30}); !errors.Is(err, context.Canceled) {
		t.Errorf("store err = %v, want context.Canceled", err)
	}
	if _, _, err := r.fetch(ctx, key(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("fetch err = %v, want context.Canceled", err)
	}
	if _, err := r.listKeys(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("listKeys err = %v, want context.Canceled", err)
	}
	if err := r.UpdateMultipleByIDs(ctx, []int64{1, 2, 3}, "x", 1); !errors.Is(err, context.Canceled) {
		t.Errorf("UpdateMultipleByIDs err = %v, want context.Canceled", err)
	}
}
