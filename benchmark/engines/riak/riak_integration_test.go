//go:build integration

package riak_engine

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/engines/enginetest"
)

func newTestBackend(t *testing.T) engine.Backend {
	t.Helper()
	addr := os.Getenv("RIAK_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8087"
	}
	be, err := NewFactory(context.Background(), map[string]string{
		KeyAddresses: addr,
		KeyBucket:    fmt.Sprintf("test-%d", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		be.DeleteAll(context.Background())
		be.Close()
	})
	return be
}

func TestContract(t *testing.T) {
	enginetest.RunContract(t, newTestBackend)
}
