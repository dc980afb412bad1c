// Package riak_engine stores each record as a JSON object in a Riak KV bucket, keyed
// by the decimal id. Riak has no multi-key transactions or server-side filters, so
// bulk writes and every scan fan out over a bounded number of goroutines.
//
// Name patterns use engine.MatchNamePattern (case-sensitive).
package riak_engine

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	engine "persistbench/benchmark/engines/abstract"

	"github.com/basho/riak-go-client"
	zlog "github.com/rs/zerolog/log"
)

const (
	KeyAddresses       = "addresses"
	KeyBucketType      = "bucket_type"
	KeyBucket          = "bucket"
	KeyConcurrency     = "concurrency"
	KeyStorageInfoPort = "storage_info_port"
)

func init() {
	engine.Register("riak", NewFactory, Defaults)
}

func Defaults() map[string]string {
	return map[string]string{
		KeyAddresses:       "127.0.0.1:8087",
		KeyBucketType:      "default",
		KeyBucket:          engine.Table,
		KeyConcurrency:     "32",
		KeyStorageInfoPort: "0",
	}
}

func NewFactory(_ context.Context, config map[string]string) (engine.Backend, error) {
	addresses := strings.Split(engine.GetString(config, KeyAddresses, ""), ",")
	if addresses[0] == "" {
		return nil, engine.NewConfigError("riak", KeyAddresses, "cannot be empty")
	}
	concurrency, err := engine.GetInt(config, KeyConcurrency, 32)
	if err != nil || concurrency < 1 {
		return nil, engine.NewConfigErrorWithValue("riak", KeyConcurrency, config[KeyConcurrency], "must be a positive integer")
	}
	storageInfoPort, err := engine.GetInt(config, KeyStorageInfoPort, 0)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("riak", KeyStorageInfoPort, config[KeyStorageInfoPort], err.Error())
	}

	client, err := riak.NewClient(&riak.NewClientOptions{RemoteAddresses: addresses})
	if err != nil {
		return nil, engine.NewConfigErrorWithCause("riak", KeyAddresses, "failed to connect", err)
	}
	if _, err := client.Ping(); err != nil {
		client.Stop()
		return nil, engine.NewConfigErrorWithCause("riak", KeyAddresses, "ping failed", err)
	}

	r := &Riak{
		client:      client,
		bucketType:  engine.GetString(config, KeyBucketType, "default"),
		bucket:      engine.GetString(config, KeyBucket, engine.Table),
		concurrency: concurrency,
	}
	if storageInfoPort > 0 {
		host, _, _ := net.SplitHostPort(addresses[0])
		r.storageInfoURL = "http://" + net.JoinHostPort(host, strconv.Itoa(storageInfoPort))
	}

	zlog.Info().Str("engine", "riak").Strs("addresses", addresses).Str("bucket", r.bucket).
		Int("concurrency", concurrency).Msg("Riak backend ready")
	return r, nil
}

type Riak struct {
	client         *riak.Client
	bucketType     string
	bucket         string
	concurrency    int
	storageInfoURL string
	closed         atomic.Bool
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// parallel runs fn for every item with at most r.concurrency in flight and returns
// the first error.
func parallel[T any](r *Riak, items []T, fn func(T) error) error {
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	semaphore := make(chan struct{}, r.concurrency)
	for _, item := range items {
		wg.Add(1)
		semaphore <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-semaphore }()
			if err := fn(item); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// timeout is the time left before the ctx deadline, if it has one.
func timeout(ctx context.Context) (time.Duration, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	return max(time.Until(deadline), time.Millisecond), true
}

// execute runs cmd unless ctx is already done. Commands carry the ctx deadline as
// their server-side timeout, so a running command cannot outlive it.
func (r *Riak) execute(ctx context.Context, cmd riak.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.client.Execute(cmd)
}

func (r *Riak) store(ctx context.Context, p engine.Person) error {
	value, err := engine.EncodePerson(p)
	if err != nil {
		return err
	}
	builder := riak.NewStoreValueCommandBuilder().
		WithBucketType(r.bucketType).
		WithBucket(r.bucket).
		WithKey(key(p.ID)).
		WithContent(&riak.Object{ContentType: "application/json", Value: value})
	if t, ok := timeout(ctx); ok {
		builder = builder.WithTimeout(t)
	}
	cmd, err := builder.Build()
	if err != nil {
		return err
	}
	return r.execute(ctx, cmd)
}

func (r *Riak) fetch(ctx context.Context, k string) (engine.Person, bool, error) {
	builder := riak.NewFetchValueCommandBuilder().
		WithBucketType(r.bucketType).
		WithBucket(r.bucket).
		WithKey(k)
	if t, ok := timeout(ctx); ok {
		builder = builder.WithTimeout(t)
	}
	cmd, err := builder.Build()
	if err != nil {
		return engine.Person{}, false, err
	}
	if err := r.execute(ctx, cmd); err != nil {
		return engine.Person{}, false, err
	}

	// a key listed but no longer fetchable was deleted in between
	resp := cmd.(*riak.FetchValueCommand).Response
	if resp == nil || resp.IsNotFound || len(resp.Values) == 0 {
		return engine.Person{}, false, nil
	}
	p, err := engine.DecodePerson(resp.Values[0].Value)
	return p, err == nil, err
}

func (r *Riak) listKeys(ctx context.Context) ([]string, error) {
	builder := riak.NewListKeysCommandBuilder().
		WithBucketType(r.bucketType).
		WithBucket(r.bucket)
	if t, ok := timeout(ctx); ok {
		builder = builder.WithTimeout(t)
	}
	cmd, err := builder.Build()
	if err != nil {
		return nil, err
	}
	if err := r.execute(ctx, cmd); err != nil {
		return nil, err
	}
	return cmd.(*riak.ListKeysCommand).Response.Keys, nil
}

// scan lists the bucket and fetches every value, returning the records sorted by id.
func (r *Riak) scan(ctx context.Context) ([]engine.Person, error) {
	keys, err := r.listKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("riak: list keys: %w", err)
	}

	var (
		mu      sync.Mutex
		persons = make([]engine.Person, 0, len(keys))
	)
	err = parallel(r, keys, func(k string) error {
		p, found, err := r.fetch(ctx, k)
		if err != nil || !found {
			return err
		}
		mu.Lock()
		persons = append(persons, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("riak: fetch: %w", err)
	}

	slices.SortFunc(persons, func(x, y engine.Person) int {
		return cmp.Compare(x.ID, y.ID)
	})
	return persons, nil
}

func (r *Riak) InsertSingle(ctx context.Context, persons []engine.Person) error {
	if err := r.DeleteAll(ctx); err != nil {
		return err
	}
	for _, p := range persons {
		if err := r.store(ctx, p); err != nil {
			return fmt.Errorf("riak: insert %d: %w", p.ID, err)
		}
	}
	return nil
}

func (r *Riak) InsertBulk(ctx context.Context, persons []engine.Person) error {
	if err := r.DeleteAll(ctx); err != nil {
		return err
	}
	if err := parallel(r, persons, func(p engine.Person) error { return r.store(ctx, p) }); err != nil {
		return fmt.Errorf("riak: insert bulk: %w", err)
	}
	return nil
}

func (r *Riak) FetchAll(ctx context.Context) (int, error) {
	if r.closed.Load() {
		return 0, engine.ErrClosed
	}
	persons, err := r.scan(ctx)
	return len(persons), err
}

func (r *Riak) FetchSingle(ctx context.Context, id int64) (engine.Person, bool, error) {
	if r.closed.Load() {
		return engine.Person{}, false, engine.ErrClosed
	}
	return r.fetch(ctx, key(id))
}

// DeleteAll lists the bucket and deletes every key.
func (r *Riak) DeleteAll(ctx context.Context) error {
	if r.closed.Load() {
		return engine.ErrClosed
	}
	keys, err := r.listKeys(ctx)
	if err != nil {
		return fmt.Errorf("riak: list keys: %w", err)
	}
	return parallel(r, keys, func(k string) error {
		builder := riak.NewDeleteValueCommandBuilder().
			WithBucketType(r.bucketType).
			WithBucket(r.bucket).
			WithKey(k)
		if t, ok := timeout(ctx); ok {
			builder = builder.WithTimeout(t)
		}
		cmd, err := builder.Build()
		if err != nil {
			return err
		}
		return r.execute(ctx, cmd)
	})
}

func (r *Riak) mutate(ctx context.Context, m engine.Mutation, firstOnly bool) error {
	if r.closed.Load() {
		return engine.ErrClosed
	}
	persons, err := r.scan(ctx)
	if err != nil {
		return err
	}
	return parallel(r, engine.Apply(persons, m, firstOnly), func(p engine.Person) error {
		return r.store(ctx, p)
	})
}

func (r *Riak) UpdateSingleByID(ctx context.Context, id int64, name string, age int) error {
	_, found, err := r.FetchSingle(ctx, id)
	if err != nil || !found {
		return err
	}
	return r.store(ctx, engine.Person{ID: id, Name: name, Age: age})
}

func (r *Riak) UpdateSingleByName(ctx context.Context, oldName string, name string, age int) error {
	return r.mutate(ctx, engine.SetFields(engine.MatchName(oldName), name, age), true)
}

func (r *Riak) UpdateAllRecords(ctx context.Context, name string, age int) error {
	return r.mutate(ctx, engine.SetFields(engine.MatchAll(), name, age), false)
}

// UpdateMultipleByIDs fetches only the listed ids instead of scanning the bucket.
func (r *Riak) UpdateMultipleByIDs(ctx context.Context, ids []int64, name string, age int) error {
	if r.closed.Load() {
		return engine.ErrClosed
	}
	return parallel(r, ids, func(id int64) error {
		_, found, err := r.fetch(ctx, key(id))
		if err != nil || !found {
			return err
		}
		return r.store(ctx, engine.Person{ID: id, Name: name, Age: age})
	})
}

func (r *Riak) UpdateByAgeRange(ctx context.Context, minAge int, maxAge int, name string, age int) error {
	return r.mutate(ctx, engine.SetFields(engine.MatchAgeRange(minAge, maxAge), name, age), false)
}

func (r *Riak) UpdateByNamePattern(ctx context.Context, pattern string, name string, age int) error {
	return r.mutate(ctx, engine.SetFields(engine.MatchNamePattern(pattern), name, age), false)
}

func (r *Riak) IncrementAgeBy(ctx context.Context, amount int) error {
	return r.mutate(ctx, engine.AddAge(amount), false)
}

func (r *Riak) AppendToNames(ctx context.Context, suffix string) error {
	return r.mutate(ctx, engine.AppendName(suffix), false)
}

// Size asks the storage info sidecar for the bitcask size on disk. Without a
// configured port the size is unknown.
func (r *Riak) Size(ctx context.Context) (int64, error) {
	if r.storageInfoURL == "" {
		return 0, fmt.Errorf("riak: %s not configured", KeyStorageInfoPort)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.storageInfoURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
}

func (r *Riak) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.client.Stop()
}
