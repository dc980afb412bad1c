// Package redis stores the records in one Redis hash, field = id and value = JSON.
//
// Name patterns use engine.MatchNamePattern (case-sensitive).
package redis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	engine "persistbench/benchmark/engines/abstract"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

const (
	KeyAddr         = "addr"
	KeyPassword     = "password"
	KeyDB           = "db"
	KeyMaxRetries   = "max_retries"
	KeyDialTimeout  = "dial_timeout"
	KeyReadTimeout  = "read_timeout"
	KeyWriteTimeout = "write_timeout"
	KeyPoolSize     = "pool_size"
	KeyKeyPrefix    = "key_prefix"

	// fields per HSET inside a bulk transaction
	pipelineBatchSize = 1000
)

func init() {
	engine.Register("redis", NewFactory, Defaults)
}

func Defaults() map[string]string {
	return map[string]string{
		KeyAddr:         "localhost:6379",
		KeyPassword:     "",
		KeyDB:           "0",
		KeyMaxRetries:   "3",
		KeyDialTimeout:  "5s",
		KeyReadTimeout:  "30s",
		KeyWriteTimeout: "30s",
		KeyPoolSize:     "0",
		KeyKeyPrefix:    "persistbench:",
	}
}

func NewFactory(ctx context.Context, config map[string]string) (engine.Backend, error) {
	addr := engine.GetString(config, KeyAddr, "")
	if addr == "" {
		return nil, engine.NewConfigError("redis", KeyAddr, "cannot be empty")
	}

	db, err := engine.GetInt(config, KeyDB, 0)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("redis", KeyDB, config[KeyDB], err.Error())
	}
	if db < 0 {
		return nil, engine.NewConfigErrorWithValue("redis", KeyDB, config[KeyDB], "must be non-negative")
	}

	maxRetries, err := engine.GetInt(config, KeyMaxRetries, 3)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("redis", KeyMaxRetries, config[KeyMaxRetries], err.Error())
	}

	dialTimeout, err := engine.GetDuration(config, KeyDialTimeout, 5*time.Second)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("redis", KeyDialTimeout, config[KeyDialTimeout], err.Error())
	}

	readTimeout, err := engine.GetDuration(config, KeyReadTimeout, 30*time.Second)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("redis", KeyReadTimeout, config[KeyReadTimeout], err.Error())
	}

	writeTimeout, err := engine.GetDuration(config, KeyWriteTimeout, 30*time.Second)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("redis", KeyWriteTimeout, config[KeyWriteTimeout], err.Error())
	}

	poolSize, err := engine.GetInt(config, KeyPoolSize, 0)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("redis", KeyPoolSize, config[KeyPoolSize], err.Error())
	}

	opts := &redis.Options{
		Addr:         addr,
		Password:     engine.GetString(config, KeyPassword, ""),
		DB:           db,
		MaxRetries:   maxRetries,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, engine.NewConfigErrorWithCause("redis", KeyAddr, "failed to connect", err)
	}

	keyPrefix := engine.GetString(config, KeyKeyPrefix, "persistbench:")
	zlog.Info().Str("engine", "redis").Str("addr", addr).Int("db", db).Str("keyPrefix", keyPrefix).Msg("Redis backend ready")
	return NewWithClient(client, keyPrefix), nil
}

type Backend struct {
	client *redis.Client
	key    string
	closed atomic.Bool
}

// NewWithClient stores the records under the hash keyPrefix + "person".
func NewWithClient(client *redis.Client, keyPrefix string) *Backend {
	return &Backend{client: client, key: keyPrefix + engine.Table}
}

func field(id int64) string {
	return strconv.FormatInt(id, 10)
}

// hset queues HSETs of persons on pipe, pipelineBatchSize fields at a time.
func (b *Backend) hset(ctx context.Context, pipe redis.Pipeliner, persons []engine.Person) error {
	for chunk := range slices.Chunk(persons, pipelineBatchSize) {
		values := make([]any, 0, 2*len(chunk))
		for _, p := range chunk {
			value, err := engine.EncodePerson(p)
			if err != nil {
				return err
			}
			values = append(values, field(p.ID), value)
		}
		pipe.HSet(ctx, b.key, values...)
	}
	return nil
}

func (b *Backend) InsertSingle(ctx context.Context, persons []engine.Person) error {
	if err := b.DeleteAll(ctx); err != nil {
		return err
	}
	for _, p := range persons {
		_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return b.hset(ctx, pipe, []engine.Person{p})
		})
		if err != nil {
			return fmt.Errorf("redis: insert %d: %w", p.ID, err)
		}
	}
	return nil
}

// InsertBulk replaces the hash in one MULTI/EXEC transaction.
func (b *Backend) InsertBulk(ctx context.Context, persons []engine.Person) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.key)
		return b.hset(ctx, pipe, persons)
	})
	if err != nil {
		return fmt.Errorf("redis: insert bulk: %w", err)
	}
	return nil
}

// scan returns every record sorted by id.
func (b *Backend) scan(ctx context.Context) ([]engine.Person, error) {
	values, err := b.client.HVals(ctx, b.key).Result()
	if err != nil {
		return nil, err
	}
	persons := make([]engine.Person, 0, len(values))
	for _, v := range values {
		p, err := engine.DecodePerson([]byte(v))
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	slices.SortFunc(persons, func(x, y engine.Person) int {
		return cmp.Compare(x.ID, y.ID)
	})
	return persons, nil
}

func (b *Backend) FetchAll(ctx context.Context) (int, error) {
	if b.closed.Load() {
		return 0, engine.ErrClosed
	}
	persons, err := b.scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("redis: scan: %w", err)
	}
	return len(persons), nil
}

func (b *Backend) FetchSingle(ctx context.Context, id int64) (engine.Person, bool, error) {
	if b.closed.Load() {
		return engine.Person{}, false, engine.ErrClosed
	}
	value, err := b.client.HGet(ctx, b.key, field(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return engine.Person{}, false, nil
	}
	if err != nil {
		return engine.Person{}, false, fmt.Errorf("redis: get %d: %w", id, err)
	}
	p, err := engine.DecodePerson(value)
	if err != nil {
		return engine.Person{}, false, err
	}
	return p, true, nil
}

func (b *Backend) DeleteAll(ctx context.Context) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	return b.client.Del(ctx, b.key).Err()
}

func (b *Backend) mutate(ctx context.Context, m engine.Mutation, firstOnly bool) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	persons, err := b.scan(ctx)
	if err != nil {
		return fmt.Errorf("redis: scan: %w", err)
	}
	changed := engine.Apply(persons, m, firstOnly)
	if len(changed) == 0 {
		return nil
	}
	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return b.hset(ctx, pipe, changed)
	})
	return err
}

func (b *Backend) UpdateSingleByID(ctx context.Context, id int64, name string, age int) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	exists, err := b.client.HExists(ctx, b.key, field(id)).Result()
	if err != nil || !exists {
		return err
	}
	value, err := engine.EncodePerson(engine.Person{ID: id, Name: name, Age: age})
	if err != nil {
		return err
	}
	return b.client.HSet(ctx, b.key, field(id), value).Err()
}

func (b *Backend) UpdateSingleByName(ctx context.Context, oldName string, name string, age int) error {
	return b.mutate(ctx, engine.SetFields(engine.MatchName(oldName), name, age), true)
}

func (b *Backend) UpdateAllRecords(ctx context.Context, name string, age int) error {
	return b.mutate(ctx, engine.SetFields(engine.MatchAll(), name, age), false)
}

func (b *Backend) UpdateMultipleByIDs(ctx context.Context, ids []int64, name string, age int) error {
	return b.mutate(ctx, engine.SetFields(engine.MatchIDs(ids), name, age), false)
}

func (b *Backend) UpdateByAgeRange(ctx context.Context, minAge int, maxAge int, name string, age int) error {
	return b.mutate(ctx, engine.SetFields(engine.MatchAgeRange(minAge, maxAge), name, age), false)
}

func (b *Backend) UpdateByNamePattern(ctx context.Context, pattern string, name string, age int) error {
	return b.mutate(ctx, engine.SetFields(engine.MatchNamePattern(pattern), name, age), false)
}

func (b *Backend) IncrementAgeBy(ctx context.Context, amount int) error {
	return b.mutate(ctx, engine.AddAge(amount), false)
}

func (b *Backend) AppendToNames(ctx context.Context, suffix string) error {
	return b.mutate(ctx, engine.AppendName(suffix), false)
}

// Size returns the memory Redis reports for the hash.
func (b *Backend) Size(ctx context.Context) (int64, error) {
	if b.closed.Load() {
		return 0, engine.ErrClosed
	}
	size, err := b.client.MemoryUsage(ctx, b.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return size, err
}

func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.client.Close()
}
