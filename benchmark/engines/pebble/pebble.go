// Package pebble stores the records in a Pebble LSM under the "person/" prefix.
// Clearing the dataset is a single range tombstone.
//
// Name patterns use engine.MatchNamePattern (case-sensitive).
package pebble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	engine "persistbench/benchmark/engines/abstract"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	zlog "github.com/rs/zerolog/log"
)

const (
	KeyPath     = "path"
	KeySync     = "sync"
	KeyInMemory = "in_memory"
)

var (
	prefix    = []byte(engine.Table + "/")
	prefixEnd = engine.PrefixEnd(prefix)
)

func init() {
	engine.Register("pebble", NewFactory, Defaults)
}

func Defaults() map[string]string {
	return map[string]string{
		KeyPath:     "~/.persistbench/pebble",
		KeySync:     "true",
		KeyInMemory: "false",
	}
}

func NewFactory(_ context.Context, config map[string]string) (engine.Backend, error) {
	inMemory, err := engine.GetBool(config, KeyInMemory, false)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("pebble", KeyInMemory, config[KeyInMemory], err.Error())
	}
	sync, err := engine.GetBool(config, KeySync, true)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("pebble", KeySync, config[KeySync], err.Error())
	}

	opts := &pebble.Options{}
	path := ""
	if inMemory {
		opts.FS = vfs.NewMem()
	} else {
		path = engine.GetString(config, KeyPath, "")
		if path == "" {
			return nil, engine.NewConfigError("pebble", KeyPath, "cannot be empty")
		}
		path = engine.ExpandPath(path)
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, engine.NewConfigErrorWithCause("pebble", KeyPath, "failed to create directory", err)
		}
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, engine.NewConfigErrorWithCause("pebble", KeyPath, "failed to open database", err)
	}

	zlog.Info().Str("engine", "pebble").Bool("inMemory", inMemory).Bool("sync", sync).Msg("Pebble backend ready")
	return NewWithDB(db, sync), nil
}

type Backend struct {
	db     *pebble.DB
	write  *pebble.WriteOptions
	closed atomic.Bool
}

// NewWithDB wraps an open database. With sync every write waits for the WAL to be
// fsynced.
func NewWithDB(db *pebble.DB, sync bool) *Backend {
	write := pebble.NoSync
	if sync {
		write = pebble.Sync
	}
	return &Backend{db: db, write: write}
}

func (b *Backend) InsertSingle(_ context.Context, persons []engine.Person) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	if err := b.db.DeleteRange(prefix, prefixEnd, b.write); err != nil {
		return fmt.Errorf("pebble: delete range: %w", err)
	}
	for _, p := range persons {
		value, err := engine.EncodePerson(p)
		if err != nil {
			return err
		}
		if err := b.db.Set(engine.Key(prefix, p.ID), value, b.write); err != nil {
			return fmt.Errorf("pebble: insert %d: %w", p.ID, err)
		}
	}
	return nil
}

// InsertBulk clears and repopulates the dataset in one atomic batch.
func (b *Backend) InsertBulk(_ context.Context, persons []engine.Person) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	batch := b.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange(prefix, prefixEnd, nil); err != nil {
		return err
	}
	if err := setAll(batch, persons); err != nil {
		return err
	}
	return batch.Commit(b.write)
}

func setAll(batch *pebble.Batch, persons []engine.Person) error {
	for _, p := range persons {
		value, err := engine.EncodePerson(p)
		if err != nil {
			return err
		}
		if err := batch.Set(engine.Key(prefix, p.ID), value, nil); err != nil {
			return fmt.Errorf("pebble: set %d: %w", p.ID, err)
		}
	}
	return nil
}

func (b *Backend) scan() ([]engine.Person, error) {
	iter, err := b.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd})
	if err != nil {
		return nil, err
	}

	var persons []engine.Person
	for iter.First(); iter.Valid(); iter.Next() {
		p, err := engine.DecodePerson(iter.Value())
		if err != nil {
			iter.Close()
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, iter.Close()
}

func (b *Backend) FetchAll(_ context.Context) (int, error) {
	if b.closed.Load() {
		return 0, engine.ErrClosed
	}
	persons, err := b.scan()
	if err != nil {
		return 0, fmt.Errorf("pebble: scan: %w", err)
	}
	return len(persons), nil
}

func (b *Backend) FetchSingle(_ context.Context, id int64) (engine.Person, bool, error) {
	if b.closed.Load() {
		return engine.Person{}, false, engine.ErrClosed
	}
	value, closer, err := b.db.Get(engine.Key(prefix, id))
	if errors.Is(err, pebble.ErrNotFound) {
		return engine.Person{}, false, nil
	}
	if err != nil {
		return engine.Person{}, false, fmt.Errorf("pebble: get %d: %w", id, err)
	}
	defer closer.Close()

	p, err := engine.DecodePerson(value)
	if err != nil {
		return engine.Person{}, false, err
	}
	return p, true, nil
}

func (b *Backend) DeleteAll(_ context.Context) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	return b.db.DeleteRange(prefix, prefixEnd, b.write)
}

// mutate scans, applies m and commits the changed records as one batch.
func (b *Backend) mutate(m engine.Mutation, firstOnly bool) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	persons, err := b.scan()
	if err != nil {
		return fmt.Errorf("pebble: scan: %w", err)
	}
	changed := engine.Apply(persons, m, firstOnly)
	if len(changed) == 0 {
		return nil
	}

	batch := b.db.NewBatch()
	defer batch.Close()
	if err := setAll(batch, changed); err != nil {
		return err
	}
	return batch.Commit(b.write)
}

func (b *Backend) UpdateSingleByID(ctx context.Context, id int64, name string, age int) error {
	_, found, err := b.FetchSingle(ctx, id)
	if err != nil || !found {
		return err
	}
	value, err := engine.EncodePerson(engine.Person{ID: id, Name: name, Age: age})
	if err != nil {
		return err
	}
	return b.db.Set(engine.Key(prefix, id), value, b.write)
}

func (b *Backend) UpdateSingleByName(_ context.Context, oldName string, name string, age int) error {
	return b.mutate(engine.SetFields(engine.MatchName(oldName), name, age), true)
}

func (b *Backend) UpdateAllRecords(_ context.Context, name string, age int) error {
	return b.mutate(engine.SetFields(engine.MatchAll(), name, age), false)
}

func (b *Backend) UpdateMultipleByIDs(_ context.Context, ids []int64, name string, age int) error {
	return b.mutate(engine.SetFields(engine.MatchIDs(ids), name, age), false)
}

func (b *Backend) UpdateByAgeRange(_ context.Context, minAge int, maxAge int, name string, age int) error {
	return b.mutate(engine.SetFields(engine.MatchAgeRange(minAge, maxAge), name, age), false)
}

func (b *Backend) UpdateByNamePattern(_ context.Context, pattern string, name string, age int) error {
	return b.mutate(engine.SetFields(engine.MatchNamePattern(pattern), name, age), false)
}

func (b *Backend) IncrementAgeBy(_ context.Context, amount int) error {
	return b.mutate(engine.AddAge(amount), false)
}

func (b *Backend) AppendToNames(_ context.Context, suffix string) error {
	return b.mutate(engine.AppendName(suffix), false)
}

func (b *Backend) Size(_ context.Context) (int64, error) {
	if b.closed.Load() {
		return 0, engine.ErrClosed
	}
	return int64(b.db.Metrics().DiskSpaceUsage()), nil
}

func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
