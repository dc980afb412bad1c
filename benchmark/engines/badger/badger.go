// Package badger stores the records in BadgerDB, one key per person under the
// "person/" prefix with a JSON value.
//
// Name patterns use engine.MatchNamePattern (case-sensitive).
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	engine "persistbench/benchmark/engines/abstract"

	"github.com/dgraph-io/badger/v4"
	zlog "github.com/rs/zerolog/log"
)

const (
	KeyPath       = "path"
	KeySyncWrites = "sync_writes"
	KeyInMemory   = "in_memory"

	// bytes per value log file; 0 keeps badger's default
	KeyValueLogFileSize = "value_log_file_size"
)

var prefix = []byte(engine.Table + "/")

func init() {
	engine.Register("badger", NewFactory, Defaults)
}

func Defaults() map[string]string {
	return map[string]string{
		KeyPath:             "~/.persistbench/badger",
		KeySyncWrites:       "false",
		KeyInMemory:         "false",
		KeyValueLogFileSize: "0",
	}
}

func NewFactory(_ context.Context, config map[string]string) (engine.Backend, error) {
	inMemory, err := engine.GetBool(config, KeyInMemory, false)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("badger", KeyInMemory, config[KeyInMemory], err.Error())
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		path := engine.GetString(config, KeyPath, "")
		if path == "" {
			return nil, engine.NewConfigError("badger", KeyPath, "cannot be empty")
		}
		path = engine.ExpandPath(path)
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, engine.NewConfigErrorWithCause("badger", KeyPath, "failed to create directory", err)
		}

		syncWrites, err := engine.GetBool(config, KeySyncWrites, false)
		if err != nil {
			return nil, engine.NewConfigErrorWithValue("badger", KeySyncWrites, config[KeySyncWrites], err.Error())
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(syncWrites)
	}
	vlogSize, err := engine.GetInt64(config, KeyValueLogFileSize, 0)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("badger", KeyValueLogFileSize, config[KeyValueLogFileSize], err.Error())
	}
	if vlogSize < 0 {
		return nil, engine.NewConfigErrorWithValue("badger", KeyValueLogFileSize, config[KeyValueLogFileSize], "must not be negative")
	}
	if vlogSize > 0 {
		opts = opts.WithValueLogFileSize(vlogSize)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, engine.NewConfigErrorWithCause("badger", KeyPath, "failed to open database", err)
	}

	zlog.Info().Str("engine", "badger").Bool("inMemory", inMemory).Msg("Badger backend ready")
	return NewWithDB(db), nil
}

// Backend is a BadgerDB implementation of engine.Backend.
type Backend struct {
	db     *badger.DB
	closed atomic.Bool
}

func NewWithDB(db *badger.DB) *Backend {
	return &Backend{db: db}
}

func setPerson(txn *badger.Txn, p engine.Person) error {
	value, err := engine.EncodePerson(p)
	if err != nil {
		return err
	}
	return txn.Set(engine.Key(prefix, p.ID), value)
}

// InsertSingle commits one transaction per record.
func (b *Backend) InsertSingle(_ context.Context, persons []engine.Person) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	if err := b.db.DropPrefix(prefix); err != nil {
		return fmt.Errorf("badger: drop prefix: %w", err)
	}
	for _, p := range persons {
		err := b.db.Update(func(txn *badger.Txn) error {
			return setPerson(txn, p)
		})
		if err != nil {
			return fmt.Errorf("badger: insert %d: %w", p.ID, err)
		}
	}
	return nil
}

// InsertBulk writes every record through one WriteBatch, which splits into as many
// transactions as badger's size limits require.
func (b *Backend) InsertBulk(_ context.Context, persons []engine.Person) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	if err := b.db.DropPrefix(prefix); err != nil {
		return fmt.Errorf("badger: drop prefix: %w", err)
	}
	return b.write(persons)
}

func (b *Backend) write(persons []engine.Person) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, p := range persons {
		value, err := engine.EncodePerson(p)
		if err != nil {
			return err
		}
		if err := wb.Set(engine.Key(prefix, p.ID), value); err != nil {
			return fmt.Errorf("badger: write %d: %w", p.ID, err)
		}
	}
	return wb.Flush()
}

// scan returns every record in key order, which is id order.
func (b *Backend) scan() ([]engine.Person, error) {
	var persons []engine.Person
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				p, err := engine.DecodePerson(v)
				if err != nil {
					return err
				}
				persons = append(persons, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return persons, err
}

func (b *Backend) FetchAll(_ context.Context) (int, error) {
	if b.closed.Load() {
		return 0, engine.ErrClosed
	}
	persons, err := b.scan()
	if err != nil {
		return 0, fmt.Errorf("badger: scan: %w", err)
	}
	return len(persons), nil
}

func (b *Backend) FetchSingle(_ context.Context, id int64) (engine.Person, bool, error) {
	if b.closed.Load() {
		return engine.Person{}, false, engine.ErrClosed
	}

	var p engine.Person
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(engine.Key(prefix, id))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			p, err = engine.DecodePerson(v)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return engine.Person{}, false, nil
	}
	if err != nil {
		return engine.Person{}, false, fmt.Errorf("badger: get %d: %w", id, err)
	}
	return p, true, nil
}

func (b *Backend) DeleteAll(_ context.Context) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	return b.db.DropPrefix(prefix)
}

// mutate scans the dataset, applies m and writes back the changed records.
func (b *Backend) mutate(m engine.Mutation, firstOnly bool) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	persons, err := b.scan()
	if err != nil {
		return fmt.Errorf("badger: scan: %w", err)
	}
	changed := engine.Apply(persons, m, firstOnly)
	if len(changed) == 0 {
		return nil
	}
	return b.write(changed)
}

func (b *Backend) UpdateSingleByID(_ context.Context, id int64, name string, age int) error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(engine.Key(prefix, id))
		if err != nil {
			return err
		}
		return setPerson(txn, engine.Person{ID: id, Name: name, Age: age})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
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

// Size returns the LSM plus value log size.
func (b *Backend) Size(_ context.Context) (int64, error) {
	if b.closed.Load() {
		return 0, engine.ErrClosed
	}
	lsm, vlog := b.db.Size()
	return lsm + vlog, nil
}

func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
