// Package bolt stores the records in a single bbolt bucket keyed by encoded id.
//
// Name patterns use engine.MatchNamePattern (case-sensitive).
package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	engine "persistbench/benchmark/engines/abstract"

	zlog "github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

const (
	KeyPath    = "path"
	KeyNoSync  = "no_sync"
	KeyTimeout = "timeout"
)

var bucket = []byte(engine.Table)

func init() {
	engine.Register("bolt", NewFactory, Defaults)
}

func Defaults() map[string]string {
	return map[string]string{
		KeyPath:    "~/.persistbench/bolt.db",
		KeyNoSync:  "false",
		KeyTimeout: "1s",
	}
}

func NewFactory(_ context.Context, config map[string]string) (engine.Backend, error) {
	path := engine.GetString(config, KeyPath, "")
	if path == "" {
		return nil, engine.NewConfigError("bolt", KeyPath, "cannot be empty")
	}
	path = engine.ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, engine.NewConfigErrorWithCause("bolt", KeyPath, "failed to create directory", err)
	}

	noSync, err := engine.GetBool(config, KeyNoSync, false)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("bolt", KeyNoSync, config[KeyNoSync], err.Error())
	}
	timeout, err := engine.GetDuration(config, KeyTimeout, time.Second)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("bolt", KeyTimeout, config[KeyTimeout], err.Error())
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout, NoSync: noSync})
	if err != nil {
		return nil, engine.NewConfigErrorWithCause("bolt", KeyPath, "failed to open database", err)
	}
	be, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	zlog.Info().Str("engine", "bolt").Str("path", path).Bool("noSync", noSync).Msg("Bolt backend ready")
	return be, nil
}

type Backend struct {
	db     *bolt.DB
	closed atomic.Bool
}

// NewWithDB creates the person bucket if needed.
func NewWithDB(db *bolt.DB) (*Backend, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: create bucket: %w", err)
	}
	return &Backend{db: db}, nil
}

func put(b *bolt.Bucket, p engine.Person) error {
	value, err := engine.EncodePerson(p)
	if err != nil {
		return err
	}
	return b.Put(engine.EncodeID(p.ID), value)
}

// reset drops and recreates the bucket, which frees its pages in one step.
func reset(tx *bolt.Tx) (*bolt.Bucket, error) {
	if err := tx.DeleteBucket(bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return nil, err
	}
	return tx.CreateBucket(bucket)
}

func (be *Backend) InsertSingle(ctx context.Context, persons []engine.Person) error {
	if err := be.DeleteAll(ctx); err != nil {
		return err
	}
	for _, p := range persons {
		err := be.db.Update(func(tx *bolt.Tx) error {
			return put(tx.Bucket(bucket), p)
		})
		if err != nil {
			return fmt.Errorf("bolt: insert %d: %w", p.ID, err)
		}
	}
	return nil
}

func (be *Backend) InsertBulk(_ context.Context, persons []engine.Person) error {
	if be.closed.Load() {
		return engine.ErrClosed
	}
	return be.db.Update(func(tx *bolt.Tx) error {
		b, err := reset(tx)
		if err != nil {
			return err
		}
		for _, p := range persons {
			if err := put(b, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func scan(b *bolt.Bucket) ([]engine.Person, error) {
	var persons []engine.Person
	err := b.ForEach(func(_, v []byte) error {
		p, err := engine.DecodePerson(v)
		if err != nil {
			return err
		}
		persons = append(persons, p)
		return nil
	})
	return persons, err
}

func (be *Backend) FetchAll(_ context.Context) (int, error) {
	if be.closed.Load() {
		return 0, engine.ErrClosed
	}
	var n int
	err := be.db.View(func(tx *bolt.Tx) error {
		persons, err := scan(tx.Bucket(bucket))
		n = len(persons)
		return err
	})
	return n, err
}

func (be *Backend) FetchSingle(_ context.Context, id int64) (engine.Person, bool, error) {
	if be.closed.Load() {
		return engine.Person{}, false, engine.ErrClosed
	}
	var (
		p     engine.Person
		found bool
	)
	err := be.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(engine.EncodeID(id))
		if v == nil {
			return nil
		}
		found = true
		var err error
		p, err = engine.DecodePerson(v)
		return err
	})
	if err != nil || !found {
		return engine.Person{}, false, err
	}
	return p, true, nil
}

func (be *Backend) DeleteAll(_ context.Context) error {
	if be.closed.Load() {
		return engine.ErrClosed
	}
	return be.db.Update(func(tx *bolt.Tx) error {
		_, err := reset(tx)
		return err
	})
}

// mutate applies m inside one read-write transaction. Changes are collected before
// writing since a bucket must not be modified during ForEach.
func (be *Backend) mutate(m engine.Mutation, firstOnly bool) error {
	if be.closed.Load() {
		return engine.ErrClosed
	}
	return be.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		persons, err := scan(b)
		if err != nil {
			return err
		}
		for _, p := range engine.Apply(persons, m, firstOnly) {
			if err := put(b, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (be *Backend) UpdateSingleByID(_ context.Context, id int64, name string, age int) error {
	if be.closed.Load() {
		return engine.ErrClosed
	}
	return be.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get(engine.EncodeID(id)) == nil {
			return nil
		}
		return put(b, engine.Person{ID: id, Name: name, Age: age})
	})
}

func (be *Backend) UpdateSingleByName(_ context.Context, oldName string, name string, age int) error {
	return be.mutate(engine.SetFields(engine.MatchName(oldName), name, age), true)
}

func (be *Backend) UpdateAllRecords(_ context.Context, name string, age int) error {
	return be.mutate(engine.SetFields(engine.MatchAll(), name, age), false)
}

func (be *Backend) UpdateMultipleByIDs(_ context.Context, ids []int64, name string, age int) error {
	return be.mutate(engine.SetFields(engine.MatchIDs(ids), name, age), false)
}

func (be *Backend) UpdateByAgeRange(_ context.Context, minAge int, maxAge int, name string, age int) error {
	return be.mutate(engine.SetFields(engine.MatchAgeRange(minAge, maxAge), name, age), false)
}

func (be *Backend) UpdateByNamePattern(_ context.Context, pattern string, name string, age int) error {
	return be.mutate(engine.SetFields(engine.MatchNamePattern(pattern), name, age), false)
}

func (be *Backend) IncrementAgeBy(_ context.Context, amount int) error {
	return be.mutate(engine.AddAge(amount), false)
}

func (be *Backend) AppendToNames(_ context.Context, suffix string) error {
	return be.mutate(engine.AppendName(suffix), false)
}

// Size returns the database file size as seen by a read transaction.
func (be *Backend) Size(_ context.Context) (int64, error) {
	if be.closed.Load() {
		return 0, engine.ErrClosed
	}
	var size int64
	err := be.db.View(func(tx *bolt.Tx) error {
		size = tx.Size()
		return nil
	})
	return size, err
}

func (be *Backend) Close() error {
	if be.closed.Swap(true) {
		return nil
	}
	return be.db.Close()
}
