// Package memory provides an in-process backend. It is the baseline every other
// engine is compared against and the stub used by the runner's tests.
//
// Name patterns use engine.MatchNamePattern (LIKE syntax, case-sensitive).
package memory

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	engine "persistbench/benchmark/engines/abstract"
)

const (
	KeyLatency = "latency"
)

func init() {
	engine.Register("memory", NewFactory, Defaults)
}

func Defaults() map[string]string {
	return map[string]string{
		KeyLatency: "0s",
	}
}

// Store is the dataset a memory backend operates on. It is created by its owner
// and handed to the backend, never shared implicitly.
type Store struct {
	mu      sync.RWMutex
	persons map[int64]engine.Person
}

func NewStore() *Store {
	return &Store{persons: map[int64]engine.Person{}}
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.persons)
}

func NewFactory(_ context.Context, config map[string]string) (engine.Backend, error) {
	latency, err := engine.GetDuration(config, KeyLatency, 0)
	if err != nil {
		return nil, engine.NewConfigErrorWithValue("memory", KeyLatency, config[KeyLatency], err.Error())
	}
	if latency < 0 {
		return nil, engine.NewConfigErrorWithValue("memory", KeyLatency, config[KeyLatency], "must not be negative")
	}
	return NewWithStore(NewStore(), latency), nil
}

// Backend is a map-backed implementation of engine.Backend. Every call sleeps for
// the configured latency before touching the store.
type Backend struct {
	store   *Store
	latency time.Duration
	closed  atomic.Bool
}

func NewWithStore(store *Store, latency time.Duration) *Backend {
	return &Backend{store: store, latency: latency}
}

func (b *Backend) enter() error {
	if b.closed.Load() {
		return engine.ErrClosed
	}
	if b.latency > 0 {
		time.Sleep(b.latency)
	}
	return nil
}

func (b *Backend) InsertSingle(_ context.Context, persons []engine.Person) error {
	if err := b.enter(); err != nil {
		return err
	}
	b.deleteAll()
	for _, p := range persons {
		b.store.mu.Lock()
		b.store.persons[p.ID] = p
		b.store.mu.Unlock()
	}
	return nil
}

func (b *Backend) InsertBulk(_ context.Context, persons []engine.Person) error {
	if err := b.enter(); err != nil {
		return err
	}
	fresh := make(map[int64]engine.Person, len(persons))
	for _, p := range persons {
		fresh[p.ID] = p
	}
	b.store.mu.Lock()
	b.store.persons = fresh
	b.store.mu.Unlock()
	return nil
}

func (b *Backend) FetchAll(_ context.Context) (int, error) {
	if err := b.enter(); err != nil {
		return 0, err
	}
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()

	persons := make([]engine.Person, 0, len(b.store.persons))
	for _, p := range b.store.persons {
		persons = append(persons, p)
	}
	return len(persons), nil
}

func (b *Backend) FetchSingle(_ context.Context, id int64) (engine.Person, bool, error) {
	if err := b.enter(); err != nil {
		return engine.Person{}, false, err
	}
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()

	p, ok := b.store.persons[id]
	return p, ok, nil
}

func (b *Backend) DeleteAll(_ context.Context) error {
	if err := b.enter(); err != nil {
		return err
	}
	b.deleteAll()
	return nil
}

func (b *Backend) deleteAll() {
	b.store.mu.Lock()
	b.store.persons = map[int64]engine.Person{}
	b.store.mu.Unlock()
}

// mutate applies m to every record, or only to the lowest-id match if firstOnly.
func (b *Backend) mutate(m engine.Mutation, firstOnly bool) error {
	if err := b.enter(); err != nil {
		return err
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	ids := make([]int64, 0, len(b.store.persons))
	for id := range b.store.persons {
		ids = append(ids, id)
	}
	if firstOnly {
		slices.Sort(ids)
	}

	for _, id := range ids {
		p := b.store.persons[id]
		if m(&p) {
			b.store.persons[id] = p
			if firstOnly {
				return nil
			}
		}
	}
	return nil
}

func (b *Backend) UpdateSingleByID(_ context.Context, id int64, name string, age int) error {
	if err := b.enter(); err != nil {
		return err
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	if p, ok := b.store.persons[id]; ok {
		p.Name, p.Age = name, age
		b.store.persons[id] = p
	}
	return nil
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

// Size approximates the bytes held by the dataset.
func (b *Backend) Size(_ context.Context) (int64, error) {
	if b.closed.Load() {
		return 0, engine.ErrClosed
	}
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()

	var size int64
	for _, p := range b.store.persons {
		size += 16 + int64(len(p.Name))
	}
	return size, nil
}

func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}
