// Package enginetest provides the contract suite every backend's tests run, so all
// adapters are held to the same observable behaviour.
package enginetest

import (
	"context"
	"fmt"
	"testing"

	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/workload"

	"github.com/stretchr/testify/require"
)

// NewBackend returns an empty, ready backend. It should register its own cleanup.
type NewBackend func(t *testing.T) engine.Backend

// Persons builds n records with ids 0..n-1, generated names and age 20+i%40.
func Persons(n int) []engine.Person {
	persons := make([]engine.Person, n)
	for i := range persons {
		persons[i] = engine.Person{ID: int64(i), Name: workload.Name(int64(i)), Age: 20 + i%40}
	}
	return persons
}

func snapshot(t *testing.T, b engine.Backend, ids []int64) map[int64]engine.Person {
	t.Helper()
	ctx := context.Background()
	out := make(map[int64]engine.Person, len(ids))
	for _, id := range ids {
		p, found, err := b.FetchSingle(ctx, id)
		require.NoError(t, err)
		if found {
			out[id] = p
		}
	}
	return out
}

func ids(persons []engine.Person) []int64 {
	out := make([]int64, len(persons))
	for i, p := range persons {
		out[i] = p.ID
	}
	return out
}

func seed(t *testing.T, b engine.Backend, persons []engine.Person) {
	t.Helper()
	require.NoError(t, b.InsertBulk(context.Background(), persons))
}

// RunContract runs every contract case against fresh backends from newBackend.
func RunContract(t *testing.T, newBackend NewBackend) {
	cases := []struct {
		name string
		fn   func(t *testing.T, b engine.Backend)
	}{
		{"InsertBulkThenFetch", testInsertBulkThenFetch},
		{"InsertSingleReplacesDataset", testInsertSingleReplacesDataset},
		{"InsertBulkReplacesDataset", testInsertBulkReplacesDataset},
		{"DeleteAll", testDeleteAll},
		{"EmptyDataset", testEmptyDataset},
		{"UpdateSingleByID", testUpdateSingleByID},
		{"UpdateSingleByIDMissing", testUpdateSingleByIDMissing},
		{"UpdateSingleByName", testUpdateSingleByName},
		{"UpdateAllRecords", testUpdateAllRecords},
		{"UpdateMultipleByIDs", testUpdateMultipleByIDs},
		{"UpdateByAgeRange", testUpdateByAgeRange},
		{"UpdateByNamePattern", testUpdateByNamePattern},
		{"IncrementAgeByCompounds", testIncrementAgeByCompounds},
		{"AppendToNames", testAppendToNames},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newBackend(t))
		})
	}
}

func testInsertBulkThenFetch(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := workload.Generate(50)
	seed(t, b, persons)

	n, err := b.FetchAll(ctx)
	require.NoError(t, err)
	require.Equal(t, len(persons), n)

	for _, want := range persons {
		got, found, err := b.FetchSingle(ctx, want.ID)
		require.NoError(t, err)
		require.True(t, found, "id %d not found", want.ID)
		require.Equal(t, want, got)
	}

	_, found, err := b.FetchSingle(ctx, 1000)
	require.NoError(t, err)
	require.False(t, found)
}

func testInsertSingleReplacesDataset(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	seed(t, b, Persons(30))

	subset := Persons(30)[20:]
	require.NoError(t, b.InsertSingle(ctx, subset))

	n, err := b.FetchAll(ctx)
	require.NoError(t, err)
	require.Equal(t, len(subset), n)

	_, found, err := b.FetchSingle(ctx, 0)
	require.NoError(t, err)
	require.False(t, found, "InsertSingle must clear the previous dataset")

	require.Equal(t, subset[0], snapshot(t, b, []int64{20})[20])
}

func testInsertBulkReplacesDataset(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := Persons(25)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.InsertBulk(ctx, persons))
	}
	n, err := b.FetchAll(ctx)
	require.NoError(t, err)
	require.Equal(t, len(persons), n)
}

func testDeleteAll(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	seed(t, b, Persons(40))

	require.NoError(t, b.DeleteAll(ctx))
	n, err := b.FetchAll(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, b.DeleteAll(ctx), "DeleteAll on an empty dataset")
}

func testEmptyDataset(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	require.NoError(t, b.InsertSingle(ctx, nil))
	require.NoError(t, b.InsertBulk(ctx, nil))

	require.NoError(t, b.UpdateSingleByID(ctx, 1, "x", 1))
	require.NoError(t, b.UpdateSingleByName(ctx, "nobody", "x", 1))
	require.NoError(t, b.UpdateAllRecords(ctx, "x", 1))
	require.NoError(t, b.UpdateMultipleByIDs(ctx, []int64{1, 2}, "x", 1))
	require.NoError(t, b.UpdateMultipleByIDs(ctx, nil, "x", 1))
	require.NoError(t, b.UpdateByAgeRange(ctx, 0, 100, "x", 1))
	require.NoError(t, b.UpdateByNamePattern(ctx, "%", "x", 1))
	require.NoError(t, b.IncrementAgeBy(ctx, 1))
	require.NoError(t, b.AppendToNames(ctx, "!"))

	n, err := b.FetchAll(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func testUpdateSingleByID(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := Persons(10)
	seed(t, b, persons)

	require.NoError(t, b.UpdateSingleByID(ctx, 1, "Updated", 25))

	got := snapshot(t, b, ids(persons))
	for _, p := range persons {
		want := p
		if p.ID == 1 {
			want.Name, want.Age = "Updated", 25
		}
		require.Equal(t, want, got[p.ID])
	}
}

func testUpdateSingleByIDMissing(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := Persons(10)
	seed(t, b, persons)
	before := snapshot(t, b, ids(persons))

	require.NoError(t, b.UpdateSingleByID(ctx, 999, "Ghost", 99))

	require.Equal(t, before, snapshot(t, b, ids(persons)))
	_, found, err := b.FetchSingle(ctx, 999)
	require.NoError(t, err)
	require.False(t, found, "update must not create a record")
}

func testUpdateSingleByName(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := []engine.Person{
		{ID: 3, Name: "dup", Age: 30},
		{ID: 1, Name: "dup", Age: 31},
		{ID: 2, Name: "other", Age: 32},
	}
	seed(t, b, persons)

	require.NoError(t, b.UpdateSingleByName(ctx, "dup", "renamed", 50))
	require.NoError(t, b.UpdateSingleByName(ctx, "missing", "renamed", 60))

	got := snapshot(t, b, []int64{1, 2, 3})
	require.Equal(t, engine.Person{ID: 1, Name: "renamed", Age: 50}, got[1])
	require.Equal(t, engine.Person{ID: 2, Name: "other", Age: 32}, got[2])
	require.Equal(t, engine.Person{ID: 3, Name: "dup", Age: 30}, got[3])
}

func testUpdateAllRecords(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := Persons(15)
	seed(t, b, persons)

	require.NoError(t, b.UpdateAllRecords(ctx, "Bulk Updated", 30))

	for id, p := range snapshot(t, b, ids(persons)) {
		require.Equal(t, engine.Person{ID: id, Name: "Bulk Updated", Age: 30}, p)
	}
}

func testUpdateMultipleByIDs(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := Persons(10)
	seed(t, b, persons)

	require.NoError(t, b.UpdateMultipleByIDs(ctx, []int64{1, 3, 5, 999}, "Multiple Updated", 28))

	got := snapshot(t, b, ids(persons))
	require.Len(t, got, len(persons))
	for _, p := range persons {
		want := p
		if p.ID == 1 || p.ID == 3 || p.ID == 5 {
			want.Name, want.Age = "Multiple Updated", 28
		}
		require.Equal(t, want, got[p.ID])
	}
}

func testUpdateByAgeRange(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := []engine.Person{
		{ID: 0, Name: "a", Age: 19},
		{ID: 1, Name: "b", Age: 20},
		{ID: 2, Name: "c", Age: 30},
		{ID: 3, Name: "d", Age: 40},
		{ID: 4, Name: "e", Age: 41},
	}
	seed(t, b, persons)

	require.NoError(t, b.UpdateByAgeRange(ctx, 20, 40, "Range Updated", 35))

	got := snapshot(t, b, ids(persons))
	require.Equal(t, persons[0], got[0])
	require.Equal(t, persons[4], got[4])
	for _, id := range []int64{1, 2, 3} {
		require.Equal(t, engine.Person{ID: id, Name: "Range Updated", Age: 35}, got[id])
	}
}

func testUpdateByNamePattern(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := Persons(25)
	seed(t, b, persons)

	require.NoError(t, b.UpdateByNamePattern(ctx, "Person 1%", "Pattern Updated", 44))

	got := snapshot(t, b, ids(persons))
	updated := 0
	for _, p := range persons {
		matches := p.ID == 1 || (p.ID >= 10 && p.ID <= 19)
		if matches {
			updated++
			require.Equal(t, engine.Person{ID: p.ID, Name: "Pattern Updated", Age: 44}, got[p.ID])
		} else {
			require.Equal(t, p, got[p.ID], fmt.Sprintf("id %d must not match", p.ID))
		}
	}
	require.Equal(t, 11, updated)
}

func testIncrementAgeByCompounds(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := Persons(12)
	seed(t, b, persons)

	require.NoError(t, b.IncrementAgeBy(ctx, 3))
	require.NoError(t, b.IncrementAgeBy(ctx, 3))

	got := snapshot(t, b, ids(persons))
	for _, p := range persons {
		require.Equal(t, p.Age+6, got[p.ID].Age, "id %d", p.ID)
		require.Equal(t, p.Name, got[p.ID].Name)
	}

	require.NoError(t, b.IncrementAgeBy(ctx, -10))
	got = snapshot(t, b, ids(persons))
	for _, p := range persons {
		require.Equal(t, p.Age-4, got[p.ID].Age, "id %d", p.ID)
	}
}

func testAppendToNames(t *testing.T, b engine.Backend) {
	ctx := context.Background()
	persons := Persons(8)
	seed(t, b, persons)

	require.NoError(t, b.AppendToNames(ctx, " Jr."))
	require.NoError(t, b.AppendToNames(ctx, "!"))

	got := snapshot(t, b, ids(persons))
	for _, p := range persons {
		require.Equal(t, p.Name+" Jr.!", got[p.ID].Name)
		require.Equal(t, p.Age, got[p.ID].Age)
	}
}
