package engine

import "context"

// Backend is the contract every storage adapter implements so that the runner can
// drive heterogeneous engines through one operation set. Each backend owns exactly
// one dataset of Person records keyed by id.
type Backend interface {
	// Clears the dataset, then inserts the records one at a time, each as its own
	// durable unit of work
	InsertSingle(ctx context.Context, persons []Person) error
	// Clears the dataset, then inserts all records as one durable unit of work
	InsertBulk(ctx context.Context, persons []Person) error
	// Reads every field of every record; returns the number of records read
	FetchAll(ctx context.Context) (int, error)
	// Returns the record with the given id; found is false if there is none
	FetchSingle(ctx context.Context, id int64) (person Person, found bool, err error)
	// Empties the dataset as a single operation
	DeleteAll(ctx context.Context) error

	// Updates the record with the given id; no-op if absent
	UpdateSingleByID(ctx context.Context, id int64, name string, age int) error
	// Updates the lowest-id record named oldName; no-op if absent
	UpdateSingleByName(ctx context.Context, oldName string, name string, age int) error
	// Overwrites name and age of every record
	UpdateAllRecords(ctx context.Context, name string, age int) error
	// Overwrites name and age of every record whose id is in ids
	UpdateMultipleByIDs(ctx context.Context, ids []int64, name string, age int) error
	// Overwrites name and age of every record with minAge <= age <= maxAge
	UpdateByAgeRange(ctx context.Context, minAge int, maxAge int, name string, age int) error
	// Overwrites name and age of every record whose name matches a LIKE pattern
	UpdateByNamePattern(ctx context.Context, pattern string, name string, age int) error
	// Adds amount (possibly negative) to every record's age
	IncrementAgeBy(ctx context.Context, amount int) error
	// Appends suffix to every record's name
	AppendToNames(ctx context.Context, suffix string) error

	// Releases the underlying storage handle
	Close() error
}

// Sizer is implemented by backends that can report how much storage their dataset
// currently occupies, in bytes.
type Sizer interface {
	Size(ctx context.Context) (int64, error)
}
