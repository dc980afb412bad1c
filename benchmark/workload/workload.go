package workload

import (
	"math/rand/v2"
	"strconv"

	engine "persistbench/benchmark/engines/abstract"
)

const (
	MinAge = 18
	MaxAge = 65
)

// Generate returns count records with ids 0..count-1, names "Person <id>" and ages
// drawn uniformly from [MinAge, MaxAge]. Ages are not seeded and differ between
// calls. A negative count yields an empty workload.
func Generate(count int) []engine.Person {
	if count < 0 {
		count = 0
	}
	persons := make([]engine.Person, count)
	for i := range persons {
		persons[i] = engine.Person{
			ID:   int64(i),
			Name: Name(int64(i)),
			Age:  MinAge + rand.IntN(MaxAge-MinAge+1),
		}
	}
	return persons
}

// Name returns the generated name of the record with the given id.
func Name(id int64) string {
	return "Person " + strconv.FormatInt(id, 10)
}

// IDRange returns the ids from..to inclusive.
func IDRange(from int64, to int64) []int64 {
	if to < from {
		return nil
	}
	ids := make([]int64, 0, to-from+1)
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return ids
}
