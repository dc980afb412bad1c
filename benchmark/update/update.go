// Package update measures the update variants of the backend contract against a
// dataset primed identically on every backend.
package update

import (
	"context"
	"fmt"
	"strconv"

	"persistbench/benchmark"
	engine "persistbench/benchmark/engines/abstract"
	"persistbench/benchmark/workload"

	zlog "github.com/rs/zerolog/log"
)

const (
	Name = "update"

	LabelSingle      = "Update Single"
	LabelBulk        = "Update Bulk"
	LabelConditional = "Update Conditional"
	LabelIncremental = "Update Incremental"
	LabelMultiple    = "Update Multiple"
)

// Parameters of the measured updates.
const (
	SingleID          = 1
	MultipleFirstID   = 1
	MultipleLastID    = 100
	ConditionalMinAge = 20
	ConditionalMaxAge = 40
	IncrementAmount   = 1
)

// Update is not reset between repetitions: every repetition sees the effects of
// the previous ones, identically on every backend.
type Update struct {
	multipleIDs []int64
}

func New() *Update {
	return &Update{multipleIDs: workload.IDRange(MultipleFirstID, MultipleLastID)}
}

func (u *Update) Name() string {
	return Name
}

func (u *Update) log(msg string, backend string) {
	zlog.Info().Str("benchmark", Name).Str("backend", backend).Msg(msg)
}

// Populate bulk-inserts the workload into every backend so all start from the same
// fully populated state.
func (u *Update) Populate(ctx context.Context, targets []benchmark.Target, persons []engine.Person) error {
	for _, t := range targets {
		u.log("Populating", t.Name)
		if err := t.Backend.InsertBulk(ctx, persons); err != nil {
			return fmt.Errorf("populate %s: %w", t.Name, err)
		}
	}
	return nil
}

func (u *Update) Prepare(persons []engine.Person) []benchmark.Operation {
	return []benchmark.Operation{
		{Label: LabelSingle, Run: func(ctx context.Context, b engine.Backend) error {
			return b.UpdateSingleByID(ctx, SingleID, "Updated", 25)
		}},
		{Label: LabelBulk, Run: func(ctx context.Context, b engine.Backend) error {
			return b.UpdateAllRecords(ctx, "Bulk Updated", 30)
		}},
		{Label: LabelConditional, Run: func(ctx context.Context, b engine.Backend) error {
			return b.UpdateByAgeRange(ctx, ConditionalMinAge, ConditionalMaxAge, "Range Updated", 35)
		}},
		{Label: LabelIncremental, Run: func(ctx context.Context, b engine.Backend) error {
			return b.IncrementAgeBy(ctx, IncrementAmount)
		}},
		{Label: LabelMultiple, Run: func(ctx context.Context, b engine.Backend) error {
			return b.UpdateMultipleByIDs(ctx, u.multipleIDs, "Multiple Updated", 28)
		}},
	}
}

func (u *Update) GetConfigs() map[string]string {
	return map[string]string{
		"benchmark":   Name,
		"multipleIds": strconv.Itoa(len(u.multipleIDs)),
	}
}
