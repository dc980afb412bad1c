// Package config reads the benchmark description from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	PhaseInsert = "insert"
	PhaseUpdate = "update"

	DefaultRecords     = 1000
	DefaultRepetitions = 10
	DefaultFormat      = "table"
)

var (
	ErrNoBackends      = errors.New("no backends configured")
	ErrUnknownPhase    = errors.New("unknown phase")
	ErrDuplicateName   = errors.New("duplicate backend name")
	ErrMissingEngine   = errors.New("backend has no engine")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Backend is one entry of the backends list. Options are layered over the
// engine's defaults.
type Backend struct {
	Name    string            `yaml:"name"`
	Engine  string            `yaml:"engine"`
	Options map[string]string `yaml:"options"`
}

type Args struct {
	Records     int       `yaml:"records"`
	Repetitions int       `yaml:"repetitions"`
	Phases      []string  `yaml:"phases"`
	Format      string    `yaml:"format"`
	MetricsFile string    `yaml:"metricsFile"`
	Backends    []Backend `yaml:"backends"`
}

// Load reads and validates a config file.
func Load(path string) (*Args, error) {
	if path == "" {
		return nil, errors.New("missing config file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, fills in defaults and validates the result.
func Parse(data []byte) (*Args, error) {
	args := &Args{Records: DefaultRecords, Repetitions: DefaultRepetitions, Format: DefaultFormat}
	if err := yaml.Unmarshal(data, args); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(args.Phases) == 0 {
		args.Phases = []string{PhaseInsert, PhaseUpdate}
	}
	for i := range args.Backends {
		if args.Backends[i].Name == "" {
			args.Backends[i].Name = args.Backends[i].Engine
		}
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}
	return args, nil
}

func (a *Args) Validate() error {
	if a.Records < 0 {
		return fmt.Errorf("%w: records must not be negative, got %d", ErrInvalidSettings, a.Records)
	}
	if a.Repetitions < 0 {
		return fmt.Errorf("%w: repetitions must not be negative, got %d", ErrInvalidSettings, a.Repetitions)
	}
	for _, p := range a.Phases {
		if p != PhaseInsert && p != PhaseUpdate {
			return fmt.Errorf("%w %q (want %s or %s)", ErrUnknownPhase, p, PhaseInsert, PhaseUpdate)
		}
	}
	if len(a.Backends) == 0 {
		return ErrNoBackends
	}

	names := make([]string, 0, len(a.Backends))
	for _, b := range a.Backends {
		if b.Engine == "" {
			return fmt.Errorf("%w: %q", ErrMissingEngine, b.Name)
		}
		if slices.Contains(names, b.Name) {
			return fmt.Errorf("%w: %q", ErrDuplicateName, b.Name)
		}
		names = append(names, b.Name)
	}
	return nil
}

// HasPhase reports whether phase is selected.
func (a *Args) HasPhase(phase string) bool {
	return slices.Contains(a.Phases, phase)
}
