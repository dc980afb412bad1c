package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	zlog "github.com/rs/zerolog/log"
)

// Factory creates a backend from its merged option map.
type Factory func(ctx context.Context, config map[string]string) (Backend, error)

// DefaultsFunc returns the default options of an engine.
type DefaultsFunc func() map[string]string

type registryEntry struct {
	factory  Factory
	defaults DefaultsFunc
}

var (
	registry   = map[string]registryEntry{}
	registryMu sync.RWMutex
)

// Register makes an engine available by name. Adapters call it from init.
// Panics if the name is already taken.
func Register(name string, factory Factory, defaults DefaultsFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("engine %q already registered", name))
	}
	registry[name] = registryEntry{factory: factory, defaults: defaults}
}

// ListEngines returns the registered engine names, sorted.
func ListEngines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// GetDefaults returns the default options of an engine, or nil if unknown.
func GetDefaults(name string) map[string]string {
	registryMu.RLock()
	entry, ok := registry[name]
	registryMu.RUnlock()

	if !ok || entry.defaults == nil {
		return nil
	}
	return entry.defaults()
}

// New builds a backend of the named engine with config layered over its defaults.
func New(ctx context.Context, name string, config map[string]string) (Backend, error) {
	registryMu.RLock()
	entry, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, NewConfigError(name, "", fmt.Sprintf("unknown engine %q (available: %v)", name, ListEngines()))
	}

	var defaults map[string]string
	if entry.defaults != nil {
		defaults = entry.defaults()
	}

	backend, err := entry.factory(ctx, MergeConfig(defaults, config))
	if err != nil {
		return nil, err
	}

	zlog.Debug().Str("engine", name).Msg("Backend created")
	return backend, nil
}
