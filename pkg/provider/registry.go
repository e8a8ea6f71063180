package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/EternisAI/tabby-provider/pkg/config"
)

// Factory constructs an uninitialized Provider from configuration. Backends
// register one from init().
type Factory func(logger *log.Logger, cfg *config.Config) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under name. Registering the same name
// twice panics; that is a programming error, not a runtime condition.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("provider %q registered twice", name))
	}
	registry[name] = factory
}

// Names returns the registered backend names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open constructs the named backend and initializes it.
func Open(ctx context.Context, name string, logger *log.Logger, cfg *config.Config) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider %q (registered: %v)", name, Names())
	}

	p, err := factory(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("constructing provider %q: %w", name, err)
	}
	if err := p.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initializing provider %q: %w", name, err)
	}
	return p, nil
}
