package render

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory launches a Browser for a backend.
type Factory func(ctx context.Context, opts Options) (Browser, error)

var (
	mu       sync.RWMutex
	backends = make(map[string]Factory)
)

// Register adds a backend to the global registry.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	backends[name] = f
}

// Open launches the named backend.
func Open(ctx context.Context, name string, opts Options) (Browser, error) {
	mu.RLock()
	f, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown renderer: %s", name)
	}
	return f(ctx, opts)
}

// List returns all registered backend names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
