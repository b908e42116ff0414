package storage

import (
	"fmt"
	"sort"
	"sync"
)

// Backend is a build-time plugin that can open a Store.
//
// Backends register themselves in init():
//
//	storage.MustRegister(storage.Backend{ ... })
//
// The binary must import the backend package for registration to occur.
type Backend struct {
	Name        string
	Description string

	// Open constructs the store from backend-specific options.
	Open func(opts map[string]string) (Store, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("storage: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("storage: backend %q missing Open", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("storage: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// Names returns registered backend names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for name := range backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Open opens the named backend.
func Open(name string, opts map[string]string) (Store, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown backend %q", name)
	}
	return b.Open(opts)
}
