package imm

import (
	"fmt"
	"sort"
	"sync"
)

// BackendFactory creates a backend whose backbuffer is width x height.
// Factories are registered via RegisterBackend and called by NewBackend.
type BackendFactory func(width, height int) (Backend, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
)

// RegisterBackend registers a backend factory under name. Backend
// packages call it from init(), following the database/sql driver
// pattern:
//
//	func init() {
//	    imm.RegisterBackend("recording", func(w, h int) (imm.Backend, error) {
//	        return New(w, h), nil
//	    })
//	}
//
// RegisterBackend panics if factory is nil or name is already taken.
func RegisterBackend(name string, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if factory == nil {
		panic("imm: RegisterBackend factory is nil")
	}
	if _, dup := backends[name]; dup {
		panic("imm: RegisterBackend called twice for " + name)
	}
	backends[name] = factory
}

// UnregisterBackend removes a backend from the registry.
func UnregisterBackend(name string) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	delete(backends, name)
}

// NewBackend creates a backend by registered name.
//
// Example:
//
//	import _ "github.com/gogpu/imm/recording"
//
//	b, err := imm.NewBackend("recording", 800, 600)
func NewBackend(name string, width, height int) (Backend, error) {
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("imm: unknown backend %q (forgotten import?)", name)
	}
	b, err := factory(width, height)
	if err != nil {
		return nil, fmt.Errorf("imm: backend %q: %w", name, err)
	}
	return b, nil
}

// Backends returns the registered backend names in alphabetical order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
