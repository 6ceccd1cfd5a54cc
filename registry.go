package p4utils

//
// Backend registry
//

import (
	"fmt"
	"sort"
	"sync"
)

// BackendConstructor creates a stopped [Backend].
type BackendConstructor func(logger Logger) (Backend, error)

// backendRegistry maps configuration-supplied backend names to
// statically known constructors.
var backendRegistry = struct {
	mu sync.Mutex
	m  map[string]BackendConstructor
}{
	m: map[string]BackendConstructor{},
}

// RegisterBackend registers a [Backend] constructor under a name that a
// topology description can reference. Registering the same name twice
// panics: backend names are a compile-time property of the program.
func RegisterBackend(name string, constructor BackendConstructor) {
	defer backendRegistry.mu.Unlock()
	backendRegistry.mu.Lock()
	if _, dup := backendRegistry.m[name]; dup {
		panic(fmt.Sprintf("p4utils: backend registered twice: %s", name))
	}
	backendRegistry.m[name] = constructor
}

// NewBackend constructs the backend registered under the given name. An
// unknown name is an [ErrConfiguration], reported when the description
// is processed rather than as a late binding failure.
func NewBackend(name string, logger Logger) (Backend, error) {
	backendRegistry.mu.Lock()
	constructor := backendRegistry.m[name]
	backendRegistry.mu.Unlock()
	if constructor == nil {
		return nil, fmt.Errorf("%w: unknown backend %q (registered: %v)",
			ErrConfiguration, name, RegisteredBackends())
	}
	return constructor(logger)
}

// RegisteredBackends returns the registered backend names in sorted
// order.
func RegisteredBackends() []string {
	defer backendRegistry.mu.Unlock()
	backendRegistry.mu.Lock()
	names := make([]string, 0, len(backendRegistry.m))
	for name := range backendRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterBackend("static", func(logger Logger) (Backend, error) {
		return NewStaticBackend(logger), nil
	})
}
