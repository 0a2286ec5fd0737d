// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name>.  Because a
// component needs its dependencies (authenticator, view engine, CSRF
// tokens), cmd/web constructs it and calls component.Register() during
// boot instead of relying on init().  Mount then attaches every
// component's routes in name order.

package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Component contract.
//
// Routes() registers BOTH page and static endpoints on the router it is
// given, e.g:
//
//	func (c *Component) Routes(r chi.Router) {
//		r.Get("/login", c.getLogin)
//		r.Post("/login", c.postLogin)
//	}
//
// Each component gets its own chi Group, so middleware it adds with Use
// stays local to its routes.
type Component interface {
	Name() string
	Routes(r chi.Router)
}

// Closer is optional.  Mount's caller invokes Close on shutdown for every
// component that implements it.
type Closer interface {
	Close() error
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register adds c.  Registering the same name twice is a programming error
// and returns an error rather than silently replacing the first.
func Register(c Component) error {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[c.Name()]; dup {
		return fmt.Errorf("component %q already registered", c.Name())
	}
	registry[c.Name()] = c
	return nil
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount attaches every registered component to r.
func Mount(r chi.Router) {
	for _, c := range All() {
		r.Group(c.Routes)
	}
}

// CloseAll closes every registered component that implements Closer and
// returns the first error.
func CloseAll() error {
	var first error
	for _, c := range All() {
		if cl, ok := c.(Closer); ok {
			if err := cl.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// reset clears the registry; tests only.
func reset() {
	mu.Lock()
	registry = map[string]Component{}
	mu.Unlock()
}
