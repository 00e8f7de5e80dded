// Package registry tracks every function declared during a pass so
// downstream tooling can introspect the resolved specifications.
package registry

import (
	"sort"
	"sync"

	"github.com/stackfn-io/stackfn/internal/ir"
)

// Registry maps declaration addresses (stack.id) to their merged specs.
// It does no validation; the last registration for an address wins.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*ir.FunctionSpec
}

func New() *Registry {
	return &Registry{
		specs: make(map[string]*ir.FunctionSpec),
	}
}

// Register records the resolved spec for a declaration.
func (r *Registry) Register(addr string, spec *ir.FunctionSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[addr] = spec
}

// Lookup returns the spec registered for addr.
func (r *Registry) Lookup(addr string) (*ir.FunctionSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[addr]
	return spec, ok
}

// All returns a copy of the full mapping.
func (r *Registry) All() map[string]*ir.FunctionSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*ir.FunctionSpec, len(r.specs))
	for addr, spec := range r.specs {
		out[addr] = spec
	}
	return out
}

// Addrs returns all registered addresses, sorted.
func (r *Registry) Addrs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addrs := make([]string, 0, len(r.specs))
	for addr := range r.specs {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}
