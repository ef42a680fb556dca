package protocol

import "sort"

// DefaultMaxParallel is the cap on read-only calls executed concurrently in
// one batch.
const DefaultMaxParallel = 6

// Registry maps tool names to their owning family adapters. It is built once
// at startup and passed by reference into the Detector, Diagnoser, and
// Dispatcher. There is no package-level registry, which keeps tests free to
// construct reduced ones.
type Registry struct {
	ordered   []Adapter // DetectSingle priority order
	byName    map[string]Adapter
	protected map[string]bool // tools blocked on a protected default branch
	maxPar    int
}

// NewRegistry creates an empty registry. maxParallel <= 0 selects
// DefaultMaxParallel.
func NewRegistry(maxParallel int) *Registry {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	return &Registry{
		byName:    make(map[string]Adapter),
		protected: make(map[string]bool),
		maxPar:    maxParallel,
	}
}

// Add registers a family adapter. Registration order defines DetectSingle
// priority. Later registrations of an already-known tool name are ignored:
// the first family to claim a name owns it.
func (r *Registry) Add(a Adapter) {
	r.ordered = append(r.ordered, a)
	for _, name := range a.KnownNames() {
		if _, taken := r.byName[name]; !taken {
			r.byName[name] = a
		}
	}
}

// Protect marks tool names whose execution is gated by the protected-main
// branch guard (commit/push-equivalents).
func (r *Registry) Protect(names ...string) {
	for _, n := range names {
		r.protected[n] = true
	}
}

// Resolve returns the adapter owning the named tool, or nil if unknown.
func (r *Registry) Resolve(name string) Adapter {
	return r.byName[name]
}

// Knows reports whether any family owns the named tool.
func (r *Registry) Knows(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// IsReadOnly reports whether the named tool only observes state. Unknown
// names are not read-only: the caller should have resolved the name first.
func (r *Registry) IsReadOnly(name string) bool {
	a := r.byName[name]
	return a != nil && a.IsReadOnlyName(name)
}

// IsProtectedMutation reports whether the named tool is in the
// protected-mutation set.
func (r *Registry) IsProtectedMutation(name string) bool {
	return r.protected[name]
}

// KnownNames returns every registered tool name, sorted.
func (r *Registry) KnownNames() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Adapters returns the adapters in registration (priority) order.
func (r *Registry) Adapters() []Adapter {
	return r.ordered
}

// MaxParallel returns the read-only concurrency cap.
func (r *Registry) MaxParallel() int {
	return r.maxPar
}
