// Package store implements the per-run, namespaced shared store: a
// two-level map {node_id -> {key -> value}} plus the reserved
// "__inputs__" and "__meta__" namespaces, and the owner-scoped View a
// node's wrapper chain hands it.
package store

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// InputsNamespace holds workflow inputs, user-supplied and defaulted.
	InputsNamespace = "__inputs__"
	// MetaNamespace holds run metadata (run id, started-at, verbose flag).
	MetaNamespace = "__meta__"
)

// ErrScopeViolation is returned when a view attempts to write outside its
// owner namespace, or when anything attempts to write to a reserved
// namespace.
var ErrScopeViolation = errors.New("store: scope violation")

// Store is the run-scoped key/value container. Namespaces other than the
// reserved ones are created lazily on first write. Store is safe for
// concurrent use by disjoint-namespace writers (invariant 4: concurrent
// writers never target the same namespace).
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]interface{}
}

// New returns an empty Store with the reserved namespaces pre-seeded.
func New() *Store {
	return &Store{
		data: map[string]map[string]interface{}{
			InputsNamespace: {},
			MetaNamespace:   {},
		},
	}
}

// SeedInputs populates the reserved __inputs__ namespace. Intended to be
// called once at run start, before any node executes.
func (s *Store) SeedInputs(inputs map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		ns[k] = v
	}
	s.data[InputsNamespace] = ns
}

// SeedMeta populates the reserved __meta__ namespace (run_id, started_at,
// verbose).
func (s *Store) SeedMeta(meta map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		ns[k] = v
	}
	s.data[MetaNamespace] = ns
}

// Get reads a single key from a namespace.
func (s *Store) Get(namespace, key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.data[namespace]
	if !ok {
		return nil, false
	}
	v, ok := ns[key]
	return v, ok
}

// Has reports whether namespace/key exists.
func (s *Store) Has(namespace, key string) bool {
	_, ok := s.Get(namespace, key)
	return ok
}

// Namespace returns a shallow copy of an entire namespace's key/value map,
// or nil if the namespace has never been written to. Used by the template
// resolver to walk a path rooted at a node id.
func (s *Store) Namespace(namespace string) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.data[namespace]
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(ns))
	for k, v := range ns {
		out[k] = v
	}
	return out
}

// Snapshot deep-copies the entire store, for trace/debug output. Deep
// copy goes through JSON-compatible value types only (maps, slices,
// scalars), matching the IR's JSON-serializable value model.
func (s *Store) Snapshot() map[string]map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]interface{}, len(s.data))
	for ns, kv := range s.data {
		nsCopy := make(map[string]interface{}, len(kv))
		for k, v := range kv {
			nsCopy[k] = deepCopyValue(v)
		}
		out[ns] = nsCopy
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, vv := range t {
			out[k] = deepCopyValue(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, vv := range t {
			out[i] = deepCopyValue(vv)
		}
		return out
	default:
		return v
	}
}

// write performs the raw, unchecked write used internally by View.Write.
// It is the only place a namespace is lazily created.
func (s *Store) write(namespace, key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]interface{})
		s.data[namespace] = ns
	}
	ns[key] = value
}

func (s *Store) delete(namespace, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.data[namespace]; ok {
		delete(ns, key)
	}
}

func (s *Store) keys(namespace string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.data[namespace]
	out := make([]string, 0, len(ns))
	for k := range ns {
		out = append(out, k)
	}
	return out
}

// View scopes reads and writes for a single node instance: it can read
// any namespace but write only to its own (invariant 4). It is a
// zero-cost handle, not a copy of any data.
type View struct {
	store *Store
	owner string
}

// NewView returns a View scoped to ownerNamespace. Writing to a reserved
// namespace as an owner is rejected even for the view that would
// otherwise be allowed to write it (reserved namespaces are read-only to
// every node, per invariant 5).
func NewView(s *Store, ownerNamespace string) *View {
	return &View{store: s, owner: ownerNamespace}
}

// Owner returns the namespace this view writes to.
func (v *View) Owner() string { return v.owner }

// Get reads a key from any namespace, including another node's.
func (v *View) Get(namespace, key string) (interface{}, bool) {
	return v.store.Get(namespace, key)
}

// OwnNamespace returns a read-only snapshot of the owner's own namespace,
// for nodes that want a plain map view of what they've written so far.
func (v *View) OwnNamespace() map[string]interface{} {
	return v.store.Namespace(v.owner)
}

// Write writes key/value into the owner's own namespace. Any attempt to
// write elsewhere, or to a reserved namespace, is a ScopeViolation.
func (v *View) Write(key string, value interface{}) error {
	if v.owner == InputsNamespace || v.owner == MetaNamespace {
		return fmt.Errorf("%w: node %q may not write reserved namespace", ErrScopeViolation, v.owner)
	}
	v.store.write(v.owner, key, value)
	return nil
}

// WriteNamespace writes key/value into an explicit namespace, enforcing
// that it matches the view's owner. This is the hook the namespacing
// wrapper uses to reject a node writing outside its own scope without
// the node itself ever seeing another namespace's name.
func (v *View) WriteNamespace(namespace, key string, value interface{}) error {
	if namespace != v.owner {
		return fmt.Errorf("%w: node %q attempted to write namespace %q", ErrScopeViolation, v.owner, namespace)
	}
	return v.Write(key, value)
}

// Has reports whether key exists in the owner's own namespace.
func (v *View) Has(key string) bool {
	return v.store.Has(v.owner, key)
}

// Delete removes key from the owner's own namespace.
func (v *View) Delete(key string) {
	v.store.delete(v.owner, key)
}

// Keys lists the keys currently written in the owner's own namespace.
func (v *View) Keys() []string {
	return v.store.keys(v.owner)
}

// Store returns the underlying Store, for callers (the template
// resolver, the compiler's static analysis) that need full access
// rather than an owner-scoped view.
func (v *View) Store() *Store { return v.store }
