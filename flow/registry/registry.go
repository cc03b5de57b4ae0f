// Package registry is the node type catalog (§4.A): a name maps to a
// factory and a declared interface (reads/writes/params/actions).
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowforge/wfcore/flow/node"
)

// ErrUnknownNodeType is returned by Lookup when type_name was never
// registered.
type ErrUnknownNodeType struct {
	TypeName string
}

func (e *ErrUnknownNodeType) Error() string {
	return fmt.Sprintf("registry: unknown node type %q", e.TypeName)
}

// ErrDuplicateType is returned by Register when type_name is already
// taken.
type ErrDuplicateType struct {
	TypeName string
}

func (e *ErrDuplicateType) Error() string {
	return fmt.Sprintf("registry: node type %q already registered", e.TypeName)
}

// ParamSpec describes one entry of a node type's configuration schema.
type ParamSpec struct {
	Name     string
	Type     string // string, integer, number, boolean, object, array
	Required bool
	Default  interface{}
}

// Interface is the declared contract a node type exposes to the
// compiler and validator: what it reads, what it guarantees to write,
// its parameter schema, and the actions its post() may return.
type Interface struct {
	Reads   []string
	Writes  []string
	Params  []ParamSpec
	Actions []string

	// MaxRetries and RetryDelay are the type's defaults; an IR node may
	// not override them in this version of the IR (params configure the
	// node's business behavior, not its retry policy).
	MaxRetries int
	RetryDelay time.Duration

	// TimeoutSeconds is the default exec timeout for instances of this
	// type. When positive it takes precedence over the engine's default
	// node timeout; zero means "use the engine default".
	TimeoutSeconds float64

	// MaxVisits bounds how many times the scheduler will dequeue the same
	// node id within one run before raising LoopBudgetExceeded (§4.D
	// phase 6). Zero means "use the engine default".
	MaxVisits int
}

// HasAction reports whether action is declared among Actions (the
// "default" action is implicitly always declared, per §4.A).
func (i Interface) HasAction(action string) bool {
	if action == "default" || action == "" {
		return true
	}
	for _, a := range i.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Factory constructs a fresh Node instance from a node's resolved
// params. One factory call happens per node per compiled graph (§3
// Lifecycles: "one per graph per run").
type Factory func(params map[string]interface{}) (node.Node, error)

type registration struct {
	factory Factory
	iface   Interface
}

// Registry is the process-wide (or test-wide) catalog of node types.
// Registration is expected to happen at startup, before any run begins;
// Lookup and List are safe for concurrent use during execution.
type Registry struct {
	mu    sync.RWMutex
	types map[string]registration
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{types: make(map[string]registration)}
}

// Register adds a node type. typeName must be unique within the
// registry.
func (r *Registry) Register(typeName string, factory Factory, iface Interface) error {
	if typeName == "" {
		return fmt.Errorf("registry: type name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("registry: factory for %q cannot be nil", typeName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[typeName]; exists {
		return &ErrDuplicateType{TypeName: typeName}
	}
	r.types[typeName] = registration{factory: factory, iface: iface}
	return nil
}

// Lookup resolves typeName to its factory and declared interface.
func (r *Registry) Lookup(typeName string) (Factory, Interface, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.types[typeName]
	if !ok {
		return nil, Interface{}, &ErrUnknownNodeType{TypeName: typeName}
	}
	return reg.factory, reg.iface, nil
}

// List returns every registered type name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
