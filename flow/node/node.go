// Package node defines the abstract, polymorphic node contract (§3 "Node
// contract"): prep/exec/post phases plus the optional fallback and
// policy hooks. Concrete node implementations (HTTP, LLM, shell, MCP,
// ...) are out of scope for this module (§1) — this package only
// defines the shape every node variant must satisfy.
package node

import "context"

// Node is the capability set every node variant exposes. Implementations
// are expected to be stateless between runs; a fresh instance is built
// per compiled graph (§3 Lifecycles).
//
// Encoded as an interface rather than a class hierarchy (§9 "Polymorphism
// of nodes"): the registry's factory closure returns whichever concrete
// type satisfies Node.
type Node interface {
	// Prep reads inputs from view, validates them, and derives whatever
	// state Exec needs. Must not suspend (§5) and must not retry on
	// failure (§7): a Prep error is a configuration/logic defect.
	Prep(ctx context.Context, view View) (prepState interface{}, err error)

	// Exec performs the node's actual work. May suspend at I/O boundaries
	// and may fail; failures are retried per the node's policy (§4.G).
	Exec(ctx context.Context, prepState interface{}) (execResult interface{}, err error)

	// Post writes outputs to view's own namespace and returns the action
	// string used for routing. Must not suspend and must not retry.
	Post(ctx context.Context, view View, prepState, execResult interface{}) (action string, err error)
}

// View is the read/write surface a node sees in place of the raw store:
// reads may cross namespaces, writes are confined to the node's own
// namespace (§4.B). Defined here, not imported from the store package
// directly, so node implementations depend on this narrow interface
// rather than the whole store package.
type View interface {
	Get(namespace, key string) (interface{}, bool)
	OwnNamespace() map[string]interface{}
	Write(key string, value interface{}) error
	Has(key string) bool
	Delete(key string)
	Keys() []string

	// Read resolves a dotted/indexed path expression that may cross
	// namespaces (e.g. "other_node.field.sub[0]") in a single call,
	// without the caller needing to already know which namespace holds
	// it (§4.B "read(path)").
	Read(path string) (interface{}, error)
}

type paramsCtxKey struct{}

// WithParams attaches a node's template-resolved params to ctx. Called by
// the template-aware wrapper before Prep, since params are resolved
// per-run (they may reference other nodes' outputs) rather than once at
// compile time.
func WithParams(ctx context.Context, params map[string]interface{}) context.Context {
	return context.WithValue(ctx, paramsCtxKey{}, params)
}

// ParamsFromContext returns the resolved params a node implementation
// should use in Prep, in place of whatever static params its factory was
// constructed with. Returns nil if none were attached (e.g. in a unit
// test calling Prep directly).
func ParamsFromContext(ctx context.Context) map[string]interface{} {
	v, _ := ctx.Value(paramsCtxKey{}).(map[string]interface{})
	return v
}

// Fallback is implemented by nodes that can recover from a terminal exec
// failure (after retries are exhausted) by producing a substitute exec
// result instead of propagating the error (§3 "exec_fallback").
type Fallback interface {
	ExecFallback(ctx context.Context, prepState interface{}, cause error) (execResult interface{}, err error)
}
