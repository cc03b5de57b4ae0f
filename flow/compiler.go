package flow

import (
	"fmt"
	"sort"

	"github.com/flowforge/wfcore/flow/emit"
	"github.com/flowforge/wfcore/flow/node"
	"github.com/flowforge/wfcore/flow/registry"
	"github.com/flowforge/wfcore/flow/store"
	"github.com/flowforge/wfcore/flow/template"
)

// compiledNode is one node's runtime-ready state: the raw node instance
// (wrapped per run by buildChain), its declared interface, and its
// routing table.
type compiledNode struct {
	id         string
	spec       NodeSpec
	iface      registry.Interface
	inner      node.Node // the raw, unwrapped node instance from its factory
	successors map[string]string // action -> target node id
}

// Graph is a validated, wired workflow ready to run. It is immutable and
// safe to execute concurrently from multiple Engine.Run calls (a fresh
// store and scheduler state is created per run).
type Graph struct {
	doc       *Document
	nodes     map[string]*compiledNode
	order     []string // node ids in declaration order, for deterministic iteration
	startNode string
	opts      CompileOptions
}

// CompileOptions reserves room for compile-time switches (e.g. a future
// strict-validation mode). The wrapper chain's runtime behavior
// (emitter, batch concurrency) is an Engine concern, configured via
// Option values on NewEngine instead, since it closes over a specific
// run's Store rather than the compiled Graph.
type CompileOptions struct{}

// Compile validates doc against reg and, if validation succeeds, wires a
// runnable Graph: per-node factory instantiation and the action-routing
// successor maps (§4.D phase 7). The wrapper chain (§4.F) is not built
// here; Engine.Run builds it per run via buildChain.
//
// On validation failure Compile returns a *ValidationError holding every
// ERROR-severity diagnostic found; WARN/INFO diagnostics are discarded
// here (callers that want them should call Validate directly).
func Compile(doc *Document, reg *registry.Registry, opts CompileOptions) (*Graph, error) {
	diags := newValidator(doc, reg).run()

	var errs []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Diagnostics: errs}
	}

	g := &Graph{doc: doc, nodes: map[string]*compiledNode{}, startNode: doc.StartNode, opts: opts}

	for _, spec := range doc.Nodes {
		factory, iface, err := reg.Lookup(spec.Type)
		if err != nil {
			return nil, &InternalError{Message: fmt.Sprintf("node %q: type %q vanished after validation", spec.ID, spec.Type), Cause: err}
		}

		inner, err := factory(spec.Params)
		if err != nil {
			return nil, &InternalError{Message: fmt.Sprintf("node %q: factory failed", spec.ID), Cause: err}
		}

		cn := &compiledNode{id: spec.ID, spec: spec, iface: iface, inner: inner, successors: map[string]string{}}
		g.nodes[spec.ID] = cn
		g.order = append(g.order, spec.ID)
	}

	for _, e := range doc.Edges {
		cn, ok := g.nodes[e.From]
		if !ok {
			continue
		}
		cn.successors[e.NormalizedAction()] = e.To
	}

	return g, nil
}

// SubworkflowDepthExceeded is returned by CompileSubgraph when depth would
// exceed maxDepth, guarding against a subworkflow node type that embeds
// itself (directly or transitively) without bound (§9 "inline
// sub-workflows").
type SubworkflowDepthExceeded struct {
	Depth    int
	MaxDepth int
}

func (e *SubworkflowDepthExceeded) Error() string {
	return fmt.Sprintf("flow: subworkflow nesting depth %d exceeds max %d", e.Depth, e.MaxDepth)
}

// CompileSubgraph is the hook a host-supplied "subworkflow" node type
// uses to compile and run a nested Document via the same registry,
// without the core itself shipping a subworkflow node type (that
// remains a node *implementation* concern, out of scope per §1). depth
// is the caller's current nesting level (0 for a top-level document);
// CompileSubgraph refuses to compile past maxDepth so a self-referential
// subworkflow chain cannot recurse forever at compile time.
func CompileSubgraph(doc *Document, reg *registry.Registry, opts CompileOptions, depth, maxDepth int) (*Graph, error) {
	if depth >= maxDepth {
		return nil, &SubworkflowDepthExceeded{Depth: depth, MaxDepth: maxDepth}
	}
	return Compile(doc, reg, opts)
}

// buildChain wraps inner in the instrumentation -> batch -> namespacing
// -> template-aware order (§4.F), binding it to a specific run's store
// and template resolver. Building happens per-run (not at Compile time)
// because the chain closes over the run's Store and Resolver. A node's
// own params may declare a "batch" directive (§4.F.2); when absent, the
// batch wrapper is a pure pass-through and defaultBatchConcurrency never
// comes into play.
func buildChain(spec NodeSpec, iface registry.Interface, inner node.Node, st *store.Store, resolver *template.Resolver, runID string, emitter emit.Emitter, defaultBatchConcurrency int) node.Node {
	var n node.Node = inner
	n = newTemplateAwareNode(n, resolver, spec.Params)
	n = newNamespacingNode(n, st, spec.ID, resolver)

	var batchSpec *BatchSpec
	if bs, present, err := ParseBatchSpec(spec.Params); present && err == nil {
		batchSpec = bs
	}
	n = newBatchNode(n, spec.ID, batchSpec, resolver, defaultBatchConcurrency)

	n = newInstrumentedNode(n, spec.ID, runID, emitter)
	return n
}

// NodeIDs returns every compiled node id, in declaration order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// StartNode returns the graph's entry node id.
func (g *Graph) StartNode() string { return g.startNode }

// sortedNodeIDs is a small helper used by diagnostics/logging that want a
// stable node id ordering independent of declaration order.
func (g *Graph) sortedNodeIDs() []string {
	out := g.NodeIDs()
	sort.Strings(out)
	return out
}
