package flow

import (
	"context"

	"github.com/flowforge/wfcore/flow/node"
	"github.com/flowforge/wfcore/flow/store"
	"github.com/flowforge/wfcore/flow/template"
)

// namespacingNode binds inner to a store.View scoped to ownerID, so the
// node never sees (and cannot be handed) any other node's write scope
// (§4.B invariant 4). It satisfies node.Node by adapting Prep/Post's
// node.View parameter to a concrete, resolver-backed view bound at
// construction.
type namespacingNode struct {
	inner    node.Node
	st       *store.Store
	ownerID  string
	resolver *template.Resolver
}

func newNamespacingNode(inner node.Node, st *store.Store, ownerID string, resolver *template.Resolver) *namespacingNode {
	return &namespacingNode{inner: inner, st: st, ownerID: ownerID, resolver: resolver}
}

func (n *namespacingNode) view() node.View {
	return newResolvingView(store.NewView(n.st, n.ownerID), n.resolver)
}

func (n *namespacingNode) Prep(ctx context.Context, _ node.View) (interface{}, error) {
	return n.inner.Prep(ctx, n.view())
}

func (n *namespacingNode) Exec(ctx context.Context, prepState interface{}) (interface{}, error) {
	return n.inner.Exec(ctx, prepState)
}

func (n *namespacingNode) Post(ctx context.Context, _ node.View, prepState, execResult interface{}) (string, error) {
	return n.inner.Post(ctx, n.view(), prepState, execResult)
}

func (n *namespacingNode) ExecFallback(ctx context.Context, prepState interface{}, cause error) (interface{}, error) {
	fb, ok := n.inner.(node.Fallback)
	if !ok {
		return nil, cause
	}
	return fb.ExecFallback(ctx, prepState, cause)
}
