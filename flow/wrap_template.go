package flow

import (
	"context"
	"fmt"

	"github.com/flowforge/wfcore/flow/node"
	"github.com/flowforge/wfcore/flow/template"
)

// templateAwareNode is the innermost wrapper: it resolves every "${path}"
// expression in the node's declared params against the current store
// state, once per visit, and attaches the resolved params to the
// context Prep receives (§4.C, §4.F "template-aware wrapper").
//
// Resolution happens here rather than once at Compile time because a
// param may reference another node's output, which does not exist until
// that node has run.
type templateAwareNode struct {
	inner    node.Node
	resolver *template.Resolver
	rawParam map[string]interface{}
}

func newTemplateAwareNode(inner node.Node, resolver *template.Resolver, rawParams map[string]interface{}) *templateAwareNode {
	return &templateAwareNode{inner: inner, resolver: resolver, rawParam: rawParams}
}

func (n *templateAwareNode) Prep(ctx context.Context, view node.View) (interface{}, error) {
	resolved, err := n.resolver.ResolveValue(toInterfaceMap(n.rawParam))
	if err != nil {
		return nil, fmt.Errorf("flow: resolving params: %w", err)
	}
	resolvedMap, _ := resolved.(map[string]interface{})
	ctx = node.WithParams(ctx, resolvedMap)
	return n.inner.Prep(ctx, view)
}

func (n *templateAwareNode) Exec(ctx context.Context, prepState interface{}) (interface{}, error) {
	return n.inner.Exec(ctx, prepState)
}

func (n *templateAwareNode) Post(ctx context.Context, view node.View, prepState, execResult interface{}) (string, error) {
	return n.inner.Post(ctx, view, prepState, execResult)
}

func (n *templateAwareNode) ExecFallback(ctx context.Context, prepState interface{}, cause error) (interface{}, error) {
	fb, ok := n.inner.(node.Fallback)
	if !ok {
		return nil, cause
	}
	return fb.ExecFallback(ctx, prepState, cause)
}

func toInterfaceMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
