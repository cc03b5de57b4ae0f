package flow

import (
	"github.com/flowforge/wfcore/flow/store"
	"github.com/flowforge/wfcore/flow/template"
)

// resolvingView adapts a namespace-scoped *store.View into node.View by
// adding Read, the cross-namespace path-walking read §4.B describes.
// store cannot depend on template (template already depends on store),
// so the resolver-backed Read lives here instead, one level up.
type resolvingView struct {
	*store.View
	resolver *template.Resolver
}

func newResolvingView(v *store.View, resolver *template.Resolver) *resolvingView {
	return &resolvingView{View: v, resolver: resolver}
}

// Read resolves a dotted/indexed path expression that may cross
// namespaces, e.g. "other_node.field.sub[0]", in one call (§4.B
// "read(path)"). It is the View-level counterpart of the engine's own
// "${path}" template resolution, exposed directly to node authors who
// need to walk a path at runtime rather than through a static param.
func (v *resolvingView) Read(path string) (interface{}, error) {
	return v.resolver.ResolvePath(path)
}
