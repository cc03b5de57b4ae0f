package flow

import (
	"context"

	"github.com/flowforge/wfcore/flow/node"
	"github.com/flowforge/wfcore/flow/registry"
)

// scriptedNode is a fully controllable node.Node for exercising the
// compiler and engine without a real node implementation (those are out
// of this module's scope). Each phase defaults to a harmless no-op if
// the corresponding func field is nil.
type scriptedNode struct {
	prep         func(ctx context.Context, view node.View) (interface{}, error)
	exec         func(ctx context.Context, prepState interface{}) (interface{}, error)
	post         func(ctx context.Context, view node.View, prepState, execResult interface{}) (string, error)
	execFallback func(ctx context.Context, prepState interface{}, cause error) (interface{}, error)
}

func (s *scriptedNode) Prep(ctx context.Context, view node.View) (interface{}, error) {
	if s.prep != nil {
		return s.prep(ctx, view)
	}
	return nil, nil
}

func (s *scriptedNode) Exec(ctx context.Context, prepState interface{}) (interface{}, error) {
	if s.exec != nil {
		return s.exec(ctx, prepState)
	}
	return nil, nil
}

func (s *scriptedNode) Post(ctx context.Context, view node.View, prepState, execResult interface{}) (string, error) {
	if s.post != nil {
		return s.post(ctx, view, prepState, execResult)
	}
	return "default", nil
}

func (s *scriptedNode) ExecFallback(ctx context.Context, prepState interface{}, cause error) (interface{}, error) {
	if s.execFallback != nil {
		return s.execFallback(ctx, prepState, cause)
	}
	return nil, cause
}

// echoFactory builds a node that, on Prep, reads the
// resolved "value" param and writes it to its own namespace's "out" key
// on Post, always routing "default". Useful for exercising template
// resolution across a chain of nodes.
func echoFactory(params map[string]interface{}) (node.Node, error) {
	return &scriptedNode{
		prep: func(ctx context.Context, view node.View) (interface{}, error) {
			resolved := node.ParamsFromContext(ctx)
			return resolved["value"], nil
		},
		exec: func(ctx context.Context, prepState interface{}) (interface{}, error) {
			return prepState, nil
		},
		post: func(ctx context.Context, view node.View, prepState, execResult interface{}) (string, error) {
			if err := view.Write("out", execResult); err != nil {
				return "", err
			}
			return "default", nil
		},
	}, nil
}

func newTestRegistryWithEcho(t interface{ Helper() }) *registry.Registry {
	t.Helper()
	r := registry.New()
	if err := r.Register("echo", echoFactory, registry.Interface{
		Reads:      []string{},
		Writes:     []string{"out"},
		MaxRetries: 1,
	}); err != nil {
		panic(err)
	}
	return r
}

// docFixture returns a small two-node linear document: greet writes
// inputs.name, repeat echoes greet's output, and outputs.final surfaces
// repeat's output.
func docFixture() *Document {
	return &Document{
		IRVersion: "0.2",
		Inputs: map[string]InputSpec{
			"name": {Type: "str", Required: true},
		},
		Nodes: []NodeSpec{
			{ID: "greet", Type: "echo", Params: map[string]interface{}{"value": "${name}"}},
			{ID: "repeat", Type: "echo", Params: map[string]interface{}{"value": "${greet.out}"}},
		},
		Edges: []EdgeSpec{
			{From: "greet", To: "repeat"},
		},
		StartNode: "greet",
		Outputs: map[string]interface{}{
			"final": "${repeat.out}",
		},
	}
}
