package flow

import (
	"context"
	"testing"

	"github.com/flowforge/wfcore/flow/node"
	"github.com/flowforge/wfcore/flow/registry"
)

// TestViewReadWalksCrossNamespacePath exercises node.View.Read (§4.B
// "read(path)") directly from within a node's Prep, walking a path rooted
// at another node's namespace down into a nested array element in one
// call, without the node needing to already know which namespace holds
// the value.
func TestViewReadWalksCrossNamespacePath(t *testing.T) {
	reg := registry.New()
	if err := reg.Register("source", func(params map[string]interface{}) (node.Node, error) {
		return &scriptedNode{
			post: func(ctx context.Context, view node.View, prepState, execResult interface{}) (string, error) {
				return "default", view.Write("payload", map[string]interface{}{"items": []interface{}{"x", "y"}})
			},
		}, nil
	}, registry.Interface{Writes: []string{"payload"}}); err != nil {
		t.Fatalf("Register source: %v", err)
	}

	var readErr error
	var readVal interface{}
	if err := reg.Register("reader", func(params map[string]interface{}) (node.Node, error) {
		return &scriptedNode{
			prep: func(ctx context.Context, view node.View) (interface{}, error) {
				readVal, readErr = view.Read("source.payload.items[1]")
				return nil, nil
			},
		}, nil
	}, registry.Interface{}); err != nil {
		t.Fatalf("Register reader: %v", err)
	}

	doc := &Document{
		IRVersion: "0.2",
		Nodes: []NodeSpec{
			{ID: "source", Type: "source"},
			{ID: "reader", Type: "reader"},
		},
		Edges:     []EdgeSpec{{From: "source", To: "reader"}},
		StartNode: "source",
	}
	g, err := Compile(doc, reg, CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	eng, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	result, err := eng.Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (err=%v)", result.Status, result.Err)
	}
	if readErr != nil {
		t.Fatalf("view.Read: %v", readErr)
	}
	if readVal != "y" {
		t.Fatalf("expected Read to resolve to %q, got %v", "y", readVal)
	}
}
