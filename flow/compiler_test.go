package flow

import "testing"

func TestCompileValidDocument(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	g, err := Compile(docFixture(), reg, CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if g.StartNode() != "greet" {
		t.Fatalf("start node = %q", g.StartNode())
	}
	ids := g.NodeIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 nodes, got %v", ids)
	}
}

func TestCompileRejectsInvalidDocument(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.StartNode = "nonexistent"
	_, err := Compile(doc, reg, CompileOptions{})
	if err == nil {
		t.Fatal("expected a ValidationError")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if len(verr.Diagnostics) == 0 {
		t.Fatal("expected at least one diagnostic")
	}
}

func TestCompileWiresSuccessors(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	g, err := Compile(docFixture(), reg, CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	cn := g.nodes["greet"]
	if cn.successors["default"] != "repeat" {
		t.Fatalf("expected greet's default successor to be repeat, got %q", cn.successors["default"])
	}
}

func TestCompileSubgraphDepthGuard(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	_, err := CompileSubgraph(doc, reg, CompileOptions{}, 3, 3)
	if err == nil {
		t.Fatal("expected SubworkflowDepthExceeded")
	}
	if _, ok := err.(*SubworkflowDepthExceeded); !ok {
		t.Fatalf("expected *SubworkflowDepthExceeded, got %T", err)
	}

	g, err := CompileSubgraph(doc, reg, CompileOptions{}, 1, 3)
	if err != nil {
		t.Fatalf("CompileSubgraph within budget: %v", err)
	}
	if g == nil {
		t.Fatal("expected a compiled graph")
	}
}
