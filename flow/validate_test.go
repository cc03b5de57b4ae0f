package flow

import "testing"

func TestValidateCleanDocumentHasNoErrors(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	diags := Validate(docFixture(), reg)
	for _, d := range diags {
		if d.Severity == SeverityError {
			t.Fatalf("unexpected error diagnostic: %s", d)
		}
	}
}

func TestValidateMissingStartNode(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.StartNode = ""
	diags := Validate(doc, reg)
	if !hasCode(diags, "MISSING_START_NODE") {
		t.Fatalf("expected MISSING_START_NODE, got %v", diags)
	}
}

func TestValidateUnknownNodeType(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.Nodes[0].Type = "nonexistent"
	diags := Validate(doc, reg)
	if !hasCode(diags, "UNKNOWN_NODE_TYPE") {
		t.Fatalf("expected UNKNOWN_NODE_TYPE, got %v", diags)
	}
}

func TestValidateDuplicateNodeID(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.Nodes[1].ID = "greet"
	diags := Validate(doc, reg)
	if !hasCode(diags, "DUPLICATE_NODE_ID") {
		t.Fatalf("expected DUPLICATE_NODE_ID, got %v", diags)
	}
}

func TestValidateUnknownEdgeEndpoint(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.Edges = append(doc.Edges, EdgeSpec{From: "greet", To: "nonexistent"})
	diags := Validate(doc, reg)
	if !hasCode(diags, "UNKNOWN_EDGE_TO") {
		t.Fatalf("expected UNKNOWN_EDGE_TO, got %v", diags)
	}
}

func TestValidateUnresolvedTemplateRoot(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.Nodes[0].Params["value"] = "${nonexistent_input}"
	diags := Validate(doc, reg)
	if !hasCode(diags, "UNRESOLVED_TEMPLATE_ROOT") {
		t.Fatalf("expected UNRESOLVED_TEMPLATE_ROOT, got %v", diags)
	}
}

func TestValidateUnreachableNodeWarns(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.Nodes = append(doc.Nodes, NodeSpec{ID: "orphan", Type: "echo", Params: map[string]interface{}{"value": "x"}})
	diags := Validate(doc, reg)
	if !hasCode(diags, "UNREACHABLE_NODE") {
		t.Fatalf("expected UNREACHABLE_NODE warning, got %v", diags)
	}
	for _, d := range diags {
		if d.Code == "UNREACHABLE_NODE" && d.Severity != SeverityWarn {
			t.Fatalf("expected UNREACHABLE_NODE to be a warning, got severity %s", d.Severity)
		}
	}
}

func TestValidateAmbiguousRouting(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.Edges = append(doc.Edges, EdgeSpec{From: "greet", To: "repeat", Action: "default"})
	diags := Validate(doc, reg)
	if !hasCode(diags, "AMBIGUOUS_ROUTING") {
		t.Fatalf("expected AMBIGUOUS_ROUTING, got %v", diags)
	}
}

func TestValidateEmptyGraph(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := &Document{}
	diags := Validate(doc, reg)
	if !hasCode(diags, "EMPTY_GRAPH") {
		t.Fatalf("expected EMPTY_GRAPH, got %v", diags)
	}
}

func TestValidateMissingIRVersion(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.IRVersion = ""
	diags := Validate(doc, reg)
	if !hasCode(diags, "MISSING_IR_VERSION") {
		t.Fatalf("expected MISSING_IR_VERSION, got %v", diags)
	}
}

func TestValidateUnrecognizedIRVersion(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.IRVersion = "9.9"
	diags := Validate(doc, reg)
	if !hasCode(diags, "UNRECOGNIZED_IR_VERSION") {
		t.Fatalf("expected UNRECOGNIZED_IR_VERSION, got %v", diags)
	}
}

func TestValidateTemplateRootNotAPredecessor(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := &Document{
		IRVersion: "0.2",
		Nodes: []NodeSpec{
			{ID: "b", Type: "echo", Params: map[string]interface{}{"value": "${a.out}"}},
			{ID: "a", Type: "echo", Params: map[string]interface{}{"value": "x"}},
		},
		StartNode: "b",
	}
	diags := Validate(doc, reg)
	if !hasCode(diags, "TEMPLATE_ROOT_NOT_A_PREDECESSOR") {
		t.Fatalf("expected TEMPLATE_ROOT_NOT_A_PREDECESSOR, got %v", diags)
	}
}

func TestValidateTemplateRootIsPredecessorOK(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	diags := Validate(docFixture(), reg)
	if hasCode(diags, "TEMPLATE_ROOT_NOT_A_PREDECESSOR") {
		t.Fatalf("did not expect TEMPLATE_ROOT_NOT_A_PREDECESSOR for a valid predecessor reference, got %v", diags)
	}
}

// A batch directive missing the required "key" field is caught at
// validation time rather than surfacing as a confusing runtime failure
// deep inside the batch wrapper.
func TestValidateInvalidBatchDirectiveMissingKey(t *testing.T) {
	reg := newTestRegistryWithEcho(t)
	doc := docFixture()
	doc.Nodes[0].Params["batch"] = map[string]interface{}{
		"array_source_path": "name",
	}
	diags := Validate(doc, reg)
	if !hasCode(diags, "INVALID_BATCH_DIRECTIVE") {
		t.Fatalf("expected INVALID_BATCH_DIRECTIVE, got %v", diags)
	}
}

func hasCode(diags []Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}
