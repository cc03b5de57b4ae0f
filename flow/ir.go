// Package flow is the workflow execution core: IR types, compiler,
// validator, and the engine that runs a compiled graph to completion.
package flow

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// InputSpec describes one declared workflow input (§3 "inputs").
type InputSpec struct {
	Type        string      `json:"type" yaml:"type"`
	Required    bool        `json:"required" yaml:"required"`
	Default     interface{} `json:"default,omitempty" yaml:"default,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Sensitive   bool        `json:"sensitive,omitempty" yaml:"sensitive,omitempty"`
}

// NormalizedType maps the IR's type aliases onto a small canonical set:
// string, integer, number, boolean, object, array. Unrecognized spellings
// are returned unchanged so the validator can flag them.
func NormalizedType(t string) string {
	switch t {
	case "str", "string":
		return "string"
	case "int", "integer":
		return "integer"
	case "float", "number":
		return "number"
	case "bool", "boolean":
		return "boolean"
	case "dict", "object":
		return "object"
	case "list", "array":
		return "array"
	default:
		return t
	}
}

// NodeSpec is one entry of the IR's "nodes" array.
type NodeSpec struct {
	ID     string                 `json:"id" yaml:"id"`
	Type   string                 `json:"type" yaml:"type"`
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
}

// EdgeSpec is one entry of the IR's "edges" array. Action defaults to
// "default" when omitted (§3 "edges").
type EdgeSpec struct {
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

// NormalizedAction returns e.Action, defaulting to "default" when empty.
func (e EdgeSpec) NormalizedAction() string {
	if e.Action == "" {
		return "default"
	}
	return e.Action
}

// Document is the parsed, not-yet-validated workflow IR (§3 "Document
// structure").
type Document struct {
	IRVersion string                 `json:"ir_version" yaml:"ir_version"`
	Inputs    map[string]InputSpec   `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Nodes     []NodeSpec             `json:"nodes" yaml:"nodes"`
	Edges     []EdgeSpec             `json:"edges,omitempty" yaml:"edges,omitempty"`
	StartNode string                 `json:"start_node" yaml:"start_node"`
	Outputs   map[string]interface{} `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// recognizedIRVersions enumerates the ir_version values this compiler
// accepts (§6). A document with an unrecognized or missing version fails
// validation in phaseSchema rather than being compiled against the wrong
// semantics.
var recognizedIRVersions = map[string]bool{
	"0.1": true,
	"0.2": true,
}

// ParseJSON decodes a workflow document from JSON bytes. It performs no
// semantic validation; call Validate (or Compile, which validates
// internally) on the result.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("flow: parse json: %w", err)
	}
	return &doc, nil
}

// ParseYAML decodes a workflow document from YAML bytes.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("flow: parse yaml: %w", err)
	}
	return &doc, nil
}

// NodeByID returns the node with the given id, or false if none exists.
func (d *Document) NodeByID(id string) (NodeSpec, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSpec{}, false
}
