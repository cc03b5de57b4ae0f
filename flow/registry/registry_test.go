package registry

import (
	"context"
	"testing"

	"github.com/flowforge/wfcore/flow/node"
)

type stubNode struct{}

func (stubNode) Prep(ctx context.Context, view node.View) (interface{}, error) { return nil, nil }
func (stubNode) Exec(ctx context.Context, prepState interface{}) (interface{}, error) {
	return nil, nil
}
func (stubNode) Post(ctx context.Context, view node.View, prepState, execResult interface{}) (string, error) {
	return "default", nil
}

func stubFactory(params map[string]interface{}) (node.Node, error) {
	return stubNode{}, nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	iface := Interface{Reads: []string{"x"}, Writes: []string{"y"}}
	if err := r.Register("stub", stubFactory, iface); err != nil {
		t.Fatalf("Register: %v", err)
	}

	factory, got, err := r.Lookup("stub")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if factory == nil {
		t.Fatal("expected non-nil factory")
	}
	if len(got.Reads) != 1 || got.Reads[0] != "x" {
		t.Fatalf("got interface %+v", got)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	if err := r.Register("stub", stubFactory, Interface{}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := r.Register("stub", stubFactory, Interface{})
	if err == nil {
		t.Fatal("expected ErrDuplicateType")
	}
	if _, ok := err.(*ErrDuplicateType); !ok {
		t.Fatalf("expected *ErrDuplicateType, got %T", err)
	}
}

func TestLookupUnknownType(t *testing.T) {
	r := New()
	_, _, err := r.Lookup("nonexistent")
	if err == nil {
		t.Fatal("expected ErrUnknownNodeType")
	}
	if _, ok := err.(*ErrUnknownNodeType); !ok {
		t.Fatalf("expected *ErrUnknownNodeType, got %T", err)
	}
}

func TestRegisterRejectsEmptyNameAndNilFactory(t *testing.T) {
	r := New()
	if err := r.Register("", stubFactory, Interface{}); err == nil {
		t.Fatal("expected error for empty type name")
	}
	if err := r.Register("x", nil, Interface{}); err == nil {
		t.Fatal("expected error for nil factory")
	}
}

func TestList(t *testing.T) {
	r := New()
	_ = r.Register("b", stubFactory, Interface{})
	_ = r.Register("a", stubFactory, Interface{})
	got := r.List()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected sorted [a b], got %v", got)
	}
}

func TestHasAction(t *testing.T) {
	iface := Interface{Actions: []string{"retry", "skip"}}
	if !iface.HasAction("default") {
		t.Fatal("default should always be allowed")
	}
	if !iface.HasAction("retry") {
		t.Fatal("retry was declared")
	}
	if iface.HasAction("bogus") {
		t.Fatal("bogus was not declared")
	}
}
