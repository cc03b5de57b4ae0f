package flow

import "testing"

func TestSeedInputValuesAppliesDefaultWhenMissing(t *testing.T) {
	doc := &Document{Inputs: map[string]InputSpec{
		"retries": {Type: "int", Default: 3.0},
	}}
	out, err := seedInputValues(doc, nil)
	if err != nil {
		t.Fatalf("seedInputValues: %v", err)
	}
	if out["retries"] != int64(3) {
		t.Fatalf("expected coerced default 3, got %v (%T)", out["retries"], out["retries"])
	}
}

func TestSeedInputValuesRequiredWithoutDefaultErrors(t *testing.T) {
	doc := &Document{Inputs: map[string]InputSpec{
		"url": {Type: "string", Required: true},
	}}
	_, err := seedInputValues(doc, map[string]interface{}{})
	if err == nil {
		t.Fatal("expected a ValidationError")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestSeedInputValuesCoercesSuppliedAndDefaultConsistently(t *testing.T) {
	doc := &Document{Inputs: map[string]InputSpec{
		"count": {Type: "int"},
	}}

	supplied, err := seedInputValues(doc, map[string]interface{}{"count": "42"})
	if err != nil {
		t.Fatalf("seedInputValues: %v", err)
	}
	defaulted, err := seedInputValues(&Document{Inputs: map[string]InputSpec{
		"count": {Type: "int", Default: "42"},
	}}, nil)
	if err != nil {
		t.Fatalf("seedInputValues: %v", err)
	}

	if supplied["count"] != defaulted["count"] {
		t.Fatalf("expected identical coercion for supplied vs default, got %v vs %v", supplied["count"], defaulted["count"])
	}
}
