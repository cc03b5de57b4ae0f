package store

import "testing"

func TestViewWriteScopedToOwner(t *testing.T) {
	s := New()
	v := NewView(s, "fetch")

	if err := v.Write("response", "hello"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !v.Has("response") {
		t.Fatal("expected response to be written")
	}

	val, ok := v.Get("fetch", "response")
	if !ok || val != "hello" {
		t.Fatalf("Get: got (%v, %v), want (hello, true)", val, ok)
	}
}

func TestWriteNamespaceRejectsCrossNamespace(t *testing.T) {
	s := New()
	v := NewView(s, "fetch")

	err := v.WriteNamespace("summarize", "text", "oops")
	if err == nil {
		t.Fatal("expected ScopeViolation")
	}
}

func TestReservedNamespacesAreReadOnly(t *testing.T) {
	s := New()
	v := NewView(s, InputsNamespace)
	if err := v.Write("url", "https://example.com"); err == nil {
		t.Fatal("expected write to __inputs__ to be rejected")
	}

	v2 := NewView(s, MetaNamespace)
	if err := v2.Write("run_id", "r1"); err == nil {
		t.Fatal("expected write to __meta__ to be rejected")
	}
}

func TestCrossNamespaceReadsAllowed(t *testing.T) {
	s := New()
	producer := NewView(s, "fetch")
	_ = producer.Write("response", map[string]interface{}{"ok": true})

	consumer := NewView(s, "summarize")
	val, ok := consumer.Get("fetch", "response")
	if !ok {
		t.Fatal("expected cross-namespace read to succeed")
	}
	m := val.(map[string]interface{})
	if m["ok"] != true {
		t.Fatalf("got %+v", m)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := New()
	v := NewView(s, "fetch")
	_ = v.Write("nested", map[string]interface{}{"a": []interface{}{1, 2}})

	snap := s.Snapshot()
	nested := snap["fetch"]["nested"].(map[string]interface{})
	arr := nested["a"].([]interface{})
	arr[0] = 999 // mutate the copy

	val, _ := s.Get("fetch", "nested")
	original := val.(map[string]interface{})["a"].([]interface{})
	if original[0] == 999 {
		t.Fatal("snapshot mutation leaked into store")
	}
}

func TestSeedInputsAndMeta(t *testing.T) {
	s := New()
	s.SeedInputs(map[string]interface{}{"url": "https://example.com"})
	s.SeedMeta(map[string]interface{}{"run_id": "r1", "verbose": false})

	v, ok := s.Get(InputsNamespace, "url")
	if !ok || v != "https://example.com" {
		t.Fatalf("unexpected inputs: %v, %v", v, ok)
	}
	m, ok := s.Get(MetaNamespace, "run_id")
	if !ok || m != "r1" {
		t.Fatalf("unexpected meta: %v, %v", m, ok)
	}
}

func TestKeysAndDelete(t *testing.T) {
	s := New()
	v := NewView(s, "fetch")
	_ = v.Write("a", 1)
	_ = v.Write("b", 2)

	keys := v.Keys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}

	v.Delete("a")
	if v.Has("a") {
		t.Fatal("expected a to be deleted")
	}
}
