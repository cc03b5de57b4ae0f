package store

import (
	"context"
	"testing"
)

func TestSQLiteSnapshotStoreSaveAndLoad(t *testing.T) {
	s, err := OpenSQLiteSnapshotStore(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteSnapshotStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	snapshot := map[string]map[string]interface{}{
		"n1": {"out": "hello"},
	}
	if err := s.SaveSnapshot(ctx, "run-1", snapshot); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := s.LoadLatestSnapshot(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadLatestSnapshot: %v", err)
	}
	ns, ok := got["n1"]
	if !ok || ns["out"] != "hello" {
		t.Fatalf("got %+v", got)
	}
}

func TestSQLiteSnapshotStoreLoadMissingRunReturnsNil(t *testing.T) {
	s, err := OpenSQLiteSnapshotStore(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteSnapshotStore: %v", err)
	}
	defer s.Close()

	got, err := s.LoadLatestSnapshot(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("LoadLatestSnapshot: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestSQLiteSnapshotStoreOverwritesOnResave(t *testing.T) {
	s, err := OpenSQLiteSnapshotStore(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteSnapshotStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	_ = s.SaveSnapshot(ctx, "run-1", map[string]map[string]interface{}{"n1": {"out": "first"}})
	_ = s.SaveSnapshot(ctx, "run-1", map[string]map[string]interface{}{"n1": {"out": "second"}})

	got, err := s.LoadLatestSnapshot(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadLatestSnapshot: %v", err)
	}
	if got["n1"]["out"] != "second" {
		t.Fatalf("expected overwritten value, got %+v", got)
	}
}
