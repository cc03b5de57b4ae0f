package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNullEmitterDiscardsEverything(t *testing.T) {
	n := NewNullEmitter()
	n.Emit(Event{Msg: "node_started"})
	if err := n.EmitBatch(context.Background(), []Event{{Msg: "x"}}); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if err := n.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestLogEmitterTextMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, false)
	e.Emit(Event{RunID: "r1", NodeID: "fetch", Visit: 1, Msg: "node_started"})

	out := buf.String()
	if !strings.Contains(out, "[node_started]") || !strings.Contains(out, "node=fetch") {
		t.Fatalf("unexpected text output: %q", out)
	}
}

func TestLogEmitterJSONMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, true)
	e.Emit(Event{RunID: "r1", NodeID: "fetch", Msg: "node_failed", Meta: map[string]interface{}{"error": "boom"}})

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output not valid JSON: %v (%s)", err, buf.String())
	}
	if decoded["nodeID"] != "fetch" || decoded["msg"] != "node_failed" {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestLogEmitterNilWriterDefaultsToStdout(t *testing.T) {
	e := NewLogEmitter(nil, false)
	if e.writer == nil {
		t.Fatal("expected a default writer")
	}
}

func TestMultiFansOutToAllEmitters(t *testing.T) {
	var a, b bytes.Buffer
	m := NewMulti(NewLogEmitter(&a, false), NewLogEmitter(&b, false), nil)
	m.Emit(Event{Msg: "node_started"})

	if a.Len() == 0 || b.Len() == 0 {
		t.Fatalf("expected both emitters to receive the event, got a=%q b=%q", a.String(), b.String())
	}
}

func TestMultiEmitBatchStopsOnFirstError(t *testing.T) {
	m := NewMulti(errEmitter{}, NewNullEmitter())
	if err := m.EmitBatch(context.Background(), []Event{{Msg: "x"}}); err == nil {
		t.Fatal("expected error from failing emitter to propagate")
	}
}

type errEmitter struct{}

func (errEmitter) Emit(Event) {}
func (errEmitter) EmitBatch(context.Context, []Event) error {
	return errSentinel
}
func (errEmitter) Flush(context.Context) error { return nil }

var errSentinel = errBoom("boom")

type errBoom string

func (e errBoom) Error() string { return string(e) }

func TestBufferedFlushesToSinkInOrder(t *testing.T) {
	var sinkEvents []Event
	sink := &recordingEmitter{events: &sinkEvents}
	b := NewBuffered(sink, 0)

	b.Emit(Event{Msg: "a"})
	b.Emit(Event{Msg: "b"})
	if len(sinkEvents) != 0 {
		t.Fatalf("expected no delivery before Flush, got %d", len(sinkEvents))
	}

	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(sinkEvents) != 2 || sinkEvents[0].Msg != "a" || sinkEvents[1].Msg != "b" {
		t.Fatalf("unexpected delivered events: %+v", sinkEvents)
	}

	if len(b.Pending()) != 0 {
		t.Fatal("expected pending to be cleared after Flush")
	}
}

func TestBufferedAutoFlushesAtCapacity(t *testing.T) {
	var sinkEvents []Event
	sink := &recordingEmitter{events: &sinkEvents}
	b := NewBuffered(sink, 2)

	b.Emit(Event{Msg: "a"})
	if len(sinkEvents) != 0 {
		t.Fatal("should not flush before capacity is reached")
	}
	b.Emit(Event{Msg: "b"})
	if len(sinkEvents) != 2 {
		t.Fatalf("expected auto-flush at capacity, got %d events", len(sinkEvents))
	}
}

type recordingEmitter struct {
	events *[]Event
}

func (r *recordingEmitter) Emit(e Event) { *r.events = append(*r.events, e) }
func (r *recordingEmitter) EmitBatch(_ context.Context, events []Event) error {
	*r.events = append(*r.events, events...)
	return nil
}
func (r *recordingEmitter) Flush(context.Context) error { return nil }
