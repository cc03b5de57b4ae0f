package flow

import (
	"context"
	"time"

	"github.com/flowforge/wfcore/flow/emit"
	"github.com/flowforge/wfcore/flow/node"
)

// instrumentedNode is the outermost wrapper in the chain (§4.F): it emits
// a start and an end event per phase per invocation, carrying the node id and the
// current visit count (threaded through context by the scheduler).
type instrumentedNode struct {
	inner   node.Node
	nodeID  string
	runID   string
	emitter emit.Emitter
}

func newInstrumentedNode(inner node.Node, nodeID, runID string, emitter emit.Emitter) *instrumentedNode {
	return &instrumentedNode{inner: inner, nodeID: nodeID, runID: runID, emitter: emitter}
}

func visitFromContext(ctx context.Context) int {
	if v, ok := ctx.Value(visitCtxKey{}).(int); ok {
		return v
	}
	return 0
}

type visitCtxKey struct{}

// withVisit returns a context carrying the current visit count, read back
// by visitFromContext for instrumentation events.
func withVisit(ctx context.Context, visit int) context.Context {
	return context.WithValue(ctx, visitCtxKey{}, visit)
}

func (n *instrumentedNode) Prep(ctx context.Context, view node.View) (interface{}, error) {
	visit := visitFromContext(ctx)
	start := time.Now()
	n.emitter.Emit(emit.Event{RunID: n.runID, NodeID: n.nodeID, Visit: visit, Msg: "prep.start"})
	out, err := n.inner.Prep(ctx, view)
	n.emitter.Emit(emit.Event{
		RunID: n.runID, NodeID: n.nodeID, Visit: visit, Msg: "prep.end",
		Meta: map[string]interface{}{"duration_ms": time.Since(start).Milliseconds(), "error": errString(err)},
	})
	return out, err
}

func (n *instrumentedNode) Exec(ctx context.Context, prepState interface{}) (interface{}, error) {
	visit := visitFromContext(ctx)
	start := time.Now()
	n.emitter.Emit(emit.Event{RunID: n.runID, NodeID: n.nodeID, Visit: visit, Msg: "exec.start"})
	out, err := n.inner.Exec(ctx, prepState)
	n.emitter.Emit(emit.Event{
		RunID: n.runID, NodeID: n.nodeID, Visit: visit, Msg: "exec.end",
		Meta: map[string]interface{}{"duration_ms": time.Since(start).Milliseconds(), "error": errString(err)},
	})
	return out, err
}

func (n *instrumentedNode) Post(ctx context.Context, view node.View, prepState, execResult interface{}) (string, error) {
	visit := visitFromContext(ctx)
	start := time.Now()
	n.emitter.Emit(emit.Event{RunID: n.runID, NodeID: n.nodeID, Visit: visit, Msg: "post.start"})
	action, err := n.inner.Post(ctx, view, prepState, execResult)
	n.emitter.Emit(emit.Event{
		RunID: n.runID, NodeID: n.nodeID, Visit: visit, Msg: "post.end",
		Meta: map[string]interface{}{"duration_ms": time.Since(start).Milliseconds(), "action": action, "error": errString(err)},
	})
	return action, err
}

// ExecFallback delegates to the inner node's fallback when present,
// satisfying node.Fallback so the engine can still reach through the
// wrapper chain to it.
func (n *instrumentedNode) ExecFallback(ctx context.Context, prepState interface{}, cause error) (interface{}, error) {
	fb, ok := n.inner.(node.Fallback)
	if !ok {
		return nil, cause
	}
	visit := visitFromContext(ctx)
	n.emitter.Emit(emit.Event{RunID: n.runID, NodeID: n.nodeID, Visit: visit, Msg: "exec_fallback.start"})
	out, err := fb.ExecFallback(ctx, prepState, cause)
	n.emitter.Emit(emit.Event{RunID: n.runID, NodeID: n.nodeID, Visit: visit, Msg: "exec_fallback.end", Meta: map[string]interface{}{"error": errString(err)}})
	return out, err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
