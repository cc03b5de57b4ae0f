package flow

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flowforge/wfcore/flow/node"
	"github.com/flowforge/wfcore/flow/store"
	"github.com/flowforge/wfcore/flow/template"
)

// Engine runs compiled Graphs. It holds no per-run state itself: each
// Run call builds a fresh Store, wrapper chain, and scheduler state, so
// one Engine is safe to share across concurrent Run calls.
type Engine struct {
	cfg engineConfig
	sem chan struct{} // nil when maxConcurrentRuns is unbounded
}

// NewEngine applies opts over the default configuration.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	e := &Engine{cfg: cfg}
	if cfg.maxConcurrentRuns > 0 {
		e.sem = make(chan struct{}, cfg.maxConcurrentRuns)
	}
	return e, nil
}

// runState is the scheduler's live bookkeeping for one Run call.
type runState struct {
	runID    string
	st       *store.Store
	resolver *template.Resolver
	rng      *rand.Rand
	nodes    map[string]node.Node // run-scoped wrapper chains, one per compiled node
	visits   map[string]int
	usage    usageAccumulator
	deadline time.Time // zero means no run-level budget
}

// Run executes graph to completion starting at its start node, feeding
// inputs into the run's __inputs__ namespace.
func (e *Engine) Run(ctx context.Context, graph *Graph, inputs map[string]interface{}) (*RunResult, error) {
	if graph == nil {
		return nil, &InternalError{Message: "Run called with a nil graph"}
	}
	if graph.startNode == "" {
		return nil, &InternalError{Message: "Run called with an uncompiled or empty graph"}
	}

	if e.sem != nil {
		select {
		case e.sem <- struct{}{}:
			defer func() { <-e.sem }()
		case <-ctx.Done():
			return nil, &CancellationRequested{}
		}
	}

	seeded, err := seedInputValues(graph.doc, inputs)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()

	st := store.New()
	st.SeedInputs(seeded)
	st.SeedMeta(map[string]interface{}{
		"run_id":     runID,
		"started_at": time.Now().UTC().Format(time.RFC3339Nano),
		"verbose":    e.cfg.verbose,
	})

	resolver := template.NewResolver(st, graph.NodeIDs())

	rs := &runState{
		runID:    runID,
		st:       st,
		resolver: resolver,
		rng:      initRNG(runID),
		nodes:    map[string]node.Node{},
		visits:   map[string]int{},
	}
	if e.cfg.runWallClockBudget > 0 {
		rs.deadline = time.Now().Add(e.cfg.runWallClockBudget)
	}

	for id, cn := range graph.nodes {
		rs.nodes[id] = buildChain(cn.spec, cn.iface, cn.inner, st, resolver, runID, e.cfg.emitter, e.cfg.batchConcurrency)
	}

	result := e.schedule(ctx, graph, rs)
	e.cfg.metrics.observeOutcome(result.Status)

	if e.cfg.snapshotStore != nil && result.Status == StatusSuccess {
		_ = e.cfg.snapshotStore.SaveSnapshot(ctx, runID, st.Snapshot())
	}

	return result, nil
}

func (e *Engine) schedule(ctx context.Context, graph *Graph, rs *runState) *RunResult {
	current := graph.startNode

	for current != "" {
		if !rs.deadline.IsZero() && time.Now().After(rs.deadline) {
			return e.abort(graph, rs, current, "", &CancellationRequested{NodeID: current})
		}
		select {
		case <-ctx.Done():
			return e.abort(graph, rs, current, "", &CancellationRequested{NodeID: current})
		default:
		}

		cn := graph.nodes[current]
		maxVisits := cn.iface.MaxVisits
		if maxVisits <= 0 {
			maxVisits = e.cfg.defaultMaxVisits
		}
		rs.visits[current]++
		visit := rs.visits[current]
		if visit > maxVisits {
			return e.abort(graph, rs, current, "", &LoopBudgetExceeded{NodeID: current, MaxVisits: maxVisits})
		}

		e.cfg.metrics.observeVisit(current, cn.spec.Type)
		nodeCtx := withVisit(ctx, visit)

		action, err := e.runOneVisit(nodeCtx, rs, cn)
		if err != nil {
			routed, ok := e.routeToErrorEdge(rs, cn, err)
			if !ok {
				return e.abort(graph, rs, current, phaseFromError(err), err)
			}
			action = routed
		}

		next, ok := cn.successors[action]
		if !ok {
			next, ok = cn.successors["default"]
		}
		if !ok {
			break // terminal node: no edge for the returned action
		}
		current = next
	}

	return e.finish(graph, rs)
}

func phaseFromError(err error) string {
	switch err.(type) {
	case *NodeFailure, *NodeTimeout:
		return "exec"
	case *ScopeViolation:
		return "post"
	default:
		return ""
	}
}

// routeToErrorEdge implements §7's error-routing policy: a NodeFailure,
// NodeTimeout, or ScopeViolation propagated out of cn consults cn's edge
// map for a declared "error" action. If present, the failure is recorded
// in the failing node's own namespace and the run continues at that
// successor instead of halting.
func (e *Engine) routeToErrorEdge(rs *runState, cn *compiledNode, err error) (action string, ok bool) {
	kind, attempts, routable := classifyRoutableError(err)
	if !routable {
		return "", false
	}
	if _, hasEdge := cn.successors["error"]; !hasEdge {
		return "", false
	}

	view := store.NewView(rs.st, cn.id)
	_ = view.Write("error", map[string]interface{}{
		"kind":       kind,
		"message":    err.Error(),
		"attempts":   attempts,
		"last_cause": errString(errors.Unwrap(err)),
		"visit":      rs.visits[cn.id],
	})

	return "error", true
}

func classifyRoutableError(err error) (kind string, attempts int, ok bool) {
	switch e := err.(type) {
	case *NodeFailure:
		return "NodeFailure", e.Attempts, true
	case *NodeTimeout:
		return "NodeTimeout", e.Attempts, true
	case *ScopeViolation:
		return "ScopeViolation", 0, true
	default:
		return "", 0, false
	}
}

// runOneVisit drives one node's prep/exec/post cycle, applying the
// node's retry policy around exec only (§3, §7: prep and post errors are
// never retried).
func (e *Engine) runOneVisit(ctx context.Context, rs *runState, cn *compiledNode) (string, error) {
	n := rs.nodes[cn.id]
	view := newResolvingView(store.NewView(rs.st, cn.id), rs.resolver)

	prepState, err := n.Prep(ctx, view)
	if err != nil {
		return "", &InternalError{Message: "node " + cn.id + " prep failed", Cause: err}
	}

	execResult, err := e.runExecWithRetry(ctx, rs, cn, n, prepState)
	if err != nil {
		return "", err
	}

	action, err := n.Post(ctx, view, prepState, execResult)
	if err != nil {
		if errors.Is(err, store.ErrScopeViolation) {
			return "", &ScopeViolation{NodeID: cn.id, Cause: err}
		}
		var cancelled *CancellationRequested
		if errors.As(err, &cancelled) {
			return "", err
		}
		return "", &InternalError{Message: "node " + cn.id + " post failed", Cause: err}
	}

	if usage, ok := view.Get(cn.id, "usage"); ok {
		if um, ok := usage.(map[string]interface{}); ok {
			rs.usage.accumulate(um)
		}
	}

	return action, nil
}

func (e *Engine) runExecWithRetry(ctx context.Context, rs *runState, cn *compiledNode, n node.Node, prepState interface{}) (interface{}, error) {
	maxRetries := cn.iface.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	retryDelay := cn.iface.RetryDelay

	timeout := cn.iface.TimeoutSeconds
	if timeout <= 0 {
		timeout = e.cfg.defaultNodeTimeout.Seconds()
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		execCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			execCtx, cancel = context.WithTimeout(ctx, time.Duration(timeout*float64(time.Second)))
		}

		start := time.Now()
		result, err := n.Exec(execCtx, prepState)
		if cancel != nil {
			cancel()
		}
		e.cfg.metrics.observeDuration(cn.id, cn.spec.Type, time.Since(start).Seconds())

		if err == nil {
			return result, nil
		}

		if execCtx.Err() == context.DeadlineExceeded {
			lastErr = &NodeTimeout{NodeID: cn.id, Visit: rs.visits[cn.id], Attempts: attempt, Seconds: timeout}
		} else {
			lastErr = &NodeFailure{NodeID: cn.id, Visit: rs.visits[cn.id], Attempts: attempt, Cause: err}
		}

		if attempt < maxRetries {
			e.cfg.metrics.observeRetry(cn.id, cn.spec.Type)
			if retryDelay > 0 {
				jitter := time.Duration(rs.rng.Int63n(int64(retryDelay) + 1))
				select {
				case <-time.After(retryDelay + jitter/4):
				case <-ctx.Done():
					return nil, &CancellationRequested{NodeID: cn.id}
				}
			}
		}
	}

	e.cfg.metrics.observeFailure(cn.id, cn.spec.Type)

	if fb, ok := n.(node.Fallback); ok {
		result, err := fb.ExecFallback(ctx, prepState, lastErr)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

func (e *Engine) finish(graph *Graph, rs *runState) *RunResult {
	var outputs map[string]interface{}
	var diags []Diagnostic
	if graph.doc.Outputs != nil {
		resolved, err := rs.resolver.ResolveValue(toInterfaceMap(graph.doc.Outputs))
		if err != nil {
			diags = append(diags, Diagnostic{Severity: SeverityWarn, Code: "OUTPUT_RESOLUTION_FAILED", Message: err.Error()})
		} else {
			outputs, _ = resolved.(map[string]interface{})
		}
	}

	return &RunResult{
		RunID:       rs.runID,
		Status:      StatusSuccess,
		Outputs:     outputs,
		Diagnostics: diags,
		Visits:      rs.visits,
		Usage:       rs.usage.snapshot(),
	}
}

// abort assembles the RunResult for a halted run. For a cancelled run
// specifically (§5 "Cancellation semantics"), Outputs is still resolved
// against whatever partial store state exists — unlike a hard failure,
// where Outputs stays nil and only PartialOutputs is available. Paths
// that can't resolve against the partial state are reported as
// Diagnostics, not treated as a second failure.
func (e *Engine) abort(graph *Graph, rs *runState, failedNode, phase string, cause error) *RunResult {
	status := StatusFailed
	if _, ok := cause.(*CancellationRequested); ok {
		status = StatusCancelled
	}

	result := &RunResult{
		RunID:          rs.runID,
		Status:         status,
		PartialOutputs: rs.st.Snapshot(),
		FailedNode:     failedNode,
		Phase:          phase,
		Err:            cause,
		Visits:         rs.visits,
		Usage:          rs.usage.snapshot(),
	}

	if status == StatusCancelled && graph.doc.Outputs != nil {
		result.Outputs, result.Diagnostics = resolveOutputsPartial(rs.resolver, graph.doc.Outputs)
	}

	return result
}

// resolveOutputsPartial resolves each top-level output independently so
// one unresolvable path (e.g. a node that never ran before cancellation)
// doesn't discard every other output that did resolve. Failures are
// reported as WARN diagnostics, matching §5's "missing paths are
// reported as diagnostics, not failures" for the cancelled case.
func resolveOutputsPartial(resolver *template.Resolver, outputs map[string]interface{}) (map[string]interface{}, []Diagnostic) {
	result := make(map[string]interface{}, len(outputs))
	var diags []Diagnostic

	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		resolved, err := resolver.ResolveValue(outputs[k])
		if err != nil {
			diags = append(diags, Diagnostic{Severity: SeverityWarn, Code: "OUTPUT_RESOLUTION_FAILED", Path: "outputs." + k, Message: err.Error()})
			continue
		}
		result[k] = resolved
	}

	return result, diags
}
