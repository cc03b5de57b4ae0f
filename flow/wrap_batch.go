package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowforge/wfcore/flow/node"
	"github.com/flowforge/wfcore/flow/template"
)

// batchFanOut is the prep state batchNode produces for a batched node:
// the array already resolved from the directive's array_source_path,
// ready to fan out over inner.Exec one item at a time.
type batchFanOut struct {
	items []interface{}
	spec  *BatchSpec
}

// batchItemResult is one item's Exec outcome within a batch.
type batchItemResult struct {
	value interface{}
	err   error
}

// batchExecResult is what Exec hands Post in batch mode: every item's
// result in source order, plus whether the fan-out was cut short by
// cancellation.
type batchExecResult struct {
	results   []batchItemResult
	cancelled bool
}

// batchNode implements §4.F.2's batch wrapper: when a node's params
// declare a "batch" directive, this wrapper resolves its
// array_source_path itself and fans the wrapped node's Exec out once
// per item, aggregating the results into a list under the directive's
// key. The wrapped node's own Prep and Post are never invoked for a
// batched node — it has no way to know it is being fanned out, and
// does not need one (§4.F closing line). A node with no batch
// directive passes straight through to inner unchanged.
type batchNode struct {
	inner              node.Node
	nodeID             string
	spec               *BatchSpec
	resolver           *template.Resolver
	defaultConcurrency int
}

func newBatchNode(inner node.Node, nodeID string, spec *BatchSpec, resolver *template.Resolver, defaultConcurrency int) *batchNode {
	return &batchNode{inner: inner, nodeID: nodeID, spec: spec, resolver: resolver, defaultConcurrency: defaultConcurrency}
}

func (n *batchNode) Prep(ctx context.Context, view node.View) (interface{}, error) {
	if n.spec == nil {
		return n.inner.Prep(ctx, view)
	}

	raw, err := n.resolver.ResolvePath(stripTemplateWrapper(n.spec.ArraySourcePath))
	if err != nil {
		return nil, fmt.Errorf("batch: resolving array_source_path %q: %w", n.spec.ArraySourcePath, err)
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("batch: array_source_path %q did not resolve to an array (got %T)", n.spec.ArraySourcePath, raw)
	}

	return &batchFanOut{items: items, spec: n.spec}, nil
}

// Exec fans out over a batched prep state, dispatching up to
// concurrency items at once and checking ctx.Done() before every
// dispatch so cancellation is honored between items (§5 "Batch
// concurrency honors the signal between items", §8 scenario 6).
func (n *batchNode) Exec(ctx context.Context, prepState interface{}) (interface{}, error) {
	fan, ok := prepState.(*batchFanOut)
	if !ok {
		return n.inner.Exec(ctx, prepState)
	}

	concurrency := fan.spec.Concurrency
	if concurrency <= 0 {
		concurrency = n.defaultConcurrency
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]batchItemResult, len(fan.items))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var stopErr error
	cancelled := false

dispatch:
	for i, item := range fan.items {
		select {
		case <-ctx.Done():
			cancelled = true
			break dispatch
		default:
		}

		if !fan.spec.ContinueOnError {
			mu.Lock()
			failed := stopErr != nil
			mu.Unlock()
			if failed {
				break dispatch
			}
		}

		i, item := i, item
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			v, err := n.inner.Exec(ctx, item)
			results[i] = batchItemResult{value: v, err: err}
			if err != nil && !fan.spec.ContinueOnError {
				mu.Lock()
				if stopErr == nil {
					stopErr = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if !fan.spec.ContinueOnError && stopErr != nil {
		return nil, fmt.Errorf("batch: %w", stopErr)
	}

	return &batchExecResult{results: results, cancelled: cancelled}, nil
}

// Post writes the aggregated batch results directly into view — the
// wrapped node's own Post is skipped entirely for a batched node, since
// its single-result contract has nothing meaningful to do with a list
// of per-item outcomes. A cancelled fan-out still writes whatever
// results it collected before returning CancellationRequested, so a
// partial batch remains visible (§8 scenario 6: "the aggregated list
// has at least 10 results").
func (n *batchNode) Post(ctx context.Context, view node.View, prepState, execResult interface{}) (string, error) {
	fan, isBatch := prepState.(*batchFanOut)
	if !isBatch {
		return n.inner.Post(ctx, view, prepState, execResult)
	}

	res, ok := execResult.(*batchExecResult)
	if !ok {
		return "", fmt.Errorf("batch: unexpected exec result type %T", execResult)
	}

	values := make([]interface{}, len(res.results))
	var errEntries []interface{}
	for i, r := range res.results {
		values[i] = r.value
		if r.err != nil {
			errEntries = append(errEntries, map[string]interface{}{"index": i, "message": r.err.Error()})
		}
	}

	if err := view.Write(fan.spec.Key, values); err != nil {
		return "", err
	}
	if len(errEntries) > 0 {
		if err := view.Write(fan.spec.Key+"_errors", errEntries); err != nil {
			return "", err
		}
	}

	if res.cancelled {
		return "", &CancellationRequested{NodeID: n.nodeID}
	}
	return "default", nil
}

func (n *batchNode) ExecFallback(ctx context.Context, prepState interface{}, cause error) (interface{}, error) {
	fb, ok := n.inner.(node.Fallback)
	if !ok {
		return nil, fmt.Errorf("batch: inner node has no fallback: %w", cause)
	}
	return fb.ExecFallback(ctx, prepState, cause)
}
