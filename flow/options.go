package flow

import (
	"time"

	"github.com/flowforge/wfcore/flow/emit"
	"github.com/flowforge/wfcore/flow/store"
)

// engineConfig is the Engine's resolved configuration, built up by
// applying a sequence of Option values over sane defaults (the teacher's
// functional-options shape, generalized from a single generic state type
// to this engine's fixed store/view model).
type engineConfig struct {
	emitter            emit.Emitter
	defaultNodeTimeout time.Duration
	runWallClockBudget time.Duration
	defaultMaxVisits   int
	batchConcurrency   int
	maxConcurrentRuns  int
	verbose            bool
	metrics            *Metrics
	snapshotStore      store.SnapshotStore
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		emitter:            emit.NullEmitter{},
		defaultNodeTimeout: 0, // no per-node timeout unless a node type or Option sets one
		runWallClockBudget: 0,
		defaultMaxVisits:   100,
		batchConcurrency:   1,
		maxConcurrentRuns:  0, // unbounded
	}
}

// Option configures an Engine at construction time.
type Option func(*engineConfig) error

// WithEmitter sets the Emitter every compiled node reports instrumentation
// events to. Defaults to emit.NullEmitter{}.
func WithEmitter(e emit.Emitter) Option {
	return func(c *engineConfig) error {
		if e == nil {
			e = emit.NullEmitter{}
		}
		c.emitter = e
		return nil
	}
}

// WithDefaultNodeTimeout bounds how long any single node's Exec phase may
// run before NodeTimeout is raised, for node types that did not declare
// their own TimeoutSeconds in the registry.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(c *engineConfig) error {
		c.defaultNodeTimeout = d
		return nil
	}
}

// WithRunWallClockBudget bounds the total wall-clock time a single Run
// call may spend across every node visit. Zero (the default) means no
// run-level budget.
func WithRunWallClockBudget(d time.Duration) Option {
	return func(c *engineConfig) error {
		c.runWallClockBudget = d
		return nil
	}
}

// WithDefaultMaxVisits bounds how many times the scheduler will dequeue
// the same node id within one run, for node types that did not declare
// their own MaxVisits in the registry. Defaults to 100.
func WithDefaultMaxVisits(n int) Option {
	return func(c *engineConfig) error {
		if n <= 0 {
			n = 1
		}
		c.defaultMaxVisits = n
		return nil
	}
}

// WithBatchConcurrency sets the fallback concurrency used by a node's
// "batch" directive (§4.F.2) when the directive itself omits
// "concurrency". A directive that declares its own concurrency always
// wins; this only bounds directives that don't. Defaults to 1
// (sequential, per §9).
func WithBatchConcurrency(n int) Option {
	return func(c *engineConfig) error {
		if n <= 0 {
			n = 1
		}
		c.batchConcurrency = n
		return nil
	}
}

// WithMetrics registers the engine's Prometheus collectors against reg.
func WithMetrics(m *Metrics) Option {
	return func(c *engineConfig) error {
		c.metrics = m
		return nil
	}
}

// WithMaxConcurrency bounds how many Run calls this Engine will execute
// at once; additional callers block until a slot frees up. Zero (the
// default) means unbounded — the caller owns whatever concurrency
// discipline it wants across Run calls.
func WithMaxConcurrency(n int) Option {
	return func(c *engineConfig) error {
		if n < 0 {
			n = 0
		}
		c.maxConcurrentRuns = n
		return nil
	}
}

// WithVerbose seeds the run's __meta__ namespace with a verbose flag
// node implementations may read to decide how much detail to write to
// their own namespace (e.g. a debug node might skip a heavy diagnostic
// dump unless verbose is set).
func WithVerbose(v bool) Option {
	return func(c *engineConfig) error {
		c.verbose = v
		return nil
	}
}

// WithSnapshotStore configures the store that a finished run's final
// state snapshot is persisted to. Optional: a run with no snapshot store
// configured simply skips the save.
func WithSnapshotStore(s store.SnapshotStore) Option {
	return func(c *engineConfig) error {
		c.snapshotStore = s
		return nil
	}
}
