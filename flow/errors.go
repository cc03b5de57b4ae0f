package flow

import "fmt"

// Severity classifies a Diagnostic. Only ERROR severity diagnostics fail
// compilation (§4.D).
type Severity string

const (
	SeverityError Severity = "ERROR"
	SeverityWarn  Severity = "WARN"
	SeverityInfo  Severity = "INFO"
)

// Diagnostic is one finding produced by a validator phase.
type Diagnostic struct {
	Severity Severity
	Code     string
	Path     string
	Message  string
	Hint     string
}

func (d Diagnostic) String() string {
	if d.Hint != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", d.Severity, d.Code, d.Message, d.Hint)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Code, d.Message)
}

// ValidationError aggregates every ERROR-severity diagnostic produced
// while compiling a document; Compile returns it instead of a *Graph
// when validation fails (§4.D, §7).
type ValidationError struct {
	Diagnostics []Diagnostic
}

func (e *ValidationError) Error() string {
	if len(e.Diagnostics) == 1 {
		return "flow: validation failed: " + e.Diagnostics[0].String()
	}
	return fmt.Sprintf("flow: validation failed with %d errors (first: %s)", len(e.Diagnostics), e.Diagnostics[0].String())
}

// NodeFailure wraps a terminal exec error (after retries and fallback
// are exhausted) with the failing node's id, visit count, and the
// number of exec attempts made (§7).
type NodeFailure struct {
	NodeID   string
	Visit    int
	Attempts int
	Cause    error
}

func (e *NodeFailure) Error() string {
	return fmt.Sprintf("flow: node %q failed on visit %d after %d attempt(s): %v", e.NodeID, e.Visit, e.Attempts, e.Cause)
}

func (e *NodeFailure) Unwrap() error { return e.Cause }

// NodeTimeout means a node's exec phase exceeded its timeout_seconds
// budget (§7).
type NodeTimeout struct {
	NodeID   string
	Visit    int
	Attempts int
	Seconds  float64
}

func (e *NodeTimeout) Error() string {
	return fmt.Sprintf("flow: node %q timed out after %.3fs on visit %d (attempt %d)", e.NodeID, e.Seconds, e.Visit, e.Attempts)
}

// ScopeViolation means a node attempted to write outside its owner
// namespace, or into a reserved namespace (§4.B, §7). Unlike NodeFailure
// this is a defect in the node implementation, not a transient failure;
// it is never retried.
type ScopeViolation struct {
	NodeID string
	Cause  error
}

func (e *ScopeViolation) Error() string {
	return fmt.Sprintf("flow: node %q attempted a scope violation: %v", e.NodeID, e.Cause)
}

func (e *ScopeViolation) Unwrap() error { return e.Cause }

// LoopBudgetExceeded means a node was about to be dequeued for a visit
// beyond its max_visits budget (§4.D phase 6, §7).
type LoopBudgetExceeded struct {
	NodeID    string
	MaxVisits int
}

func (e *LoopBudgetExceeded) Error() string {
	return fmt.Sprintf("flow: node %q exceeded max_visits (%d)", e.NodeID, e.MaxVisits)
}

// CancellationRequested means the run's context was cancelled and the
// engine observed it at a cooperative suspension point (§7).
type CancellationRequested struct {
	NodeID string
}

func (e *CancellationRequested) Error() string {
	if e.NodeID == "" {
		return "flow: run cancelled"
	}
	return fmt.Sprintf("flow: run cancelled while executing node %q", e.NodeID)
}

// InternalError is raised for defects in the engine itself rather than
// in a workflow document or a node implementation (§7).
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("flow: internal error: %s: %v", e.Message, e.Cause)
	}
	return "flow: internal error: " + e.Message
}

func (e *InternalError) Unwrap() error { return e.Cause }

// AmbiguousRouting means a node declares (or its post() returned) an
// action with more than one outgoing edge, or more than one edge with
// the same action from the same node (§4.D phase 7).
type AmbiguousRouting struct {
	NodeID string
	Action string
}

func (e *AmbiguousRouting) Error() string {
	return fmt.Sprintf("flow: node %q has ambiguous routing for action %q", e.NodeID, e.Action)
}

// MissingStartNode means the document's start_node does not name any
// declared node (§4.D phase 2).
type MissingStartNode struct {
	StartNode string
}

func (e *MissingStartNode) Error() string {
	return fmt.Sprintf("flow: start_node %q is not a declared node", e.StartNode)
}
