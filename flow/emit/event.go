// Package emit carries observability events out of a running workflow.
package emit

// Event is a single observability record emitted during compilation or
// execution of a workflow: a node starting, a phase completing, a retry,
// a routing decision, or a run-level status change.
type Event struct {
	// RunID identifies the workflow execution that produced this event.
	RunID string

	// NodeID names the node this event concerns. Empty for run-level events.
	NodeID string

	// Visit is the 1-indexed visit count of NodeID within this run (loops
	// revisit a node, each with its own Visit number).
	Visit int

	// Msg is a short machine-stable event name. The engine's
	// instrumentation wrapper emits "prep.start", "prep.end", "exec.start",
	// "exec.end", "post.start", "post.end", "exec_fallback.start" and
	// "exec_fallback.end"; it emits no separate retry, failure or success
	// events.
	Msg string

	// Meta carries event-specific structured detail (phase name, duration,
	// action routed to, attempt number, error kind, ...).
	Meta map[string]interface{}
}
