package emit

import "context"

// Emitter receives observability events from a run. Implementations must
// not block workflow execution for long and must never panic.
type Emitter interface {
	// Emit sends a single event. Best-effort; failures should be swallowed
	// internally (an emitter is not allowed to fail a workflow run).
	Emit(event Event)

	// EmitBatch sends multiple events at once, preserving order.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until any buffered events have been delivered.
	Flush(ctx context.Context) error
}
