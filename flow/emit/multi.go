package emit

import "context"

// Multi fans a single event stream out to several emitters, e.g. a
// LogEmitter for humans and an OtelEmitter for a trace backend.
type Multi struct {
	emitters []Emitter
}

// NewMulti combines emitters into one. Nil entries are skipped.
func NewMulti(emitters ...Emitter) *Multi {
	filtered := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	return &Multi{emitters: filtered}
}

func (m *Multi) Emit(event Event) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}

func (m *Multi) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range m.emitters {
		if err := e.EmitBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

func (m *Multi) Flush(ctx context.Context) error {
	for _, e := range m.emitters {
		if err := e.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}
