package flow

import (
	"fmt"
	"strings"
)

// BatchSpec is the declarative "batch" directive a node's params may
// carry (§4.F.2): iterate the array at ArraySourcePath, binding each
// element under Key, and aggregate the inner node's per-item Exec
// results into a list written to the node's own namespace, preserving
// source order (§8 invariant 5).
type BatchSpec struct {
	Key             string
	ArraySourcePath string
	Concurrency     int
	ContinueOnError bool
}

// ParseBatchSpec extracts and validates the "batch" entry of a node's
// params, if present. ok reports whether params carried a "batch" key
// at all (most nodes do not); err is non-nil only when "batch" is
// present but malformed, so callers can distinguish "not batched" from
// "batched badly".
func ParseBatchSpec(params map[string]interface{}) (spec *BatchSpec, ok bool, err error) {
	raw, present := params["batch"]
	if !present {
		return nil, false, nil
	}

	m, isMap := raw.(map[string]interface{})
	if !isMap {
		return nil, true, fmt.Errorf("batch directive must be a mapping, got %T", raw)
	}

	// Concurrency stays 0 when the directive omits it, so the batch
	// wrapper falls back to the engine's WithBatchConcurrency setting.
	spec = &BatchSpec{}

	key, _ := m["key"].(string)
	if key == "" {
		return spec, true, fmt.Errorf("batch directive requires a non-empty %q", "key")
	}
	spec.Key = key

	path, _ := m["array_source_path"].(string)
	if path == "" {
		return spec, true, fmt.Errorf("batch directive requires a non-empty %q", "array_source_path")
	}
	spec.ArraySourcePath = path

	if c, has := m["concurrency"]; has {
		n, ok := toPositiveInt(c)
		if !ok {
			return spec, true, fmt.Errorf("batch directive %q must be a positive integer, got %v", "concurrency", c)
		}
		spec.Concurrency = n
	}

	if coe, has := m["continue_on_error"]; has {
		b, ok := coe.(bool)
		if !ok {
			return spec, true, fmt.Errorf("batch directive %q must be a boolean, got %v", "continue_on_error", coe)
		}
		spec.ContinueOnError = b
	}

	return spec, true, nil
}

func toPositiveInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, t > 0
	case int64:
		return int(t), t > 0
	case float64:
		return int(t), t > 0
	default:
		return 0, false
	}
}

// stripTemplateWrapper unwraps an optional "${...}" shell around a bare
// path expression. array_source_path (like node.View's Read) takes a
// raw path, but authors used to writing "${...}" elsewhere in params
// may wrap it out of habit; both spellings resolve identically.
func stripTemplateWrapper(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return s[2 : len(s)-1]
	}
	return s
}
