package flow

import "strconv"

// seedInputValues merges caller-supplied inputs with the document's
// declared defaults and coerces every value to its declared type,
// applying the same coercion path to both sources (§9 open question:
// "coerce both, consistently"). A required input with neither a
// supplied value nor a default is a *ValidationError raised before the
// run starts (§8 boundary behavior).
func seedInputValues(doc *Document, supplied map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(doc.Inputs))
	var diags []Diagnostic

	for name, spec := range doc.Inputs {
		v, has := supplied[name]
		switch {
		case has:
			out[name] = coerceInputValue(v, NormalizedType(spec.Type))
		case spec.Default != nil:
			out[name] = coerceInputValue(spec.Default, NormalizedType(spec.Type))
		case spec.Required:
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Code:     "MISSING_REQUIRED_INPUT",
				Path:     "inputs." + name,
				Message:  "required input \"" + name + "\" was not supplied and has no default",
			})
		}
	}

	if len(diags) > 0 {
		return nil, &ValidationError{Diagnostics: diags}
	}
	return out, nil
}

// coerceInputValue converts v to the shape typ names when the runtime
// type doesn't already match, e.g. a JSON-decoded float64 into an
// integer, or a string "true" into a boolean. Values that don't match
// any coercion rule pass through unchanged rather than erroring, since
// a concrete node's own Prep is the right place to reject a malformed
// value it actually reads.
func coerceInputValue(v interface{}, typ string) interface{} {
	switch typ {
	case "integer":
		switch t := v.(type) {
		case float64:
			return int64(t)
		case int:
			return int64(t)
		case string:
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				return n
			}
		}
	case "number":
		switch t := v.(type) {
		case int:
			return float64(t)
		case int64:
			return float64(t)
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f
			}
		}
	case "boolean":
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
	case "string":
		switch v.(type) {
		case string:
		default:
			return v // a node may still receive a non-string here; leave coercion of complex values to the template layer
		}
	}
	return v
}
