// Package template implements the "${path}" expression grammar: parsing,
// AST caching, and resolution against the shared store and workflow
// inputs, with the type-preservation and recursive-substitution rules
// from §4.C.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/flowforge/wfcore/flow/pathexpr"
	"github.com/flowforge/wfcore/flow/store"
)

// exprRe finds "${...}" occurrences (non-greedy, no nested braces) and
// "$$" escape markers, left to right.
var exprRe = regexp.MustCompile(`\$\$|\$\{([^}]*)\}`)

// UnresolvedTemplateError means a path's root segment matched neither a
// known node id nor a declared workflow input.
type UnresolvedTemplateError struct {
	Path string
}

func (e *UnresolvedTemplateError) Error() string {
	return fmt.Sprintf("template: unresolved path %q (root is not a node id or input name)", e.Path)
}

// astCache caches parsed paths by their raw expression text, so repeated
// resolution (e.g. inside a batch loop) never reparses the same string.
var astCache sync.Map // map[string]pathexpr.Path

func parseCached(raw string) (pathexpr.Path, error) {
	if v, ok := astCache.Load(raw); ok {
		return v.(pathexpr.Path), nil
	}
	p, err := pathexpr.Parse(raw)
	if err != nil {
		return pathexpr.Path{}, err
	}
	astCache.Store(raw, p)
	return p, nil
}

// Resolver evaluates "${path}" expressions against a store and a known
// set of node ids (everything else falls back to being a workflow input
// name).
type Resolver struct {
	st      *store.Store
	nodeIDs map[string]struct{}
}

// NewResolver builds a Resolver. nodeIDs is the compiled graph's node id
// set, used to disambiguate a path's root segment from a workflow input
// name (§4.C rule 1).
func NewResolver(st *store.Store, nodeIDs []string) *Resolver {
	set := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		set[id] = struct{}{}
	}
	return &Resolver{st: st, nodeIDs: set}
}

// ResolvePath resolves a single bare path expression (no "${}" wrapper),
// used directly by a store view's Read(path) and internally by
// ResolveString.
func (r *Resolver) ResolvePath(raw string) (interface{}, error) {
	p, err := parseCached(raw)
	if err != nil {
		return nil, err
	}
	root := p.Root()
	rest := p.Rest()

	if _, isNode := r.nodeIDs[root]; isNode {
		ns := r.st.Namespace(root)
		if ns == nil {
			ns = map[string]interface{}{}
		}
		return rest.Walk(ns)
	}

	if val, ok := r.st.Get(store.InputsNamespace, root); ok {
		return rest.Walk(val)
	}

	return nil, &UnresolvedTemplateError{Path: raw}
}

// ResolveString evaluates every "${path}" occurrence in s.
//
// If s is exactly one template expression ("${path}") the raw resolved
// value is returned unchanged (container, number, bool, ...) — it is not
// stringified (§4.C rule 3, tested by scenario 4 in §8). Otherwise every
// occurrence is substituted in place and the result is always a string,
// with non-string scalars and containers JSON-encoded.
func (r *Resolver) ResolveString(s string) (interface{}, error) {
	if m := fullExprRe.FindStringSubmatch(s); m != nil {
		return r.ResolvePath(m[1])
	}

	var sb strings.Builder
	var firstErr error
	lastEnd := 0
	for _, loc := range exprRe.FindAllStringSubmatchIndex(s, -1) {
		sb.WriteString(s[lastEnd:loc[0]])
		if s[loc[0]:loc[1]] == "$$" {
			sb.WriteByte('$')
			lastEnd = loc[1]
			continue
		}
		path := s[loc[2]:loc[3]]
		val, err := r.ResolvePath(path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			lastEnd = loc[1]
			continue
		}
		sb.WriteString(stringify(val))
		lastEnd = loc[1]
	}
	sb.WriteString(s[lastEnd:])

	if firstErr != nil {
		return nil, firstErr
	}
	return sb.String(), nil
}

var fullExprRe = regexp.MustCompile(`^\$\{([^}]*)\}$`)

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

// ResolveValue recursively substitutes templates across maps, slices,
// and strings. Already-resolved values (anything not itself a
// map/slice/template string) pass through unchanged (§4.C rule 4).
func (r *Resolver) ResolveValue(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case string:
		return r.ResolveString(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			resolved, err := r.ResolveValue(t[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = resolved
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			resolved, err := r.ResolveValue(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// HasTemplate reports whether s contains at least one "${...}" expression.
func HasTemplate(s string) bool {
	return exprRe.MatchString(s)
}

// ContainsTemplateAnywhere reports whether v (recursively) contains any
// template string, used by the validator to decide which params need
// static path checking.
func ContainsTemplateAnywhere(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return HasTemplate(t)
	case map[string]interface{}:
		for _, vv := range t {
			if ContainsTemplateAnywhere(vv) {
				return true
			}
		}
	case []interface{}:
		for _, vv := range t {
			if ContainsTemplateAnywhere(vv) {
				return true
			}
		}
	}
	return false
}

// ExtractPaths returns every path expression referenced anywhere within
// v, used by the validator's static analysis (§4.C "Static analysis").
func ExtractPaths(v interface{}) []string {
	var out []string
	var walk func(interface{})
	walk = func(v interface{}) {
		switch t := v.(type) {
		case string:
			for _, m := range exprRe.FindAllStringSubmatch(t, -1) {
				if m[0] == "$$" {
					continue
				}
				out = append(out, m[1])
			}
		case map[string]interface{}:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		case []interface{}:
			for _, vv := range t {
				walk(vv)
			}
		}
	}
	walk(v)
	return out
}

// ErrEmptyPath names an empty path expression. No function in this
// package returns it; an empty path is reported by pathexpr.Parse.
var ErrEmptyPath = errors.New("template: empty path expression")
