// Package pathexpr parses and walks the dotted/indexed path expressions
// used both inside "${...}" templates and by a store view's direct
// Read(path) calls. Parsing happens once per distinct path string; callers
// that evaluate the same path repeatedly should cache the Parse result.
package pathexpr

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// identRe matches a single identifier segment: [A-Za-z_][A-Za-z0-9_-]*
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// SegmentKind distinguishes a field access from an array index.
type SegmentKind int

const (
	Field SegmentKind = iota
	Index
)

// Segment is one hop of a parsed path: either a named field or a
// zero-based array index.
type Segment struct {
	Kind  SegmentKind
	Name  string // set when Kind == Field
	Index int    // set when Kind == Index
}

func (s Segment) String() string {
	if s.Kind == Index {
		return fmt.Sprintf("[%d]", s.Index)
	}
	return s.Name
}

// Path is a parsed path expression: a leading identifier (node id or
// workflow input name) followed by zero or more field/index hops.
type Path struct {
	Raw      string
	Segments []Segment
}

// Root returns the first segment's identifier, i.e. the node id or
// workflow input name the path begins with.
func (p Path) Root() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[0].Name
}

// Rest returns the path with its root segment stripped, for walking
// into the resolved root's namespace or value.
func (p Path) Rest() Path {
	if len(p.Segments) == 0 {
		return p
	}
	return Path{Raw: p.Raw, Segments: p.Segments[1:]}
}

// Parse parses a path expression of the grammar
// `[A-Za-z_][\w-]*(\.[A-Za-z_][\w-]*|\[\d+\])*`.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("pathexpr: empty path")
	}

	segs := make([]Segment, 0, 4)
	i := 0
	n := len(s)

	// First segment must be a bare identifier (no leading '.' or '[').
	start := i
	for i < n && s[i] != '.' && s[i] != '[' {
		i++
	}
	first := s[start:i]
	if !identRe.MatchString(first) {
		return Path{}, fmt.Errorf("pathexpr: invalid root segment %q in %q", first, s)
	}
	segs = append(segs, Segment{Kind: Field, Name: first})

	for i < n {
		switch s[i] {
		case '.':
			i++
			start = i
			for i < n && s[i] != '.' && s[i] != '[' {
				i++
			}
			name := s[start:i]
			if !identRe.MatchString(name) {
				return Path{}, fmt.Errorf("pathexpr: invalid field segment %q in %q", name, s)
			}
			segs = append(segs, Segment{Kind: Field, Name: name})
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return Path{}, fmt.Errorf("pathexpr: unterminated index in %q", s)
			}
			end += i
			numStr := s[i+1 : end]
			idx, err := strconv.Atoi(numStr)
			if err != nil || idx < 0 {
				return Path{}, fmt.Errorf("pathexpr: invalid index %q in %q", numStr, s)
			}
			segs = append(segs, Segment{Kind: Index, Index: idx})
			i = end + 1
		default:
			return Path{}, fmt.Errorf("pathexpr: unexpected character %q at offset %d in %q", s[i], i, s)
		}
	}

	return Path{Raw: s, Segments: segs}, nil
}

// MissingPathError reports a path segment that could not be resolved
// against a container, along with the deepest value reached and the
// sibling keys/indices available there (for error hints, per §4.C).
type MissingPathError struct {
	Path        string
	MissingAt   string
	AvailableAt []string
}

func (e *MissingPathError) Error() string {
	if len(e.AvailableAt) == 0 {
		return fmt.Sprintf("path %q: missing segment %q", e.Path, e.MissingAt)
	}
	return fmt.Sprintf("path %q: missing segment %q (available: %s)", e.Path, e.MissingAt, strings.Join(e.AvailableAt, ", "))
}

// Walk traverses segments starting at root. Walking zero segments returns
// root unchanged (identity), which lets a bare node-id or input-name path
// resolve to the whole value.
func (p Path) Walk(root interface{}) (interface{}, error) {
	cur := root
	for _, seg := range p.Segments {
		switch seg.Kind {
		case Field:
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil, &MissingPathError{Path: p.Raw, MissingAt: seg.Name}
			}
			val, ok := m[seg.Name]
			if !ok {
				keys := make([]string, 0, len(m))
				for k := range m {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				return nil, &MissingPathError{Path: p.Raw, MissingAt: seg.Name, AvailableAt: keys}
			}
			cur = val
		case Index:
			arr, ok := cur.([]interface{})
			if !ok {
				return nil, &MissingPathError{Path: p.Raw, MissingAt: seg.String()}
			}
			if seg.Index < 0 || seg.Index >= len(arr) {
				return nil, &MissingPathError{
					Path:        p.Raw,
					MissingAt:   seg.String(),
					AvailableAt: []string{fmt.Sprintf("length=%d", len(arr))},
				}
			}
			cur = arr[seg.Index]
		}
	}
	return cur, nil
}
