package router

import (
	"errors"
	"fmt"
	"strings"
)

// SegmentKind identifies how a pattern segment matches a path segment.
type SegmentKind uint8

const (
	// Literal matches a path segment verbatim.
	Literal SegmentKind = iota

	// Param binds one non-empty path segment (":id").
	Param

	// CatchAll binds every remaining segment joined by "/" ("*path").
	CatchAll
)

// String returns the segment kind name.
func (k SegmentKind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Param:
		return "param"
	case CatchAll:
		return "catch-all"
	default:
		return "unknown"
	}
}

// Segment is one "/"-delimited piece of a route pattern.
type Segment struct {
	Kind SegmentKind

	// Value is the literal text, or the parameter name for Param and CatchAll.
	Value string
}

// Pattern is a parsed route template such as "/products/:id" or "/docs/*path".
type Pattern struct {
	Raw      string
	Segments []Segment
}

// Params are parameter bindings extracted by a match.
type Params map[string]string

// Pattern errors.
var (
	ErrCatchAllNotLast   = errors.New("catch-all segment must be the last segment")
	ErrEmptyParamName    = errors.New("parameter segment has an empty name")
	ErrDuplicateParam    = errors.New("parameter name used twice in one pattern")
	ErrDuplicatePattern  = errors.New("structurally identical pattern already registered")
	ErrMissingParamValue = errors.New("no value bound for parameter")
)

// ParsePattern splits raw into segments. Empty segments are dropped, so
// "/a//b/" and "/a/b" parse to the same pattern.
func ParsePattern(raw string) (Pattern, error) {
	parts := splitPath(raw)
	p := Pattern{Raw: raw, Segments: make([]Segment, 0, len(parts))}
	seen := make(map[string]bool)

	for i, part := range parts {
		var seg Segment
		switch part[0] {
		case ':':
			seg = Segment{Kind: Param, Value: part[1:]}
		case '*':
			if i != len(parts)-1 {
				return Pattern{}, fmt.Errorf("%w: %q", ErrCatchAllNotLast, raw)
			}
			seg = Segment{Kind: CatchAll, Value: part[1:]}
		default:
			seg = Segment{Kind: Literal, Value: part}
		}

		if seg.Kind != Literal {
			if seg.Value == "" {
				return Pattern{}, fmt.Errorf("%w: %q", ErrEmptyParamName, raw)
			}
			if seen[seg.Value] {
				return Pattern{}, fmt.Errorf("%w: %q in %q", ErrDuplicateParam, seg.Value, raw)
			}
			seen[seg.Value] = true
		}
		p.Segments = append(p.Segments, seg)
	}

	return p, nil
}

// MustParsePattern is like ParsePattern but panics on error.
func MustParsePattern(raw string) Pattern {
	p, err := ParsePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the normalized form of the pattern.
func (p Pattern) String() string {
	if len(p.Segments) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, seg := range p.Segments {
		sb.WriteByte('/')
		switch seg.Kind {
		case Param:
			sb.WriteByte(':')
		case CatchAll:
			sb.WriteByte('*')
		}
		sb.WriteString(seg.Value)
	}
	return sb.String()
}

// Shape returns a key that is equal for structurally identical patterns:
// literals keep their text, parameter names are erased.
// "/products/:id" and "/products/:slug" share a shape.
func (p Pattern) Shape() string {
	if len(p.Segments) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, seg := range p.Segments {
		sb.WriteByte('/')
		switch seg.Kind {
		case Param:
			sb.WriteByte(':')
		case CatchAll:
			sb.WriteByte('*')
		default:
			sb.WriteString(seg.Value)
		}
	}
	return sb.String()
}

// ParamNames returns the parameter names in declaration order.
func (p Pattern) ParamNames() []string {
	var names []string
	for _, seg := range p.Segments {
		if seg.Kind != Literal {
			names = append(names, seg.Value)
		}
	}
	return names
}

// IsStatic reports whether the pattern has no parameters.
func (p Pattern) IsStatic() bool {
	for _, seg := range p.Segments {
		if seg.Kind != Literal {
			return false
		}
	}
	return true
}

// HasCatchAll reports whether the pattern ends in a catch-all segment.
func (p Pattern) HasCatchAll() bool {
	n := len(p.Segments)
	return n > 0 && p.Segments[n-1].Kind == CatchAll
}

// Build substitutes params back into the pattern, producing a concrete path.
// A catch-all bound to "" contributes no segment.
func (p Pattern) Build(params Params) (string, error) {
	var sb strings.Builder
	for _, seg := range p.Segments {
		switch seg.Kind {
		case Literal:
			sb.WriteByte('/')
			sb.WriteString(seg.Value)
		case Param:
			v, ok := params[seg.Value]
			if !ok || v == "" {
				return "", fmt.Errorf("%w: %q", ErrMissingParamValue, seg.Value)
			}
			sb.WriteByte('/')
			sb.WriteString(v)
		case CatchAll:
			v, ok := params[seg.Value]
			if !ok {
				return "", fmt.Errorf("%w: %q", ErrMissingParamValue, seg.Value)
			}
			if v = strings.Trim(v, "/"); v != "" {
				sb.WriteByte('/')
				sb.WriteString(v)
			}
		}
	}
	if sb.Len() == 0 {
		return "/", nil
	}
	return sb.String(), nil
}

// Match matches a single pattern against path without a tree. It applies the
// same rules as Tree.Match and is useful for one-off checks.
func (p Pattern) Match(path string) (Params, bool) {
	segments := splitPath(path)
	params := make(Params)
	for i, seg := range p.Segments {
		switch seg.Kind {
		case CatchAll:
			params[seg.Value] = strings.Join(segments[i:], "/")
			return params, true
		case Param:
			if i >= len(segments) || segments[i] == "" {
				return nil, false
			}
			params[seg.Value] = segments[i]
		case Literal:
			if i >= len(segments) || segments[i] != seg.Value {
				return nil, false
			}
		}
	}
	if len(segments) != len(p.Segments) {
		return nil, false
	}
	return params, true
}

// splitPath splits a path into segments, dropping empty ones.
func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
