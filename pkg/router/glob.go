package router

import (
	"fmt"
	"regexp"
	"strings"
)

// Glob is a compiled path glob.
//
//	**  any sequence, including "/"
//	*   any sequence not containing "/"
//	?   exactly one character
//
// Every other character is literal. A glob always matches the whole path.
type Glob struct {
	raw string
	re  *regexp.Regexp
}

// CompileGlob compiles a glob into an anchored matcher.
func CompileGlob(glob string) (*Glob, error) {
	var sb strings.Builder
	sb.WriteByte('^')
	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				sb.WriteString(".*")
				i++
			} else {
				sb.WriteString("[^/]*")
			}
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteByte('$')

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("compile glob %q: %w", glob, err)
	}
	return &Glob{raw: glob, re: re}, nil
}

// MustGlob is like CompileGlob but panics on error.
func MustGlob(glob string) *Glob {
	g, err := CompileGlob(glob)
	if err != nil {
		panic(err)
	}
	return g
}

// Match reports whether path matches the glob in full.
func (g *Glob) Match(path string) bool {
	return g.re.MatchString(path)
}

// String returns the source glob.
func (g *Glob) String() string {
	return g.raw
}

// CompileGlobs compiles a list of globs, failing on the first bad one.
func CompileGlobs(globs []string) ([]*Glob, error) {
	out := make([]*Glob, 0, len(globs))
	for _, raw := range globs {
		g, err := CompileGlob(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// MatchAny reports whether path matches at least one glob.
func MatchAny(globs []*Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
