package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/vango-dev/verdant/pkg/router"
)

// Node is an element of an API tree: an *Endpoint, a Methods group or a
// Group of further nodes.
type Node interface {
	apiNode()
}

// Methods is an explicit method group: endpoints sharing one path, keyed
// by HTTP method.
type Methods map[string]*Endpoint

// Group is an intermediate path segment. A Group whose children are all
// endpoints keyed by HTTP method names is treated as a Methods group.
type Group map[string]Node

func (*Endpoint) apiNode() {}
func (Methods) apiNode()   {}
func (Group) apiNode()     {}

// Registration errors.
var (
	ErrAmbiguousParams   = errors.New("endpoint declares more than one path parameter without WithPath")
	ErrPathParamMismatch = errors.New("WithPath parameters do not match the declared params schema")
	ErrDuplicateMethod   = errors.New("method registered twice for one path")
	ErrMethodKeyMismatch = errors.New("method group key does not match endpoint method")
	ErrNilNode           = errors.New("nil node in API tree")
)

var methodNames = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// PathEntry is one flattened path with its per-method endpoints.
type PathEntry struct {
	Path    string
	Pattern router.Pattern
	Methods map[string]*Endpoint
}

// Allow lists the entry's methods, sorted, for an Allow header.
func (p *PathEntry) Allow() string {
	methods := make([]string, 0, len(p.Methods))
	for m := range p.Methods {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

// RouteMeta describes one path/method pair for client-stub generation.
type RouteMeta struct {
	Path       string   `json:"path"`
	Method     string   `json:"method"`
	Params     bool     `json:"params"`
	Query      bool     `json:"query"`
	Body       bool     `json:"body"`
	ParamNames []string `json:"paramNames,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

// Table is a flattened API tree.
type Table struct {
	Entries map[string]*PathEntry
	Meta    []RouteMeta

	tree *router.Tree[*PathEntry]
}

// Flatten walks root depth-first, keys in sorted order, and produces the
// path table and its metadata. Every registration problem is an error;
// nothing is resolved lazily at request time.
func Flatten(root Group) (*Table, error) {
	t := &Table{
		Entries: make(map[string]*PathEntry),
		tree:    router.NewTree[*PathEntry](),
	}
	if err := t.walk("", root); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(t.Entries))
	for p := range t.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	keys := make([]router.RouteKey, 0, len(paths))
	for _, p := range paths {
		keys = append(keys, router.RouteKey{Pattern: p})
	}
	if err := router.ValidateRoutes(keys); err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	for _, p := range paths {
		entry := t.Entries[p]
		if err := t.tree.Insert(entry.Pattern, entry); err != nil {
			return nil, fmt.Errorf("api path %s: %w", p, err)
		}
		for _, m := range sortedMethods(entry.Methods) {
			e := entry.Methods[m]
			t.Meta = append(t.Meta, RouteMeta{
				Path:       p,
				Method:     m,
				Params:     e.DeclaresParams(),
				Query:      e.DeclaresQuery(),
				Body:       e.DeclaresBody(),
				ParamNames: e.ParamNames(),
				Summary:    e.Summary(),
			})
		}
	}
	return t, nil
}

// MustFlatten is like Flatten but panics on error.
func MustFlatten(root Group) *Table {
	t, err := Flatten(root)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) walk(prefix string, g Group) error {
	for _, key := range sortedKeys(g) {
		switch n := g[key].(type) {
		case nil:
			return fmt.Errorf("%w at %s/%s", ErrNilNode, prefix, key)
		case *Endpoint:
			if n == nil {
				return fmt.Errorf("%w at %s/%s", ErrNilNode, prefix, key)
			}
			if err := t.addEndpoint(prefix, key, n); err != nil {
				return err
			}
		case Methods:
			if err := t.addMethods(prefix, key, n); err != nil {
				return err
			}
		case Group:
			if ms, ok := asMethods(n); ok {
				if err := t.addMethods(prefix, key, ms); err != nil {
					return err
				}
				continue
			}
			if err := t.walk(prefix+"/"+key, n); err != nil {
				return err
			}
		default:
			return fmt.Errorf("api: unsupported node %T at %s/%s", n, prefix, key)
		}
	}
	return nil
}

// asMethods reports whether every child of g is an endpoint keyed by an
// HTTP method name.
func asMethods(g Group) (Methods, bool) {
	if len(g) == 0 {
		return nil, false
	}
	ms := make(Methods, len(g))
	for k, n := range g {
		e, ok := n.(*Endpoint)
		if !ok || e == nil || !methodNames[strings.ToUpper(k)] {
			return nil, false
		}
		ms[k] = e
	}
	return ms, true
}

func (t *Table) addMethods(prefix, key string, ms Methods) error {
	for _, m := range sortedMethods(ms) {
		e := ms[m]
		if e == nil {
			return fmt.Errorf("%w at %s/%s %s", ErrNilNode, prefix, key, m)
		}
		if !strings.EqualFold(m, e.method) {
			return fmt.Errorf("%w: %s/%s key %s holds a %s endpoint", ErrMethodKeyMismatch, prefix, key, m, e.method)
		}
		if err := t.addEndpoint(prefix, key, e); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) addEndpoint(prefix, key string, e *Endpoint) error {
	path, err := resolvePath(prefix, key, e)
	if err != nil {
		return err
	}
	pattern, err := router.ParsePattern(path)
	if err != nil {
		return fmt.Errorf("api path %s: %w", path, err)
	}
	path = pattern.String()

	entry, ok := t.Entries[path]
	if !ok {
		entry = &PathEntry{Path: path, Pattern: pattern, Methods: make(map[string]*Endpoint)}
		t.Entries[path] = entry
	}
	if _, dup := entry.Methods[e.method]; dup {
		return fmt.Errorf("%w: %s %s", ErrDuplicateMethod, e.method, path)
	}
	entry.Methods[e.method] = e
	return nil
}

// resolvePath reconciles the tree key with the declared params schema.
// One declared parameter replaces the key with ":name"; none keeps the
// literal key; more than one needs an explicit WithPath template.
func resolvePath(prefix, key string, e *Endpoint) (string, error) {
	names := e.paramNames
	if e.path != "" {
		tmpl, err := router.ParsePattern(e.path)
		if err != nil {
			return "", fmt.Errorf("api %s %s/%s WithPath: %w", e.method, prefix, key, err)
		}
		got := slices.Clone(tmpl.ParamNames())
		want := slices.Clone(names)
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return "", fmt.Errorf("%w: %s %s declares %v, template has %v", ErrPathParamMismatch, e.method, e.path, want, got)
		}
		return prefix + tmpl.String(), nil
	}

	switch len(names) {
	case 0:
		return prefix + "/" + key, nil
	case 1:
		return prefix + "/:" + names[0], nil
	default:
		return "", fmt.Errorf("%w: %s %s/%s declares %v", ErrAmbiguousParams, e.method, prefix, key, names)
	}
}

// Match resolves a path relative to the API base.
func (t *Table) Match(path string) (*PathEntry, router.Params, bool) {
	entry, params, _, ok := t.tree.Match(path)
	return entry, params, ok
}

// MetaJSON encodes the route metadata list.
func (t *Table) MetaJSON() ([]byte, error) {
	return json.MarshalIndent(t.Meta, "", "  ")
}

func sortedKeys(g Group) []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMethods[E any](m map[string]E) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
