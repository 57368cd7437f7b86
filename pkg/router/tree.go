package router

import (
	"fmt"
	"strconv"
	"strings"
)

// node is a node in the segment tree.
type node[T any] struct {
	// segment is the literal text this node matches
	segment string

	// paramName is the parameter name for param and catch-all nodes
	paramName string

	// children are literal segment children
	children []*node[T]

	// paramChild is the dynamic parameter child (:id)
	paramChild *node[T]

	// catchAllChild is the catch-all child (*path)
	catchAllChild *node[T]

	pattern  Pattern
	value    T
	hasValue bool
}

func (n *node[T]) findChild(segment string) *node[T] {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

func (n *node[T]) addChild(segment string) *node[T] {
	if child := n.findChild(segment); child != nil {
		return child
	}
	child := &node[T]{segment: segment}
	n.children = append(n.children, child)
	return child
}

// Tree stores values keyed by route pattern and resolves concrete paths to
// the single best match. It is safe for concurrent reads once populated;
// inserts must finish before the first Match.
type Tree[T any] struct {
	root  node[T]
	count int
}

// NewTree creates an empty tree.
func NewTree[T any]() *Tree[T] {
	return &Tree[T]{}
}

// Insert registers value under pattern. Two patterns with the same Shape
// cannot coexist: "/p/:id" and "/p/:slug" conflict.
func (t *Tree[T]) Insert(p Pattern, value T) error {
	current := &t.root
	for _, seg := range p.Segments {
		switch seg.Kind {
		case Literal:
			current = current.addChild(seg.Value)
		case Param:
			if current.paramChild == nil {
				current.paramChild = &node[T]{paramName: seg.Value}
			}
			current = current.paramChild
		case CatchAll:
			if current.catchAllChild == nil {
				current.catchAllChild = &node[T]{paramName: seg.Value}
			}
			current = current.catchAllChild
		}
	}

	if current.hasValue {
		return fmt.Errorf("%w: %s conflicts with %s", ErrDuplicatePattern, p, current.pattern)
	}
	current.pattern = p
	current.value = value
	current.hasValue = true
	t.count++
	return nil
}

// Len returns the number of registered patterns.
func (t *Tree[T]) Len() int {
	return t.count
}

// Match finds the best pattern for path. At every position a literal child
// is tried before a parameter child, and a parameter child before a
// catch-all; failed branches backtrack.
func (t *Tree[T]) Match(path string) (T, Params, Pattern, bool) {
	params := make(Params)
	n := t.root.match(splitPath(path), params)
	if n == nil {
		var zero T
		return zero, nil, Pattern{}, false
	}

	// Parameter names live on the pattern, not the shared param node, so the
	// bindings are re-keyed to the names the matched pattern declared.
	bound := make(Params, len(params))
	depth := 0
	for _, seg := range n.pattern.Segments {
		if seg.Kind != Literal {
			bound[seg.Value] = params[positionKey(depth)]
		}
		depth++
	}
	return n.value, bound, n.pattern, true
}

// match walks segments, recording bindings by position.
func (n *node[T]) match(segments []string, params Params) *node[T] {
	return n.matchAt(segments, 0, params)
}

func (n *node[T]) matchAt(segments []string, depth int, params Params) *node[T] {
	if depth == len(segments) {
		if n.hasValue {
			return n
		}
		// A catch-all may bind an empty remainder.
		if c := n.catchAllChild; c != nil && c.hasValue {
			params[positionKey(depth)] = ""
			return c
		}
		return nil
	}

	segment := segments[depth]

	if child := n.findChild(segment); child != nil {
		if found := child.matchAt(segments, depth+1, params); found != nil {
			return found
		}
	}

	if child := n.paramChild; child != nil {
		key := positionKey(depth)
		params[key] = segment
		if found := child.matchAt(segments, depth+1, params); found != nil {
			return found
		}
		delete(params, key)
	}

	if c := n.catchAllChild; c != nil && c.hasValue {
		params[positionKey(depth)] = strings.Join(segments[depth:], "/")
		return c
	}

	return nil
}

func positionKey(depth int) string {
	return "#" + strconv.Itoa(depth)
}

// Walk visits every registered pattern in depth-first order, literals first.
func (t *Tree[T]) Walk(fn func(Pattern, T)) {
	var walk func(n *node[T])
	walk = func(n *node[T]) {
		if n.hasValue {
			fn(n.pattern, n.value)
		}
		for _, child := range n.children {
			walk(child)
		}
		if n.paramChild != nil {
			walk(n.paramChild)
		}
		if n.catchAllChild != nil {
			walk(n.catchAllChild)
		}
	}
	walk(&t.root)
}
