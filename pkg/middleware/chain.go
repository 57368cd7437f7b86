package middleware

import (
	"fmt"
	"net/http"

	"github.com/vango-dev/verdant/pkg/router"
	"github.com/vango-dev/verdant/pkg/web"
)

// Next continues processing with the rest of the chain.
type Next func(r *http.Request) (*web.Response, error)

// Handler is a middleware function. It may return early without calling
// next, call next and adjust the returned response, or return an error.
type Handler func(r *http.Request, next Next) (*web.Response, error)

// Rule pairs a Handler with path globs that decide where it runs.
//
// If Include is non-empty the rule applies only to paths matching at least
// one Include glob, and Exclude is ignored. Otherwise the rule applies to
// every path that matches no Exclude glob.
type Rule struct {
	Name    string
	Include []string
	Exclude []string
	Handler Handler
}

// CompiledRule is a Rule with its globs compiled.
type CompiledRule struct {
	Rule
	include []*router.Glob
	exclude []*router.Glob
}

// Applies reports whether the rule runs for path.
func (c *CompiledRule) Applies(path string) bool {
	if len(c.include) > 0 {
		return router.MatchAny(c.include, path)
	}
	return !router.MatchAny(c.exclude, path)
}

// Chain is an ordered list of compiled rules.
type Chain struct {
	rules []*CompiledRule
}

// Compile validates and compiles rules, keeping declaration order.
func Compile(rules ...Rule) (*Chain, error) {
	c := &Chain{rules: make([]*CompiledRule, 0, len(rules))}
	for i, r := range rules {
		if r.Handler == nil {
			return nil, fmt.Errorf("middleware rule %d (%q): nil handler", i, r.Name)
		}
		include, err := router.CompileGlobs(r.Include)
		if err != nil {
			return nil, fmt.Errorf("middleware rule %q include: %w", r.Name, err)
		}
		exclude, err := router.CompileGlobs(r.Exclude)
		if err != nil {
			return nil, fmt.Errorf("middleware rule %q exclude: %w", r.Name, err)
		}
		c.rules = append(c.rules, &CompiledRule{Rule: r, include: include, exclude: exclude})
	}
	return c, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(rules ...Rule) *Chain {
	c, err := Compile(rules...)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of rules.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// Applicable returns the rules that run for path, in declaration order.
func (c *Chain) Applicable(path string) []*CompiledRule {
	if c == nil {
		return nil
	}
	var out []*CompiledRule
	for _, r := range c.rules {
		if r.Applies(path) {
			out = append(out, r)
		}
	}
	return out
}

// Then wraps terminal with every rule that applies to the request path.
// The first declared rule is outermost. Rules that do not apply are left
// out of the composition entirely.
func (c *Chain) Then(terminal Next) Next {
	if c.Len() == 0 {
		return terminal
	}
	return func(r *http.Request) (*web.Response, error) {
		rules := c.Applicable(r.URL.Path)
		next := terminal
		// Build from the end so the first rule runs first.
		for i := len(rules) - 1; i >= 0; i-- {
			h := rules[i].Handler
			inner := next
			next = func(r *http.Request) (*web.Response, error) {
				return h(r, inner)
			}
		}
		return next(r)
	}
}
