package router

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationErrorType categorizes route table errors.
type ValidationErrorType string

const (
	// ErrorInvalidPattern indicates a pattern that failed to parse.
	ErrorInvalidPattern ValidationErrorType = "INVALID_PATTERN"

	// ErrorDuplicateRoute indicates two patterns with the same shape for one method.
	// Example: /products/:id and /products/:slug
	ErrorDuplicateRoute ValidationErrorType = "DUPLICATE_ROUTE"
)

// ValidationError describes one problem in a route table.
type ValidationError struct {
	Type     ValidationErrorType
	Message  string
	Patterns []string
	Method   string

	// Err is the parse error or ErrDuplicatePattern.
	Err error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e ValidationError) Unwrap() error { return e.Err }

// MultiValidationError wraps every problem found in one pass.
type MultiValidationError struct {
	Errors []ValidationError
}

func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d route validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes every problem to errors.Is and errors.As.
func (e *MultiValidationError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// RouteKey is a pattern registered for a method. Method may be empty for
// page routes, which answer every read method.
type RouteKey struct {
	Method  string
	Pattern string
}

// ValidateRoutes checks a whole table at once so every conflict is reported
// together rather than one per restart.
func ValidateRoutes(routes []RouteKey) error {
	var errs []ValidationError
	byShape := make(map[string][]string)
	var order []string

	for _, rk := range routes {
		p, err := ParsePattern(rk.Pattern)
		if err != nil {
			errs = append(errs, ValidationError{
				Type:     ErrorInvalidPattern,
				Message:  err.Error(),
				Patterns: []string{rk.Pattern},
				Method:   rk.Method,
				Err:      err,
			})
			continue
		}
		key := rk.Method + " " + p.Shape()
		if _, ok := byShape[key]; !ok {
			order = append(order, key)
		}
		byShape[key] = append(byShape[key], rk.Pattern)
	}

	for _, key := range order {
		patterns := byShape[key]
		if len(patterns) <= 1 {
			continue
		}
		method, _, _ := strings.Cut(key, " ")
		errs = append(errs, ValidationError{
			Type:     ErrorDuplicateRoute,
			Message:  fmt.Sprintf("patterns %s are structurally identical", strings.Join(patterns, ", ")),
			Patterns: patterns,
			Method:   method,
			Err:      ErrDuplicatePattern,
		})
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

// SortBySpecificity orders patterns most specific first: at the first
// position where two patterns differ, literal beats param beats catch-all;
// longer patterns win ties.
func SortBySpecificity(patterns []Pattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		a, b := patterns[i].Segments, patterns[j].Segments
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k].Kind != b[k].Kind {
				return a[k].Kind < b[k].Kind
			}
		}
		return len(a) > len(b)
	})
}
