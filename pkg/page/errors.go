package page

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vango-dev/verdant/pkg/isr"
)

var (
	// ErrNotFound is returned by a loader when the requested item does not
	// exist. The page answers 404 and any cached output for it is dropped.
	ErrNotFound = isr.ErrNotFound

	// ErrUnknownRoute means no page pattern matches a path.
	ErrUnknownRoute = errors.New("no page route matches path")

	// ErrNotCacheable means on-demand revalidation targeted a dynamic page.
	ErrNotCacheable = errors.New("page is dynamic and has no cached output")

	// ErrInvalidWindow means a revalidation window is not positive.
	ErrInvalidWindow = errors.New("revalidation window must be positive")

	// ErrNoRenderer means a definition has no Render.
	ErrNoRenderer = errors.New("page definition has no renderer")
)

// redirectError is the loader signal returned by RedirectTo.
type redirectError struct {
	location string
	status   int
}

func (e *redirectError) Error() string {
	return fmt.Sprintf("redirect %d to %s", e.status, e.location)
}

// RedirectTo makes a loader redirect the request with 307.
//
//	if p.Moved != "" {
//	    return nil, page.RedirectTo("/products/" + p.Moved)
//	}
func RedirectTo(location string) error {
	return &redirectError{location: location, status: http.StatusTemporaryRedirect}
}

// PermanentRedirectTo makes a loader redirect the request with 308.
func PermanentRedirectTo(location string) error {
	return &redirectError{location: location, status: http.StatusPermanentRedirect}
}

// IsRedirect reports whether err is a loader redirect and returns its
// location and status.
func IsRedirect(err error) (location string, status int, ok bool) {
	var r *redirectError
	if errors.As(err, &r) {
		return r.location, r.status, true
	}
	return "", 0, false
}
