package errors

import (
	stderrors "errors"

	"github.com/vango-dev/verdant/pkg/api"
	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/router"
)

var classes = []struct {
	target error
	code   string
}{
	{router.ErrDuplicatePattern, "V121"},
	{router.ErrCatchAllNotLast, "V120"},
	{router.ErrEmptyParamName, "V120"},
	{router.ErrDuplicateParam, "V120"},
	{api.ErrAmbiguousParams, "V122"},
	{api.ErrPathParamMismatch, "V122"},
	{api.ErrDuplicateMethod, "V124"},
	{api.ErrMethodKeyMismatch, "V124"},
	{api.ErrNilNode, "V124"},
	{page.ErrInvalidWindow, "V123"},
	{page.ErrNoRenderer, "V125"},
	{isr.ErrTimeout, "V140"},
}

// Classify wraps a registration or generation error under its code.
// Errors that already are *Error pass through; unrecognized errors get
// fallback.
func Classify(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	for _, c := range classes {
		if stderrors.Is(err, c.target) {
			return New(c.code).Wrap(err)
		}
	}
	return New(fallback).Wrap(err)
}
