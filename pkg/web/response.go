package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Content types set by the response helpers.
const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
)

// =============================================================================
// Response - Buffered HTTP Response Value
// =============================================================================

// Response is a fully buffered HTTP response. Handlers and middleware pass
// it around as a plain value; nothing reaches the client until WriteTo.
//
// Response implements error so a handler may return one as its error to
// end processing with that exact response:
//
//	if !allowed {
//	    return nil, web.JSON(http.StatusForbidden, web.ErrorBody{Error: "forbidden"})
//	}
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Error implements the error interface.
func (r *Response) Error() string {
	return fmt.Sprintf("http response %d", r.Status)
}

// NewResponse creates a response with an empty header set.
func NewResponse(status int, body []byte) *Response {
	return &Response{Status: status, Header: make(http.Header), Body: body}
}

// JSON creates a response with v encoded as JSON. An encoding failure
// produces a 500 with the standard error body.
func JSON(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error"}`)
	}
	r := NewResponse(status, body)
	r.Header.Set("Content-Type", ContentTypeJSON)
	return r
}

// HTML creates a text/html response.
func HTML(status int, body []byte) *Response {
	r := NewResponse(status, body)
	r.Header.Set("Content-Type", ContentTypeHTML)
	return r
}

// Text creates a text/plain response.
func Text(status int, body string) *Response {
	r := NewResponse(status, []byte(body))
	r.Header.Set("Content-Type", ContentTypeText)
	return r
}

// Redirect creates a redirect response to location.
func Redirect(status int, location string) *Response {
	r := NewResponse(status, nil)
	r.Header.Set("Location", location)
	return r
}

// Clone returns a deep copy, safe to modify independently.
func (r *Response) Clone() *Response {
	out := &Response{Status: r.Status, Header: r.Header.Clone()}
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// WriteTo writes the response to w. A zero status is sent as 200.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	h := w.Header()
	for k, vs := range r.Header {
		h[k] = append([]string(nil), vs...)
	}
	if h.Get("Content-Length") == "" && len(r.Body) > 0 {
		h.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if status == http.StatusNoContent || status == http.StatusNotModified || len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

// =============================================================================
// Error Bodies
// =============================================================================

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string  `json:"error"`
	Issues []Issue `json:"issues,omitempty"`
}

// Issue is one validation failure.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorJSON creates an error response with the standard body.
func ErrorJSON(status int, message string, issues ...Issue) *Response {
	return JSON(status, ErrorBody{Error: message, Issues: issues})
}
