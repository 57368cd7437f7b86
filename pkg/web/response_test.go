package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponse(t *testing.T) {
	r := JSON(http.StatusCreated, map[string]int{"id": 1})

	if r.Status != http.StatusCreated {
		t.Errorf("Status = %d, want 201", r.Status)
	}
	if ct := r.Header.Get("Content-Type"); ct != ContentTypeJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	if string(r.Body) != `{"id":1}` {
		t.Errorf("Body = %s", r.Body)
	}
}

func TestJSONResponseEncodeFailure(t *testing.T) {
	r := JSON(http.StatusOK, make(chan int))
	if r.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", r.Status)
	}
}

func TestResponseWriteTo(t *testing.T) {
	tests := []struct {
		name     string
		resp     *Response
		wantCode int
		wantBody string
	}{
		{"html", HTML(http.StatusOK, []byte("<p>hi</p>")), 200, "<p>hi</p>"},
		{"zero status", &Response{Body: []byte("x")}, 200, "x"},
		{"no content", NewResponse(http.StatusNoContent, []byte("ignored")), 204, ""},
		{"redirect", Redirect(http.StatusFound, "/login"), 302, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := tt.resp.WriteTo(rec); err != nil {
				t.Fatalf("WriteTo error = %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestResponseClone(t *testing.T) {
	orig := Text(http.StatusOK, "hello")
	c := orig.Clone()
	c.Header.Set("X-Test", "1")
	c.Body[0] = 'j'

	if orig.Header.Get("X-Test") != "" {
		t.Error("clone shares header map")
	}
	if string(orig.Body) != "hello" {
		t.Errorf("clone shares body: %q", orig.Body)
	}
}

func TestResponseFor(t *testing.T) {
	custom := Text(http.StatusTeapot, "short and stout")

	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantKnown bool
		wantMsg   string
	}{
		{"response passthrough", custom, http.StatusTeapot, true, ""},
		{"wrapped response", fmt.Errorf("ctx: %w", custom), http.StatusTeapot, true, ""},
		{"http error", NotFound("no such product"), http.StatusNotFound, true, "no such product"},
		{"forbidden default", Forbidden(), http.StatusForbidden, true, "forbidden"},
		{"plain error", errors.New("db exploded"), http.StatusInternalServerError, false, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, known := ResponseFor(tt.err)
			if known != tt.wantKnown {
				t.Errorf("known = %v, want %v", known, tt.wantKnown)
			}
			if resp.Status != tt.wantCode {
				t.Errorf("Status = %d, want %d", resp.Status, tt.wantCode)
			}
			if tt.wantMsg == "" {
				return
			}
			var body ErrorBody
			if err := json.Unmarshal(resp.Body, &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", body.Error, tt.wantMsg)
			}
		})
	}
}

func TestPlainErrorDetailNotLeaked(t *testing.T) {
	resp, _ := ResponseFor(InternalError(errors.New("password=hunter2")))
	if string(resp.Body) != `{"error":"internal server error"}` {
		t.Errorf("body = %s", resp.Body)
	}
}
