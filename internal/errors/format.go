package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// style is an ANSI SGR sequence.
type style string

const (
	reset   style = "\033[0m"
	fgRed   style = "\033[31m"
	fgBlue  style = "\033[34m"
	fgCyan  style = "\033[36m"
	fgWhite style = "\033[37m"
	fgGray  style = "\033[90m"
	bright  style = "\033[1m"
)

var colorEnabled = true

// DisableColors turns off ANSI styling in Format and PrintError.
func DisableColors() { colorEnabled = false }

// EnableColors turns ANSI styling back on.
func EnableColors() { colorEnabled = true }

func paint(text string, styles ...style) string {
	if !colorEnabled || len(styles) == 0 {
		return text
	}
	var b strings.Builder
	for _, s := range styles {
		b.WriteString(string(s))
	}
	b.WriteString(text)
	b.WriteString(string(reset))
	return b.String()
}

// Format renders the error for a terminal: a header, the file snippet
// when the error has a location, then detail, hint, cause and doc link.
func (e *Error) Format() string {
	var b strings.Builder
	b.WriteByte('\n')

	label := "ERROR: "
	if e.Code != "" {
		label = "ERROR " + e.Code + ": "
	}
	b.WriteString(paint(label, fgRed, bright))
	b.WriteString(paint(e.Message, fgWhite))
	b.WriteString("\n\n")

	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n\n", paint(e.Location.String(), fgCyan))
		e.writeSnippet(&b)
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteByte('\n')
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", paint("Hint: ", fgCyan), e.Suggestion)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s%s\n\n", paint("Cause: ", fgGray), e.Wrapped.Error())
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s%s\n", paint("Learn more: ", fgGray), paint(e.DocURL, fgBlue))
	}
	return b.String()
}

// writeSnippet prints the Context lines with numbers, marking the
// Location line and column.
func (e *Error) writeSnippet(b *strings.Builder) {
	if len(e.Context) == 0 {
		return
	}
	first := e.Location.Line - len(e.Context)/2
	gutter := paint(" | ", fgGray)
	for i, text := range e.Context {
		n := first + i
		if n != e.Location.Line {
			fmt.Fprintf(b, "    %4d%s%s\n", n, gutter, text)
			continue
		}
		fmt.Fprintf(b, "  %s%4d%s%s\n", paint("> ", fgRed), n, gutter, text)
		if col := e.Location.Column; col > 0 {
			fmt.Fprintf(b, "        %s%s%s\n", paint("| ", fgGray), strings.Repeat(" ", col-1), paint("^", fgRed))
		}
	}
	b.WriteByte('\n')
}

// FormatCompact returns a one-line form: "file:line: CODE: message".
func (e *Error) FormatCompact() string {
	parts := make([]string, 0, 3)
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	parts = append(parts, e.Message)
	return strings.Join(parts, ": ")
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
	Cause      string        `json:"cause,omitempty"`
}

// FormatJSON returns the error as a JSON object for machine consumers.
func (e *Error) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if loc := e.Location; loc != nil {
		out.Location = &jsonLocation{File: loc.File, Line: loc.Line, Column: loc.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// wrapText breaks text into lines of at most width characters, splitting
// on whitespace. Single words longer than width get their own line.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}

// PrintError writes err to stderr, using Format when err is or wraps an
// *Error.
func PrintError(err error) {
	var ve *Error
	if errors.As(err, &ve) {
		fmt.Fprint(os.Stderr, ve.Format())
		return
	}
	fmt.Fprintf(os.Stderr, "\n%s %s\n\n", paint("ERROR:", fgRed, bright), err.Error())
}
