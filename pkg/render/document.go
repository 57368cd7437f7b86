package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
)

// DataElementID is the id of the JSON data island in every document.
const DataElementID = "__VERDANT_DATA__"

// Document is a complete HTML page: head, rendered body, chunk preloads
// and the page data island.
type Document struct {
	// Lang is the language attribute for the html element.
	// Defaults to "en" if not specified
	Lang string

	Head Head

	// Body is the renderer output, written verbatim.
	Body []byte

	// Chunks are client modules to preload and load, resolved against
	// ChunkPrefix when relative.
	Chunks      []string
	ChunkPrefix string

	// Data is serialized into the data island when non-nil.
	Data any
}

// Head holds the document head elements.
type Head struct {
	Title string
	Meta  []MetaTag
	Links []LinkTag
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name     string // name attribute
	Property string // property attribute (for OpenGraph)
	Content  string // content attribute
}

// LinkTag represents a link element in the document head.
type LinkTag struct {
	Rel  string // rel attribute
	Href string // href attribute
	Type string // type attribute
}

var (
	htmlEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;",
	)
	// Attribute values also encode line breaks and tabs.
	attrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;",
		"\n", "&#10;", "\r", "&#13;", "\t", "&#9;",
	)
)

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }

// ChunkURLs resolves chunk names against prefix. Absolute paths and URLs
// are left alone.
func ChunkURLs(prefix string, chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.HasPrefix(c, "/") || strings.Contains(c, "://") || prefix == "" {
			out = append(out, c)
			continue
		}
		out = append(out, path.Join(prefix, c))
	}
	return out
}

// WriteDocument writes doc as a complete HTML page.
func WriteDocument(w io.Writer, doc Document) error {
	lang := doc.Lang
	if lang == "" {
		lang = "en"
	}
	chunks := ChunkURLs(doc.ChunkPrefix, doc.Chunks)

	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n")
	fmt.Fprintf(&b, "<html lang=\"%s\">\n", escapeAttr(lang))

	b.WriteString("<head>\n")
	b.WriteString("  <meta charset=\"utf-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	if doc.Head.Title != "" {
		fmt.Fprintf(&b, "  <title>%s</title>\n", escapeHTML(doc.Head.Title))
	}
	for _, m := range doc.Head.Meta {
		writeMeta(&b, m)
	}
	for _, l := range doc.Head.Links {
		writeLink(&b, l)
	}
	for _, c := range chunks {
		fmt.Fprintf(&b, "  <link rel=\"modulepreload\" href=\"%s\">\n", escapeAttr(c))
	}
	b.WriteString("</head>\n")

	b.WriteString("<body>\n")
	b.Write(doc.Body)
	b.WriteString("\n")

	if doc.Data != nil {
		// json.Marshal escapes <, > and & so the payload cannot close the
		// script element.
		data, err := json.Marshal(doc.Data)
		if err != nil {
			return fmt.Errorf("render: encode page data: %w", err)
		}
		fmt.Fprintf(&b, "<script id=\"%s\" type=\"application/json\">%s</script>\n", DataElementID, data)
	}
	for _, c := range chunks {
		fmt.Fprintf(&b, "<script type=\"module\" src=\"%s\"></script>\n", escapeAttr(c))
	}
	b.WriteString("</body>\n</html>\n")

	_, err := w.Write(b.Bytes())
	return err
}

func writeMeta(b *bytes.Buffer, m MetaTag) {
	b.WriteString("  <meta")
	if m.Name != "" {
		fmt.Fprintf(b, " name=\"%s\"", escapeAttr(m.Name))
	}
	if m.Property != "" {
		fmt.Fprintf(b, " property=\"%s\"", escapeAttr(m.Property))
	}
	fmt.Fprintf(b, " content=\"%s\">\n", escapeAttr(m.Content))
}

func writeLink(b *bytes.Buffer, l LinkTag) {
	fmt.Fprintf(b, "  <link rel=\"%s\" href=\"%s\"", escapeAttr(l.Rel), escapeAttr(l.Href))
	if l.Type != "" {
		fmt.Fprintf(b, " type=\"%s\"", escapeAttr(l.Type))
	}
	b.WriteString(">\n")
}
