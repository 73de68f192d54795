package report

import (
	"encoding/json"
	"io"
)

// JSONWriter encodes the summary as one JSON document followed by a newline.
type JSONWriter struct {
	out io.Writer

	prefix, indent string
	withPages      bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values; see json.Encoder.SetIndent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix, w.indent = prefix, indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithPages keeps the page list. Without it only aggregates are encoded.
func WithPages(include bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.withPages = include
	}
}

func NewJSONWriter(out io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{out: out}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *JSONWriter) Write(s *Summary) (int, error) {
	doc := *s
	if !w.withPages {
		doc.Pages = nil
	}

	cw := &countingWriter{w: w.out}
	enc := json.NewEncoder(cw)
	enc.SetIndent(w.prefix, w.indent)
	enc.SetEscapeHTML(false)
	err := enc.Encode(&doc)
	return cw.n, err
}

// countingWriter records how many bytes reached w.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
