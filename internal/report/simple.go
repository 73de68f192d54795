package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs a plain text summary for terminal display.
type SimpleWriter struct {
	out io.Writer

	// topDomains limits the domain section. Zero hides it.
	topDomains int

	// verbose adds the list of failed pages.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithTopDomains shows the n domains with the most pages.
func WithTopDomains(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.topDomains = n
	}
}

// WithVerbose lists every failed page.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{out: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary as text.
func (w *SimpleWriter) Write(s *Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("CRAWL STATISTICS\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	if s.Source != "" {
		fmt.Fprintf(&sb, "Store:        %s\n", s.Source)
	}
	fmt.Fprintf(&sb, "Total pages:  %d\n", s.Stats.TotalPages)
	fmt.Fprintf(&sb, "Successful:   %d\n", s.Stats.Successful)
	fmt.Fprintf(&sb, "Errors:       %d\n", s.Stats.Errors)
	fmt.Fprintf(&sb, "Total links:  %d\n", s.Stats.TotalLinks)
	if s.Stats.TotalPages > 0 {
		fmt.Fprintf(&sb, "Success rate: %.1f%%\n", s.SuccessRate())
		fmt.Fprintf(&sb, "Max depth:    %d\n", s.MaxDepth)
	}

	if w.topDomains > 0 && len(s.Domains) > 0 {
		sb.WriteString(strings.Repeat("-", 60))
		sb.WriteString("\n")
		sb.WriteString("TOP DOMAINS\n")
		for _, d := range s.TopDomains(w.topDomains) {
			fmt.Fprintf(&sb, "  %5d  %s\n", d.Pages, d.Domain)
		}
	}

	if w.verbose && len(s.Failures) > 0 {
		sb.WriteString(strings.Repeat("-", 60))
		sb.WriteString("\n")
		sb.WriteString("FAILED PAGES\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&sb, "  [!] %s\n      %s\n", f.URL, f.Error)
		}
	}

	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	return io.WriteString(w.out, sb.String())
}
