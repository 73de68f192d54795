package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/onioncrawl/internal/model"
)

const (
	// defaultMaxPageRows bounds the page table of the Markdown report.
	defaultMaxPageRows = 200
	// defaultTopDomains is the number of rows in the domain table.
	defaultTopDomains = 20
)

// MarkdownWriter outputs a GitHub-flavored Markdown crawl report.
type MarkdownWriter struct {
	out io.Writer

	maxPageRows int
	topDomains  int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMaxPageRows limits the page table to n rows. A negative n removes
// the limit.
func WithMaxPageRows(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.maxPageRows = n
	}
}

// WithDomainRows limits the domain table to n rows.
func WithDomainRows(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.topDomains = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		out:         output,
		maxPageRows: defaultMaxPageRows,
		topDomains:  defaultTopDomains,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.out)

	w.writeHeader(md, s)
	w.writeStatistics(md, s)
	w.writeDomains(md, s)
	w.writePages(md, s)
	w.writeFailures(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Onion Crawl Report")
	md.PlainText("")

	source := s.Source
	if source == "" {
		source = "-"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Store", "`" + source + "`"},
			{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages", strconv.Itoa(s.Stats.TotalPages)},
			{"Domains", strconv.Itoa(len(s.Domains))},
			{"Max Depth", strconv.Itoa(s.MaxDepth)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStatistics(md *markdown.Markdown, s *Summary) {
	md.H2("Statistics")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Successful", strconv.Itoa(s.Stats.Successful)},
			{"Errors", strconv.Itoa(s.Stats.Errors)},
			{"Links", strconv.Itoa(s.Stats.TotalLinks)},
			{"Success Rate", strconv.FormatFloat(s.SuccessRate(), 'f', 1, 64) + "%"},
		},
	})
	md.PlainText("")

	if s.Stats.TotalPages > 0 {
		w.writePieChart(md, s)
	}
	if len(s.Statuses) > 0 {
		rows := make([][]string, 0, len(s.Statuses))
		for _, sc := range s.Statuses {
			rows = append(rows, []string{statusLabel(sc.Status), strconv.Itoa(sc.Pages)})
		}
		md.H3("HTTP Status")
		md.PlainText("")
		md.Table(markdown.TableSet{Header: []string{"Status", "Pages"}, Rows: rows})
		md.PlainText("")
	}

	w.writeAlert(md, s)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Fetch Results"),
		piechart.WithShowData(true),
	)
	if s.Stats.Successful > 0 {
		chart.LabelAndIntValue("Successful", uint64(s.Stats.Successful))
	}
	if s.Stats.Errors > 0 {
		chart.LabelAndIntValue("Errors", uint64(s.Stats.Errors))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	switch {
	case s.Stats.TotalPages == 0:
		md.Note("The store holds no pages yet.")
	case s.Stats.Successful == 0:
		md.Cautionf("Every one of the %d page(s) failed. Check that the Tor proxy is reachable.", s.Stats.Errors)
	case s.Stats.Errors*2 > s.Stats.TotalPages:
		md.Warningf("%d of %d page(s) failed.", s.Stats.Errors, s.Stats.TotalPages)
	case s.Stats.Errors > 0:
		md.Importantf("%d page(s) could not be fetched.", s.Stats.Errors)
	default:
		md.Tip("All pages were fetched successfully.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, s *Summary) {
	md.H2("Domains")
	md.PlainText("")

	if len(s.Domains) == 0 {
		md.PlainText("No domains crawled.")
		md.PlainText("")
		return
	}

	domains := s.TopDomains(w.topDomains)
	rows := make([][]string, 0, len(domains))
	for _, d := range domains {
		rows = append(rows, []string{"`" + d.Domain + "`", strconv.Itoa(d.Pages), strconv.Itoa(d.Errors)})
	}
	md.Table(markdown.TableSet{Header: []string{"Domain", "Pages", "Errors"}, Rows: rows})
	md.PlainText("")
	if len(domains) < len(s.Domains) {
		md.PlainTextf("*%d more domain(s) not shown.*", len(s.Domains)-len(domains))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, s *Summary) {
	md.H2("Pages")
	md.PlainText("")

	if len(s.Pages) == 0 {
		md.PlainText("No pages stored.")
		md.PlainText("")
		return
	}

	pages := s.Pages
	if w.maxPageRows >= 0 && len(pages) > w.maxPageRows {
		pages = pages[:w.maxPageRows]
	}

	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		if p == nil {
			continue
		}
		title := p.Title
		if title == "" {
			title = "-"
		}
		rows = append(rows, []string{
			escapeCell(truncateString(p.URL, 70)),
			statusLabel(p.HTTPStatus),
			strconv.Itoa(p.Depth),
			escapeCell(truncateString(title, 50)),
			strconv.Itoa(len(p.Links)),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Depth", "Title", "Links"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(pages) < len(s.Pages) {
		md.PlainTextf("*%d more page(s) not shown.*", len(s.Pages)-len(pages))
		md.PlainText("")
	}

	for _, p := range pages {
		if p == nil || p.TextPreview == "" {
			continue
		}
		md.Details(escapeCell(truncateString(p.URL, 70)), previewDetails(p))
	}
	md.PlainText("")
}

func previewDetails(p *model.PageRecord) string {
	var sb strings.Builder
	sb.WriteString(p.TextPreview)
	for _, key := range []string{"description", "keywords", "author"} {
		if v, ok := p.Meta[key]; ok {
			sb.WriteString("\n\n**")
			sb.WriteString(key)
			sb.WriteString("**: ")
			sb.WriteString(v)
		}
	}
	return sb.String()
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *Summary) {
	if len(s.Failures) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	items := make([]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		items = append(items, "`"+f.URL+"`: "+f.Error)
	}
	md.BulletList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [onioncrawl](https://github.com/nao1215/onioncrawl)*")
}

// statusLabel renders a status code, with 0 shown as a dash.
func statusLabel(status int) string {
	if status == 0 {
		return "-"
	}
	return strconv.Itoa(status)
}

// escapeCell keeps pipes from breaking a table row.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
