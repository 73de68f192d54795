package crawler

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/onioncrawl/internal/link"
	"github.com/nao1215/onioncrawl/internal/model"
)

// Length limits applied to extracted text, in runes.
const (
	// DefaultPreviewLength is the default length of the text preview.
	DefaultPreviewLength = 500
	// maxTitleLength limits the page title.
	maxTitleLength = 200
	// NoTitle is used when a document has neither <title> nor <h1>.
	NoTitle = "No title"
)

// metaLimits lists the <meta name="..."> values that are kept and how long
// each may be.
var metaLimits = map[string]int{
	"description": 300,
	"keywords":    200,
	"author":      100,
}

// Parser extracts the title, links, text preview and selected meta tags
// from an HTML document.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because it correctly handles the malformed HTML common on onion
// services and gives us a proper tree to walk.
type Parser struct {
	previewLength int
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithPreviewLength sets the maximum preview length in runes.
func WithPreviewLength(n int) ParserOption {
	return func(p *Parser) {
		if n > 0 {
			p.previewLength = n
		}
	}
}

// NewParser creates a new HTML parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{previewLength: DefaultPreviewLength}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts information from content, resolving links against
// baseURL. It never fails: input the tokenizer cannot make sense of yields
// an empty result.
func (p *Parser) Parse(content, baseURL string) model.ParseResult {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return emptyParseResult()
	}

	var (
		title    string
		h1       string
		text     strings.Builder
		links    = make([]string, 0)
		seen     = make(map[string]struct{})
		meta     = make(map[string]string)
		hasTitle bool
		hasH1    bool
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				// Neither contributes text nor links.
				return
			case "title":
				if !hasTitle {
					hasTitle = true
					title = nodeText(n)
				}
			case "h1":
				if !hasH1 {
					hasH1 = true
					h1 = nodeText(n)
				}
			case "a":
				if href, ok := getAttr(n, "href"); ok && link.IsFollowableScheme(href) {
					if resolved, ok := link.Normalize(href, baseURL); ok && link.IsHTTP(resolved) {
						if _, dup := seen[resolved]; !dup {
							seen[resolved] = struct{}{}
							links = append(links, resolved)
						}
					}
				}
			case "meta":
				p.collectMeta(n, meta)
			}
		case html.TextNode:
			text.WriteString(n.Data)
			text.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	switch {
	case hasTitle:
		title = sanitize(title, maxTitleLength)
	case hasH1:
		title = sanitize(h1, maxTitleLength)
	default:
		title = NoTitle
	}

	return model.ParseResult{
		Title:       title,
		RawLinks:    links,
		TextPreview: sanitize(text.String(), p.previewLength),
		Meta:        meta,
	}
}

// collectMeta stores the first non-empty content of each wanted meta name.
func (p *Parser) collectMeta(n *html.Node, meta map[string]string) {
	name, _ := getAttr(n, "name")
	limit, wanted := metaLimits[strings.ToLower(name)]
	if !wanted {
		return
	}
	key := strings.ToLower(name)
	if _, exists := meta[key]; exists {
		return
	}
	if content, ok := getAttr(n, "content"); ok && content != "" {
		meta[key] = sanitize(content, limit)
	}
}

func emptyParseResult() model.ParseResult {
	return model.ParseResult{
		RawLinks: []string{},
		Meta:     map[string]string{},
	}
}

// nodeText concatenates all text below n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

// sanitize collapses whitespace, applies NFC normalization and truncates to
// limit runes, appending "..." when truncated.
func sanitize(s string, limit int) string {
	s = strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
	s = norm.NFC.String(s)

	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return s
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val, true
		}
	}
	return "", false
}
