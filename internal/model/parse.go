package model

// ParseResult is what the HTML parser extracts from one document.
type ParseResult struct {
	// Title comes from <title>, falling back to the first <h1>.
	Title string

	// RawLinks are the absolute, normalized hrefs of all anchors in
	// document order, without duplicates. They have not been filtered.
	RawLinks []string

	// TextPreview is the visible text, collapsed and truncated.
	TextPreview string

	// Meta holds description, keywords and author when present.
	Meta map[string]string
}
