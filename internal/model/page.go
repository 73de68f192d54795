package model

import "time"

// PageRecord is the persisted result of visiting one URL.
// A record is created once per admitted URL and never modified after it
// has been handed to a storage backend.
type PageRecord struct {
	// URL is the normalized URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after redirects. Equal to URL when the request
	// failed before a response was received.
	FinalURL string `json:"final_url"`

	// HTTPStatus is the response status code, or 0 when no response arrived.
	HTTPStatus int `json:"status"`

	// Depth is the BFS distance from the seed URL.
	Depth int `json:"depth"`

	// Timestamp is the UTC time the record was built.
	Timestamp time.Time `json:"timestamp"`

	// Title is the document title. Empty for failed or non-HTML fetches.
	Title string `json:"title"`

	// TextPreview is a whitespace-collapsed, truncated text snapshot.
	TextPreview string `json:"text_preview"`

	// Meta holds selected <meta> values (description, keywords, author).
	Meta map[string]string `json:"meta"`

	// Links holds the filtered, normalized outbound links in discovery order.
	Links []string `json:"links"`

	// Error describes why the fetch failed. Nil on success.
	Error *string `json:"error"`
}

// Succeeded reports whether the record carries no fetch error.
func (p *PageRecord) Succeeded() bool {
	return p.Error == nil
}

// ErrorString returns the fetch error or an empty string.
func (p *PageRecord) ErrorString() string {
	if p.Error == nil {
		return ""
	}
	return *p.Error
}

// StringPtr returns a pointer to s, or nil when s is empty.
// It is used to build the optional Error field.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
