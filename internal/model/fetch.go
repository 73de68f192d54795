package model

import "net/http"

// FetchResult is the outcome of one HTTP request through the proxy.
// Failures are reported in Error rather than as a Go error so that a
// broken page still produces a PageRecord.
type FetchResult struct {
	// FinalURL is the URL after following redirects.
	FinalURL string

	// Status is the HTTP status code, 0 if no response was received.
	Status int

	// Headers are the response headers, nil on failure.
	Headers http.Header

	// Content is the decoded response body (UTF-8). Empty on failure.
	Content string

	// Error is empty on success, otherwise one of "Timeout",
	// "ClientError: ..." or "Exception: ...".
	Error string
}

// OK reports whether the result carries a 200 response with a body.
// Only such results are parsed for links.
func (r FetchResult) OK() bool {
	return r.Status == http.StatusOK && r.Content != ""
}
