package tor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/onioncrawl/internal/model"
)

// DefaultMaxBodySize is the default limit on bytes read from a response.
const DefaultMaxBodySize = 5 * 1024 * 1024

// Fetch error prefixes recorded in model.FetchResult.Error.
const (
	ErrorTimeout      = "Timeout"
	clientErrorPrefix = "ClientError: "
	exceptionPrefix   = "Exception: "
)

// Fetcher performs GET requests and reports every outcome as a
// model.FetchResult, never as a Go error.
type Fetcher struct {
	client      *http.Client
	maxBodySize int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxBodySize limits how many bytes of a response body are read.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// NewFetcher creates a fetcher over client. Use Client.NewHTTPClient to
// route requests through Tor.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      client,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch requests rawURL with the given headers. timeout bounds the whole
// exchange including reading the body; zero means no extra bound.
//
// Timeouts are reported as "Timeout", transport and protocol failures as
// "ClientError: ..." and anything else as "Exception: ...", all with
// status 0. The body is decoded to UTF-8 according to its declared or
// sniffed charset.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) model.FetchResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	failed := func(msg string) model.FetchResult {
		return model.FetchResult{FinalURL: rawURL, Error: msg}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failed(exceptionPrefix + err.Error())
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return failed(classify(err))
	}
	defer resp.Body.Close()

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return model.FetchResult{FinalURL: finalURL, Error: classify(err)}
	}

	return model.FetchResult{
		FinalURL: finalURL,
		Status:   resp.StatusCode,
		Headers:  resp.Header,
		Content:  decodeBody(raw, resp.Header.Get("Content-Type")),
	}
}

// Close releases idle connections.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// classify maps a request error to the recorded error string.
func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorTimeout
	}
	return clientErrorPrefix + err.Error()
}

// decodeBody converts raw to UTF-8. Bodies in an unknown encoding are
// returned as-is.
func decodeBody(raw []byte, contentType string) string {
	if len(raw) == 0 {
		return ""
	}
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
