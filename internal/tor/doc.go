// Package tor provides Tor network connectivity for the crawler.
//
// It contains:
//   - Client: a SOCKS5 dialer with a proxy health check and an HTTP client
//     that routes every request through Tor
//   - Fetcher: a GET helper that turns every outcome, including timeouts and
//     connection failures, into a model.FetchResult
//   - EmbeddedTor: a private Tor daemon managed through tornago, for hosts
//     without a system Tor
//   - onion address classification with v3 checksum verification
//
// Components receive a Client or Fetcher explicitly; the package keeps no
// global state.
package tor
