// Package log builds the application's slog.Logger.
//
// New returns a logger whose handler is wrapped in a SecureHandler, which
// masks sensitive attribute values before they are written:
//   - HTTP headers such as Authorization and Cookie
//   - passwords, tokens and connection strings, by key name
//   - bearer tokens, JWTs and private key blocks, by value
//   - the password of any URL with userinfo, e.g. a PostgreSQL DSN
//
// Options.RedactKeys adds keys to mask, such as configured request headers.
//
// Console output uses tint; --json-log switches to slog's JSON handler.
//
// # Usage
//
//	level, err := log.ParseLevel(cfg.LogLevel)
//	if err != nil {
//		return err
//	}
//	logger := log.New(os.Stderr, log.Options{Level: level})
//	logger.Info("crawl started", "url", startURL)
package log
