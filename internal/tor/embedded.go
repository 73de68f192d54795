package tor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/tornago"
)

// DefaultStartupTimeout bounds how long an embedded daemon may bootstrap.
const DefaultStartupTimeout = 3 * time.Minute

// ErrEmbeddedNotRunning is returned when the embedded daemon is used
// before Start succeeded.
var ErrEmbeddedNotRunning = errors.New("embedded Tor daemon is not running")

// EmbeddedTor owns a private Tor daemon started through tornago, for hosts
// without a system Tor. Bootstrap usually takes one to three minutes.
type EmbeddedTor struct {
	startupTimeout time.Duration
	logger         *slog.Logger

	mu      sync.Mutex
	process *tornago.TorProcess
}

// EmbeddedTorOption configures an EmbeddedTor.
type EmbeddedTorOption func(*EmbeddedTor)

// WithStartupTimeout bounds the bootstrap. Non-positive values are ignored.
func WithStartupTimeout(timeout time.Duration) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		if timeout > 0 {
			e.startupTimeout = timeout
		}
	}
}

// WithEmbeddedLogger sets the lifecycle logger. nil is ignored.
func WithEmbeddedLogger(logger *slog.Logger) EmbeddedTorOption {
	return func(e *EmbeddedTor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEmbeddedTor(opts ...EmbeddedTorOption) *EmbeddedTor {
	e := &EmbeddedTor{
		startupTimeout: DefaultStartupTimeout,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type launchResult struct {
	process *tornago.TorProcess
	err     error
}

// Start launches the daemon on OS-assigned ports and waits for bootstrap.
// When ctx ends first, Start returns ctx.Err and the daemon is stopped as
// soon as its launch returns.
func (e *EmbeddedTor) Start(ctx context.Context) error {
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	e.logger.Info("bootstrapping embedded Tor", slog.Duration("timeout", e.startupTimeout))
	began := time.Now()

	done := make(chan launchResult, 1)
	go func() {
		p, err := tornago.StartTorDaemon(launchCfg)
		done <- launchResult{p, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.process != nil {
				_ = r.process.Stop() //nolint:errcheck // abandoned launch
			}
		}()
		return ctx.Err()
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("failed to start embedded Tor daemon: %w", r.err)
		}
		e.mu.Lock()
		e.process = r.process
		e.mu.Unlock()
	}

	e.logger.Info("embedded Tor bootstrapped",
		slog.String("socks", e.SocksAddr()),
		slog.Duration("elapsed", time.Since(began).Round(time.Second)),
	)
	return nil
}

// Stop terminates the daemon. Stopping a daemon that is not running is a
// no-op.
func (e *EmbeddedTor) Stop() error {
	e.mu.Lock()
	p := e.process
	e.process = nil
	e.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.Stop()
}

func (e *EmbeddedTor) running() *tornago.TorProcess {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.process
}

// SocksAddr is the daemon's SOCKS5 address, or "" when not running.
func (e *EmbeddedTor) SocksAddr() string {
	if p := e.running(); p != nil {
		return p.SocksAddr()
	}
	return ""
}

// ControlAddr is the daemon's control port address, or "" when not running.
func (e *EmbeddedTor) ControlAddr() string {
	if p := e.running(); p != nil {
		return p.ControlAddr()
	}
	return ""
}

func (e *EmbeddedTor) IsRunning() bool {
	return e.running() != nil
}

// NewClient returns a Client dialing through the daemon's SOCKS port.
func (e *EmbeddedTor) NewClient(timeout time.Duration) (*Client, error) {
	addr := e.SocksAddr()
	if addr == "" {
		return nil, ErrEmbeddedNotRunning
	}
	return NewClient(addr, timeout)
}
