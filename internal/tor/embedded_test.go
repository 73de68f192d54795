package tor

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestNewEmbeddedTor(t *testing.T) {
	t.Parallel()

	t.Run("uses the default startup timeout", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor()
		if embedded.startupTimeout != DefaultStartupTimeout {
			t.Errorf("expected default timeout %v, got %v", DefaultStartupTimeout, embedded.startupTimeout)
		}
		if embedded.logger == nil {
			t.Error("expected a logger")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		logger := slog.New(slog.DiscardHandler)
		embedded := NewEmbeddedTor(WithStartupTimeout(5*time.Minute), WithEmbeddedLogger(logger))
		if embedded.startupTimeout != 5*time.Minute {
			t.Errorf("expected timeout 5m, got %v", embedded.startupTimeout)
		}
		if embedded.logger != logger {
			t.Error("expected the configured logger")
		}
	})

	t.Run("ignores invalid options", func(t *testing.T) {
		t.Parallel()

		embedded := NewEmbeddedTor(WithStartupTimeout(0), WithEmbeddedLogger(nil))
		if embedded.startupTimeout != DefaultStartupTimeout {
			t.Errorf("expected default timeout, got %v", embedded.startupTimeout)
		}
		if embedded.logger == nil {
			t.Error("expected the default logger to be kept")
		}
	})
}

func TestEmbeddedTorBeforeStart(t *testing.T) {
	t.Parallel()

	embedded := NewEmbeddedTor()

	if embedded.SocksAddr() != "" {
		t.Error("expected empty SocksAddr before start")
	}
	if embedded.ControlAddr() != "" {
		t.Error("expected empty ControlAddr before start")
	}
	if embedded.IsRunning() {
		t.Error("expected IsRunning to be false before start")
	}
	if err := embedded.Stop(); err != nil {
		t.Errorf("expected no error stopping unstarted instance, got %v", err)
	}
	if _, err := embedded.NewClient(30 * time.Second); !errors.Is(err, ErrEmbeddedNotRunning) {
		t.Errorf("expected ErrEmbeddedNotRunning, got %v", err)
	}
}
