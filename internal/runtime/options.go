package runtime

import (
	"errors"
	"io"
	"time"

	"github.com/shelterflex/shelterflex-backend/internal/ratelimit"
	"github.com/shelterflex/shelterflex-backend/internal/soroban"
)

// Option is a functional option for configuring a Backend.
type Option func(*Backend) error

// WithStore replaces the configured rate limit store. The caller keeps
// ownership and closes it.
func WithStore(store ratelimit.Store) Option {
	return func(b *Backend) error {
		if store == nil {
			return errors.New("nil rate limit store")
		}
		b.store = store
		return nil
	}
}

// WithSimulator replaces the pending simulator.
func WithSimulator(sim soroban.Simulator) Option {
	return func(b *Backend) error {
		b.simulator = sim
		return nil
	}
}

// WithClock sets the clock used for uptime and the in-memory store.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) error {
		if now == nil {
			return errors.New("nil clock")
		}
		b.now = now
		return nil
	}
}

// WithAddr overrides the listen address derived from the port.
func WithAddr(addr string) Option {
	return func(b *Backend) error {
		b.addr = addr
		return nil
	}
}

// WithTraceWriter sets where spans are exported when tracing is enabled.
func WithTraceWriter(w io.Writer) Option {
	return func(b *Backend) error {
		b.traceWriter = w
		return nil
	}
}
