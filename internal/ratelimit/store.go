// Package ratelimit implements fixed-window request limiting per client.
//
// A client's window opens with its first request and lasts for the configured
// width. Requests numbered up to the limit pass; later requests within the same
// window are rejected until it expires.
package ratelimit

import (
	"context"
	"time"
)

// Result is the state of a client's window after a hit.
type Result struct {
	// Count is the number of hits in the current window, including this one.
	Count int64

	// ResetIn is the time left until the window expires.
	ResetIn time.Duration
}

// Store counts hits per key within fixed windows. Implementations must be
// safe for concurrent use.
type Store interface {
	// Hit records one request for key and returns the window state. A new
	// window of width window opens when none is active.
	Hit(ctx context.Context, key string, window time.Duration) (Result, error)
}
