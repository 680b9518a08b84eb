package database

import (
	"context"
	"time"
)

// Pinger is a backing service whose reachability gates readiness.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// CheckAll pings every dependency with a per-call timeout and returns the
// failures keyed by name. An empty map means all are reachable.
func CheckAll(ctx context.Context, timeout time.Duration, deps ...Pinger) map[string]error {
	failures := make(map[string]error)
	for _, d := range deps {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		if err := d.Ping(pctx); err != nil {
			failures[d.Name()] = err
		}
		cancel()
	}
	return failures
}
