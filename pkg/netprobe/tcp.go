package netprobe

import (
	"context"
	"fmt"
	"net"
	"time"
)

// pollInterval matches the original's loop: try to connect, sleep 100ms, retry.
const pollInterval = 100 * time.Millisecond

// Checker performs a single TCP dial against Address.
type Checker struct {
	Address string
	Timeout time.Duration
}

// NewChecker builds a Checker with a 5 second per-attempt dial timeout.
func NewChecker(address string) *Checker {
	return &Checker{Address: address, Timeout: 5 * time.Second}
}

// Check attempts one connection to Address and reports whether it succeeded.
func (c *Checker) Check(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: c.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.Address, err)
	}
	return conn.Close()
}

// WaitReachable polls address every 100ms until a connection succeeds or ctx
// is done. It is used to wait out the window between a process being
// spawned and its RPC listener becoming ready.
func WaitReachable(ctx context.Context, address string) error {
	checker := NewChecker(address)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	if checker.Check(ctx) == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to become reachable: %w", address, ctx.Err())
		case <-ticker.C:
			if err := checker.Check(ctx); err == nil {
				return nil
			}
		}
	}
}
