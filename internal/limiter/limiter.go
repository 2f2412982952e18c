// Package limiter throttles failed logins per (login, client address) pair.
package limiter

import (
	"context"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a login attempt may proceed and, when blocked, the remaining block time.
	Allow(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error)
	// Success clears the failure counter of the pair.
	Success(ctx context.Context, login string, ipHash []byte) error
	// Failure records a failed attempt and reports whether the pair is now blocked.
	Failure(ctx context.Context, login string, ipHash []byte) (bool, time.Duration, error)
}

// Policy bounds failed attempts: MaxFails failures within Window block the pair for BlockFor.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// DefaultPolicy allows 5 failures in 15 minutes, then blocks for 15 minutes.
func DefaultPolicy() Policy {
	return Policy{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}
}
