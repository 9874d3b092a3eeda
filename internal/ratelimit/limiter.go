// Package ratelimit paces the requests a load generator offers to a target.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter spaces requests evenly at a target rate. Actors of one
// generator share a single RateLimiter so their combined rate is the target.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter issuing rps requests per second with a
// burst of one, so requests are not bunched at the start of a round.
// An rps of 0 disables limiting.
func NewRateLimiter(rps int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Wait blocks until the next request may be issued or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.limiter.Limit() == 0 {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// Split divides total across n parts as evenly as possible; the first
// total%n parts get one extra.
func Split(total, n int) []int {
	if n <= 0 {
		return nil
	}
	shares := make([]int, n)
	for i := range shares {
		shares[i] = total / n
		if i < total%n {
			shares[i]++
		}
	}
	return shares
}
