package util

import (
	"context"
	"math/rand/v2"
	"time"
)

// maxBackoff caps a single wait between attempts.
const maxBackoff = 30 * time.Second

// Backoff returns the wait before the given attempt: base doubled per attempt,
// capped at maxBackoff, with up to ±25% jitter. Attempt 0 waits nothing.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	backoff := base * time.Duration(1<<uint(attempt))
	if backoff > maxBackoff || backoff <= 0 {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(backoff)/2+1)) - backoff/4
	return backoff + jitter
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
