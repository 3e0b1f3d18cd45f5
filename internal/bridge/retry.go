package bridge

import (
	"math/rand/v2"
	"time"
)

// MaxRetries bounds delivery attempts for one envelope.
const MaxRetries = 3

// Backoff returns a duration for attempt n (0-indexed) with jitter.
// The transport owner uses it between reconnect/redelivery attempts.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
