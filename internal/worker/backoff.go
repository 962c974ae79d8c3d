package worker

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff doubles from base per failed attempt up to capDelay,
// plus up to 250ms of jitter.
func ExponentialBackoff(attempt int, base, capDelay time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	return delay + time.Duration(rand.Intn(250))*time.Millisecond
}
