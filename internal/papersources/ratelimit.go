package papersources

import (
	"time"

	"golang.org/x/time/rate"
)

// NewRateLimiter returns a token bucket allowing ratePerSecond sustained
// requests with bursts of burst. A non-positive rate disables limiting.
//
// arXiv asks for one request every three seconds: NewRateLimiter(0.33, 1).
func NewRateLimiter(ratePerSecond float64, burst int) *rate.Limiter {
	if ratePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, max(burst, 1))
	}
	return rate.NewLimiter(rate.Limit(ratePerSecond), max(burst, 1))
}

// NewIntervalLimiter spaces requests at least interval apart. A non-positive
// interval disables limiting.
func NewIntervalLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
