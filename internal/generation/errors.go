package generation

import (
	"errors"
	"strings"
)

// Common errors returned by engines.
var (
	// ErrGenerationFailed is returned when a completion fails for any general reason.
	ErrGenerationFailed = errors.New("language model request failed")

	// ErrInvalidResponse is returned when the reply cannot be parsed or is malformed.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the provider's safety filters block the content.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrRateLimited is returned when the provider throttles the request or
	// the account has exhausted its quota.
	ErrRateLimited = errors.New("language model rate limit exceeded")

	// ErrInvalidConfig is returned when the engine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid language model configuration")
)

var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"429",
	"too many requests",
	"quota",
}

// IsRateLimit reports whether err signals throttling, either because it
// wraps ErrRateLimited or because its message carries a known marker.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	return IsRateLimitMessage(err.Error())
}

// IsRateLimitMessage reports whether msg looks like a throttling error.
func IsRateLimitMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
