package scheduler

import (
	"errors"
	"net/http"
	"strings"
)

// Providers may wrap this to signal throttling explicitly
var ErrRateLimited = errors.New("rate limited")

const rateLimitedCode = "RATE_LIMITED"

type statusCoder interface {
	StatusCode() int
}

type coder interface {
	Code() string
}

// IsThrottle reports whether err is a provider rejection caused by exceeding its rate limit:
// HTTP 429, a RATE_LIMITED code, or a "rate limit"/"too many requests" message anywhere in the chain
func IsThrottle(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() == http.StatusTooManyRequests {
		return true
	}

	var c coder
	if errors.As(err, &c) && c.Code() == rateLimitedCode {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}
