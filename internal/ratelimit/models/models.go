package models

import (
	"time"
)

// EndpointClass groups routes that share a limit.
type EndpointClass string

const (
	// ClassVerify is the public token lookup, keyed by client IP.
	ClassVerify EndpointClass = "verify"
	// ClassRegistry covers authenticated incident reads and writes, keyed by user.
	ClassRegistry EndpointClass = "registry"
)

// Limit is a sliding window allowance.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// RateLimitResult is the outcome of one Allow call.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds; set when not allowed
}

// RateLimitExceededResponse is the 429 body.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// NewIPRateLimitKey keys a class by client address.
func NewIPRateLimitKey(class EndpointClass, ip string) string {
	return "ratelimit:" + string(class) + ":ip:" + ip
}

// NewUserRateLimitKey keys a class by authenticated user.
func NewUserRateLimitKey(class EndpointClass, userID string) string {
	return "ratelimit:" + string(class) + ":user:" + userID
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, at least 1.
func RetryAfterSeconds(resetAt, now time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 1
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
