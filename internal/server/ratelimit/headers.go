package ratelimit

import (
	"math"
	"net/http"
	"strconv"
)

// SetHeaders describes the client's budget in h: X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset (Unix seconds), plus
// Retry-After when the request was refused. Call it before the first write.
func (r *Result) SetHeaders(h http.Header) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt.Unix(), 10))
	if r.Allowed {
		h.Del("Retry-After")
		return
	}
	h.Set("Retry-After", strconv.Itoa(r.RetryAfterSeconds()))
}

// RetryAfterSeconds is RetryAfter in whole seconds, rounded up and at least one.
func (r *Result) RetryAfterSeconds() int {
	return max(int(math.Ceil(r.RetryAfter.Seconds())), 1)
}
