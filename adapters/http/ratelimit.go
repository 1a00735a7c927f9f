package authhttp

import (
	"net"
	"net/http"
	"time"

	memorylimiter "github.com/open-rails/authgate/ratelimit/memory"
)

// RateLimiter is a minimal interface used by the handlers.
type RateLimiter interface {
	AllowNamed(bucket string, key string) (bool, error)
}

// Bucket names used by authgate endpoints.
const (
	RLLogin    = "auth_login"
	RLCallback = "auth_callback"
)

// Limit configures a named rate limit bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// DefaultRateLimits returns authgate's built-in per-endpoint limits, enforced
// per client IP. Hosts can override with WithRateLimiter or switch limiting
// off with DisableRateLimiter.
func DefaultRateLimits() map[string]Limit {
	return map[string]Limit{
		"default":  {Limit: 120, Window: time.Minute},
		RLLogin:    {Limit: 30, Window: 10 * time.Minute},
		RLCallback: {Limit: 60, Window: 10 * time.Minute},
	}
}

func ToMemoryLimits(in map[string]Limit) map[string]memorylimiter.Limit {
	out := make(map[string]memorylimiter.Limit, len(in))
	for k, v := range in {
		out[k] = memorylimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
