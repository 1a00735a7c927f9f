// Package memorylimiter provides a fixed-window, per-key rate limiter for
// single-process deployments.
package memorylimiter

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Limit configures one named bucket: at most Limit hits per Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter counts hits in an expiring in-memory cache; a window resets by
// entry eviction rather than explicit bookkeeping.
type Limiter struct {
	limits map[string]Limit
	c      *gocache.Cache
}

func New(limits map[string]Limit) *Limiter {
	return &Limiter{
		limits: limits,
		c:      gocache.New(gocache.NoExpiration, time.Minute),
	}
}

// AllowNamed reports whether key has budget left in bucket. Unknown buckets
// fall back to the "default" limit and allow when none is configured.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	lim, ok := l.limits[bucket]
	if !ok {
		lim, ok = l.limits["default"]
	}
	if !ok || lim.Limit <= 0 {
		return true, nil
	}
	ck := bucket + "|" + key
	if err := l.c.Add(ck, int64(1), lim.Window); err == nil {
		return true, nil
	}
	n, err := l.c.IncrementInt64(ck, 1)
	if err != nil {
		// Entry expired between Add and Increment; treat as a fresh window.
		return true, nil
	}
	return n <= int64(lim.Limit), nil
}
