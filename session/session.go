// Package session holds the per-browser state authgate needs across the
// login redirect round trip: the originally requested path and the cached
// credentials.
package session

import (
	"context"
	"net/http"
	"time"
)

// Session is the narrow per-browser view of the session store. Only the two
// fields authgate owns are exposed, never an open-ended key/value map, so
// host features cannot collide on session keys.
//
// Two concurrent requests from the same browser race on these fields; the
// store below provides no read-modify-write serialization.
type Session interface {
	Destination(ctx context.Context) (string, bool, error)
	SetDestination(ctx context.Context, path string) error
	Credentials(ctx context.Context) (map[string]any, bool, error)
	SetCredentials(ctx context.Context, creds map[string]any) error
}

// Manager binds an inbound request to its Session, creating a fresh one when
// the browser has no valid cookie yet.
type Manager interface {
	Load(w http.ResponseWriter, r *http.Request) (Session, error)
}

// KV is the storage contract session entries live behind. The store is the
// authority on expiry and eviction; sessions are never deleted from here.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
