package memorystore

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// KV is an in-memory key-value store with TTL support.
// It is only safe for single-process deployments.
type KV struct {
	c *gocache.Cache
}

func NewKV() *KV {
	return &KV{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	v, ok := k.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	d := gocache.NoExpiration
	if ttl > 0 {
		d = ttl
	}
	k.c.Set(key, append([]byte(nil), value...), d)
	return nil
}

func (k *KV) Del(ctx context.Context, key string) error {
	_ = ctx
	k.c.Delete(key)
	return nil
}
