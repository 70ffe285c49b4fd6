package cachestore

import (
	"context"
)

// Values are opaque strings. A miss is not an error.
type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, bool, error)
	Set(ctx context.Context, name, key string, val string) error
}
