package usecase

import (
	"context"
	"time"
)

// Cache is the read-side cache surface the usecases need; satisfied by the
// redis client and by nil-safe fakes in tests.
type Cache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}
