package domain

import (
	"context"
	"time"
)

// EphemeralStore is the TTL-backed key/value store shared by all gateway
// processes. Get returns ErrKeyNotFound for a missing or expired key.
type EphemeralStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	ListAppend(ctx context.Context, key, value string, ttl time.Duration) error
	ListRemove(ctx context.Context, key, value string) error
	ListRange(ctx context.Context, key string) ([]string, error)
}

// AccountDirectory looks up accounts referenced by identity credentials.
type AccountDirectory interface {
	GetAccount(ctx context.Context, id int64) (*Account, error)
}
