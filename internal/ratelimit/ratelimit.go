package ratelimit

import "context"

// Limiter decides whether an identity may perform another action right now.
//
// Implementations enforce a window fixed at construction (5 actions per
// minute here); the redis-backed one shares state across server instances,
// the in-memory one is per-process.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
