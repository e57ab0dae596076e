// Package store is the shared KV/stream abstraction (spec §3, §5, §9): a
// keyed store supporting strings, hashes, sorted sets, sets, and TTLs. Every
// stateful component (windows, digests, counters, tracked-token membership)
// goes through this interface; per-token in-process estimators are hydrated
// from it and written back within the same job, never shared across workers.
package store

import (
	"context"
	"time"
)

// ZMember is one sorted-set entry.
type ZMember struct {
	Score  float64
	Member string
}

// Store is the backend-agnostic KV/stream interface. A Redis-backed
// implementation and an in-memory test double both satisfy it.
type Store interface {
	// Strings
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	// Hashes
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error

	// Sorted sets
	ZAdd(ctx context.Context, key string, members ...ZMember) error
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Sets
	SAdd(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key string, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error
}

// NegInf/PosInf bound a ZRangeByScore/ZRemRangeByScore to an open range.
const (
	NegInf = -1 << 62
	PosInf = 1 << 62
)
