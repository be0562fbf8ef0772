package cache

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/zeromicro/go-zero/core/syncx"
)

// NullCacheValue marks a key whose source has no row.
const NullCacheValue = "$NULL$"

// loads collapses concurrent misses on the same key into one fn call per process.
var loads = syncx.NewSingleFlight()

// GetWithCached is a read-through lookup of key.
//
// A hit is unmarshalled and returned. An entry that fails to unmarshal is treated as a miss.
// On a miss fn runs once per key even under concurrent callers; its result is stored under ttl,
// or as NullCacheValue under emptyTTL when isEmpty reports it, in which case the zero T is returned.
// Cache errors never fail the lookup.
//
//	problem, err := GetWithCached(ctx, c, "problem:two-sum", time.Hour, 5*time.Minute,
//		func(p *Problem) bool { return p == nil },
//		marshalProblem,
//		unmarshalProblem,
//		func(ctx context.Context) (*Problem, error) { return loadProblem(ctx, "two-sum") })
func GetWithCached[T any](
	ctx context.Context,
	cache Cache,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	isEmpty func(T) bool,
	marshal func(T) string,
	unmarshal func(string) (T, error),
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T
	if hit, found := lookup(ctx, cache, key, unmarshal); found {
		return hit, nil
	}

	v, err := loads.Do(key, func() (any, error) {
		data, err := fn(ctx)
		if err != nil {
			return zero, err
		}
		if isEmpty(data) {
			_ = cache.Set(ctx, key, NullCacheValue, emptyTTL)
			return zero, nil
		}
		_ = cache.Set(ctx, key, marshal(data), ttl)
		return data, nil
	})
	if err != nil {
		return zero, err
	}
	data, _ := v.(T)
	return data, nil
}

func lookup[T any](ctx context.Context, cache Cache, key string, unmarshal func(string) (T, error)) (T, bool) {
	var zero T
	raw, err := cache.Get(ctx, key)
	switch {
	case err != nil || raw == "":
		return zero, false
	case raw == NullCacheValue:
		return zero, true
	}
	v, err := unmarshal(raw)
	if err != nil {
		return zero, false
	}
	return v, true
}

// Invalidate deletes keys and ignores cache errors. A nil cache is a no-op.
func Invalidate(ctx context.Context, cache Cache, keys ...string) {
	if cache == nil || len(keys) == 0 {
		return
	}
	_ = cache.Del(ctx, keys...)
}

// JitterTTL subtracts up to 10% of ttl at random so entries written together expire apart.
func JitterTTL(ttl time.Duration) time.Duration {
	spread := int64(ttl / 10)
	if spread <= 0 {
		return ttl
	}
	n, err := rand.Int(rand.Reader, big.NewInt(spread+1))
	if err != nil {
		return ttl
	}
	return ttl - time.Duration(n.Int64())
}
