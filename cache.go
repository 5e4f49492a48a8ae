package quarry

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache is the interface for caching compiled statements or query
// results. Users implement it with their preferred backend (Redis,
// Memcached, in-memory). Compilation is deterministic for identical
// inputs, which is what makes memoizing by Fingerprint sound.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// Fingerprint returns a deterministic cache key for the given
// operation, model and argument value. Arguments are encoded in a
// canonical form (maps with sorted keys) before hashing, so two
// structurally equal argument values always produce the same key.
func Fingerprint(operation, model string, args any) (string, error) {
	h := fnv.New64a()
	enc := msgpack.NewEncoder(h)
	enc.SetSortMapKeys(true)
	if err := enc.EncodeString(operation); err != nil {
		return "", fmt.Errorf("quarry: fingerprint: %w", err)
	}
	if err := enc.EncodeString(model); err != nil {
		return "", fmt.Errorf("quarry: fingerprint: %w", err)
	}
	if err := enc.Encode(canonical(args)); err != nil {
		return "", fmt.Errorf("quarry: fingerprint: %w", err)
	}
	return fmt.Sprintf("%s:%s:%016x", model, operation, h.Sum64()), nil
}

// canonical rewrites nested maps into key-sorted slices of pairs, so
// the msgpack encoding does not depend on map iteration order for
// nested values either.
func canonical(v any) any {
	switch v := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]any, 0, len(v)*2)
		for _, k := range keys {
			pairs = append(pairs, k, canonical(v[k]))
		}
		return pairs
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = canonical(v[i])
		}
		return out
	default:
		return v
	}
}
