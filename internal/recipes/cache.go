package recipes

import (
	"context"
	"sync"
)

// Cache key namespaces derived from a recipe. Listing keys are invalidated
// wholesale because any recipe mutation can reorder them.
const (
	cacheKeyRecipeIDPrefix   = "recipe:id:"
	cacheKeyRecipeSlugPrefix = "recipe:slug:"
	cacheKeyLatestList       = "recipes:latest"
	cacheKeyPopularList      = "recipes:popular"
)

// Invalidator drops cached entries after a write commits. Implementations
// must tolerate unknown keys; failures are logged by the caller, never
// propagated to the write response.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// CacheKeys derives every cache key a recipe mutation must invalidate.
func CacheKeys(recipeID, slug string) []string {
	return []string{
		cacheKeyRecipeIDPrefix + recipeID,
		cacheKeyRecipeSlugPrefix + slug,
		cacheKeyLatestList,
		cacheKeyPopularList,
	}
}

type nopInvalidator struct{}

// NewNopInvalidator returns an Invalidator that drops nothing, for
// deployments without a cache tier.
func NewNopInvalidator() Invalidator {
	return nopInvalidator{}
}

func (nopInvalidator) Invalidate(context.Context, ...string) error {
	return nil
}

// MemoryCache is a process-local key/value cache with invalidation. It backs
// single-node deployments; the external cache tier satisfies the same
// Invalidator contract.
type MemoryCache struct {
	entries sync.Map
}

// NewMemoryCache constructs an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Set stores a value under the key.
func (c *MemoryCache) Set(key string, value any) {
	c.entries.Store(key, value)
}

// Get loads a cached value if present.
func (c *MemoryCache) Get(key string) (any, bool) {
	return c.entries.Load(key)
}

// Invalidate drops the provided keys.
func (c *MemoryCache) Invalidate(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.entries.Delete(key)
	}
	return nil
}
