package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedIndex fronts a DocumentIndex with a TTL read cache. Several
// stages re-read the same cue document during one run; the cache keeps
// those reads local. Writes go straight through and refresh the entry.
type CachedIndex struct {
	inner DocumentIndex
	cache *gocache.Cache
}

func NewCachedIndex(inner DocumentIndex, ttl time.Duration) *CachedIndex {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedIndex{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func cacheKey(category, uuid string) string {
	return category + "/" + uuid
}

func (c *CachedIndex) GetDocument(ctx context.Context, category, uuid string) (IndexedDocument, error) {
	if hit, ok := c.cache.Get(cacheKey(category, uuid)); ok {
		return hit.(IndexedDocument), nil
	}
	doc, err := c.inner.GetDocument(ctx, category, uuid)
	if err != nil {
		return IndexedDocument{}, err
	}
	c.cache.Set(cacheKey(category, uuid), doc, gocache.DefaultExpiration)
	return doc, nil
}

func (c *CachedIndex) IndexDocument(ctx context.Context, category, uuid string, doc IndexedDocument) error {
	if err := c.inner.IndexDocument(ctx, category, uuid, doc); err != nil {
		return err
	}
	c.cache.Set(cacheKey(category, uuid), doc, gocache.DefaultExpiration)
	return nil
}
