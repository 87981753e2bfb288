package translate

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"voice-order-service/internal/service/language"
)

const DefaultCacheSize = 100

type cacheKey struct {
	text     string
	src, dst language.Tag
}

// Cached wraps a Translator with a bounded least-recently-used cache.
// Only successful translations are cached.
type Cached struct {
	next  Translator
	cache *lru.Cache[cacheKey, string]
}

func NewCached(next Translator, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, string](size)
	if err != nil {
		return nil, fmt.Errorf("create translation cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Translate(ctx context.Context, text string, src, dst language.Tag) (string, error) {
	key := cacheKey{text: text, src: src, dst: dst}
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.next.Translate(ctx, text, src, dst)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, v)
	return v, nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.Len()
}
