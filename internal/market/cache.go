package market

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/rs/zerolog/log"
)

// SnapshotStore persists market lookup payloads between inspections.
type SnapshotStore interface {
	GetMarketCache(key string) (string, bool, error)
	SetMarketCache(key, payload string) error
}

// CachedSource wraps a Source with persistent caching, so repeated
// inspections of the same device don't re-scrape. Cache problems degrade to
// a live lookup, never to an error.
type CachedSource struct {
	inner Source
	store SnapshotStore
}

func NewCachedSource(inner Source, store SnapshotStore) *CachedSource {
	return &CachedSource{inner: inner, store: store}
}

func (c *CachedSource) Name() string {
	return c.inner.Name()
}

func (c *CachedSource) Query(ctx context.Context, brand, model, storage string) (string, error) {
	key := cacheKey(c.inner.Name(), brand, model, storage)

	if c.store != nil {
		payload, hit, err := c.store.GetMarketCache(key)
		if err != nil {
			log.Warn().Err(err).Str("tool", c.inner.Name()).Msg("failed to check market cache")
		} else if hit {
			log.Debug().Str("tool", c.inner.Name()).Str("key", key[:16]).Msg("market cache hit")
			return payload, nil
		}
	}

	result, err := c.inner.Query(ctx, brand, model, storage)
	if err != nil {
		return "", err
	}

	if c.store != nil {
		if err := c.store.SetMarketCache(key, result); err != nil {
			log.Warn().Err(err).Str("tool", c.inner.Name()).Msg("failed to cache market lookup")
		}
	}
	return result, nil
}

// cacheKey hashes the lookup parameters. Fields are NUL-separated to
// prevent boundary collisions.
func cacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		io.WriteString(h, p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
