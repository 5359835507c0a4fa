// Package embcache keeps embedding vectors in Valkey so reruns over the same
// FAQ collection do not pay for the provider again.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/faqindex/internal/db"
	"github.com/kailas-cloud/faqindex/internal/domain"
)

const cacheKeyPrefix = "faqindex:emb_cache:"

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder serves vectors from the cache namespace of one model and
// falls back to the inner embedder on a miss.
type CachedEmbedder struct {
	inner     domain.Embedder
	store     store
	namespace string
	dims      int
	lookups   *prometheus.CounterVec
	logger    *zap.Logger
}

// New wraps inner with a cache in s under the namespace of model.
// lookups has a "result" label ("hit"/"miss") and may be nil.
func New(
	inner domain.Embedder,
	s store,
	model string,
	lookups *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:     inner,
		store:     s,
		namespace: cacheKeyPrefix + model + ":",
		lookups:   lookups,
		logger:    logger.With(zap.String("cache_namespace", cacheKeyPrefix+model)),
	}
}

// WithDimensions makes entries of any other size count as misses.
func (c *CachedEmbedder) WithDimensions(n int) *CachedEmbedder {
	c.dims = n
	return c
}

// Embed serves text from the cache or asks the inner embedder and stores the result.
// Hits carry no token usage. A failing cache never fails the call.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	if err := c.store.Set(ctx, key, encodeVector(result.Embedding)); err != nil {
		c.logger.Warn("Embedding not cached", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.namespace + hex.EncodeToString(sum[:])
}

// lookup returns the cached vector for key. Missing, unreadable and
// wrong-sized entries are misses.
func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		c.logger.Debug("Embedding cache miss", zap.String("key", key))
		return nil, false
	case err != nil:
		c.logger.Warn("Embedding cache unavailable", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decodeVector(data, c.dims)
	if err != nil {
		c.logger.Warn("Discarding cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) count(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}
