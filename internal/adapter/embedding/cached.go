package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"supportkb/internal/domain"
	"supportkb/internal/port"
)

// CachedEmbedder memoizes embeddings per model and text. Only texts missing
// from the cache are sent to the wrapped embedder.
type CachedEmbedder struct {
	inner   port.Embedder
	mu      sync.RWMutex
	cache   map[string][]float32
	maxSize int
}

func NewCachedEmbedder(inner port.Embedder, maxSize int) *CachedEmbedder {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &CachedEmbedder{
		inner:   inner,
		cache:   make(map[string][]float32),
		maxSize: maxSize,
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	c.mu.RLock()
	for i, text := range texts {
		if vec, ok := c.cache[c.key(text)]; ok {
			results[i] = vec
		} else {
			missing = append(missing, text)
			missingIdx = append(missingIdx, i)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return results, nil
	}

	fresh, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts: %w", len(fresh), len(missing), domain.ErrEmbeddingCount)
	}

	c.mu.Lock()
	for j, idx := range missingIdx {
		results[idx] = fresh[j]
		if len(c.cache) < c.maxSize {
			c.cache[c.key(missing[j])] = fresh[j]
		}
	}
	c.mu.Unlock()

	return results, nil
}

func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

func (c *CachedEmbedder) ModelName() string {
	return c.inner.ModelName()
}

// Size returns the number of cached vectors.
func (c *CachedEmbedder) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(c.inner.ModelName() + ":" + text))
	return hex.EncodeToString(h[:16])
}

// EmbedText embeds a single text.
func EmbedText(ctx context.Context, e port.Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 text: %w", len(vectors), domain.ErrEmbeddingCount)
	}
	return vectors[0], nil
}
