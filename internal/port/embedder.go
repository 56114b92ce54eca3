package port

import (
	"context"

	"supportkb/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex answers k-nearest-neighbor queries over a fixed set of vectors.
// Position i in the index corresponds to the i-th vector it was built from.
type VectorIndex interface {
	// Search returns up to k neighbors ordered by ascending distance.
	Search(query []float32, k int) ([]domain.Neighbor, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Dimension returns the vector dimension, or 0 for an empty index.
	Dimension() int
}

// IndexBuilder builds a fresh VectorIndex from vectors.
type IndexBuilder func(vectors [][]float32) (VectorIndex, error)
