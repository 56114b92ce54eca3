package index

import (
	"fmt"
	"sort"

	"supportkb/internal/domain"
	"supportkb/internal/port"
)

// FlatL2 is an exhaustive index over squared Euclidean distance.
// Vectors are stored contiguously in build order and never mutated after Build,
// so a FlatL2 is safe for concurrent searches.
type FlatL2 struct {
	dimension int
	count     int
	data      []float32
}

// Build creates a new index from vectors. An empty input yields a valid empty index.
func Build(vectors [][]float32) (*FlatL2, error) {
	if len(vectors) == 0 {
		return &FlatL2{}, nil
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("build index: vector 0 is empty")
	}

	data := make([]float32, 0, dim*len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("build index: vector %d has dimension %d, expected %d: %w", i, len(v), dim, domain.ErrDimensionMismatch)
		}
		data = append(data, v...)
	}

	return &FlatL2{
		dimension: dim,
		count:     len(vectors),
		data:      data,
	}, nil
}

// Builder adapts Build to port.IndexBuilder.
func Builder(vectors [][]float32) (port.VectorIndex, error) {
	return Build(vectors)
}

// Search returns up to k neighbors ordered by ascending squared L2 distance.
// Equal distances keep insertion order.
func (f *FlatL2) Search(query []float32, k int) ([]domain.Neighbor, error) {
	if f.count == 0 || k <= 0 {
		return []domain.Neighbor{}, nil
	}
	if len(query) != f.dimension {
		return nil, fmt.Errorf("query dimension %d, index dimension %d: %w", len(query), f.dimension, domain.ErrDimensionMismatch)
	}

	neighbors := make([]domain.Neighbor, f.count)
	for i := 0; i < f.count; i++ {
		neighbors[i] = domain.Neighbor{
			Position: i,
			Distance: squaredL2(query, f.vector(i)),
		}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})

	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k], nil
}

func (f *FlatL2) Len() int {
	return f.count
}

func (f *FlatL2) Dimension() int {
	return f.dimension
}

func (f *FlatL2) vector(i int) []float32 {
	start := i * f.dimension
	return f.data[start : start+f.dimension]
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
