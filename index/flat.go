// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package index

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
)

// Hit is a single search result.
type Hit struct {
	Distance float32
	Position int
}

// Searcher is a read-only vector index.
type Searcher interface {
	// Search returns up to k hits ordered by ascending distance.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Dimension returns the vector dimension, or 0 for an empty index.
	Dimension() int

	// Metric returns the distance metric.
	Metric() Metric
}

// Flat is an exact in-memory index that scans every row.
type Flat struct {
	metric Metric
	dim    int
	count  int
	data   []float32 // count rows of dim values
}

var _ Searcher = (*Flat)(nil)

// Build creates a flat index over vectors. Every vector must have the same
// non-zero length. Vectors are copied; with MetricCosine they are stored
// normalized.
func Build(vectors [][]float32, metric Metric) (*Flat, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}

	f := &Flat{metric: metric, count: len(vectors)}
	if len(vectors) == 0 {
		return f, nil
	}

	f.dim = len(vectors[0])
	if f.dim == 0 {
		return nil, fmt.Errorf("row 0: %w", ErrEmptyVector)
	}

	f.data = make([]float32, 0, f.dim*len(vectors))
	for i, v := range vectors {
		if len(v) != f.dim {
			return nil, fmt.Errorf("row %d: %w: expected %d, got %d", i, ErrDimensionMismatch, f.dim, len(v))
		}
		if metric == MetricCosine {
			v = NormalizeVector(v)
		}
		f.data = append(f.data, v...)
	}
	return f, nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int {
	return f.count
}

// Dimension returns the vector dimension.
func (f *Flat) Dimension() int {
	return f.dim
}

// Metric returns the distance metric.
func (f *Flat) Metric() Metric {
	return f.metric
}

// Row returns a copy of the stored vector at position.
func (f *Flat) Row(position int) []float32 {
	return slices.Clone(f.row(position))
}

func (f *Flat) row(position int) []float32 {
	return f.data[position*f.dim : (position+1)*f.dim]
}

// Search returns the min(k, Len()) nearest rows to query.
func (f *Flat) Search(_ context.Context, query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if f.count == 0 {
		return []Hit{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: index has %d, query has %d", ErrDimensionMismatch, f.dim, len(query))
	}

	if f.metric == MetricCosine {
		query = NormalizeVector(query)
	}

	hits := make([]Hit, f.count)
	for i := range hits {
		hits[i] = Hit{Distance: f.distance(query, f.row(i)), Position: i}
	}

	slices.SortFunc(hits, compareHits)

	return hits[:min(k, f.count)], nil
}

func (f *Flat) distance(query, row []float32) float32 {
	var d float32
	switch f.metric {
	case MetricL2:
		d = squaredL2(query, row)
	default:
		d = 1 - dotProduct(query, row)
	}
	if math.IsNaN(float64(d)) {
		return float32(math.Inf(1))
	}
	return d
}

func compareHits(a, b Hit) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(a.Position, b.Position)
}
