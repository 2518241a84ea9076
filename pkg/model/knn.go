package model

import (
	"errors"
	"math"
	"runtime"
	"sort"
	"sync"
)

// Neighbor is a training row index and its Euclidean distance to a query.
type Neighbor struct {
	Index    int
	Distance float64
}

// KNN stores encoded rows and answers nearest-neighbour queries. With 0/1
// labels, Predict returns the positive share among the K neighbours.
type KNN struct {
	K int
	X [][]float64
	y []float64
}

// NewKNN creates and returns a new KNN model.
func NewKNN(k int) *KNN {
	return &KNN{K: k}
}

// Fit stores the training data and labels.
func (m *KNN) Fit(X [][]float64, y []float64) error {
	if len(X) != len(y) {
		return errors.New("knn: the number of feature vectors must match the number of labels")
	}
	if m.K < 1 {
		return errors.New("knn: k must be at least 1")
	}
	m.X = X
	m.y = y
	return nil
}

// Neighbors returns up to K rows closest to xi, nearest first. Equal
// distances are ordered by row index so results are stable.
func (m *KNN) Neighbors(xi []float64) []Neighbor {
	type pair struct {
		d   float64
		idx int
	}
	less := func(a, b pair) bool {
		if a.d != b.d {
			return a.d < b.d
		}
		return a.idx < b.idx
	}

	nbrs := make([]pair, 0, m.K+1)
	for j, xj := range m.X {
		p := pair{d: euclidSquared(xi, xj), idx: j}
		if len(nbrs) < m.K {
			nbrs = append(nbrs, p)
			sort.Slice(nbrs, func(a, b int) bool { return less(nbrs[a], nbrs[b]) })
		} else if less(p, nbrs[len(nbrs)-1]) {
			nbrs[len(nbrs)-1] = p
			sort.Slice(nbrs, func(a, b int) bool { return less(nbrs[a], nbrs[b]) })
		}
	}

	out := make([]Neighbor, len(nbrs))
	for i, p := range nbrs {
		out[i] = Neighbor{Index: p.idx, Distance: math.Sqrt(p.d)}
	}
	return out
}

// Predict returns, for each row, the mean label of its K nearest neighbours.
// Rows are split across GOMAXPROCS workers.
func (m *KNN) Predict(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}

	out := make([]float64, len(X))
	var wg sync.WaitGroup
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, len(X))
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				out[i] = m.voteShare(m.Neighbors(X[i]))
			}
		}(start, end)
	}

	wg.Wait()
	return out
}

func (m *KNN) voteShare(nbrs []Neighbor) float64 {
	if len(nbrs) == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range nbrs {
		sum += m.y[n.Index]
	}
	return sum / float64(len(nbrs))
}

// euclidSquared computes the squared Euclidean distance between two vectors.
func euclidSquared(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
