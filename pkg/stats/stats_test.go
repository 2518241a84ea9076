package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptive(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	assert.Equal(t, 2.5, Mean(x))
	assert.Equal(t, 1.25, Variance(x))
	assert.InDelta(t, math.Sqrt(1.25), Std(x), 1e-12)
	assert.Equal(t, 2.5, Median(x))
	lo, hi := MinMax(x)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 4.0, hi)
	assert.Equal(t, 0.0, Mean(nil))
}

func TestPercentile(t *testing.T) {
	x := []float64{10, 20, 30, 40, 50}
	assert.Equal(t, 10.0, Percentile(x, 0))
	assert.Equal(t, 20.0, Percentile(x, 25))
	assert.Equal(t, 30.0, Percentile(x, 50))
	assert.Equal(t, 50.0, Percentile(x, 100))
	assert.Equal(t, 0.0, Percentile(nil, 50))
	// input left untouched
	assert.Equal(t, []float64{10, 20, 30, 40, 50}, x)
}

func TestDescribeSkipsNaN(t *testing.T) {
	s := Describe([]float64{5, math.NaN(), 1, 3})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Mean)

	assert.Equal(t, Summary{}, Describe([]float64{math.NaN()}))
}

func TestStandardScaler(t *testing.T) {
	X := [][]float64{
		{1, 10, 7},
		{3, 30, 7},
	}
	s := NewStandardScaler()
	out, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 20, 7}, s.Mean)
	assert.Equal(t, []float64{1, 10, 1}, s.Std)
	assert.Equal(t, []float64{-1, -1, 0}, out[0])
	assert.Equal(t, []float64{1, 1, 0}, out[1])
	assert.True(t, s.Fitted())
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScaler()
	assert.Error(t, s.Fit(nil))
	assert.Error(t, s.Fit([][]float64{{1, 2}, {3}}))

	unfitted := NewStandardScaler()
	X := [][]float64{{1}}
	assert.Equal(t, X, unfitted.Transform(X))
}
