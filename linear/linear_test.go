package linear

import (
	"math"
	"math/rand"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baajur/omikuji/sparse"
)

// separableProblem has positives on feature 0 and negatives on
// feature 1, both with the bias feature at index 2.
func separableProblem() *Problem {
	inv := float32(1 / math.Sqrt2)
	examples := []sparse.Vector{
		{Indices: []uint32{0, 2}, Values: []float32{inv, inv}},
		{Indices: []uint32{0, 2}, Values: []float32{inv, inv}},
		{Indices: []uint32{1, 2}, Values: []float32{inv, inv}},
		{Indices: []uint32{1, 2}, Values: []float32{inv, inv}},
	}
	positives := bitset.New(4)
	positives.Set(0)
	positives.Set(1)
	return &Problem{Examples: examples, Positives: positives, Dim: 3}
}

func TestTrain_SeparatesClasses(t *testing.T) {
	for _, loss := range []Loss{Hinge, Log} {
		t.Run(loss.String(), func(t *testing.T) {
			opts := DefaultOptions
			opts.Loss = loss
			opts.WeightThreshold = 0

			c := Train(separableProblem(), opts, rand.New(rand.NewSource(42)))

			inv := float32(1 / math.Sqrt2)
			pos := []float32{inv, 0, inv}
			neg := []float32{0, inv, inv}
			assert.Greater(t, c.Score(pos), c.Score(neg))
			assert.Positive(t, c.Score(pos))
			assert.Negative(t, c.Score(neg))
		})
	}
}

func TestTrain_NoPositives(t *testing.T) {
	prob := separableProblem()
	prob.Positives = bitset.New(4)

	c := Train(prob, DefaultOptions, rand.New(rand.NewSource(1)))

	require.True(t, c.IsSparse())
	w := c.SparseWeights()
	require.Equal(t, []uint32{2}, w.Indices)
	assert.Equal(t, []float32{-1}, w.Values)

	query := []float32{0.5, 0.5, 1}
	assert.Equal(t, float32(-1), c.Score(query))
}

func TestTrain_AllPositives(t *testing.T) {
	prob := separableProblem()
	for i := uint(0); i < 4; i++ {
		prob.Positives.Set(i)
	}

	c := Train(prob, DefaultOptions, rand.New(rand.NewSource(1)))

	query := []float32{0, 0, 1}
	assert.Equal(t, float32(1), c.Score(query))
}

func TestTrain_Deterministic(t *testing.T) {
	opts := DefaultOptions
	opts.WeightThreshold = 0

	a := Train(separableProblem(), opts, rand.New(rand.NewSource(7)))
	b := Train(separableProblem(), opts, rand.New(rand.NewSource(7)))

	query := []float32{0.3, 0.6, 1}
	assert.Equal(t, a.Score(query), b.Score(query))
}

func TestStorageForms_ScoreIdentically(t *testing.T) {
	prob := separableProblem()

	sparseOpts := DefaultOptions
	sparseOpts.WeightThreshold = 0
	sparseOpts.MaxSparseDensity = 1.0

	denseOpts := DefaultOptions
	denseOpts.WeightThreshold = 0
	denseOpts.MaxSparseDensity = 0

	cs := Train(prob, sparseOpts, rand.New(rand.NewSource(3)))
	cd := Train(prob, denseOpts, rand.New(rand.NewSource(3)))

	require.True(t, cs.IsSparse())
	require.False(t, cd.IsSparse())

	queries := [][]float32{
		{1, 0, 1},
		{0, 1, 1},
		{0.5, 0.5, 1},
		{0, 0, 1},
	}
	for _, q := range queries {
		assert.Equal(t, cd.Score(q), cs.Score(q))
	}
}

func TestWeightPruning(t *testing.T) {
	opts := DefaultOptions
	opts.WeightThreshold = 1000 // prunes everything
	opts.MaxSparseDensity = 1.0

	c := Train(separableProblem(), opts, rand.New(rand.NewSource(1)))

	require.True(t, c.IsSparse())
	assert.Zero(t, c.SparseWeights().Len())
	assert.Zero(t, c.Score([]float32{1, 1, 1}))
}

func TestLogLikelihood_Hinge(t *testing.T) {
	// Margin >= 1 is a confident correct answer: likelihood 1 (log 0).
	assert.Zero(t, Hinge.LogLikelihood(1))
	assert.Zero(t, Hinge.LogLikelihood(5))

	// -(1-m)^2 below the margin.
	assert.InDelta(t, -1.0, Hinge.LogLikelihood(0), 1e-6)
	assert.InDelta(t, -4.0, Hinge.LogLikelihood(-1), 1e-6)
	assert.InDelta(t, -0.25, Hinge.LogLikelihood(0.5), 1e-6)
}

func TestLogLikelihood_Log(t *testing.T) {
	// -ln(1+e^-m)
	assert.InDelta(t, -math.Log(2), float64(Log.LogLikelihood(0)), 1e-6)
	assert.InDelta(t, -math.Log(1+math.Exp(-2)), float64(Log.LogLikelihood(2)), 1e-6)

	// Monotone in the margin.
	assert.Greater(t, Log.LogLikelihood(3), Log.LogLikelihood(1))
	assert.Less(t, Log.LogLikelihood(-40), Log.LogLikelihood(-39))
}

func TestLossString(t *testing.T) {
	assert.Equal(t, "hinge", Hinge.String())
	assert.Equal(t, "log", Log.String())
}
