package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotDense(t *testing.T) {
	v := Vector{Indices: []uint32{0, 2, 5}, Values: []float32{1, 2, 3}}
	dense := []float32{1, 10, 2, 10, 10, 0.5}

	assert.InDelta(t, 1*1+2*2+3*0.5, v.DotDense(dense), 1e-6)
}

func TestDotDense_OutOfRangeIgnored(t *testing.T) {
	v := Vector{Indices: []uint32{0, 9}, Values: []float32{2, 100}}
	dense := []float32{3, 1}

	assert.InDelta(t, 6.0, v.DotDense(dense), 1e-6)
}

func TestDot(t *testing.T) {
	a := Vector{Indices: []uint32{1, 3, 7}, Values: []float32{1, 2, 3}}
	b := Vector{Indices: []uint32{0, 3, 7, 9}, Values: []float32{5, 4, 1, 2}}

	assert.InDelta(t, 2*4+3*1, Dot(a, b), 1e-6)
	assert.InDelta(t, Dot(a, b), Dot(b, a), 1e-6)
}

func TestDot_Disjoint(t *testing.T) {
	a := Vector{Indices: []uint32{0, 2}, Values: []float32{1, 1}}
	b := Vector{Indices: []uint32{1, 3}, Values: []float32{1, 1}}

	assert.Zero(t, Dot(a, b))
}

func TestNormalizeInPlace(t *testing.T) {
	v := Vector{Indices: []uint32{0, 1}, Values: []float32{3, 4}}

	require.True(t, v.NormalizeInPlace())
	assert.InDelta(t, 1.0, v.Norm(), 1e-6)
	assert.InDelta(t, 0.6, v.Values[0], 1e-6)
	assert.InDelta(t, 0.8, v.Values[1], 1e-6)
}

func TestNormalizeInPlace_ZeroVector(t *testing.T) {
	v := Vector{Indices: []uint32{0}, Values: []float32{0}}

	assert.False(t, v.NormalizeInPlace())
	assert.Zero(t, v.Values[0])
}

func TestGatherRoundTrip(t *testing.T) {
	dense := []float32{0, 1.5, 0, -0.2, 0, 3}
	v := Gather(dense, 0)

	assert.Equal(t, []uint32{1, 3, 5}, v.Indices)
	assert.Equal(t, dense, v.Densify(len(dense)))
}

func TestGather_Threshold(t *testing.T) {
	dense := []float32{0.05, -0.05, 0.5, -0.5}
	v := Gather(dense, 0.1)

	assert.Equal(t, []uint32{2, 3}, v.Indices)
	assert.Equal(t, []float32{0.5, -0.5}, v.Values)
}

func TestGather_ThresholdIsStrict(t *testing.T) {
	dense := []float32{0.1, 0.2}
	v := Gather(dense, 0.1)

	assert.Equal(t, []uint32{1}, v.Indices)
}

func TestScatterInto(t *testing.T) {
	acc := make([]float32, 4)
	v := Vector{Indices: []uint32{1, 3}, Values: []float32{2, 5}}

	v.ScatterInto(acc, 0.5)
	v.ScatterInto(acc, 0.5)

	assert.InDelta(t, 2.0, acc[1], 1e-6)
	assert.InDelta(t, 5.0, acc[3], 1e-6)
	assert.Zero(t, acc[0])
}

func TestClone(t *testing.T) {
	v := Vector{Indices: []uint32{0}, Values: []float32{1}}
	c := v.Clone()
	c.Values[0] = 9

	assert.Equal(t, float32(1), v.Values[0])
}
