// Package sparse provides vector algebra over index/value sparse vectors.
// Feature and weight vectors in this module are sparse almost everywhere;
// the kernels here are the foundation for classifier training, clustering
// and prediction.
package sparse

import "math"

// Vector is a sparse vector stored as parallel index/value slices.
// Indices are strictly increasing and unique. The zero value is the
// empty vector.
type Vector struct {
	Indices []uint32
	Values  []float32
}

// Len returns the number of non-zero components.
func (v Vector) Len() int { return len(v.Indices) }

// Clone returns a deep copy of v.
func (v Vector) Clone() Vector {
	out := Vector{
		Indices: make([]uint32, len(v.Indices)),
		Values:  make([]float32, len(v.Values)),
	}
	copy(out.Indices, v.Indices)
	copy(out.Values, v.Values)
	return out
}

// DotDense computes the dot product of v against a dense vector.
// Indices beyond len(dense) are ignored (treated as zero).
func (v Vector) DotDense(dense []float32) float32 {
	var sum float32
	n := uint32(len(dense))
	for i, idx := range v.Indices {
		if idx >= n {
			continue
		}
		sum += v.Values[i] * dense[idx]
	}
	return sum
}

// Dot computes the dot product of two sparse vectors by merging their
// index sequences.
func Dot(a, b Vector) float32 {
	var sum float32
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] < b.Indices[j]:
			i++
		case a.Indices[i] > b.Indices[j]:
			j++
		default:
			sum += a.Values[i] * b.Values[j]
			i++
			j++
		}
	}
	return sum
}

// SquaredNorm returns the squared L2 norm of v.
func (v Vector) SquaredNorm() float32 {
	var sum float32
	for _, x := range v.Values {
		sum += x * x
	}
	return sum
}

// Norm returns the L2 norm of v.
func (v Vector) Norm() float32 {
	return float32(math.Sqrt(float64(v.SquaredNorm())))
}

// NormalizeInPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm, in which case v is unchanged.
func (v Vector) NormalizeInPlace() bool {
	norm := v.Norm()
	if norm == 0 {
		return false
	}
	inv := 1 / norm
	for i := range v.Values {
		v.Values[i] *= inv
	}
	return true
}

// ScatterInto adds scale*v into the dense accumulator.
// The accumulator must be long enough to hold every index of v.
func (v Vector) ScatterInto(dense []float32, scale float32) {
	for i, idx := range v.Indices {
		dense[idx] += v.Values[i] * scale
	}
}

// Densify expands v into a freshly allocated dense vector of the given
// length. Indices beyond the length are dropped.
func (v Vector) Densify(length int) []float32 {
	dense := make([]float32, length)
	n := uint32(length)
	for i, idx := range v.Indices {
		if idx >= n {
			continue
		}
		dense[idx] = v.Values[i]
	}
	return dense
}

// Gather converts a dense vector into sparse form, keeping components
// whose absolute value is strictly greater than threshold.
func Gather(dense []float32, threshold float32) Vector {
	var nnz int
	for _, x := range dense {
		if abs(x) > threshold {
			nnz++
		}
	}
	out := Vector{
		Indices: make([]uint32, 0, nnz),
		Values:  make([]float32, 0, nnz),
	}
	for i, x := range dense {
		if abs(x) > threshold {
			out.Indices = append(out.Indices, uint32(i))
			out.Values = append(out.Values, x)
		}
	}
	return out
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
