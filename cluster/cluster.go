// Package cluster partitions label sets into two balanced halves by
// iterative balanced k-means over label centroid vectors. The split is
// the structural step of label tree construction: it is invoked once
// per internal node and dominates tree-building cost.
package cluster

import (
	"math"
	"math/rand"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/baajur/omikuji/sparse"
)

// Options configure a single balanced split.
type Options struct {
	// Eps stops iterating when the mean assignment similarity improves
	// by less than this amount.
	Eps float32

	// MaxIter is the safety-valve iteration cap. Hitting it is not an
	// error; the best assignment so far is used.
	MaxIter int

	// CentroidThreshold prunes components of the recomputed cluster
	// means whose absolute value is at or below it.
	CentroidThreshold float32
}

// DefaultOptions are the clustering defaults.
var DefaultOptions = Options{
	Eps:               1e-4,
	MaxIter:           50,
	CentroidThreshold: 0.0,
}

// Split partitions labels into two clusters differing in size by at
// most one. centroids[i] is the (L2-normalized) centroid of labels[i]
// over a feature space of the given dimension. The rng seeds the two
// initial means; a fixed seed makes the split deterministic.
//
// The returned sets are disjoint, union to the input, and satisfy
// |len(a)-len(b)| <= 1.
func Split(labels []uint32, centroids []sparse.Vector, dim int, opts Options, rng *rand.Rand) (*roaring.Bitmap, *roaring.Bitmap) {
	n := len(labels)
	if n < 2 {
		// Degenerate input; nothing to balance.
		left := roaring.New()
		for _, l := range labels {
			left.Add(l)
		}
		return left, roaring.New()
	}

	// Initialize means from two distinct random labels.
	i0 := rng.Intn(n)
	i1 := rng.Intn(n - 1)
	if i1 >= i0 {
		i1++
	}
	means := [2][]float32{make([]float32, dim), make([]float32, dim)}
	centroids[i0].ScatterInto(means[0], 1)
	centroids[i1].ScatterInto(means[1], 1)

	nLeft := (n + 1) / 2

	type ranked struct {
		pos  int
		diff float32
		sim  [2]float32
	}
	order := make([]ranked, n)

	prevAvgSim := float32(math.Inf(-1))

	maxIter := opts.MaxIter
	if maxIter < 1 {
		maxIter = 1
	}

	for iter := 0; iter < maxIter; iter++ {
		for i, c := range centroids {
			s0 := c.DotDense(means[0])
			s1 := c.DotDense(means[1])
			order[i] = ranked{pos: i, diff: s0 - s1, sim: [2]float32{s0, s1}}
		}

		// Balance-enforcing assignment: labels with the largest
		// preference gap claim their side first; once a side holds
		// ceil(n/2) members the remainder go to the other. Sorting by
		// gap with a positional tie-break keeps the rule deterministic.
		sort.SliceStable(order, func(i, j int) bool {
			if order[i].diff != order[j].diff {
				return order[i].diff > order[j].diff
			}
			return order[i].pos < order[j].pos
		})

		var totalSim float32
		for i, r := range order {
			if i < nLeft {
				totalSim += r.sim[0]
			} else {
				totalSim += r.sim[1]
			}
		}
		avgSim := totalSim / float32(n)

		if avgSim-prevAvgSim < opts.Eps {
			break
		}
		prevAvgSim = avgSim

		// Recompute means as pruned, normalized averages of members.
		for side := 0; side < 2; side++ {
			clear(means[side])
		}
		for i, r := range order {
			side := 0
			if i >= nLeft {
				side = 1
			}
			centroids[r.pos].ScatterInto(means[side], 1)
		}
		counts := [2]int{nLeft, n - nLeft}
		for side := 0; side < 2; side++ {
			scale := 1 / float32(counts[side])
			t := opts.CentroidThreshold
			for d := range means[side] {
				v := means[side][d] * scale
				if t > 0 && v < t && v > -t {
					v = 0
				}
				means[side][d] = v
			}
			normalize(means[side])
		}
	}

	left, right := roaring.New(), roaring.New()
	for i, r := range order {
		if i < nLeft {
			left.Add(labels[r.pos])
		} else {
			right.Add(labels[r.pos])
		}
	}
	return left, right
}

func normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := 1 / float32(math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
