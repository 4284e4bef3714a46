package linear

import (
	"math"
	"math/rand"

	"github.com/baajur/omikuji/sparse"
	"github.com/bits-and-blooms/bitset"
)

// Problem is one binary training problem: a set of sparse examples and
// the subset of them that are positives. Examples are expected to be
// L2-normalized with a trailing bias feature at index dim-1.
type Problem struct {
	Examples  []sparse.Vector
	Positives *bitset.BitSet
	Dim       int
}

// Train fits a classifier to the problem. The rng drives the randomized
// coordinate ordering; a fixed seed makes the fit deterministic. A
// degenerate problem (no positives or no negatives) yields a trivial
// bias-only classifier instead of an error.
func Train(prob *Problem, opts Options, rng *rand.Rand) Classifier {
	n := len(prob.Examples)
	nPos := int(prob.Positives.Count())

	if nPos == 0 || nPos == n {
		bias := float32(1)
		if nPos == 0 {
			bias = -1
		}
		return NewSparse(sparse.Vector{
			Indices: []uint32{uint32(prob.Dim - 1)},
			Values:  []float32{bias},
		})
	}

	var w []float32
	switch opts.Loss {
	case Log:
		w = solveLogDual(prob, opts, rng)
	default:
		w = solveHingeDual(prob, opts, rng)
	}

	return store(w, opts)
}

// store prunes near-zero weights and picks the storage form by the
// resulting non-zero density.
func store(w []float32, opts Options) Classifier {
	nnz := 0
	for i, x := range w {
		if x < opts.WeightThreshold && x > -opts.WeightThreshold {
			w[i] = 0
		} else {
			nnz++
		}
	}

	density := float32(nnz) / float32(len(w))
	if density > opts.MaxSparseDensity {
		return NewDense(w)
	}
	return NewSparse(sparse.Gather(w, 0))
}

// solveHingeDual runs dual coordinate descent for L1-loss SVC
// (one dual variable per example, bounded in [0, C]).
func solveHingeDual(prob *Problem, opts Options, rng *rand.Rand) []float32 {
	n := len(prob.Examples)
	w := make([]float32, prob.Dim)
	alpha := make([]float32, n)
	c := opts.C

	// Q_ii = x_i . x_i, constant across iterations.
	qd := make([]float32, n)
	for i, x := range prob.Examples {
		qd[i] = x.SquaredNorm()
	}

	order := seqIndices(n)

	for iter := 0; iter < opts.MaxIter; iter++ {
		shuffle(order, rng)

		pgMax := float32(math.Inf(-1))
		pgMin := float32(math.Inf(1))

		for _, i := range order {
			x := prob.Examples[i]
			y := label(prob.Positives, i)

			g := y*x.DotDense(w) - 1

			// Projected gradient respecting the box constraint.
			var pg float32
			switch {
			case alpha[i] == 0:
				if g < 0 {
					pg = g
				}
			case alpha[i] == c:
				if g > 0 {
					pg = g
				}
			default:
				pg = g
			}

			if pg > pgMax {
				pgMax = pg
			}
			if pg < pgMin {
				pgMin = pg
			}

			if pg != 0 && qd[i] > 0 {
				old := alpha[i]
				a := old - g/qd[i]
				if a < 0 {
					a = 0
				} else if a > c {
					a = c
				}
				alpha[i] = a
				if d := (a - old) * y; d != 0 {
					x.ScatterInto(w, d)
				}
			}
		}

		if pgMax-pgMin < opts.Eps {
			break
		}
	}

	return w
}

// solveLogDual runs dual coordinate descent for logistic regression.
// Each example carries a dual pair (alpha, C-alpha); coordinate updates
// are damped Newton steps on the dual objective.
func solveLogDual(prob *Problem, opts Options, rng *rand.Rand) []float32 {
	const (
		maxInnerIter = 100
		eta          = 0.1
	)
	n := len(prob.Examples)
	w := make([]float32, prob.Dim)
	c := float64(opts.C)

	innerEps := 1e-2
	if e := float64(opts.Eps) * 0.1; e < innerEps {
		innerEps = e
	}

	alpha := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		a := math.Min(0.001*c, 1e-8)
		alpha[2*i] = a
		alpha[2*i+1] = c - a
	}

	qd := make([]float64, n)
	for i, x := range prob.Examples {
		qd[i] = float64(x.SquaredNorm())
	}

	order := seqIndices(n)

	for iter := 0; iter < opts.MaxIter; iter++ {
		shuffle(order, rng)

		var gMax float64

		for _, i := range order {
			x := prob.Examples[i]
			y := label(prob.Positives, i)

			ywx := float64(y * x.DotDense(w))
			a := qd[i]
			b := ywx

			ind1, ind2 := 2*i, 2*i+1
			sign := 1.0
			if 0.5*a*(alpha[ind2]-alpha[ind1])+b < 0 {
				ind1, ind2 = ind2, ind1
				sign = -1
			}

			alphaOld := alpha[ind1]
			z := alphaOld
			if c-z < 0.5*c {
				z *= 0.1
			}

			gp := a*(z-alphaOld) + sign*b + math.Log(z/(c-z))
			if g := math.Abs(gp); g > gMax {
				gMax = g
			}

			inner := 0
			for inner <= maxInnerIter && math.Abs(gp) >= innerEps {
				gpp := a + c/(c-z)/z
				tmpz := z - gp/gpp
				if tmpz <= 0 {
					z *= eta
				} else {
					z = tmpz
				}
				gp = a*(z-alphaOld) + sign*b + math.Log(z/(c-z))
				inner++
			}

			if inner > 0 {
				alpha[ind1] = z
				alpha[ind2] = c - z
				if d := float32(sign*(z-alphaOld)) * y; d != 0 {
					x.ScatterInto(w, d)
				}
			}
		}

		if gMax < float64(opts.Eps) {
			break
		}
	}

	return w
}

func label(positives *bitset.BitSet, i int) float32 {
	if positives.Test(uint(i)) {
		return 1
	}
	return -1
}

func seqIndices(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// shuffle is a Fisher-Yates pass driven by the caller's rng.
func shuffle(order []int, rng *rand.Rand) {
	for i := len(order) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
}
