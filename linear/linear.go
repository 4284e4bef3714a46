// Package linear fits L2-regularized binary linear classifiers to sparse
// feature vectors by coordinate descent in the dual, and evaluates them
// at prediction time. Supported losses are hinge (L1-loss SVC) and
// logistic regression, both solved without an explicit bias term: the
// caller appends a constant bias feature to every vector instead.
package linear

import (
	"math"

	"github.com/baajur/omikuji/sparse"
)

// Loss selects the loss function minimized by Train.
type Loss uint8

const (
	// Hinge is the L1 hinge loss (SVC).
	Hinge Loss = iota
	// Log is the logistic loss.
	Log
)

func (l Loss) String() string {
	switch l {
	case Hinge:
		return "hinge"
	case Log:
		return "log"
	default:
		return "unknown"
	}
}

// LogLikelihood maps a raw classifier margin to a log-likelihood score.
// Scores are non-positive and accumulate additively along tree paths.
func (l Loss) LogLikelihood(margin float32) float32 {
	switch l {
	case Log:
		m := float64(margin)
		if m < -30 {
			// -log1p(exp(-m)) ~ m for very negative margins
			return margin
		}
		return float32(-math.Log1p(math.Exp(-m)))
	default:
		d := 1 - margin
		if d <= 0 {
			return 0
		}
		return -d * d
	}
}

// Options are the hyperparameters for a single classifier fit.
type Options struct {
	// Loss selects hinge or logistic loss.
	Loss Loss

	// C is the regularization cost coefficient.
	C float32

	// Eps is the dual convergence threshold.
	Eps float32

	// MaxIter caps the number of outer solver iterations. Hitting the
	// cap is not an error; the best-effort weights at cap are used.
	MaxIter int

	// WeightThreshold zeroes fitted weights with smaller magnitude.
	WeightThreshold float32

	// MaxSparseDensity is the non-zero density above which the fitted
	// weights are stored dense instead of sparse. A storage trade-off
	// only: both forms score identically.
	MaxSparseDensity float32
}

// DefaultOptions are the fitting defaults.
var DefaultOptions = Options{
	Loss:             Hinge,
	C:                1.0,
	Eps:              0.1,
	MaxIter:          20,
	WeightThreshold:  0.1,
	MaxSparseDensity: 0.15,
}

// Classifier is a fitted binary decision function score(x) = w·x.
// Weights are held in exactly one of two storage forms.
type Classifier struct {
	sparseW sparse.Vector
	denseW  []float32
}

// NewSparse creates a classifier with sparse weight storage.
func NewSparse(w sparse.Vector) Classifier { return Classifier{sparseW: w} }

// NewDense creates a classifier with dense weight storage.
func NewDense(w []float32) Classifier { return Classifier{denseW: w} }

// IsSparse reports whether the weights are stored in sparse form.
func (c *Classifier) IsSparse() bool { return c.denseW == nil }

// SparseWeights returns the sparse weight vector. Only meaningful when
// IsSparse reports true.
func (c *Classifier) SparseWeights() sparse.Vector { return c.sparseW }

// DenseWeights returns the dense weight vector, or nil for sparse form.
func (c *Classifier) DenseWeights() []float32 { return c.denseW }

// Score evaluates the raw margin w·x against a densified query vector.
func (c *Classifier) Score(query []float32) float32 {
	if c.denseW != nil {
		n := len(c.denseW)
		if len(query) < n {
			n = len(query)
		}
		var sum float32
		for i := 0; i < n; i++ {
			sum += c.denseW[i] * query[i]
		}
		return sum
	}
	return c.sparseW.DotDense(query)
}
