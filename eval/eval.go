// Package eval computes ranking quality metrics for multi-label
// predictions: precision at k and normalized discounted cumulative
// gain at k, averaged over a test set.
package eval

import (
	"math"

	"github.com/baajur/omikuji/tree"
)

// Metrics holds averaged ranking metrics at cutoffs 1..K.
type Metrics struct {
	// PrecisionAt[i] is the mean precision at rank i+1.
	PrecisionAt []float64

	// NDCGAt[i] is the mean normalized DCG at rank i+1.
	NDCGAt []float64
}

// Evaluate scores predictions against true label sets at cutoffs
// 1..maxK. predictions[i] must be ranked best-first; truths[i] is the
// example's true label set. Examples with no true labels are skipped.
func Evaluate(predictions [][]tree.LabelScore, truths [][]uint32, maxK int) Metrics {
	if maxK < 1 {
		maxK = 1
	}
	precision := make([]float64, maxK)
	ndcg := make([]float64, maxK)

	n := 0
	for i, pred := range predictions {
		truth := truths[i]
		if len(truth) == 0 {
			continue
		}
		n++

		set := make(map[uint32]struct{}, len(truth))
		for _, label := range truth {
			set[label] = struct{}{}
		}

		hits := 0
		dcg := 0.0
		for k := 0; k < maxK; k++ {
			if k < len(pred) {
				if _, ok := set[pred[k].Label]; ok {
					hits++
					dcg += gain(k)
				}
			}
			precision[k] += float64(hits) / float64(k+1)
			ndcg[k] += dcg / idealDCG(len(truth), k+1)
		}
	}

	if n > 0 {
		for k := range precision {
			precision[k] /= float64(n)
			ndcg[k] /= float64(n)
		}
	}
	return Metrics{PrecisionAt: precision, NDCGAt: ndcg}
}

// gain is the DCG contribution of a hit at zero-based rank k.
func gain(k int) float64 {
	return 1 / math.Log2(float64(k)+2)
}

// idealDCG is the DCG of a perfect ranking with nRelevant relevant
// labels cut off at k.
func idealDCG(nRelevant, k int) float64 {
	if nRelevant > k {
		nRelevant = k
	}
	sum := 0.0
	for i := 0; i < nRelevant; i++ {
		sum += gain(i)
	}
	return sum
}
