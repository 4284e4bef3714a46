package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baajur/omikuji/tree"
)

func ranked(labels ...uint32) []tree.LabelScore {
	out := make([]tree.LabelScore, len(labels))
	for i, l := range labels {
		out[i] = tree.LabelScore{Label: l, Score: float32(len(labels) - i)}
	}
	return out
}

func TestEvaluate_PerfectRanking(t *testing.T) {
	predictions := [][]tree.LabelScore{ranked(1, 2, 3)}
	truths := [][]uint32{{1, 2, 3}}

	m := Evaluate(predictions, truths, 3)

	require.Len(t, m.PrecisionAt, 3)
	for k := 0; k < 3; k++ {
		assert.InDelta(t, 1.0, m.PrecisionAt[k], 1e-9)
		assert.InDelta(t, 1.0, m.NDCGAt[k], 1e-9)
	}
}

func TestEvaluate_NoHits(t *testing.T) {
	predictions := [][]tree.LabelScore{ranked(7, 8)}
	truths := [][]uint32{{1}}

	m := Evaluate(predictions, truths, 2)

	assert.Zero(t, m.PrecisionAt[0])
	assert.Zero(t, m.PrecisionAt[1])
	assert.Zero(t, m.NDCGAt[1])
}

func TestEvaluate_PartialHits(t *testing.T) {
	// Hit at rank 1 and rank 3, miss at rank 2.
	predictions := [][]tree.LabelScore{ranked(1, 9, 2)}
	truths := [][]uint32{{1, 2}}

	m := Evaluate(predictions, truths, 3)

	assert.InDelta(t, 1.0, m.PrecisionAt[0], 1e-9)
	assert.InDelta(t, 0.5, m.PrecisionAt[1], 1e-9)
	assert.InDelta(t, 2.0/3.0, m.PrecisionAt[2], 1e-9)

	// nDCG@3: (1 + 1/log2(4)) / (1 + 1/log2(3))
	dcg := 1 + 1/math.Log2(4)
	ideal := 1 + 1/math.Log2(3)
	assert.InDelta(t, dcg/ideal, m.NDCGAt[2], 1e-9)
}

func TestEvaluate_AveragesOverExamples(t *testing.T) {
	predictions := [][]tree.LabelScore{ranked(1), ranked(9)}
	truths := [][]uint32{{1}, {1}}

	m := Evaluate(predictions, truths, 1)

	assert.InDelta(t, 0.5, m.PrecisionAt[0], 1e-9)
}

func TestEvaluate_SkipsUnlabeled(t *testing.T) {
	predictions := [][]tree.LabelScore{ranked(1), ranked(1)}
	truths := [][]uint32{{1}, nil}

	m := Evaluate(predictions, truths, 1)

	assert.InDelta(t, 1.0, m.PrecisionAt[0], 1e-9)
}

func TestEvaluate_ShortPredictionList(t *testing.T) {
	predictions := [][]tree.LabelScore{ranked(1)}
	truths := [][]uint32{{1, 2, 3}}

	m := Evaluate(predictions, truths, 5)

	require.Len(t, m.PrecisionAt, 5)
	assert.InDelta(t, 1.0, m.PrecisionAt[0], 1e-9)
	assert.InDelta(t, 0.2, m.PrecisionAt[4], 1e-9)
}
