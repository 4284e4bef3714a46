package omikuji

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baajur/omikuji/dataset"
	"github.com/baajur/omikuji/linear"
	"github.com/baajur/omikuji/persist"
	"github.com/baajur/omikuji/sparse"
)

// testDataset has three well-separated label groups over 6 features.
func testDataset() *dataset.Dataset {
	vec := func(idxs ...uint32) sparse.Vector {
		vals := make([]float32, len(idxs))
		for i := range vals {
			vals[i] = 1
		}
		return sparse.Vector{Indices: idxs, Values: vals}
	}
	return &dataset.Dataset{
		NFeatures: 6,
		NLabels:   3,
		Examples: []dataset.Example{
			{Features: vec(0, 1), Labels: []uint32{0}},
			{Features: vec(0), Labels: []uint32{0}},
			{Features: vec(2, 3), Labels: []uint32{1}},
			{Features: vec(3), Labels: []uint32{1}},
			{Features: vec(4, 5), Labels: []uint32{2}},
			{Features: vec(5), Labels: []uint32{2}},
		},
	}
}

func trainTestModel(t *testing.T, optFns ...TrainOption) *Model {
	t.Helper()
	opts := append([]TrainOption{
		WithNumTrees(2),
		WithMaxLeafSize(2),
		WithSeed(42),
		WithWeightThreshold(0),
	}, optFns...)
	model, err := Train(context.Background(), testDataset(), opts...)
	require.NoError(t, err)
	return model
}

func TestTrainPredict(t *testing.T) {
	ctx := context.Background()
	model := trainTestModel(t)

	assert.Equal(t, 6, model.NumFeatures())
	assert.Equal(t, 3, model.NumLabels())
	assert.Equal(t, 2, model.NumTrees())

	for label, query := range map[uint32]sparse.Vector{
		0: {Indices: []uint32{0, 1}, Values: []float32{1, 1}},
		1: {Indices: []uint32{2, 3}, Values: []float32{1, 1}},
		2: {Indices: []uint32{4, 5}, Values: []float32{1, 1}},
	} {
		results, err := model.Predict(ctx, query, 3)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, label, results[0].Label)

		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
		for _, r := range results {
			assert.Greater(t, r.Score, float32(0))
			assert.LessOrEqual(t, r.Score, float32(1))
		}
	}
}

func TestPredict_UnusedLabelNeverInTopK(t *testing.T) {
	ctx := context.Background()

	// Label 3 is declared but carried by no example, so every leaf
	// classifier for it trains against positives-free data. It must
	// never outrank a label that does have training support.
	ds := testDataset()
	ds.NLabels = 4

	model, err := Train(ctx, ds,
		WithNumTrees(2),
		WithMaxLeafSize(2),
		WithSeed(42),
		WithWeightThreshold(0),
	)
	require.NoError(t, err)
	assert.Equal(t, 4, model.NumLabels())

	for _, query := range []sparse.Vector{
		{Indices: []uint32{0, 1}, Values: []float32{1, 1}},
		{Indices: []uint32{2, 3}, Values: []float32{1, 1}},
		{Indices: []uint32{4, 5}, Values: []float32{1, 1}},
	} {
		results, err := model.Predict(ctx, query, 3)
		require.NoError(t, err)
		for _, r := range results {
			assert.NotEqual(t, uint32(3), r.Label)
		}

		// With k covering the full label universe the unsupported
		// label may surface, but only below every supported one.
		all, err := model.Predict(ctx, query, 4)
		require.NoError(t, err)
		for i, r := range all {
			if r.Label == 3 {
				assert.Equal(t, len(all)-1, i)
			}
		}
	}
}

func TestTrain_EmptyDataset(t *testing.T) {
	ctx := context.Background()

	_, err := Train(ctx, &dataset.Dataset{NFeatures: 5, NLabels: 3})
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Train(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestTrain_InvalidHyperParams(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opt  TrainOption
	}{
		{"n_trees", WithNumTrees(0)},
		{"max_leaf_size", WithMaxLeafSize(0)},
		{"cost", WithCost(-1)},
		{"eps", WithSolverEps(0)},
		{"max_iter", WithSolverMaxIter(0)},
		{"loss", WithLoss(linear.Loss(9))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Train(ctx, testDataset(), tt.opt)
			require.Error(t, err)

			var hp *ErrInvalidHyperParam
			require.ErrorAs(t, err, &hp)
			assert.Equal(t, tt.name, hp.Name)
		})
	}
}

func TestPredict_InvalidArgs(t *testing.T) {
	ctx := context.Background()
	model := trainTestModel(t)
	query := sparse.Vector{Indices: []uint32{0}, Values: []float32{1}}

	_, err := model.Predict(ctx, query, 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = model.Predict(ctx, query, 3, WithBeamSize(0))
	assert.ErrorIs(t, err, ErrInvalidBeamSize)
}

func TestPredict_UnknownFeaturesIgnored(t *testing.T) {
	ctx := context.Background()
	model := trainTestModel(t)

	query := sparse.Vector{Indices: []uint32{0, 500}, Values: []float32{1, 9}}
	results, err := model.Predict(ctx, query, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), results[0].Label)
}

func TestTrain_DeterministicAcrossThreadCounts(t *testing.T) {
	ctx := context.Background()
	serial := trainTestModel(t, WithThreads(1))
	parallel := trainTestModel(t, WithThreads(8))

	for _, ex := range testDataset().Examples {
		a, err := serial.Predict(ctx, ex.Features, 3)
		require.NoError(t, err)
		b, err := parallel.Predict(ctx, ex.Features, 3)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestTrain_SeedChangesModel(t *testing.T) {
	a := trainTestModel(t, WithSeed(1))
	b := trainTestModel(t, WithSeed(2))

	// Different seeds may route differently, but both must still rank
	// the right label first on clean queries.
	ctx := context.Background()
	query := sparse.Vector{Indices: []uint32{2, 3}, Values: []float32{1, 1}}
	ra, err := a.Predict(ctx, query, 1)
	require.NoError(t, err)
	rb, err := b.Predict(ctx, query, 1)
	require.NoError(t, err)
	assert.Equal(t, ra[0].Label, rb[0].Label)
}

func TestPredictSet(t *testing.T) {
	ctx := context.Background()
	model := trainTestModel(t)

	ds := testDataset()
	queries := make([]sparse.Vector, len(ds.Examples))
	for i, ex := range ds.Examples {
		queries[i] = ex.Features
	}

	results, err := model.PredictSet(ctx, queries, 3, 4)
	require.NoError(t, err)
	require.Len(t, results, len(queries))

	for i, ex := range ds.Examples {
		require.NotEmpty(t, results[i])
		assert.Equal(t, ex.Labels[0], results[i][0].Label)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	model := trainTestModel(t)

	for _, codec := range []persist.Codec{persist.CodecNone, persist.CodecLZ4, persist.CodecZstd} {
		t.Run(codec.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, model.SaveToWriter(&buf, WithCodec(codec)))

			loaded, err := Load(ctx, &buf)
			require.NoError(t, err)
			assert.Equal(t, model.NumFeatures(), loaded.NumFeatures())
			assert.Equal(t, model.NumLabels(), loaded.NumLabels())
			assert.Equal(t, model.NumTrees(), loaded.NumTrees())

			// Scores are bit-identical after a round trip.
			for _, ex := range testDataset().Examples {
				want, err := model.Predict(ctx, ex.Features, 3)
				require.NoError(t, err)
				got, err := loaded.Predict(ctx, ex.Features, 3)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestSaveLoadFile(t *testing.T) {
	ctx := context.Background()
	model := trainTestModel(t)
	path := filepath.Join(t.TempDir(), "model.bin")

	require.NoError(t, model.SaveToFile(ctx, path))

	loaded, err := LoadFromFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, model.NumTrees(), loaded.NumTrees())
}

func TestLoad_CorruptInput(t *testing.T) {
	ctx := context.Background()

	_, err := Load(ctx, bytes.NewReader([]byte("not a model")))
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestMetricsCollector(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	model := trainTestModel(t, WithMetricsCollector(metrics))

	query := sparse.Vector{Indices: []uint32{0}, Values: []float32{1}}
	_, err := model.Predict(ctx, query, 3)
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.TrainCount)
	assert.Equal(t, int64(2), stats.TreeBuildCount)
	assert.Equal(t, int64(1), stats.PredictCount)
	assert.Zero(t, stats.PredictErrors)
}
