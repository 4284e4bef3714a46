package omikuji

import (
	"context"
	"io"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baajur/omikuji/dataset"
	"github.com/baajur/omikuji/internal/queue"
	"github.com/baajur/omikuji/linear"
	"github.com/baajur/omikuji/persist"
	"github.com/baajur/omikuji/sparse"
	"github.com/baajur/omikuji/tree"
)

// LabelScore is one ranked prediction: a label index and its score in
// (0, 1], averaged across the ensemble.
type LabelScore = tree.LabelScore

// Model is a trained ensemble of partitioned label trees. It is
// immutable after training or loading: any number of goroutines may
// predict concurrently.
type Model struct {
	trees []*tree.Tree
	meta  persist.Metadata

	logger           *Logger
	metricsCollector MetricsCollector
}

// Train fits an ensemble on the dataset. Tree builds run on a shared
// worker pool (see WithThreads); the result is fully determined by the
// dataset, the hyperparameters and the seed, regardless of thread
// count.
func Train(ctx context.Context, ds *dataset.Dataset, optFns ...TrainOption) (*Model, error) {
	opts := applyTrainOptions(optFns)
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if ds == nil || len(ds.Examples) == 0 || ds.NLabels == 0 {
		return nil, ErrEmptyDataset
	}

	start := time.Now()
	opts.logger.LogTrainStart(ctx, len(ds.Examples), ds.NFeatures, ds.NLabels, opts.nTrees)

	corpus := tree.NewCorpus(ds)
	cfg := opts.treeConfig()
	seeds := tree.DeriveSeeds(opts.seed, opts.nTrees)
	trees := make([]*tree.Tree, opts.nTrees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i := range trees {
		i := i
		g.Go(func() error {
			treeStart := time.Now()
			t, err := tree.Build(gctx, g, corpus, cfg, seeds[i])
			if err != nil {
				return err
			}
			trees[i] = t
			opts.metricsCollector.RecordTreeBuild(time.Since(treeStart))
			opts.logger.LogTreeBuilt(ctx, i, time.Since(treeStart))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		opts.metricsCollector.RecordTrain(opts.nTrees, time.Since(start), err)
		opts.logger.LogTrain(ctx, opts.nTrees, time.Since(start), err)
		return nil, err
	}

	opts.metricsCollector.RecordTrain(opts.nTrees, time.Since(start), nil)
	opts.logger.LogTrain(ctx, opts.nTrees, time.Since(start), nil)

	return &Model{
		trees:            trees,
		meta:             metadataFor(ds, &opts),
		logger:           opts.logger,
		metricsCollector: opts.metricsCollector,
	}, nil
}

func metadataFor(ds *dataset.Dataset, opts *trainOptions) persist.Metadata {
	return persist.Metadata{
		NFeatures:         uint32(ds.NFeatures),
		NLabels:           uint32(ds.NLabels),
		NTrees:            uint32(opts.nTrees),
		MaxLeafSize:       uint32(opts.maxLeafSize),
		ClusterEps:        opts.cluster.Eps,
		ClusterMaxIter:    uint32(opts.cluster.MaxIter),
		CentroidThreshold: opts.cluster.CentroidThreshold,
		Loss:              uint8(opts.linear.Loss),
		C:                 opts.linear.C,
		Eps:               opts.linear.Eps,
		MaxIter:           uint32(opts.linear.MaxIter),
		WeightThreshold:   opts.linear.WeightThreshold,
		MaxSparseDensity:  opts.linear.MaxSparseDensity,
		Seed:              opts.seed,
	}
}

// NumFeatures returns the feature space size the model was trained on.
func (m *Model) NumFeatures() int { return int(m.meta.NFeatures) }

// NumLabels returns the label space size.
func (m *Model) NumLabels() int { return int(m.meta.NLabels) }

// NumTrees returns the ensemble size.
func (m *Model) NumTrees() int { return len(m.trees) }

func (m *Model) loss() linear.Loss { return linear.Loss(m.meta.Loss) }

// dim is the classifier dimension: features plus the bias slot.
func (m *Model) dim() int { return int(m.meta.NFeatures) + 1 }

// Predict returns the top k labels for a sparse feature vector, best
// first. Feature indices outside the trained range are ignored. Equal
// scores rank the lower label index first.
func (m *Model) Predict(ctx context.Context, query sparse.Vector, k int, optFns ...PredictOption) ([]LabelScore, error) {
	opts := applyPredictOptions(optFns)

	start := time.Now()
	results, err := m.predict(query, k, opts.beamSize)
	m.metricsCollector.RecordPredict(k, time.Since(start), err)
	m.logger.LogPredict(ctx, k, len(results), err)
	return results, err
}

func (m *Model) predict(query sparse.Vector, k, beamSize int) ([]LabelScore, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if beamSize < 1 {
		return nil, ErrInvalidBeamSize
	}

	prepared := tree.PrepareQuery(query, m.dim())
	loss := m.loss()

	// Sum per-label scores across trees. A label missed by a tree's
	// beam contributes nothing from that tree.
	sums := make(map[uint32]float32)
	for _, t := range m.trees {
		for _, ls := range t.Predict(prepared, beamSize, loss) {
			sums[ls.Label] += ls.Score
		}
	}

	invTrees := 1 / float32(len(m.trees))
	pq := queue.NewMin(k)
	for label, sum := range sums {
		pq.PushBounded(queue.Item{ID: label, Score: sum * invTrees}, k)
	}

	items := pq.Drain() // worst-first
	results := make([]LabelScore, len(items))
	for i, item := range items {
		results[len(items)-1-i] = LabelScore{Label: item.ID, Score: item.Score}
	}
	return results, nil
}

// PredictSet predicts the top k labels for every query, using a worker
// pool of the given size (0 selects GOMAXPROCS). Results are parallel
// to queries.
func (m *Model) PredictSet(ctx context.Context, queries []sparse.Vector, k, nThreads int, optFns ...PredictOption) ([][]LabelScore, error) {
	opts := applyPredictOptions(optFns)
	if k < 1 {
		return nil, ErrInvalidK
	}
	if opts.beamSize < 1 {
		return nil, ErrInvalidBeamSize
	}

	workers := nThreads
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	results := make([][]LabelScore, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range queries {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := m.predict(queries[i], k, opts.beamSize)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	err := g.Wait()
	m.metricsCollector.RecordPredict(k, time.Since(start), err)
	m.logger.LogPredict(ctx, k, len(queries), err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// SaveToWriter serializes the model to w.
func (m *Model) SaveToWriter(w io.Writer, optFns ...SaveOption) error {
	opts := applySaveOptions(optFns)

	start := time.Now()
	err := persist.Save(w, m.meta, m.trees, opts.codec)
	m.metricsCollector.RecordSave(time.Since(start), err)
	return translateError(err)
}

// SaveToFile serializes the model to a file, atomically: the file is
// written alongside the target and renamed into place, so a crash
// never leaves a partial model behind.
func (m *Model) SaveToFile(ctx context.Context, filename string, optFns ...SaveOption) error {
	opts := applySaveOptions(optFns)

	start := time.Now()
	err := persist.SaveToFile(filename, func(w io.Writer) error {
		return persist.Save(w, m.meta, m.trees, opts.codec)
	})
	m.metricsCollector.RecordSave(time.Since(start), err)
	m.logger.LogSnapshot(ctx, filename, err)
	return translateError(err)
}

type loadOptions struct {
	logger           *Logger
	metricsCollector MetricsCollector
}

// LoadOption configures model loading.
type LoadOption func(*loadOptions)

// WithLoadLogger attaches a logger to the loaded model.
func WithLoadLogger(logger *Logger) LoadOption {
	return func(o *loadOptions) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLoadMetricsCollector attaches a metrics collector to the loaded
// model.
func WithLoadMetricsCollector(mc MetricsCollector) LoadOption {
	return func(o *loadOptions) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

func applyLoadOptions(optFns []LoadOption) loadOptions {
	o := loadOptions{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Load deserializes a model from r. A loaded model scores
// bit-identically to the model that was saved.
func Load(ctx context.Context, r io.Reader, optFns ...LoadOption) (*Model, error) {
	opts := applyLoadOptions(optFns)

	start := time.Now()
	meta, trees, err := persist.Load(r)
	opts.metricsCollector.RecordLoad(time.Since(start), err)
	if err != nil {
		opts.logger.LogLoad(ctx, 0, err)
		return nil, translateError(err)
	}
	opts.logger.LogLoad(ctx, len(trees), nil)

	return &Model{
		trees:            trees,
		meta:             meta,
		logger:           opts.logger,
		metricsCollector: opts.metricsCollector,
	}, nil
}

// LoadFromFile deserializes a model from a file written by SaveToFile.
func LoadFromFile(ctx context.Context, filename string, optFns ...LoadOption) (*Model, error) {
	var model *Model
	err := persist.LoadFromFile(filename, func(r io.Reader) error {
		var err error
		model, err = Load(ctx, r, optFns...)
		return err
	})
	if err != nil {
		return nil, translateError(err)
	}
	return model, nil
}
