package omikuji

import (
	"log/slog"
	"runtime"

	"github.com/baajur/omikuji/cluster"
	"github.com/baajur/omikuji/linear"
	"github.com/baajur/omikuji/persist"
	"github.com/baajur/omikuji/tree"
)

type trainOptions struct {
	nTrees           int
	maxLeafSize      int
	cluster          cluster.Options
	linear           linear.Options
	nThreads         int
	seed             int64
	logger           *Logger
	metricsCollector MetricsCollector
}

// TrainOption configures a training run.
type TrainOption func(*trainOptions)

// WithNumTrees sets the number of trees in the ensemble. More trees
// improve ranking quality at a linear cost in training time, model
// size and prediction latency.
func WithNumTrees(n int) TrainOption {
	return func(o *trainOptions) {
		o.nTrees = n
	}
}

// WithMaxLeafSize sets the largest label set that becomes a leaf
// instead of being split further.
func WithMaxLeafSize(n int) TrainOption {
	return func(o *trainOptions) {
		o.maxLeafSize = n
	}
}

// WithClusterEps sets the convergence threshold of the balanced label
// clusterer.
func WithClusterEps(eps float32) TrainOption {
	return func(o *trainOptions) {
		o.cluster.Eps = eps
	}
}

// WithClusterMaxIter caps the clusterer's iterations per split.
func WithClusterMaxIter(n int) TrainOption {
	return func(o *trainOptions) {
		o.cluster.MaxIter = n
	}
}

// WithCentroidThreshold prunes small components from recomputed
// cluster means, trading split quality for speed on wide feature
// spaces.
func WithCentroidThreshold(t float32) TrainOption {
	return func(o *trainOptions) {
		o.cluster.CentroidThreshold = t
	}
}

// WithLoss selects the classifier loss function (linear.Hinge or
// linear.Log). The choice is baked into the model: prediction maps
// margins to probabilities through the same loss.
func WithLoss(loss linear.Loss) TrainOption {
	return func(o *trainOptions) {
		o.linear.Loss = loss
	}
}

// WithCost sets the regularization cost C of every classifier fit.
func WithCost(c float32) TrainOption {
	return func(o *trainOptions) {
		o.linear.C = c
	}
}

// WithSolverEps sets the dual solver's convergence threshold.
func WithSolverEps(eps float32) TrainOption {
	return func(o *trainOptions) {
		o.linear.Eps = eps
	}
}

// WithSolverMaxIter caps the dual solver's outer iterations.
func WithSolverMaxIter(n int) TrainOption {
	return func(o *trainOptions) {
		o.linear.MaxIter = n
	}
}

// WithWeightThreshold zeroes fitted weights below the threshold,
// shrinking the model. Set to 0 to keep all weights.
func WithWeightThreshold(t float32) TrainOption {
	return func(o *trainOptions) {
		o.linear.WeightThreshold = t
	}
}

// WithMaxSparseDensity sets the non-zero density above which fitted
// weights are stored dense. Storage trade-off only; scores are
// identical in both forms.
func WithMaxSparseDensity(d float32) TrainOption {
	return func(o *trainOptions) {
		o.linear.MaxSparseDensity = d
	}
}

// WithThreads sets the worker pool size for tree building. Zero or
// negative selects GOMAXPROCS. Results are identical for every thread
// count.
func WithThreads(n int) TrainOption {
	return func(o *trainOptions) {
		o.nThreads = n
	}
}

// WithSeed fixes the random seed. The same dataset, hyperparameters
// and seed always produce the same model.
func WithSeed(seed int64) TrainOption {
	return func(o *trainOptions) {
		o.seed = seed
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := omikuji.NewJSONLogger(slog.LevelInfo)
//	model, _ := omikuji.Train(ctx, ds, omikuji.WithLogger(logger))
func WithLogger(logger *Logger) TrainOption {
	return func(o *trainOptions) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) TrainOption {
	return func(o *trainOptions) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &omikuji.BasicMetricsCollector{}
//	model, _ := omikuji.Train(ctx, ds, omikuji.WithMetricsCollector(metrics))
//	// ... use model ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) TrainOption {
	return func(o *trainOptions) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

func applyTrainOptions(optFns []TrainOption) trainOptions {
	o := trainOptions{
		nTrees:           3,
		maxLeafSize:      100,
		cluster:          cluster.DefaultOptions,
		linear:           linear.DefaultOptions,
		nThreads:         0,
		seed:             1,
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

func (o *trainOptions) workers() int {
	if o.nThreads > 0 {
		return o.nThreads
	}
	return runtime.GOMAXPROCS(0)
}

func (o *trainOptions) validate() error {
	if o.nTrees < 1 {
		return &ErrInvalidHyperParam{Name: "n_trees", Value: o.nTrees}
	}
	if o.maxLeafSize < 1 {
		return &ErrInvalidHyperParam{Name: "max_leaf_size", Value: o.maxLeafSize}
	}
	if o.cluster.Eps < 0 {
		return &ErrInvalidHyperParam{Name: "cluster_eps", Value: o.cluster.Eps}
	}
	if o.linear.C <= 0 {
		return &ErrInvalidHyperParam{Name: "cost", Value: o.linear.C}
	}
	if o.linear.Eps <= 0 {
		return &ErrInvalidHyperParam{Name: "eps", Value: o.linear.Eps}
	}
	if o.linear.MaxIter < 1 {
		return &ErrInvalidHyperParam{Name: "max_iter", Value: o.linear.MaxIter}
	}
	if o.linear.Loss != linear.Hinge && o.linear.Loss != linear.Log {
		return &ErrInvalidHyperParam{Name: "loss", Value: o.linear.Loss}
	}
	return nil
}

func (o *trainOptions) treeConfig() tree.Config {
	return tree.Config{
		MaxLeafSize: o.maxLeafSize,
		Cluster:     o.cluster,
		Linear:      o.linear,
	}
}

type predictOptions struct {
	beamSize int
}

// PredictOption configures a prediction call.
type PredictOption func(*predictOptions)

// WithBeamSize sets how many candidates survive each level of the
// beam search. Larger beams trade latency for recall.
func WithBeamSize(n int) PredictOption {
	return func(o *predictOptions) {
		o.beamSize = n
	}
}

func applyPredictOptions(optFns []PredictOption) predictOptions {
	o := predictOptions{
		beamSize: 10,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

type saveOptions struct {
	codec persist.Codec
}

// SaveOption configures model serialization.
type SaveOption func(*saveOptions)

// WithCodec selects the payload compression codec
// (persist.CodecNone, persist.CodecLZ4 or persist.CodecZstd).
func WithCodec(c persist.Codec) SaveOption {
	return func(o *saveOptions) {
		o.codec = c
	}
}

func applySaveOptions(optFns []SaveOption) saveOptions {
	o := saveOptions{
		codec: persist.CodecZstd,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
