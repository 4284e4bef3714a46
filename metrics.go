package omikuji

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    trainHistogram   prometheus.Histogram
//	    predictHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordPredict(k int, duration time.Duration, err error) {
//	    p.predictHistogram.Observe(duration.Seconds())
//	    // ... record error state, k, etc.
//	}
type MetricsCollector interface {
	// RecordTrain is called once after a training run.
	// trees is the forest size, duration the total wall time, err is
	// nil on success.
	RecordTrain(trees int, duration time.Duration, err error)

	// RecordTreeBuild is called after each individual tree build with
	// the full wall-clock duration of that tree, subtree jobs included.
	RecordTreeBuild(duration time.Duration)

	// RecordPredict is called after each prediction.
	// k is the number of labels requested, duration the time taken,
	// err is nil on success.
	RecordPredict(k int, duration time.Duration, err error)

	// RecordSave is called after each model save operation.
	RecordSave(duration time.Duration, err error)

	// RecordLoad is called after each model load operation.
	RecordLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTrain(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordTreeBuild(time.Duration)           {}
func (NoopMetricsCollector) RecordPredict(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)         {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	TrainCount        atomic.Int64
	TrainErrors       atomic.Int64
	TrainTotalNanos   atomic.Int64
	TreeBuildCount    atomic.Int64
	TreeBuildNanos    atomic.Int64
	PredictCount      atomic.Int64
	PredictErrors     atomic.Int64
	PredictTotalNanos atomic.Int64
	SaveCount         atomic.Int64
	SaveErrors        atomic.Int64
	LoadCount         atomic.Int64
	LoadErrors        atomic.Int64
}

// RecordTrain implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrain(trees int, duration time.Duration, err error) {
	b.TrainCount.Add(1)
	b.TrainTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.TrainErrors.Add(1)
	}
}

// RecordTreeBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTreeBuild(duration time.Duration) {
	b.TreeBuildCount.Add(1)
	b.TreeBuildNanos.Add(duration.Nanoseconds())
}

// RecordPredict implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPredict(k int, duration time.Duration, err error) {
	b.PredictCount.Add(1)
	b.PredictTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PredictErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(duration time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		TrainCount:       b.TrainCount.Load(),
		TrainErrors:      b.TrainErrors.Load(),
		TreeBuildCount:   b.TreeBuildCount.Load(),
		TreeBuildAvg:     b.avgTreeBuildNanos(),
		PredictCount:     b.PredictCount.Load(),
		PredictErrors:    b.PredictErrors.Load(),
		PredictAvgNanos:  b.avgPredictNanos(),
		SaveCount:        b.SaveCount.Load(),
		SaveErrors:       b.SaveErrors.Load(),
		LoadCount:        b.LoadCount.Load(),
		LoadErrors:       b.LoadErrors.Load(),
	}
}

func (b *BasicMetricsCollector) avgTreeBuildNanos() int64 {
	count := b.TreeBuildCount.Load()
	if count == 0 {
		return 0
	}
	return b.TreeBuildNanos.Load() / count
}

func (b *BasicMetricsCollector) avgPredictNanos() int64 {
	count := b.PredictCount.Load()
	if count == 0 {
		return 0
	}
	return b.PredictTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TrainCount      int64
	TrainErrors     int64
	TreeBuildCount  int64
	TreeBuildAvg    int64
	PredictCount    int64
	PredictErrors   int64
	PredictAvgNanos int64
	SaveCount       int64
	SaveErrors      int64
	LoadCount       int64
	LoadErrors      int64
}
