// Package tree builds partitioned label trees and runs beam-search
// prediction over them. A tree recursively halves the label set with
// balanced clustering, fits routing classifiers at internal nodes and
// one-vs-rest classifiers at leaves, and is immutable once built.
package tree

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/baajur/omikuji/cluster"
	"github.com/baajur/omikuji/dataset"
	"github.com/baajur/omikuji/linear"
	"github.com/baajur/omikuji/sparse"
)

// Node is a tagged tree node: internal nodes own two children and one
// routing classifier per child; leaves own one classifier per label.
// Both shapes share the reachable label set. A node's label set is the
// disjoint union of its children's sets; every label appears in exactly
// one leaf of the whole tree.
type Node struct {
	// Labels is the set of label indices reachable in this subtree.
	Labels *roaring.Bitmap

	// Internal payload. Children has exactly two entries, Routers is
	// parallel to it. Both are nil on leaves.
	Children []*Node
	Routers  []linear.Classifier

	// Leaf payload. LeafLabels is sorted; LeafClassifiers is parallel
	// to it. Both are nil on internal nodes.
	LeafLabels      []uint32
	LeafClassifiers []linear.Classifier
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool { return n.Children == nil }

// Tree owns its root node. Built once, read concurrently thereafter.
type Tree struct {
	Root *Node
}

// Config are the structural and classifier hyperparameters for building
// one tree.
type Config struct {
	// MaxLeafSize stops recursion: label sets of at most this size
	// become leaves.
	MaxLeafSize int

	// Cluster configures the balanced label clusterer.
	Cluster cluster.Options

	// Linear configures every routing and leaf classifier fit.
	Linear linear.Options
}

// DefaultConfig is the tree-building default.
var DefaultConfig = Config{
	MaxLeafSize: 100,
	Cluster:     cluster.DefaultOptions,
	Linear:      linear.DefaultOptions,
}

// Corpus is the read-only training view shared by all concurrent tree
// builds: prepared feature vectors plus label/example cross indexes.
// No build task mutates it.
type Corpus struct {
	// Vectors are the training feature vectors, L2-normalized with the
	// bias feature appended at index Dim-1.
	Vectors []sparse.Vector

	// ExampleLabels holds each example's sorted label indices.
	ExampleLabels [][]uint32

	// LabelExamples holds, per label, the examples carrying it.
	LabelExamples [][]uint32

	// Dim is the classifier dimensionality (n_features + 1 for bias).
	Dim int

	// NLabels is the size of the label universe.
	NLabels int
}

// NewCorpus prepares a training corpus from a loaded dataset: feature
// vectors are cloned, L2-normalized, and extended with a constant bias
// feature so classifiers need no separate intercept.
func NewCorpus(ds *dataset.Dataset) *Corpus {
	c := &Corpus{
		Vectors:       make([]sparse.Vector, len(ds.Examples)),
		ExampleLabels: make([][]uint32, len(ds.Examples)),
		LabelExamples: make([][]uint32, ds.NLabels),
		Dim:           ds.NFeatures + 1,
		NLabels:       ds.NLabels,
	}

	bias := uint32(ds.NFeatures)
	for i, ex := range ds.Examples {
		v := ex.Features.Clone()
		v.NormalizeInPlace()
		v.Indices = append(v.Indices, bias)
		v.Values = append(v.Values, 1)
		c.Vectors[i] = v

		c.ExampleLabels[i] = ex.Labels
		for _, label := range ex.Labels {
			c.LabelExamples[label] = append(c.LabelExamples[label], uint32(i))
		}
	}

	return c
}

// AllLabels returns the full label universe 0..NLabels-1.
func (c *Corpus) AllLabels() []uint32 {
	labels := make([]uint32, c.NLabels)
	for i := range labels {
		labels[i] = uint32(i)
	}
	return labels
}

// PrepareQuery densifies and L2-normalizes a sparse query vector and
// sets the bias feature, matching the preparation applied to training
// vectors. Feature indices at or beyond dim-1 are ignored.
func PrepareQuery(q sparse.Vector, dim int) []float32 {
	dense := make([]float32, dim)
	n := uint32(dim - 1)

	// The norm covers in-range components only, so an out-of-range
	// index has no effect on the prepared vector at all.
	var sum float32
	for i, idx := range q.Indices {
		if idx >= n {
			continue
		}
		sum += q.Values[i] * q.Values[i]
	}
	if sum > 0 {
		inv := 1 / float32(math.Sqrt(float64(sum)))
		for i, idx := range q.Indices {
			if idx >= n {
				continue
			}
			dense[idx] = q.Values[i] * inv
		}
	}
	dense[dim-1] = 1
	return dense
}
