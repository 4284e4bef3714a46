package tree

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/baajur/omikuji/cluster"
	"github.com/baajur/omikuji/linear"
	"github.com/baajur/omikuji/sparse"
	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"
)

// Build constructs one tree over the corpus. Subtree builds are
// submitted to the shared errgroup when a worker slot is free and run
// inline otherwise, so a fixed worker budget can never deadlock on
// nested submissions. Build waits for all subtree jobs it spawned, so
// on a nil error the returned tree is complete; errors raised by
// spawned jobs surface through the group's Wait.
//
// The seed fully determines the tree: per-node and per-classifier RNG
// streams are derived from it and the node's position, so results are
// identical regardless of scheduling.
func Build(ctx context.Context, g *errgroup.Group, corpus *Corpus, cfg Config, seed int64) (*Tree, error) {
	if cfg.MaxLeafSize < 1 {
		cfg.MaxLeafSize = 1
	}

	b := &builder{corpus: corpus, cfg: cfg, seed: uint64(seed)}

	root := &Node{}
	allExamples := make([]uint32, len(corpus.Vectors))
	for i := range allExamples {
		allExamples[i] = uint32(i)
	}

	job := buildJob{
		node:     root,
		labels:   corpus.AllLabels(),
		examples: allExamples,
		path:     1,
	}
	err := b.run(ctx, g, job)
	b.wg.Wait()
	if err != nil {
		return nil, err
	}

	return &Tree{Root: root}, nil
}

type builder struct {
	corpus *Corpus
	cfg    Config
	seed   uint64

	// wg tracks subtree jobs handed to the errgroup, so Build can wait
	// for its own tree without waiting on the whole group.
	wg sync.WaitGroup
}

// buildJob produces one node. labels and examples are sorted; the node
// is owned exclusively by the job until it returns.
type buildJob struct {
	node     *Node
	labels   []uint32
	examples []uint32
	path     uint64 // root=1, children 2p and 2p+1
}

func (b *builder) run(ctx context.Context, g *errgroup.Group, job buildJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(job.labels) <= b.cfg.MaxLeafSize {
		b.buildLeaf(job)
		return nil
	}

	left, right, err := b.buildInternal(job)
	if err != nil {
		return err
	}

	// Children are independent; build concurrently when a worker slot
	// is free, inline otherwise. Spawned jobs never need a fresh slot
	// to finish, so waiting on them cannot deadlock.
	for _, child := range []buildJob{left, right} {
		child := child
		b.wg.Add(1)
		spawned := g.TryGo(func() error {
			defer b.wg.Done()
			return b.run(ctx, g, child)
		})
		if !spawned {
			err := b.run(ctx, g, child)
			b.wg.Done()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// buildLeaf trains one one-vs-rest classifier per label in the set.
// Positives are the instances carrying the label; negatives are every
// other instance reaching the leaf.
func (b *builder) buildLeaf(job buildJob) {
	node := job.node
	node.Labels = roaring.BitmapOf(job.labels...)
	node.LeafLabels = job.labels
	node.LeafClassifiers = make([]linear.Classifier, len(job.labels))

	vecs := b.gatherVectors(job.examples)
	pos := make(map[uint32]*bitset.BitSet, len(job.labels))
	for _, label := range job.labels {
		pos[label] = bitset.New(uint(len(job.examples)))
	}
	for i, exID := range job.examples {
		for _, label := range b.corpus.ExampleLabels[exID] {
			if bs, ok := pos[label]; ok {
				bs.Set(uint(i))
			}
		}
	}

	for li, label := range job.labels {
		prob := &linear.Problem{
			Examples:  vecs,
			Positives: pos[label],
			Dim:       b.corpus.Dim,
		}
		rng := b.rng(job.path, uint64(label))
		node.LeafClassifiers[li] = linear.Train(prob, b.cfg.Linear, rng)
	}
}

// buildInternal splits the label set in two, trains one routing
// classifier per side over the full instance set reaching this node,
// and returns the two child jobs. An instance whose labels span the
// split participates as a positive in both routing problems and flows
// into both children.
func (b *builder) buildInternal(job buildJob) (left, right buildJob, err error) {
	node := job.node
	node.Labels = roaring.BitmapOf(job.labels...)

	centroids := b.labelCentroids(job.labels, job.examples)
	rng := b.rng(job.path, 0)
	leftSet, rightSet := cluster.Split(job.labels, centroids, b.corpus.Dim, b.cfg.Cluster, rng)

	vecs := b.gatherVectors(job.examples)
	sides := [2]*roaring.Bitmap{leftSet, rightSet}
	children := make([]*Node, 2)
	routers := make([]linear.Classifier, 2)
	childJobs := make([]buildJob, 2)

	for s, side := range sides {
		positives := bitset.New(uint(len(job.examples)))
		var childExamples []uint32
		for i, exID := range job.examples {
			if intersects(b.corpus.ExampleLabels[exID], side) {
				positives.Set(uint(i))
				childExamples = append(childExamples, exID)
			}
		}

		prob := &linear.Problem{
			Examples:  vecs,
			Positives: positives,
			Dim:       b.corpus.Dim,
		}
		routers[s] = linear.Train(prob, b.cfg.Linear, b.rng(job.path, uint64(s)+1))

		children[s] = &Node{}
		childJobs[s] = buildJob{
			node:     children[s],
			labels:   side.ToArray(),
			examples: childExamples,
			path:     job.path*2 + uint64(s),
		}
	}

	node.Children = children
	node.Routers = routers
	return childJobs[0], childJobs[1], nil
}

// labelCentroids computes, for each label, the L2-normalized sum of the
// feature vectors of the instances carrying it, restricted to the
// instances reaching this node.
func (b *builder) labelCentroids(labels []uint32, examples []uint32) []sparse.Vector {
	inSubset := bitset.New(uint(len(b.corpus.Vectors)))
	for _, exID := range examples {
		inSubset.Set(uint(exID))
	}

	buf := make([]float32, b.corpus.Dim)
	var touched []uint32

	centroids := make([]sparse.Vector, len(labels))
	for li, label := range labels {
		touched = touched[:0]
		for _, exID := range b.corpus.LabelExamples[label] {
			if !inSubset.Test(uint(exID)) {
				continue
			}
			v := b.corpus.Vectors[exID]
			for i, idx := range v.Indices {
				if buf[idx] == 0 {
					touched = append(touched, idx)
				}
				buf[idx] += v.Values[i]
			}
		}

		sort.Slice(touched, func(i, j int) bool { return touched[i] < touched[j] })
		centroid := sparse.Vector{
			Indices: make([]uint32, 0, len(touched)),
			Values:  make([]float32, 0, len(touched)),
		}
		for _, idx := range touched {
			if buf[idx] != 0 {
				centroid.Indices = append(centroid.Indices, idx)
				centroid.Values = append(centroid.Values, buf[idx])
			}
			buf[idx] = 0
		}
		centroid.NormalizeInPlace()
		centroids[li] = centroid
	}

	return centroids
}

func (b *builder) gatherVectors(examples []uint32) []sparse.Vector {
	vecs := make([]sparse.Vector, len(examples))
	for i, exID := range examples {
		vecs[i] = b.corpus.Vectors[exID]
	}
	return vecs
}

// intersects reports whether any of the sorted labels is in the set.
func intersects(labels []uint32, set *roaring.Bitmap) bool {
	for _, l := range labels {
		if set.Contains(l) {
			return true
		}
	}
	return false
}

// rng derives an independent deterministic stream for one unit of work
// from the tree seed, the node path, and a per-unit salt.
func (b *builder) rng(path, salt uint64) *rand.Rand {
	s := splitmix64(b.seed ^ splitmix64(path) ^ splitmix64(salt+0x51F15EED))
	return rand.New(rand.NewSource(int64(s)))
}

// DeriveSeeds expands a base seed into n decorrelated tree seeds. The
// mapping is fixed, so the same base seed always produces the same
// forest regardless of how many workers build it.
func DeriveSeeds(base int64, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = int64(splitmix64(uint64(base) + uint64(i)*0xA5A5A5A5A5A5A5A5))
	}
	return seeds
}

// splitmix64 is the mixing function of the SplitMix64 generator; used
// only to decorrelate derived seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return x
}
