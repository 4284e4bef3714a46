package tree

import (
	"math"
	"sort"

	"github.com/baajur/omikuji/internal/queue"
	"github.com/baajur/omikuji/linear"
)

// LabelScore is one ranked prediction.
type LabelScore struct {
	Label uint32
	Score float32
}

// beamEntry is one surviving beam candidate: either a tree node still
// to be expanded or a finished label candidate (node == nil). Scores
// are cumulative log-likelihoods along the path. The id (the label, or
// the smallest label reachable from the node) is unique within a beam
// because the tree partitions labels, and serves as the deterministic
// tie-break.
type beamEntry struct {
	node  *Node
	id    uint32
	score float32
}

// Predict runs beam search over the tree for a prepared dense query
// vector (see PrepareQuery) and returns the surviving label candidates
// with exponentiated scores, best first. Work is bounded by
// O(depth x beamSize x branching) instead of exhaustive label scoring;
// approximation is the design goal.
func (t *Tree) Predict(query []float32, beamSize int, loss linear.Loss) []LabelScore {
	if beamSize < 1 {
		beamSize = 1
	}

	beam := []beamEntry{{node: t.Root, id: t.Root.Labels.Minimum(), score: 0}}
	var candidates []beamEntry
	top := queue.NewMin(beamSize)

	for {
		done := true
		for _, e := range beam {
			if e.node != nil {
				done = false
				break
			}
		}
		if done {
			break
		}

		candidates = candidates[:0]
		for _, e := range beam {
			switch {
			case e.node == nil:
				// Finished label candidates keep competing for beam
				// slots until every survivor is one.
				candidates = append(candidates, e)
			case e.node.IsLeaf():
				for i, label := range e.node.LeafLabels {
					margin := e.node.LeafClassifiers[i].Score(query)
					candidates = append(candidates, beamEntry{
						id:    label,
						score: e.score + loss.LogLikelihood(margin),
					})
				}
			default:
				for s, child := range e.node.Children {
					margin := e.node.Routers[s].Score(query)
					candidates = append(candidates, beamEntry{
						node:  child,
						id:    child.Labels.Minimum(),
						score: e.score + loss.LogLikelihood(margin),
					})
				}
			}
		}

		// Keep the top beamSize candidates; equal scores go to the
		// lower index for determinism.
		top.Reset()
		for _, c := range candidates {
			top.PushBounded(queue.Item{ID: c.id, Score: c.score}, beamSize)
		}
		kept := make(map[uint32]struct{}, top.Len())
		for _, item := range top.Drain() {
			kept[item.ID] = struct{}{}
		}

		next := beam[:0]
		for _, c := range candidates {
			if _, ok := kept[c.id]; ok {
				next = append(next, c)
			}
		}
		beam = next
	}

	out := make([]LabelScore, len(beam))
	for i, e := range beam {
		out[i] = LabelScore{
			Label: e.id,
			Score: float32(math.Exp(float64(e.score))),
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Label < out[j].Label
	})
	return out
}
