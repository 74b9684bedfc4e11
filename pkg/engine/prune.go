package engine

import (
	"sort"
)

// scoredSequence pairs a turn sequence with its quick evaluation score
type scoredSequence struct {
	seq    TurnSequence
	equity float64 // 1-ply static equity for the mover
	index  int     // position in enumeration order
}

// scoreSequences evaluates each sequence's resulting position statically
func (e *Engine) scoreSequences(seqs []TurnSequence, mover Side) []scoredSequence {
	scored := make([]scoredSequence, len(seqs))
	for i, seq := range seqs {
		scored[i] = scoredSequence{
			seq:    seq,
			equity: equityFor(mover, e.eval.Score(seq.Result)),
			index:  i,
		}
	}
	return scored
}

// pruneSequences keeps the n candidates with the best static equity.
// The survivors are returned in enumeration order.
func pruneSequences(scored []scoredSequence, n int) []scoredSequence {
	if len(scored) <= n {
		return scored
	}

	ranked := append([]scoredSequence(nil), scored...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].equity > ranked[j].equity
	})
	ranked = ranked[:n]

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].index < ranked[j].index
	})
	return ranked
}
