package engine

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/bgengine/internal/positionid"
)

// weightedRoll is one of the 21 distinct rolls with its weight out of 36
type weightedRoll struct {
	roll   Roll
	weight float64
}

// allRolls lists the 21 distinct rolls
// Weight: doubles occur 1/36, non-doubles occur 2/36
func allRolls() []weightedRoll {
	rolls := make([]weightedRoll, 0, 21)
	for d1 := 1; d1 <= 6; d1++ {
		for d2 := d1; d2 <= 6; d2++ {
			weight := 2.0
			if d1 == d2 {
				weight = 1.0
			}
			rolls = append(rolls, weightedRoll{roll: Roll{d1, d2}, weight: weight})
		}
	}
	return rolls
}

// sampleRolls keeps n of the rolls, spread evenly through the list so the
// sample mixes low, high and double rolls. The weights are kept as they
// are; stat.Mean normalizes over the sample.
func sampleRolls(rolls []weightedRoll, n int) []weightedRoll {
	if n <= 0 || n >= len(rolls) {
		return rolls
	}
	out := make([]weightedRoll, n)
	for i := range out {
		out[i] = rolls[(2*i+1)*len(rolls)/(2*n)]
	}
	return out
}

// rollsAt returns the rolls to average over at a remaining depth
func (e *Engine) rollsAt(depth int) []weightedRoll {
	if e.opts.SampleDepth > 0 && depth >= e.opts.SampleDepth {
		return e.sampled
	}
	return e.rolls
}

// bestSequence picks the sequence that maximizes the mover's static
// equity. Ties keep the first sequence found.
//
// Every sequence is first scored without the mobility term. A sequence
// trailing the best of those by more than twice the mobility bound cannot
// come out on top and is never fully scored.
func (e *Engine) bestSequence(seqs []TurnSequence, mover Side) (int, float64) {
	bound := e.eval.mobilityBound()
	if bound == 0 || len(seqs) == 1 {
		best, bestEq := 0, 0.0
		for i, seq := range seqs {
			eq := equityFor(mover, e.eval.Score(seq.Result))
			if i == 0 || eq > bestEq {
				best, bestEq = i, eq
			}
		}
		return best, bestEq
	}

	quick := make([]float64, len(seqs))
	top := math.Inf(-1)
	for i, seq := range seqs {
		quick[i] = equityFor(mover, e.eval.quickScore(seq.Result))
		top = math.Max(top, quick[i])
	}

	cutoff := top - 2*bound - 1e-9
	best, bestEq := -1, 0.0
	for i, seq := range seqs {
		if quick[i] < cutoff {
			continue
		}
		eq := equityFor(mover, e.eval.Score(seq.Result))
		if best < 0 || eq > bestEq {
			best, bestEq = i, eq
		}
	}
	return best, bestEq
}

// reply plays the side to move's 1-ply best sequence for the given roll.
// It returns the resulting position and its White-positive static score.
func (e *Engine) reply(pos Position, roll Roll) (Position, float64) {
	pos.Dice = roll
	seqs := GenerateSequences(pos)
	best, eq := e.bestSequence(seqs, pos.Turn)
	return seqs[best].Result, equityFor(pos.Turn, eq)
}

// nodeKey identifies an interior node. The value of a node does not depend
// on the dice that led to it, so they are left out.
func nodeKey(pos Position) positionid.PositionKey {
	pos.Dice = Roll{}
	return pos.Key()
}

// deepScore is the expectiminimax value of pos, White-positive.
// The side to move in pos rolls every outcome, answers with its 1-ply best
// sequence, and the resulting positions are searched to depth-1.
func (e *Engine) deepScore(ctx context.Context, pos Position, depth int) (float64, error) {
	if depth <= 0 {
		return e.eval.Score(pos), nil
	}

	key := nodeKey(pos)
	cached, slot := e.nodes.Lookup(key, int32(depth))
	if slot == CacheHit {
		return cached, nil
	}

	rolls := e.rollsAt(depth)
	values := make([]float64, len(rolls))
	weights := make([]float64, len(rolls))

	for i, r := range rolls {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		next, score := e.reply(pos, r.roll)
		if depth > 1 {
			v, err := e.deepScore(ctx, next, depth-1)
			if err != nil {
				return 0, err
			}
			values[i] = v
		} else {
			values[i] = score
		}
		weights[i] = r.weight
	}

	v := stat.Mean(values, weights)
	e.nodes.Add(key, int32(depth), v, slot)
	return v, nil
}
