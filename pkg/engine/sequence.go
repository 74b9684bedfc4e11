package engine

import (
	"github.com/yourusername/bgengine/internal/positionid"
)

// TurnSequence is one complete way of playing a roll
type TurnSequence struct {
	Moves  []Move
	Result Position // turn already passed to the opponent; Dice keeps the roll played
	DieSum int
}

// sequenceGen accumulates the leaves of the enumeration tree. With a
// limit it stops as soon as that many distinct plays using every die have
// been found.
type sequenceGen struct {
	side   Side
	double bool
	leaves []TurnSequence

	limit   int
	nDice   int
	full    map[positionid.PositionKey]struct{}
	stopped bool
}

func newSequenceGen(pos Position, limit int) *sequenceGen {
	g := &sequenceGen{
		side:   pos.Turn,
		double: pos.Dice.IsDouble(),
		limit:  limit,
		nDice:  len(pos.Dice.Values()),
	}
	if limit > 0 {
		g.full = make(map[positionid.PositionKey]struct{}, limit)
	}
	g.walk(pos, pos.Dice.Values(), nil, 0, 26)
	return g
}

// GenerateSequences enumerates every legal way to play pos.Dice for the
// side to move, after applying the maximal-play rules:
//   - only sequences using the most dice are kept
//   - if not every die can be used on a non-double, only the sequences
//     with the largest total of dice used are kept
//
// Sequences leading to the same position are reported once, in the order
// they were first found. When no die can be played the result is a single
// empty sequence (a pass).
func GenerateSequences(pos Position) []TurnSequence {
	return newSequenceGen(pos, 0).finish(pos)
}

// countPlays returns the number of distinct legal plays of pos.Dice, or
// limit if there are at least that many. A pass counts as zero.
func countPlays(pos Position, limit int) int {
	g := newSequenceGen(pos, limit)
	if g.stopped {
		return limit
	}
	seqs := g.finish(pos)
	if len(seqs) == 1 && len(seqs[0].Moves) == 0 {
		return 0
	}
	return min(len(seqs), limit)
}

// finish applies the maximal-play rules to the leaves and removes
// duplicate results
func (g *sequenceGen) finish(pos Position) []TurnSequence {
	maxLen := 0
	for _, seq := range g.leaves {
		if len(seq.Moves) > maxLen {
			maxLen = len(seq.Moves)
		}
	}

	if maxLen == 0 {
		return []TurnSequence{{Result: passTurn(pos)}}
	}

	candidates := g.leaves[:0]
	for _, seq := range g.leaves {
		if len(seq.Moves) == maxLen {
			candidates = append(candidates, seq)
		}
	}

	if maxLen < len(pos.Dice.Values()) && !g.double {
		maxSum := 0
		for _, seq := range candidates {
			if seq.DieSum > maxSum {
				maxSum = seq.DieSum
			}
		}
		kept := candidates[:0]
		for _, seq := range candidates {
			if seq.DieSum == maxSum {
				kept = append(kept, seq)
			}
		}
		candidates = kept
	}

	seen := make(map[positionid.PositionKey]struct{}, len(candidates))
	result := make([]TurnSequence, 0, len(candidates))
	for _, seq := range candidates {
		seq.Result = passTurn(seq.Result)
		key := seq.Result.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, seq)
	}
	return result
}

// walk recurses over the remaining dice, trying each distinct value once.
// For doubles the source of each move must be no further from home than
// the previous one, which removes reorderings of the same moves.
func (g *sequenceGen) walk(pos Position, dice []int, moves []Move, sum, lastDist int) {
	played := false
	var tried [7]bool

	for i, die := range dice {
		if g.stopped {
			return
		}
		if tried[die] {
			continue
		}
		tried[die] = true

		rest := make([]int, 0, len(dice)-1)
		rest = append(rest, dice[:i]...)
		rest = append(rest, dice[i+1:]...)

		for _, m := range legalMoves(pos, g.side, die) {
			d := distance(g.side, m.From)
			if g.double && d > lastDist {
				continue
			}
			played = true

			next := make([]Move, len(moves), len(moves)+1)
			copy(next, moves)
			g.walk(Apply(pos, m), rest, append(next, m), sum+die, d)
			if g.stopped {
				return
			}
		}
	}

	if !played {
		g.leaves = append(g.leaves, TurnSequence{Moves: moves, Result: pos, DieSum: sum})
		if g.limit > 0 && len(moves) == g.nDice {
			g.full[pos.Key()] = struct{}{}
			g.stopped = len(g.full) >= g.limit
		}
	}
}

// passTurn hands the move to the opponent
func passTurn(pos Position) Position {
	pos.Turn = pos.Turn.Opponent()
	return pos
}
