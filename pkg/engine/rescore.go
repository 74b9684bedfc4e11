package engine

import (
	"context"
	"fmt"

	"github.com/yourusername/bgengine/internal/positionid"
)

// RescoreRequest is what an external rescorer is given: the position with
// its roll, the engine's chosen moves and its verdict.
type RescoreRequest struct {
	Position  Position
	Moves     []Move
	Equity    float64
	Heuristic *Evaluation
}

// Rescorer is an optional external collaborator that may supersede the
// heuristic evaluation of a single request
type Rescorer interface {
	Rescore(ctx context.Context, req RescoreRequest) (*Evaluation, error)
}

// Rescore asks the configured rescorer to re-evaluate an analysis. The
// call is bounded by the engine's rescore timeout. The returned Evaluation
// is checked: probabilities must be well formed, and suggested moves that
// are not a legal play of the roll are replaced by the heuristic moves.
// The result is never stored in the transposition table.
func (e *Engine) Rescore(ctx context.Context, pos Position, heuristic *Evaluation) (*Evaluation, error) {
	if e.opts.Rescorer == nil {
		return nil, ErrNoRescorer
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.RescoreTimeout)
	defer cancel()

	res, err := e.opts.Rescorer.Rescore(ctx, RescoreRequest{
		Position:  pos,
		Moves:     copyMoves(heuristic.BestMoves),
		Equity:    heuristic.Equity,
		Heuristic: heuristic.Clone(),
	})
	if err != nil {
		return nil, fmt.Errorf("rescore: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("rescore: empty result")
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("rescore: %w", err)
	}

	out := res.Clone()
	if len(out.BestMoves) == 0 || !isLegalPlay(pos, out.BestMoves) {
		out.BestMoves = copyMoves(heuristic.BestMoves)
	}
	out.Source = SourceExternal
	out.Depth = heuristic.Depth
	out.Partial = heuristic.Partial
	return out, nil
}

// isLegalPlay reports whether moves is one of the legal ways to play
// pos.Dice, comparing by the position it leads to
func isLegalPlay(pos Position, moves []Move) bool {
	after := pos
	for _, m := range moves {
		if !containsMove(legalMoves(after, after.Turn, m.Die), m) {
			return false
		}
		after = Apply(after, m)
	}
	key := passTurn(after).Key()

	for _, seq := range GenerateSequences(pos) {
		if len(seq.Moves) == len(moves) && positionid.EqualKeys(seq.Result.Key(), key) {
			return true
		}
	}
	return false
}

func copyMoves(moves []Move) []Move {
	out := make([]Move, len(moves))
	copy(out, moves)
	return out
}
