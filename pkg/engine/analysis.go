package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Progress reports a candidate whose deep search has completed
type Progress struct {
	Candidate int     `json:"candidate"` // index among the searched candidates
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Moves     []Move  `json:"moves"`
	Equity    float64 `json:"equity"`
}

// ProgressFunc receives progress reports. Calls are serialized.
type ProgressFunc func(Progress)

// AnalyzeOptions controls a single Analyze call
type AnalyzeOptions struct {
	Rescore  bool // Ask the external rescorer, if configured
	Progress ProgressFunc
}

// RankedSequence is a legal play with its 1-ply equity
type RankedSequence struct {
	Moves    []Move  `json:"moves"`
	Notation string  `json:"notation"`
	Equity   float64 `json:"equity"`
}

// Analyze finds the best way to play roll in pos.
//
// The lookup order is: transposition table, opening book, race table
// (once contact is broken and enough checkers are off), then a search of
// the candidates that survive 1-ply pruning. If ctx is cancelled during
// the search the best completed candidate is returned with Partial set.
// If opts.Rescore is set and a rescorer is configured its verdict replaces
// the heuristic one when it succeeds.
func (e *Engine) Analyze(ctx context.Context, pos Position, roll Roll, opts AnalyzeOptions) (*Evaluation, error) {
	if !roll.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDice, roll)
	}
	pos.Dice = roll
	if err := pos.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	ev, err := e.analyze(ctx, pos, opts.Progress)
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Str("position", pos.ID()).
		Str("roll", roll.String()).
		Str("source", string(ev.Source)).
		Float64("equity", ev.Equity).
		Bool("partial", ev.Partial).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")

	if !opts.Rescore || e.opts.Rescorer == nil {
		return ev, nil
	}

	res, err := e.Rescore(ctx, pos, ev)
	if err != nil {
		e.log.Warn().Err(err).Str("position", pos.ID()).Msg("rescore failed, keeping heuristic evaluation")
		return ev, nil
	}
	return res, nil
}

func (e *Engine) analyze(ctx context.Context, pos Position, progress ProgressFunc) (*Evaluation, error) {
	id := pos.ID()
	if cached, ok := e.tt.Get(id); ok {
		return cached, nil
	}

	mover := pos.Turn

	if moves, ok := e.book.Lookup(pos, pos.Dice); ok {
		after := pos
		for _, m := range moves {
			after = Apply(after, m)
		}
		ev := e.newEvaluation(equityFor(mover, e.eval.Score(passTurn(after))), moves, SourceBook, 0)
		e.tt.Put(id, ev)
		return ev, nil
	}

	seqs := GenerateSequences(pos)
	if len(seqs) == 1 && len(seqs[0].Moves) == 0 {
		ev := e.newEvaluation(equityFor(mover, e.eval.Score(pos)), []Move{}, SourcePass, 0)
		e.tt.Put(id, ev)
		return ev, nil
	}

	scored := e.scoreSequences(seqs, mover)

	if pos.IsRace() && pos.OffCount(White)+pos.OffCount(Black) >= e.opts.EndgameThreshold {
		best := bestScored(scored)
		after := best.seq.Result
		eq := e.table.Equity(after.PipCount(mover.Opponent()) - after.PipCount(mover))
		ev := e.newEvaluation(eq, best.seq.Moves, SourceEndgame, 0)
		e.tt.Put(id, ev)
		return ev, nil
	}

	cands := pruneSequences(scored, e.opts.BranchCap)
	if e.opts.Depth == 0 {
		best := bestScored(cands)
		ev := e.newEvaluation(best.equity, best.seq.Moves, SourceSearch, 0)
		e.tt.Put(id, ev)
		return ev, nil
	}

	deep, done, err := e.searchCandidates(ctx, cands, mover, progress)
	partial := false
	if err != nil {
		if ctx.Err() == nil {
			return nil, err
		}
		partial = true
	}

	bestIdx := -1
	for i := range cands {
		if done[i] && (bestIdx < 0 || deep[i] > deep[bestIdx]) {
			bestIdx = i
		}
	}

	var ev *Evaluation
	if bestIdx < 0 {
		best := bestScored(cands)
		ev = e.newEvaluation(best.equity, best.seq.Moves, SourceSearch, e.opts.Depth)
	} else {
		ev = e.newEvaluation(deep[bestIdx], cands[bestIdx].seq.Moves, SourceSearch, e.opts.Depth)
	}

	if partial {
		ev.Partial = true
		e.log.Debug().Str("position", id).Int("completed", countTrue(done)).Int("candidates", len(cands)).Msg("search interrupted")
		return ev, nil
	}

	e.tt.Put(id, ev)
	return ev, nil
}

// searchCandidates computes the deep equity of every candidate in
// parallel. Results are stored by candidate index; done marks the
// candidates that finished before any error.
func (e *Engine) searchCandidates(ctx context.Context, cands []scoredSequence, mover Side, progress ProgressFunc) ([]float64, []bool, error) {
	deep := make([]float64, len(cands))
	done := make([]bool, len(cands))

	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)

	for i := range cands {
		i := i
		g.Go(func() error {
			score, err := e.deepScore(gctx, cands[i].seq.Result, e.opts.Depth)
			if err != nil {
				return err
			}
			eq := equityFor(mover, score)

			mu.Lock()
			defer mu.Unlock()
			deep[i] = eq
			done[i] = true
			completed++
			if progress != nil {
				progress(Progress{
					Candidate: i,
					Completed: completed,
					Total:     len(cands),
					Moves:     cands[i].seq.Moves,
					Equity:    eq,
				})
			}
			return nil
		})
	}

	err := g.Wait()

	mu.Lock()
	defer mu.Unlock()
	return deep, done, err
}

// bestScored returns the candidate with the highest static equity; ties
// keep the earliest
func bestScored(scored []scoredSequence) scoredSequence {
	best := scored[0]
	for _, s := range scored[1:] {
		if s.equity > best.equity {
			best = s
		}
	}
	return best
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// RankSequences returns every legal play of roll in pos with its 1-ply
// equity for the side to move, best first. Equal equities keep enumeration
// order. A position with no legal play yields a single empty sequence.
func (e *Engine) RankSequences(pos Position, roll Roll) ([]RankedSequence, error) {
	if !roll.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDice, roll)
	}
	pos.Dice = roll
	if err := pos.Validate(); err != nil {
		return nil, err
	}

	scored := e.scoreSequences(GenerateSequences(pos), pos.Turn)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].equity > scored[j].equity
	})

	ranked := make([]RankedSequence, len(scored))
	for i, s := range scored {
		moves := s.seq.Moves
		if moves == nil {
			moves = []Move{}
		}
		ranked[i] = RankedSequence{
			Moves:    moves,
			Notation: FormatMoves(pos.Turn, moves),
			Equity:   s.equity,
		}
	}
	return ranked, nil
}

// BestMove is a convenience wrapper returning only the chosen moves
func (e *Engine) BestMove(ctx context.Context, pos Position, roll Roll) ([]Move, *Evaluation, error) {
	ev, err := e.Analyze(ctx, pos, roll, AnalyzeOptions{})
	if err != nil {
		return nil, nil, err
	}
	return ev.BestMoves, ev, nil
}
