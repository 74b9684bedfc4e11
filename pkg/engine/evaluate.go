package engine

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/bgengine/internal/bearoff"
)

// Source tells where an Evaluation came from
type Source string

const (
	SourceBook     Source = "book"
	SourceEndgame  Source = "endgame"
	SourceSearch   Source = "search"
	SourcePass     Source = "pass"
	SourceExternal Source = "external"
)

// Evaluation is the engine's verdict on a position and roll. Equity and
// probabilities are from the point of view of the side to move.
type Evaluation struct {
	WinProb   float64 `json:"winProbability"`
	WinG      float64 `json:"gammonProbability"`
	WinBG     float64 `json:"backgammonProbability"`
	Equity    float64 `json:"equity"`
	BestMoves []Move  `json:"bestMoves"`
	Source    Source  `json:"source"`
	Depth     int     `json:"depth"`
	Partial   bool    `json:"partial"`
}

// Clone returns a deep copy
func (ev *Evaluation) Clone() *Evaluation {
	c := *ev
	c.BestMoves = copyMoves(ev.BestMoves)
	return &c
}

// Validate checks that probabilities are in [0, 1], ordered
// (backgammon <= gammon <= win) and that equity is finite
func (ev *Evaluation) Validate() error {
	for name, p := range map[string]float64{"win": ev.WinProb, "gammon": ev.WinG, "backgammon": ev.WinBG} {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%s probability %v out of range", name, p)
		}
	}
	if ev.WinG > ev.WinProb || ev.WinBG > ev.WinG {
		return fmt.Errorf("probabilities not ordered: win %v gammon %v backgammon %v", ev.WinProb, ev.WinG, ev.WinBG)
	}
	if math.IsNaN(ev.Equity) || math.IsInf(ev.Equity, 0) {
		return fmt.Errorf("equity %v is not finite", ev.Equity)
	}
	for _, m := range ev.BestMoves {
		if m.Die < 1 || m.Die > 6 || m.From < 0 || m.From > BarPoint || m.To < OffPoint || m.To >= NumPoints {
			return fmt.Errorf("malformed move %+v", m)
		}
	}
	return nil
}

// Tier selects a preset engine configuration
type Tier int

const (
	TierBasic Tier = iota
	TierAdvanced
	TierSuperior
)

func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierAdvanced:
		return "advanced"
	case TierSuperior:
		return "superior"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier parses a tier name
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic", "":
		return TierBasic, nil
	case "advanced":
		return TierAdvanced, nil
	case "superior":
		return TierSuperior, nil
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// WinProbMapping converts an equity into a win probability in [0, 1]
type WinProbMapping func(equity float64) float64

// WinProbLinear maps equity e to 0.5 + e/2, clamped to [0, 1]
func WinProbLinear(equity float64) float64 {
	return math.Max(0, math.Min(1, 0.5+equity/2))
}

// WinProbLogistic returns the mapping 1/(1+exp(-k*e))
func WinProbLogistic(k float64) WinProbMapping {
	return func(equity float64) float64 {
		return 1 / (1 + math.Exp(-k*equity))
	}
}

// Defaults shared by every tier
const (
	DefaultEndgameThreshold = 10
	DefaultSampleRolls      = 6
	DefaultRescoreTimeout   = 30 * time.Second
	DefaultLogisticSlope    = 2.0
)

// EngineOptions configures the engine. Zero fields take the tier's value.
type EngineOptions struct {
	Tier        Tier
	Depth       int      // Search depth in rolls (0 = tier default, negative = static only)
	BranchCap   int      // Candidates kept for deep search
	Weights     *Weights // Evaluator weights
	WinProb     WinProbMapping
	SampleDepth int // Remaining depth from which rolls are sampled (0 = tier default, negative = never)
	SampleRolls int // Rolls kept when sampling

	EndgameThreshold int // Total borne-off checkers needed for the race table shortcut
	Parallelism      int // Concurrent candidate searches (0 = GOMAXPROCS)

	Transpositions *TranspositionTable
	NodeCache      *NodeCache
	NodeCacheSize  uint32 // Used when NodeCache is nil (0 = default)
	Book           *OpeningBook
	Bearoff        *bearoff.Table

	Rescorer       Rescorer
	RescoreTimeout time.Duration

	Logger *zerolog.Logger // nil = disabled
}

// TierOptions returns the preset options of a tier
func TierOptions(t Tier) EngineOptions {
	switch t {
	case TierAdvanced:
		w := AdvancedWeights()
		return EngineOptions{Tier: t, Depth: 3, BranchCap: 10, Weights: &w, WinProb: WinProbLinear, SampleDepth: -1}
	case TierSuperior:
		w := SuperiorWeights()
		return EngineOptions{Tier: t, Depth: 5, BranchCap: 15, Weights: &w, WinProb: WinProbLogistic(DefaultLogisticSlope), SampleDepth: 1, SampleRolls: DefaultSampleRolls}
	default:
		w := AdvancedWeights()
		return EngineOptions{Tier: TierBasic, Depth: 2, BranchCap: 5, Weights: &w, WinProb: WinProbLinear, SampleDepth: -1}
	}
}

// Engine is the main analysis engine. It is safe for concurrent use.
type Engine struct {
	opts  EngineOptions
	eval  *Evaluator
	tt    *TranspositionTable
	nodes *NodeCache
	book  *OpeningBook
	table *bearoff.Table
	log   zerolog.Logger

	rolls   []weightedRoll
	sampled []weightedRoll
}

// NewEngine creates a new analysis engine with the given options
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Tier < TierBasic || opts.Tier > TierSuperior {
		return nil, fmt.Errorf("unknown tier %d", opts.Tier)
	}
	preset := TierOptions(opts.Tier)

	if opts.Depth == 0 {
		opts.Depth = preset.Depth
	} else if opts.Depth < 0 {
		opts.Depth = 0
	}
	if opts.BranchCap <= 0 {
		opts.BranchCap = preset.BranchCap
	}
	if opts.Weights == nil {
		opts.Weights = preset.Weights
	}
	if opts.WinProb == nil {
		opts.WinProb = preset.WinProb
	}
	if opts.SampleDepth == 0 {
		opts.SampleDepth = preset.SampleDepth
	}
	if opts.SampleRolls <= 0 {
		opts.SampleRolls = preset.SampleRolls
	}
	if opts.SampleRolls <= 0 {
		opts.SampleRolls = DefaultSampleRolls
	}
	if opts.EndgameThreshold <= 0 {
		opts.EndgameThreshold = DefaultEndgameThreshold
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}
	if opts.RescoreTimeout <= 0 {
		opts.RescoreTimeout = DefaultRescoreTimeout
	}
	if opts.Transpositions == nil {
		opts.Transpositions = NewTranspositionTable(0)
	}
	if opts.NodeCache == nil {
		size := opts.NodeCacheSize
		if size == 0 {
			size = DefaultNodeCacheSize
		}
		opts.NodeCache = NewNodeCache(size)
	}
	if opts.Book == nil {
		opts.Book = DefaultOpeningBook()
	}
	if opts.Bearoff == nil {
		opts.Bearoff = bearoff.Default()
	}

	e := &Engine{
		opts:  opts,
		eval:  NewEvaluator(*opts.Weights, opts.Bearoff),
		tt:    opts.Transpositions,
		nodes: opts.NodeCache,
		book:  opts.Book,
		table: opts.Bearoff,
		log:   zerolog.Nop(),
		rolls: allRolls(),
	}
	if opts.Logger != nil {
		e.log = opts.Logger.With().Str("component", "engine").Logger()
	}
	e.sampled = sampleRolls(e.rolls, opts.SampleRolls)

	e.log.Debug().
		Str("tier", opts.Tier.String()).
		Int("depth", opts.Depth).
		Int("branch_cap", opts.BranchCap).
		Int("parallelism", opts.Parallelism).
		Bool("rescorer", opts.Rescorer != nil).
		Msg("engine ready")

	return e, nil
}

// Options returns the resolved engine options
func (e *Engine) Options() EngineOptions { return e.opts }

// Evaluator returns the static evaluator
func (e *Engine) Evaluator() *Evaluator { return e.eval }

// Transpositions returns the transposition table
func (e *Engine) Transpositions() *TranspositionTable { return e.tt }

// NodeCache returns the interior node cache
func (e *Engine) NodeCache() *NodeCache { return e.nodes }

// HasRescorer reports whether an external rescorer is configured
func (e *Engine) HasRescorer() bool { return e.opts.Rescorer != nil }

// equityFor converts a White-positive score into side s's point of view
func equityFor(s Side, score float64) float64 {
	return float64(s) * score
}

// newEvaluation fills the probability fields from an equity
func (e *Engine) newEvaluation(equity float64, moves []Move, src Source, depth int) *Evaluation {
	win := e.opts.WinProb(equity)
	return &Evaluation{
		WinProb:   win,
		WinG:      win * 0.2,
		WinBG:     win * 0.05,
		Equity:    equity,
		BestMoves: moves,
		Source:    src,
		Depth:     depth,
	}
}

// Evaluate returns the static evaluation of a position from the point of
// view of its side to move. No moves are played.
func (e *Engine) Evaluate(pos Position) (*Evaluation, error) {
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	eq := equityFor(pos.Turn, e.eval.Score(pos))
	return e.newEvaluation(eq, []Move{}, SourceSearch, 0), nil
}
