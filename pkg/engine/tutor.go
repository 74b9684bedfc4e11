package engine

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/bgengine/internal/positionid"
)

// SkillType rates a played move by the equity it gave up.
type SkillType int

const (
	SkillVeryBad  SkillType = iota // Blunder: loses >= 0.12 equity
	SkillBad                       // Error: loses 0.06-0.12 equity
	SkillDoubtful                  // Doubtful: loses 0.03-0.06 equity
	SkillNone                      // Good or best move
)

// String returns the display name of the skill type.
func (s SkillType) String() string {
	return [...]string{"Very Bad", "Bad", "Doubtful", "None"}[s]
}

// Abbr returns the annotation suffix (??, ?, ?!).
func (s SkillType) Abbr() string {
	return [...]string{"??", "?", "?!", ""}[s]
}

// MarshalText renders the skill as its display name.
func (s SkillType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LuckType rates a roll by how far it moved the mover's equity.
type LuckType int

const (
	LuckVeryBad  LuckType = iota // Lost >= 0.6 equity from roll
	LuckBad                      // Lost 0.3-0.6 equity
	LuckNone                     // Neutral
	LuckGood                     // Gained 0.3-0.6 equity
	LuckVeryGood                 // Gained >= 0.6 equity
)

// String returns the display name of the luck type.
func (l LuckType) String() string {
	return [...]string{"Very Unlucky", "Unlucky", "None", "Lucky", "Very Lucky"}[l]
}

// MarshalText renders the luck as its display name.
func (l LuckType) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// SkillThresholds are the equity loss thresholds for skill ratings.
var SkillThresholds = [3]float64{
	0.12, // blunder
	0.06, // error
	0.03, // questionable
}

// LuckThresholds are the equity swing thresholds for luck ratings.
var LuckThresholds = [2]float64{
	0.6, // very lucky / very unlucky
	0.3, // lucky / unlucky
}

// ClassifySkill returns the skill rating for an equity loss.
// equityLoss is positive for plays worse than the best.
func ClassifySkill(equityLoss float64) SkillType {
	switch {
	case equityLoss >= SkillThresholds[0]:
		return SkillVeryBad
	case equityLoss >= SkillThresholds[1]:
		return SkillBad
	case equityLoss >= SkillThresholds[2]:
		return SkillDoubtful
	}
	return SkillNone
}

// ClassifyLuck returns the luck rating for an equity swing.
// Positive values are good luck.
func ClassifyLuck(equitySwing float64) LuckType {
	switch {
	case equitySwing > LuckThresholds[0]:
		return LuckVeryGood
	case equitySwing > LuckThresholds[1]:
		return LuckGood
	case equitySwing < -LuckThresholds[0]:
		return LuckVeryBad
	case equitySwing < -LuckThresholds[1]:
		return LuckBad
	}
	return LuckNone
}

// PlayReview compares a played turn against the engine's 1-ply ranking.
type PlayReview struct {
	Played     []Move           `json:"played"`
	Best       []Move           `json:"best"`
	Equity     float64          `json:"equity"`
	BestEquity float64          `json:"bestEquity"`
	EquityLoss float64          `json:"equityLoss"`
	Skill      SkillType        `json:"skill"`
	Forced     bool             `json:"forced"`
	Rank       int              `json:"rank"` // 1-based position of the played turn in the ranking
	TopPlays   []RankedSequence `json:"topPlays"`
}

// maxTopPlays bounds PlayReview.TopPlays
const maxTopPlays = 5

// ReviewPlay rates played against every legal way to play roll in pos.
// played must be a legal, maximal play of the roll.
func (e *Engine) ReviewPlay(pos Position, roll Roll, played []Move) (*PlayReview, error) {
	ranked, err := e.RankSequences(pos, roll)
	if err != nil {
		return nil, err
	}
	pos.Dice = roll

	if !isLegalPlay(pos, played) && !(len(played) == 0 && len(ranked[0].Moves) == 0) {
		return nil, fmt.Errorf("%w: %s is not a legal play of %v", ErrInvalidPosition, FormatMoves(pos.Turn, played), roll)
	}

	review := &PlayReview{
		Played:     copyMoves(played),
		Best:       ranked[0].Moves,
		BestEquity: ranked[0].Equity,
		Forced:     len(ranked) == 1,
	}
	n := min(len(ranked), maxTopPlays)
	review.TopPlays = ranked[:n]

	key := resultKey(pos, played)
	for i, r := range ranked {
		if positionid.EqualKeys(resultKey(pos, r.Moves), key) {
			review.Equity = r.Equity
			review.Rank = i + 1
			break
		}
	}

	review.EquityLoss = max(review.BestEquity-review.Equity, 0)
	review.Skill = ClassifySkill(review.EquityLoss)
	return review, nil
}

// resultKey is the key of the position reached after playing moves
func resultKey(pos Position, moves []Move) positionid.PositionKey {
	for _, m := range moves {
		pos = Apply(pos, m)
	}
	return passTurn(pos).Key()
}

// RollLuck measures how much pos.Dice helped the side to move: the 1-ply
// equity after its best play minus the average over all 21 rolls.
func (e *Engine) RollLuck(pos Position) (float64, LuckType, error) {
	if !pos.Dice.Valid() {
		return 0, LuckNone, fmt.Errorf("%w: %v", ErrInvalidDice, pos.Dice)
	}
	if err := pos.Validate(); err != nil {
		return 0, LuckNone, err
	}

	mover := pos.Turn
	values := make([]float64, len(e.rolls))
	weights := make([]float64, len(e.rolls))
	for i, r := range e.rolls {
		_, score := e.reply(pos, r.roll)
		values[i] = equityFor(mover, score)
		weights[i] = r.weight
	}
	average := stat.Mean(values, weights)

	_, score := e.reply(pos, pos.Dice)
	actual := equityFor(mover, score)
	swing := actual - average
	return swing, ClassifyLuck(swing), nil
}
