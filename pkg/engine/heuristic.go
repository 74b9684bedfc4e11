package engine

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/yourusername/bgengine/internal/bearoff"
)

// Feature indices into the evaluator's feature vector
const (
	featPip = iota
	featPrime
	featBlot
	featAnchor
	featBar
	featOff
	featDistribution
	featTiming
	featCenter
	featKeyPoints
	featMobility
	numFeatures
)

// Weights parameterizes the positional evaluator
type Weights struct {
	// Pip term: PipTanh selects tanh(diff/PipScale), otherwise diff/PipScale
	Pip      float64
	PipTanh  bool
	PipScale float64

	// Prime term: sum of PrimeBase^(len-1) over runs of two or more made points
	Prime     float64
	PrimeBase float64

	// Blot term: per-blot penalty by zone, scaled by BlotBarMultiplier while
	// the opponent has a checker on the bar
	Blot              float64
	BlotHome          float64
	BlotOuter         float64
	BlotOther         float64
	BlotBarMultiplier float64

	Anchor       float64
	Bar          float64
	Off          float64
	Distribution float64
	Timing       float64
	Center       float64
	KeyPoints    float64
	Mobility     float64
}

// AdvancedWeights is the preset used by the basic and advanced tiers
func AdvancedWeights() Weights {
	return Weights{
		Pip:               1,
		PipScale:          100,
		Prime:             0.3,
		PrimeBase:         1.5,
		Blot:              0.2,
		BlotHome:          2.0,
		BlotOuter:         1.2,
		BlotOther:         0.8,
		BlotBarMultiplier: 1,
		Anchor:            0.4,
		Bar:               0.8,
		Off:               0.4,
		Distribution:      0.1,
		Timing:            0.15,
		Center:            0.1,
	}
}

// SuperiorWeights is the preset used by the superior tier
func SuperiorWeights() Weights {
	return Weights{
		Pip:               1,
		PipTanh:           true,
		PipScale:          100,
		Prime:             0.35,
		PrimeBase:         1.5,
		Blot:              0.25,
		BlotHome:          2.0,
		BlotOuter:         0.8,
		BlotOther:         0.8,
		BlotBarMultiplier: 1.5,
		Anchor:            0.5,
		Bar:               1.0,
		Off:               0.5,
		Distribution:      0.15,
		Timing:            0.2,
		Center:            0.15,
		KeyPoints:         0.1,
		Mobility:          0.1,
	}
}

func (w Weights) vector() []float64 {
	v := make([]float64, numFeatures)
	v[featPip] = w.Pip
	v[featPrime] = w.Prime
	v[featBlot] = -w.Blot
	v[featAnchor] = w.Anchor
	v[featBar] = w.Bar
	v[featOff] = w.Off
	v[featDistribution] = w.Distribution
	v[featTiming] = w.Timing
	v[featCenter] = w.Center
	v[featKeyPoints] = w.KeyPoints
	v[featMobility] = w.Mobility
	return v
}

// keyPoints are the owner-relative indices of the 5, 7, 12, 18 and 20 points
// counted from the far end of the board
var keyPoints = [...]int{4, 6, 11, 17, 19}

// Evaluator is the static positional heuristic. It is immutable and safe
// for concurrent use.
type Evaluator struct {
	weights Weights
	vec     []float64
	table   *bearoff.Table
}

// NewEvaluator creates an evaluator. A nil table selects bearoff.Default().
func NewEvaluator(w Weights, table *bearoff.Table) *Evaluator {
	if table == nil {
		table = bearoff.Default()
	}
	if w.PipScale == 0 {
		w.PipScale = 100
	}
	return &Evaluator{weights: w, vec: w.vector(), table: table}
}

// Weights returns the evaluator's weights
func (ev *Evaluator) Weights() Weights { return ev.weights }

// Score evaluates a position. Positive scores favour White. The score of
// the mirrored position is exactly the negation.
func (ev *Evaluator) Score(pos Position) float64 {
	f := ev.features(pos, true)
	return floats.Dot(ev.vec, f[:])
}

// quickScore is Score without the mobility term. The two never differ by
// more than mobilityBound.
func (ev *Evaluator) quickScore(pos Position) float64 {
	f := ev.features(pos, false)
	return floats.Dot(ev.vec, f[:])
}

// mobilityBound is the largest contribution the mobility term can make
// to a score. Each side's mobility lies in [0, 1].
func (ev *Evaluator) mobilityBound() float64 {
	return math.Abs(ev.weights.Mobility)
}

// Features returns the White-minus-Black feature vector of a position
func (ev *Evaluator) Features(pos Position) [numFeatures]float64 {
	return ev.features(pos, true)
}

func (ev *Evaluator) features(pos Position, withMobility bool) [numFeatures]float64 {
	var f [numFeatures]float64

	diff := pos.PipCount(Black) - pos.PipCount(White)
	switch {
	case pos.IsRace():
		f[featPip] = ev.table.Equity(diff)
	case ev.weights.PipTanh:
		f[featPip] = math.Tanh(float64(diff) / ev.weights.PipScale)
	default:
		f[featPip] = float64(diff) / ev.weights.PipScale
	}

	white := ev.sideFeatures(pos, White, withMobility)
	black := ev.sideFeatures(pos, Black, withMobility)
	for i := featPrime; i < numFeatures; i++ {
		f[i] = white[i] - black[i]
	}
	return f
}

// sideFeatures computes the per-side terms from side s's point of view.
// The pip slot is left empty.
func (ev *Evaluator) sideFeatures(pos Position, s Side, withMobility bool) [numFeatures]float64 {
	var f [numFeatures]float64
	w := ev.weights
	opp := s.Opponent()

	// rel walks the board from s's back (rel 0) to s's last point (rel 23)
	idx := func(rel int) int {
		if s == White {
			return rel
		}
		return NumPoints - 1 - rel
	}

	run := 0
	onBoard, weighted := 0, 0
	blotMult := 1.0
	if pos.BarCount(opp) > 0 && w.BlotBarMultiplier != 0 {
		blotMult = w.BlotBarMultiplier
	}

	for rel := 0; rel < NumPoints; rel++ {
		i := idx(rel)
		n := pos.owned(s, i)

		if n >= 2 {
			run++
		} else {
			if run >= 2 {
				f[featPrime] += math.Pow(w.PrimeBase, float64(run-1))
			}
			run = 0
		}

		if n == 1 {
			var penalty float64
			switch d := distance(s, i); {
			case d <= 6:
				penalty = w.BlotHome
			case d <= 12:
				penalty = w.BlotOuter
			default:
				penalty = w.BlotOther
			}
			f[featBlot] += penalty * blotMult
		}

		if n >= 2 && inHome(opp, i) {
			f[featAnchor]++
		}

		if n > 0 {
			onBoard += n
			if inHome(s, i) {
				weighted += 2 * n
			} else {
				weighted += n
			}
		}

		if i >= 7 && i <= 16 {
			f[featCenter] += float64(n) / 10
		}
	}
	if run >= 2 {
		f[featPrime] += math.Pow(w.PrimeBase, float64(run-1))
	}

	f[featBar] = float64(pos.BarCount(opp))
	f[featOff] = float64(pos.OffCount(s))

	if onBoard > 0 {
		f[featDistribution] = float64(weighted) / float64(onBoard)
	}

	f[featTiming] = float64(pos.OffCount(s))*0.1 - float64(pos.BarCount(s))*0.2
	if pos.AllHome(s) {
		f[featTiming] += 0.3
	}

	if w.KeyPoints != 0 {
		for _, rel := range keyPoints {
			if pos.owned(s, idx(rel)) >= 2 {
				f[featKeyPoints] += 0.2
			}
		}
	}

	if withMobility && w.Mobility != 0 && !pos.Dice.IsZero() {
		f[featMobility] = mobility(pos, s)
	}
	return f
}

// mobilitySaturation is the number of distinct plays at which mobility
// reaches 1
const mobilitySaturation = 20

// mobility is the number of distinct ways side s could play the
// position's dice, scaled to [0, 1]
func mobility(pos Position, s Side) float64 {
	pos.Turn = s
	return float64(countPlays(pos, mobilitySaturation)) / mobilitySaturation
}
