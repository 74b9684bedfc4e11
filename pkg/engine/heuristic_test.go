package engine

import (
	"testing"
)

// playedPositions walks a few plies from the start, always taking the
// first legal play, to get a spread of realistic positions
func playedPositions() []Position {
	var out []Position
	p := StartingPosition()
	rolls := []Roll{{3, 1}, {6, 4}, {5, 5}, {2, 1}, {6, 6}, {4, 3}, {5, 2}, {1, 1}, {6, 5}, {4, 2}}
	for i, r := range rolls {
		p.Dice = r
		seqs := GenerateSequences(p)
		p = seqs[(i*7)%len(seqs)].Result
		out = append(out, p)
	}
	return append(out, testPositions()...)
}

func TestScoreSymmetry(t *testing.T) {
	presets := map[string]Weights{
		"advanced": AdvancedWeights(),
		"superior": SuperiorWeights(),
	}

	for name, w := range presets {
		ev := NewEvaluator(w, nil)
		for i, p := range playedPositions() {
			for _, dice := range []Roll{{}, {4, 1}, {3, 3}} {
				p.Dice = dice
				a, b := ev.Score(p), ev.Score(p.Mirror())
				if a != -b {
					t.Errorf("%s position %d dice %v: Score = %v, mirrored = %v", name, i, dice, a, b)
				}
			}
		}
	}
}

func TestScoreStartingPositionIsEven(t *testing.T) {
	for _, w := range []Weights{AdvancedWeights(), SuperiorWeights()} {
		ev := NewEvaluator(w, nil)
		p := StartingPosition()
		p.Dice = Roll{6, 5}
		if got := ev.Score(p); got != 0 {
			t.Errorf("Score(start) = %v, want 0", got)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	ev := NewEvaluator(SuperiorWeights(), nil)
	for _, p := range playedPositions() {
		p.Dice = Roll{2, 1}
		if ev.Score(p) != ev.Score(p) {
			t.Fatal("Score is not deterministic")
		}
	}
}

func TestRaceUsesBearoffTable(t *testing.T) {
	ev := NewEvaluator(AdvancedWeights(), nil)
	p := layout(White, map[int]int8{18: 5, 20: 5, 5: -5, 3: -5})

	diff := p.PipCount(Black) - p.PipCount(White)
	f := ev.Features(p)
	if want := ev.table.Equity(diff); f[featPip] != want {
		t.Errorf("race pip feature = %v, want table value %v (diff %d)", f[featPip], want, diff)
	}

	contact := StartingPosition()
	contact.Points[0] = 1
	contact.Points[2] = 1
	if f := ev.Features(contact); f[featPip] != float64(contact.PipCount(Black)-contact.PipCount(White))/100 {
		t.Errorf("contact pip feature = %v, want linear", f[featPip])
	}
}

func TestBlotPenaltyByZone(t *testing.T) {
	ev := NewEvaluator(AdvancedWeights(), nil)
	base := map[int]int8{18: 4, 19: 4, 20: 4, 23: -5, 22: -5}

	home := copyLayout(base)
	home[21] = 1
	outer := copyLayout(base)
	outer[14] = 1

	h := ev.Features(layout(White, home))[featBlot]
	o := ev.Features(layout(White, outer))[featBlot]
	if h != 2.0 || o != 1.2 {
		t.Errorf("blot penalties home=%v outer=%v, want 2.0 and 1.2", h, o)
	}
	if ev.Score(layout(White, home)) >= ev.Score(layout(White, outer)) {
		t.Error("a home-board blot should cost more than an outfield blot")
	}
}

func TestBlotBarMultiplier(t *testing.T) {
	ev := NewEvaluator(SuperiorWeights(), nil)
	pts := map[int]int8{18: 4, 19: 4, 21: 1, 23: -5, 22: -5}

	calm := layout(White, pts)
	tense := layout(White, pts)
	tense.Bar[1] = 1
	tense.Off[1]--

	if c, s := ev.Features(calm)[featBlot], ev.Features(tense)[featBlot]; s != c*1.5 {
		t.Errorf("blot feature with opponent on the bar = %v, want %v", s, c*1.5)
	}
}

func TestPrimeScoring(t *testing.T) {
	ev := NewEvaluator(AdvancedWeights(), nil)
	prime := layout(White, map[int]int8{13: 2, 14: 2, 15: 2, 16: 2, 17: 2, 18: 2, 0: -2})
	broken := layout(White, map[int]int8{12: 2, 14: 2, 16: 2, 18: 2, 20: 2, 22: 2, 0: -2})

	// one run of six: 1.5^5
	if got := ev.Features(prime)[featPrime]; got != 7.59375 {
		t.Errorf("six-prime feature = %v, want 7.59375", got)
	}
	if got := ev.Features(broken)[featPrime]; got != 0 {
		t.Errorf("scattered points feature = %v, want 0", got)
	}
}

func TestKeyPointsAreOwnerRelative(t *testing.T) {
	ev := NewEvaluator(SuperiorWeights(), nil)
	// White's key points sit at indices 4,6,11,17,19; Black's at 19,17,12,6,4
	white := layout(White, map[int]int8{17: 2, 19: 2, 0: -2})
	if got := ev.Features(white)[featKeyPoints]; got != 0.4 {
		t.Errorf("White key points = %v, want 0.4", got)
	}
	black := layout(White, map[int]int8{6: -2, 4: -2, 23: 2})
	if got := ev.Features(black)[featKeyPoints]; got != -0.4 {
		t.Errorf("Black key points = %v, want -0.4", got)
	}
}

func TestMobilityRequiresDice(t *testing.T) {
	ev := NewEvaluator(SuperiorWeights(), nil)
	p := playedPositions()[3]
	p.Dice = Roll{}
	if got := ev.Features(p)[featMobility]; got != 0 {
		t.Errorf("mobility without dice = %v, want 0", got)
	}
}

func copyLayout(m map[int]int8) map[int]int8 {
	out := make(map[int]int8, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
