package engine

import (
	"testing"

	"github.com/yourusername/bgengine/internal/positionid"
)

// bruteForce enumerates every ordering of the dice with no source ordering
// and applies the maximal-play rules, returning the set of resulting
// positions
func bruteForce(pos Position) map[positionid.PositionKey]bool {
	type leaf struct {
		pos      Position
		n, total int
	}
	var leaves []leaf

	var rec func(p Position, dice []int, n, total int)
	rec = func(p Position, dice []int, n, total int) {
		played := false
		var tried [7]bool
		for i, d := range dice {
			if tried[d] {
				continue
			}
			tried[d] = true
			rest := append(append([]int{}, dice[:i]...), dice[i+1:]...)
			for _, m := range legalMoves(p, p.Turn, d) {
				played = true
				rec(Apply(p, m), rest, n+1, total+d)
			}
		}
		if !played {
			leaves = append(leaves, leaf{p, n, total})
		}
	}
	rec(pos, pos.Dice.Values(), 0, 0)

	maxN, maxTotal := 0, 0
	for _, l := range leaves {
		if l.n > maxN {
			maxN = l.n
		}
	}
	for _, l := range leaves {
		if l.n == maxN && l.total > maxTotal {
			maxTotal = l.total
		}
	}

	out := make(map[positionid.PositionKey]bool)
	for _, l := range leaves {
		if l.n != maxN {
			continue
		}
		if maxN < len(pos.Dice.Values()) && !pos.Dice.IsDouble() && l.total != maxTotal {
			continue
		}
		out[passTurn(l.pos).Key()] = true
	}
	return out
}

func testPositions() []Position {
	mid := layout(White, map[int]int8{
		0: 1, 4: 2, 11: 3, 16: 2, 18: 3, 19: 2, 20: 2,
		23: -2, 17: -1, 12: -4, 7: -3, 5: -3, 3: -2,
	})
	blackMid := mid.Mirror()
	race := layout(Black, map[int]int8{18: 4, 19: 3, 21: 2, 5: -3, 3: -4, 1: -2})
	withBar := StartingPosition()
	withBar.Points[0] = 1
	withBar.Bar[0] = 1

	return []Position{StartingPosition(), mid, blackMid, race, withBar}
}

func TestGenerateSequencesMatchesBruteForce(t *testing.T) {
	for pi, p := range testPositions() {
		for _, wr := range allRolls() {
			p.Dice = wr.roll
			seqs := GenerateSequences(p)
			want := bruteForce(p)

			got := make(map[positionid.PositionKey]bool)
			for _, seq := range seqs {
				key := seq.Result.Key()
				if got[key] {
					t.Errorf("position %d roll %v: duplicate result", pi, wr.roll)
				}
				got[key] = true
			}

			if len(got) != len(want) {
				t.Errorf("position %d roll %v: %d sequences, brute force finds %d", pi, wr.roll, len(got), len(want))
				continue
			}
			for k := range want {
				if !got[k] {
					t.Errorf("position %d roll %v: missing a result found by brute force", pi, wr.roll)
					break
				}
			}
		}
	}
}

func TestSequenceConservation(t *testing.T) {
	for _, p := range testPositions() {
		for _, wr := range allRolls() {
			p.Dice = wr.roll
			for _, seq := range GenerateSequences(p) {
				if err := seq.Result.Validate(); err != nil {
					t.Errorf("roll %v %s: %v", wr.roll, FormatMoves(p.Turn, seq.Moves), err)
				}
				if seq.Result.Turn != p.Turn.Opponent() {
					t.Errorf("roll %v: turn not passed", wr.roll)
				}
				sum := 0
				for _, m := range seq.Moves {
					sum += m.Die
				}
				if sum != seq.DieSum {
					t.Errorf("DieSum = %d, moves use %d", seq.DieSum, sum)
				}
			}
		}
	}
}

func TestMaximalPlay(t *testing.T) {
	// One White checker on its 24-point; Black holds index 6 so the 6
	// cannot be played first, but 5 then 6 works
	p := layout(White, map[int]int8{0: 1, 6: -2, 1: -13})
	p.Dice = Roll{6, 5}

	seqs := GenerateSequences(p)
	if len(seqs) != 1 {
		t.Fatalf("got %d sequences, want 1", len(seqs))
	}
	if len(seqs[0].Moves) != 2 {
		t.Errorf("both dice must be played: %s", FormatMoves(White, seqs[0].Moves))
	}
	if seqs[0].Result.Points[11] != 1 {
		t.Errorf("checker should end on index 11: %v", seqs[0].Result.Points)
	}
}

func TestForcedLargerDie(t *testing.T) {
	// Either die alone is playable, but not both: index 11 is blocked
	p := layout(White, map[int]int8{0: 1, 11: -2, 1: -13})
	p.Dice = Roll{5, 6}

	seqs := GenerateSequences(p)
	if len(seqs) != 1 {
		t.Fatalf("got %d sequences, want 1", len(seqs))
	}
	want := []Move{{From: 0, To: 6, Die: 6}}
	if len(seqs[0].Moves) != 1 || seqs[0].Moves[0] != want[0] {
		t.Errorf("the larger die must be played: got %s", FormatMoves(White, seqs[0].Moves))
	}
	if seqs[0].DieSum != 6 {
		t.Errorf("DieSum = %d, want 6", seqs[0].DieSum)
	}
}

// Scenario: closed board, checker on the bar
func TestDance(t *testing.T) {
	p := layout(White, map[int]int8{
		0: -2, 1: -2, 2: -2, 3: -2, 4: -2, 5: -2, 10: -3,
		20: 14,
	})
	p.Bar[0] = 1
	p.Off[0] = 0

	if err := p.Validate(); err != nil {
		t.Fatalf("bad test position: %v", err)
	}

	for _, wr := range allRolls() {
		p.Dice = wr.roll
		seqs := GenerateSequences(p)
		if len(seqs) != 1 || len(seqs[0].Moves) != 0 {
			t.Errorf("roll %v: expected a dance, got %d sequences", wr.roll, len(seqs))
			continue
		}
		if seqs[0].Result.Turn != Black {
			t.Errorf("a dance still passes the turn")
		}
	}
}

func TestOpeningDoublesCount(t *testing.T) {
	p := StartingPosition()
	p.Dice = Roll{1, 1}
	seqs := GenerateSequences(p)
	for _, seq := range seqs {
		if len(seq.Moves) != 4 {
			t.Errorf("1-1 sequence with %d moves", len(seq.Moves))
		}
	}
	t.Logf("1-1 from the start: %d distinct plays", len(seqs))

	p.Dice = Roll{3, 1}
	if n := len(GenerateSequences(p)); n != 16 {
		t.Errorf("3-1 from the start: %d distinct plays, want 16", n)
	}
}

func TestCountPlays(t *testing.T) {
	for pi, p := range playedPositions() {
		for _, wr := range allRolls() {
			p.Dice = wr.roll
			seqs := GenerateSequences(p)
			want := len(seqs)
			if want == 1 && len(seqs[0].Moves) == 0 {
				want = 0
			}

			if got := countPlays(p, 1000); got != want {
				t.Errorf("position %d roll %v: countPlays = %d, want %d", pi, wr.roll, got, want)
			}
			if got := countPlays(p, 20); got != min(want, 20) {
				t.Errorf("position %d roll %v: countPlays(20) = %d, want %d", pi, wr.roll, got, min(want, 20))
			}
		}
	}
}
