package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/yourusername/bgengine/internal/positionid"
)

// balanced fills in borne-off counts so both sides have 15 checkers
func balanced(p Position) Position {
	for _, s := range []Side{White, Black} {
		p.Off[s.index()] = int8(NumCheckers - p.onBoard(s) - p.BarCount(s))
	}
	return p
}

// layout builds a balanced position from a map of index -> signed count
func layout(turn Side, points map[int]int8) Position {
	var p Position
	p.Turn = turn
	for i, c := range points {
		p.Points[i] = c
	}
	return balanced(p)
}

func TestStartingPosition(t *testing.T) {
	p := StartingPosition()
	if err := p.Validate(); err != nil {
		t.Fatalf("starting position invalid: %v", err)
	}
	if got := p.PipCount(White); got != 167 {
		t.Errorf("White pip count = %d, want 167", got)
	}
	if got := p.PipCount(Black); got != 167 {
		t.Errorf("Black pip count = %d, want 167", got)
	}
	if p.IsRace() {
		t.Error("starting position is not a race")
	}
	if !p.IsStartingLayout() {
		t.Error("IsStartingLayout should be true")
	}
}

func TestValidate(t *testing.T) {
	tooMany := StartingPosition()
	tooMany.Points[1] = 1

	negativeBar := StartingPosition()
	negativeBar.Bar[0] = -1
	negativeBar.Points[0] = 3

	noTurn := StartingPosition()
	noTurn.Turn = 0

	badDice := StartingPosition()
	badDice.Dice = Roll{7, 1}

	tests := []struct {
		name string
		pos  Position
		want error
	}{
		{"sixteen checkers", tooMany, ErrInvalidPosition},
		{"negative bar", negativeBar, ErrInvalidPosition},
		{"no side to move", noTurn, ErrInvalidPosition},
		{"bad dice", badDice, ErrInvalidDice},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.pos.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMirror(t *testing.T) {
	p := layout(White, map[int]int8{0: 2, 10: 3, 20: 5, 3: -4, 14: -1, 23: -6})
	p.Bar = [2]int8{1, 0}
	p.Off[0]--
	p.Dice = Roll{4, 2}

	m := p.Mirror()
	if m.Turn != Black {
		t.Errorf("mirrored turn = %v, want black", m.Turn)
	}
	if m.Points[23] != -2 || m.Points[0] != 6 || m.Points[9] != 1 {
		t.Errorf("points not reflected: %v", m.Points)
	}
	if m.Bar != [2]int8{0, 1} {
		t.Errorf("bar not swapped: %v", m.Bar)
	}
	if m.Dice != p.Dice {
		t.Errorf("dice changed: %v", m.Dice)
	}
	if m.PipCount(Black) != p.PipCount(White) {
		t.Errorf("pip counts differ: %d vs %d", m.PipCount(Black), p.PipCount(White))
	}
	if m.Mirror() != p {
		t.Error("mirroring twice must restore the position")
	}

	start := StartingPosition()
	if start.Mirror().Points != start.Points {
		t.Error("starting layout should be its own mirror image")
	}
}

func TestPositionIDRoundTrip(t *testing.T) {
	positions := []Position{
		StartingPosition(),
		layout(Black, map[int]int8{18: 3, 19: 2, 0: -2, 5: -3}),
	}
	positions[0].Dice = Roll{5, 2}
	positions[1].Bar = [2]int8{0, 1}
	positions[1].Off[1]--

	for _, p := range positions {
		got, err := PositionFromID(p.ID())
		if err != nil {
			t.Fatalf("PositionFromID(%s): %v", p.ID(), err)
		}
		if got != p {
			t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, p)
		}
	}

	if _, err := PositionFromID("not-an-id"); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("bad id error = %v, want ErrInvalidPosition", err)
	}
}

func TestIDIgnoresDiceOrder(t *testing.T) {
	a, b := StartingPosition(), StartingPosition()
	a.Dice = Roll{1, 3}
	b.Dice = Roll{3, 1}
	if a.ID() != b.ID() {
		t.Error("IDs differ for the same roll")
	}
}

func TestIsRace(t *testing.T) {
	race := layout(White, map[int]int8{18: 5, 20: 5, 12: 1, 3: -5, 0: -4, 11: -2})
	if !race.IsRace() {
		t.Error("separated armies should be a race")
	}

	contact := layout(White, map[int]int8{18: 5, 10: 1, 11: -2})
	if contact.IsRace() {
		t.Error("a White checker behind a Black checker is contact")
	}

	onBar := race
	onBar.Bar[1] = 1
	onBar.Off[1]--
	if onBar.IsRace() {
		t.Error("a checker on the bar is contact")
	}
}

func TestAllHome(t *testing.T) {
	p := layout(White, map[int]int8{18: 5, 23: 2, 0: -3})
	if !p.AllHome(White) || !p.AllHome(Black) {
		t.Error("both sides should be home")
	}
	p.Points[17] = 1
	p.Off[0]--
	if p.AllHome(White) {
		t.Error("checker on the 7-point is outside home")
	}
}

func TestDescribe(t *testing.T) {
	p := StartingPosition()
	p.Dice = Roll{3, 1}
	desc := p.Describe()
	for _, want := range []string{"white: 2@24 5@13 3@8 5@6", "black: 2@24", "pips 167", "to move: white", "dice: 3-1"} {
		if !strings.Contains(desc, want) {
			t.Errorf("Describe() missing %q:\n%s", want, desc)
		}
	}
}

func TestRoll(t *testing.T) {
	if got := (Roll{3, 3}).Values(); len(got) != 4 {
		t.Errorf("double should yield 4 values, got %v", got)
	}
	if got := (Roll{2, 5}).Values(); len(got) != 2 || got[0] != 2 || got[1] != 5 {
		t.Errorf("Values() = %v", got)
	}
	if (Roll{0, 0}).Values() != nil {
		t.Error("zero roll has no values")
	}
	if (Roll{2, 5}).Sorted() != (Roll{5, 2}) {
		t.Error("Sorted should put the high die first")
	}
	if (Roll{0, 3}).Valid() || (Roll{6, 7}).Valid() || !(Roll{6, 1}).Valid() {
		t.Error("Valid() is wrong")
	}
}

func TestParseRoll(t *testing.T) {
	for _, s := range []string{"31", "3-1", "3,1", "3 1"} {
		r, err := ParseRoll(s)
		if err != nil || r != (Roll{3, 1}) {
			t.Errorf("ParseRoll(%q) = %v, %v", s, r, err)
		}
	}
	for _, s := range []string{"", "3", "71", "3x1", "123"} {
		if _, err := ParseRoll(s); !errors.Is(err, ErrInvalidDice) {
			t.Errorf("ParseRoll(%q) error = %v, want ErrInvalidDice", s, err)
		}
	}
}

func TestValidateCountsCheckers(t *testing.T) {
	offByOne := StartingPosition()
	offByOne.Points[0]--
	offByOne.Off[0]++

	missing := StartingPosition()
	missing.Points[23]++

	onBar := StartingPosition()
	onBar.Points[23]++
	onBar.Bar[1]++

	tests := []struct {
		name string
		pos  Position
		ok   bool
	}{
		{"start", StartingPosition(), true},
		{"one borne off", offByOne, true},
		{"black short a checker", missing, false},
		{"black checker on the bar", onBar, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pos.Validate()
			if (err == nil) != tc.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tc.ok)
			}
			if (err == nil) != positionid.CheckPosition(tc.pos.board()) {
				t.Errorf("Validate() = %v disagrees with checker conservation", err)
			}
		})
	}
}

func TestMirrorMatchesBoardSwap(t *testing.T) {
	p := layout(White, map[int]int8{0: 2, 10: 3, 20: 5, 3: -4, 14: -1, 23: -6})
	p.Bar = [2]int8{1, 0}
	p.Off[0]--
	p.Dice = Roll{2, 5}
	want := positionid.SwapSides(p.board())
	if got := p.Mirror().board(); got != want {
		t.Errorf("Mirror().board() = %v, want %v", got, want)
	}
	if p.Mirror().Dice != (Roll{2, 5}) {
		t.Errorf("dice order changed: %v", p.Mirror().Dice)
	}
}
