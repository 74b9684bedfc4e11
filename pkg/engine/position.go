// Package engine provides the public API for the backgammon engine.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/bgengine/internal/positionid"
)

// Board geometry
const (
	NumPoints   = 24
	NumCheckers = 15

	// BarPoint is the Move.From value of a checker entering from the bar
	BarPoint = 24
	// OffPoint is the Move.To value of a checker being borne off
	OffPoint = -1
)

// Sentinel errors returned by the engine.
var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidDice     = errors.New("invalid dice")
	ErrNoRescorer      = errors.New("no rescorer configured")
)

// Side identifies a player. The value is the sign of that player's
// checker counts on Position.Points.
type Side int8

const (
	// White moves toward increasing indices; home is 18..23
	White Side = 1
	// Black moves toward decreasing indices; home is 0..5
	Black Side = -1
)

// Opponent returns the other side
func (s Side) Opponent() Side { return -s }

// index returns the slot of the side in the Bar and Off arrays
func (s Side) index() int {
	if s == White {
		return 0
	}
	return 1
}

func (s Side) String() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return fmt.Sprintf("Side(%d)", int8(s))
}

// ParseSide parses "white" or "black"
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// distance returns how many pips a checker of side s at index i still
// has to travel to leave the board. The bar is 25 pips away.
func distance(s Side, i int) int {
	if i == BarPoint {
		return 25
	}
	if s == White {
		return NumPoints - i
	}
	return i + 1
}

// pointNumber is the point as the owner calls it (1..24, 25 = bar, 0 = off)
func pointNumber(s Side, i int) int {
	if i == OffPoint {
		return 0
	}
	return distance(s, i)
}

// indexOf is the inverse of pointNumber for on-board points
func indexOf(s Side, point int) int {
	if point == 25 {
		return BarPoint
	}
	if point == 0 {
		return OffPoint
	}
	if s == White {
		return NumPoints - point
	}
	return point - 1
}

// inHome reports whether index i lies in the home board of side s
func inHome(s Side, i int) bool {
	if s == White {
		return i >= 18
	}
	return i <= 5
}

// Roll is a pair of dice. The zero Roll means "not rolled".
type Roll [2]int

// IsDouble reports whether both dice show the same value
func (r Roll) IsDouble() bool { return r[0] == r[1] }

// IsZero reports whether the roll is unset
func (r Roll) IsZero() bool { return r[0] == 0 && r[1] == 0 }

// Valid reports whether both dice are in 1..6
func (r Roll) Valid() bool {
	return r[0] >= 1 && r[0] <= 6 && r[1] >= 1 && r[1] <= 6
}

// Sorted returns the roll with the higher die first
func (r Roll) Sorted() Roll {
	if r[1] > r[0] {
		return Roll{r[1], r[0]}
	}
	return r
}

// Values returns the dice to be played: two values, or four for a double
func (r Roll) Values() []int {
	if r.IsZero() {
		return nil
	}
	if r.IsDouble() {
		return []int{r[0], r[0], r[0], r[0]}
	}
	return []int{r[0], r[1]}
}

func (r Roll) String() string {
	return fmt.Sprintf("%d-%d", r[0], r[1])
}

// ParseRoll parses "31", "3-1", "3,1" or "3 1"
func ParseRoll(s string) (Roll, error) {
	var digits []int
	for _, c := range strings.TrimSpace(s) {
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, int(c-'0'))
		case c == '-' || c == ',' || c == ' ':
		default:
			return Roll{}, fmt.Errorf("%w: %q", ErrInvalidDice, s)
		}
	}
	if len(digits) != 2 {
		return Roll{}, fmt.Errorf("%w: %q", ErrInvalidDice, s)
	}
	r := Roll{digits[0], digits[1]}
	if !r.Valid() {
		return Roll{}, fmt.Errorf("%w: %q", ErrInvalidDice, s)
	}
	return r, nil
}

// Position is a complete board state. It is a value type: copying a
// Position never aliases.
type Position struct {
	Points [NumPoints]int8 // positive = White checkers, negative = Black
	Bar    [2]int8         // indexed by Side.index()
	Off    [2]int8
	Turn   Side
	Dice   Roll
}

// StartingPosition returns the standard starting layout with White to move
func StartingPosition() Position {
	var p Position
	p.Points[0] = 2   // White's 24-point
	p.Points[11] = 5  // 13-point
	p.Points[16] = 3  // 8-point
	p.Points[18] = 5  // 6-point
	p.Points[23] = -2 // Black's 24-point
	p.Points[12] = -5
	p.Points[7] = -3
	p.Points[5] = -5
	p.Turn = White
	return p
}

// BarCount returns the number of checkers side s has on the bar
func (p Position) BarCount(s Side) int { return int(p.Bar[s.index()]) }

// OffCount returns the number of checkers side s has borne off
func (p Position) OffCount(s Side) int { return int(p.Off[s.index()]) }

// owned returns the number of side s checkers on point i (0 if the point is
// empty or held by the opponent)
func (p Position) owned(s Side, i int) int {
	c := int(p.Points[i]) * int(s)
	if c < 0 {
		return 0
	}
	return c
}

// onBoard counts side s checkers on the 24 points
func (p Position) onBoard(s Side) int {
	n := 0
	for i := 0; i < NumPoints; i++ {
		n += p.owned(s, i)
	}
	return n
}

// Validate checks checker conservation and field ranges
func (p Position) Validate() error {
	if p.Turn != White && p.Turn != Black {
		return fmt.Errorf("%w: side to move %d", ErrInvalidPosition, p.Turn)
	}
	for _, s := range []Side{White, Black} {
		if p.BarCount(s) < 0 || p.OffCount(s) < 0 {
			return fmt.Errorf("%w: negative bar or off count for %s", ErrInvalidPosition, s)
		}
	}
	if !positionid.CheckPosition(p.board()) {
		return fmt.Errorf("%w: white has %d checkers, black has %d, want %d", ErrInvalidPosition,
			p.checkers(White), p.checkers(Black), NumCheckers)
	}
	if !p.Dice.IsZero() && !p.Dice.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidDice, p.Dice)
	}
	return nil
}

func (p Position) checkers(s Side) int {
	return p.onBoard(s) + p.BarCount(s) + p.OffCount(s)
}

// Mirror reflects the board (i -> 23-i, signs negated), swaps bars and
// borne-off counts and flips the side to move. Dice are kept.
func (p Position) Mirror() Position {
	return fromBoard(positionid.SwapSides(p.board()))
}

// PipCount returns the total pips side s needs to bear off, with bar
// checkers counting 25 each
func (p Position) PipCount(s Side) int {
	pips := p.BarCount(s) * 25
	for i := 0; i < NumPoints; i++ {
		pips += p.owned(s, i) * distance(s, i)
	}
	return pips
}

// AllHome reports whether every side s checker still in play is in its
// home board
func (p Position) AllHome(s Side) bool {
	if p.BarCount(s) > 0 {
		return false
	}
	for i := 0; i < NumPoints; i++ {
		if p.owned(s, i) > 0 && !inHome(s, i) {
			return false
		}
	}
	return true
}

// IsRace reports whether contact is broken: no checker on the bar and every
// White checker is past every Black checker.
func (p Position) IsRace() bool {
	if p.Bar[0] > 0 || p.Bar[1] > 0 {
		return false
	}
	minWhite, maxBlack := NumPoints, -1
	for i := 0; i < NumPoints; i++ {
		if p.Points[i] > 0 && i < minWhite {
			minWhite = i
		}
		if p.Points[i] < 0 && i > maxBlack {
			maxBlack = i
		}
	}
	return minWhite > maxBlack
}

// IsStartingLayout reports whether the checkers are in the starting
// layout. The side to move and the dice are ignored.
func (p Position) IsStartingLayout() bool {
	start := StartingPosition()
	return p.Points == start.Points && p.Bar == start.Bar && p.Off == start.Off
}

func (p Position) board() positionid.Board {
	b := positionid.Board{
		Turn: int8(p.Turn),
		Dice: [2]uint8{uint8(p.Dice[0]), uint8(p.Dice[1])},
	}
	b.Points = p.Points
	for i := 0; i < 2; i++ {
		b.Bar[i] = uint8(p.Bar[i])
		b.Off[i] = uint8(p.Off[i])
	}
	return b
}

func fromBoard(b positionid.Board) Position {
	p := Position{
		Points: b.Points,
		Turn:   Side(b.Turn),
		Dice:   Roll{int(b.Dice[0]), int(b.Dice[1])},
	}
	for i := 0; i < 2; i++ {
		p.Bar[i] = int8(b.Bar[i])
		p.Off[i] = int8(b.Off[i])
	}
	return p
}

// Key returns the packed position key (dice order is canonical)
func (p Position) Key() positionid.PositionKey {
	return positionid.MakePositionKey(p.board())
}

// ID returns the canonical position ID string (dice order is canonical)
func (p Position) ID() string {
	return positionid.PositionID(p.board())
}

// PositionFromID decodes and validates a position ID
func PositionFromID(id string) (Position, error) {
	b, err := positionid.BoardFromPositionID(id)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	p := fromBoard(b)
	if err := p.Validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}

// Describe renders the position as plain text, each side's checkers listed
// by that side's own point numbers.
func (p Position) Describe() string {
	var sb strings.Builder
	for _, s := range []Side{White, Black} {
		fmt.Fprintf(&sb, "%s:", s)
		for point := 24; point >= 1; point-- {
			if n := p.owned(s, indexOf(s, point)); n > 0 {
				fmt.Fprintf(&sb, " %d@%d", n, point)
			}
		}
		fmt.Fprintf(&sb, " | bar %d | off %d | pips %d\n", p.BarCount(s), p.OffCount(s), p.PipCount(s))
	}
	fmt.Fprintf(&sb, "to move: %s", p.Turn)
	if !p.Dice.IsZero() {
		fmt.Fprintf(&sb, " | dice: %s", p.Dice)
	}
	return sb.String()
}
