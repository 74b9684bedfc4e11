package engine

import (
	"fmt"
	"strings"
)

// Move is a single checker movement by one die
type Move struct {
	From int `json:"from"` // 0..23, or BarPoint
	To   int `json:"to"`   // 0..23, or OffPoint
	Die  int `json:"die"`
}

// LegalMoves returns every single-die move available to the side to move
func LegalMoves(pos Position, die int) []Move {
	return legalMoves(pos, pos.Turn, die)
}

// open reports whether side s may land on index i
func open(pos Position, s Side, i int) bool {
	return int(pos.Points[i])*int(s) >= -1
}

// legalMoves generates the moves of side s for one die. Sources are
// visited from the furthest from home to the nearest.
func legalMoves(pos Position, s Side, die int) []Move {
	if die < 1 || die > 6 {
		return nil
	}

	// Checkers on the bar must enter before anything else moves
	if pos.BarCount(s) > 0 {
		dest := die - 1
		if s == Black {
			dest = NumPoints - die
		}
		if open(pos, s, dest) {
			return []Move{{From: BarPoint, To: dest, Die: die}}
		}
		return nil
	}

	allHome := pos.AllHome(s)
	var moves []Move
	for k := 0; k < NumPoints; k++ {
		i := k
		if s == Black {
			i = NumPoints - 1 - k
		}
		if pos.owned(s, i) == 0 {
			continue
		}

		dest := i + int(s)*die
		if dest < 0 || dest >= NumPoints {
			if allHome && canBearOff(pos, s, i, die) {
				moves = append(moves, Move{From: i, To: OffPoint, Die: die})
			}
			continue
		}
		if open(pos, s, dest) {
			moves = append(moves, Move{From: i, To: dest, Die: die})
		}
	}
	return moves
}

// canBearOff checks the bear-off rule for a checker of side s on index
// from. An exact roll always bears off; a larger roll only if no checker
// of s sits further from home than from. The caller has already checked
// that every checker is home.
func canBearOff(pos Position, s Side, from, die int) bool {
	d := distance(s, from)
	if die == d {
		return true
	}
	if die < d {
		return false
	}
	for i := 0; i < NumPoints; i++ {
		if pos.owned(s, i) > 0 && distance(s, i) > d {
			return false
		}
	}
	return true
}

// Apply plays a move for the side to move and returns the new position.
// A lone opposing checker on the destination is hit and sent to the bar.
// The side to move is not changed.
func Apply(pos Position, m Move) Position {
	s := pos.Turn
	sign := int8(s)

	if m.From == BarPoint {
		pos.Bar[s.index()]--
	} else {
		pos.Points[m.From] -= sign
	}

	if m.To == OffPoint {
		pos.Off[s.index()]++
		return pos
	}

	if pos.Points[m.To] == -sign {
		pos.Points[m.To] = 0
		pos.Bar[s.Opponent().index()]++
	}
	pos.Points[m.To] += sign
	return pos
}

// IsHit reports whether m hits a blot when played in pos
func IsHit(pos Position, m Move) bool {
	return m.To != OffPoint && pos.Points[m.To] == -int8(pos.Turn)
}

// FormatMove renders a move in the mover's own point numbers, e.g. "13/8",
// "bar/22" or "6/off"
func FormatMove(s Side, m Move) string {
	from := "bar"
	if m.From != BarPoint {
		from = fmt.Sprint(pointNumber(s, m.From))
	}
	to := "off"
	if m.To != OffPoint {
		to = fmt.Sprint(pointNumber(s, m.To))
	}
	return from + "/" + to
}

// FormatMoves renders a turn, e.g. "24/21 13/12". An empty turn is a pass.
func FormatMoves(s Side, moves []Move) string {
	if len(moves) == 0 {
		return "pass"
	}
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = FormatMove(s, m)
	}
	return strings.Join(parts, " ")
}

// ParseMoves parses a turn written in the mover's own point numbers. Each
// move takes the form "from/to" where from may be "bar" and to may be
// "off". The die is inferred from the distance; bear-offs from below the
// die need an explicit "(d)" suffix, e.g. "3/off(5)".
func ParseMoves(s Side, text string) ([]Move, error) {
	var moves []Move
	for _, field := range strings.Fields(text) {
		var m Move
		die := 0
		if paren := strings.IndexByte(field, '('); paren >= 0 && strings.HasSuffix(field, ")") {
			if _, err := fmt.Sscanf(field[paren:], "(%d)", &die); err != nil {
				return nil, fmt.Errorf("bad die in %q: %w", field, err)
			}
			field = field[:paren]
		}
		from, to, ok := strings.Cut(field, "/")
		if !ok {
			return nil, fmt.Errorf("bad move %q", field)
		}

		fromPoint := 25
		if from != "bar" {
			if _, err := fmt.Sscanf(from, "%d", &fromPoint); err != nil || fromPoint < 1 || fromPoint > 24 {
				return nil, fmt.Errorf("bad source in %q", field)
			}
		}
		toPoint := 0
		if to != "off" {
			if _, err := fmt.Sscanf(to, "%d", &toPoint); err != nil || toPoint < 1 || toPoint > 24 {
				return nil, fmt.Errorf("bad destination in %q", field)
			}
		}
		if die == 0 {
			die = fromPoint - toPoint
		}
		if die < 1 || die > 6 {
			return nil, fmt.Errorf("%w: move %q needs die %d", ErrInvalidDice, field, die)
		}

		m.From = indexOf(s, fromPoint)
		m.To = indexOf(s, toPoint)
		m.Die = die
		moves = append(moves, m)
	}
	return moves, nil
}
