package engine

import "fmt"

// OpeningBook provides fixed plays for every roll from the starting layout.
// These are standard professional choices; the doubles cover the second
// roll of a game that started from the initial layout.

// bookPlay is one checker move in the mover's own point numbers
// (24 = back checkers, 13 = midpoint, 6 = six point)
type bookPlay struct {
	from, to int
}

// OpeningEntry represents a pre-computed opening play
type OpeningEntry struct {
	plays []bookPlay
	Note  string // Brief explanation
}

// openingBook maps dice roll keys to plays
// Key format: high*10 + low
var openingBook = map[int]OpeningEntry{
	// 6-x rolls: run a back checker and bring a builder down
	65: {plays: []bookPlay{{24, 18}, {13, 8}}, Note: "24/18 13/8 - Split and build"},
	64: {plays: []bookPlay{{24, 18}, {13, 9}}, Note: "24/18 13/9 - Split and build"},
	63: {plays: []bookPlay{{24, 18}, {13, 10}}, Note: "24/18 13/10 - Split and build"},
	62: {plays: []bookPlay{{24, 18}, {13, 11}}, Note: "24/18 13/11 - Split and build"},
	61: {plays: []bookPlay{{13, 7}, {8, 7}}, Note: "13/7 8/7 - Make the bar point"},
	// 5-x rolls
	54: {plays: []bookPlay{{24, 20}, {13, 8}}, Note: "24/20 13/8 - Split and build"},
	53: {plays: []bookPlay{{8, 3}, {6, 3}}, Note: "8/3 6/3 - Make the 3-point"},
	52: {plays: []bookPlay{{13, 8}, {13, 11}}, Note: "13/8 13/11 - Bring builders down"},
	51: {plays: []bookPlay{{13, 8}, {24, 23}}, Note: "13/8 24/23 - Build and split"},
	// 4-x rolls
	43: {plays: []bookPlay{{24, 20}, {13, 10}}, Note: "24/20 13/10 - Split and build"},
	42: {plays: []bookPlay{{24, 20}, {13, 11}}, Note: "24/20 13/11 - Split and build"},
	41: {plays: []bookPlay{{24, 23}, {13, 9}}, Note: "24/23 13/9 - Split and build"},
	// 3-x and 2-x
	32: {plays: []bookPlay{{24, 21}, {13, 11}}, Note: "24/21 13/11 - Split and build"},
	31: {plays: []bookPlay{{24, 21}, {13, 12}}, Note: "24/21 13/12 - Split and build"},
	21: {plays: []bookPlay{{13, 11}, {6, 5}}, Note: "13/11 6/5 - Build and slot"},
	// Doubles
	66: {plays: []bookPlay{{24, 18}, {24, 18}, {13, 7}, {13, 7}}, Note: "24/18(2) 13/7(2) - Make both bar points"},
	55: {plays: []bookPlay{{13, 8}, {13, 8}, {8, 3}, {8, 3}}, Note: "13/3(2) - Make the 3-point"},
	44: {plays: []bookPlay{{24, 20}, {20, 16}, {13, 9}, {9, 5}}, Note: "24/16 13/5 - Run and slot"},
	33: {plays: []bookPlay{{24, 21}, {21, 18}, {13, 10}, {10, 7}}, Note: "24/18 13/7 - Split and build"},
	22: {plays: []bookPlay{{24, 22}, {22, 20}, {13, 11}, {11, 9}}, Note: "24/20 13/9 - Split and build"},
	11: {plays: []bookPlay{{8, 7}, {8, 7}, {6, 5}, {6, 5}}, Note: "8/7(2) 6/5(2) - Make the bar and 5-points"},
}

// OpeningBook looks up fixed plays for the starting layout
type OpeningBook struct {
	entries map[int]OpeningEntry
}

// DefaultOpeningBook returns the built-in 21-entry book
func DefaultOpeningBook() *OpeningBook {
	return &OpeningBook{entries: openingBook}
}

// Len returns the number of book entries
func (b *OpeningBook) Len() int { return len(b.entries) }

func bookKey(roll Roll) int {
	r := roll.Sorted()
	return r[0]*10 + r[1]
}

// Entry returns the book entry for a roll
func (b *OpeningBook) Entry(roll Roll) (OpeningEntry, bool) {
	entry, ok := b.entries[bookKey(roll)]
	return entry, ok
}

// Lookup returns the book play for pos if pos has the starting layout.
// The play is translated to the side to move and each move is checked
// against the move generator; a play that is not legal is treated as a miss.
func (b *OpeningBook) Lookup(pos Position, roll Roll) ([]Move, bool) {
	if !pos.IsStartingLayout() {
		return nil, false
	}

	entry, ok := b.Entry(roll)
	if !ok {
		return nil, false
	}

	moves, err := entry.Moves(pos)
	if err != nil || !usesRoll(moves, roll) {
		return nil, false
	}
	return moves, true
}

// usesRoll reports whether the moves play exactly the dice of roll
func usesRoll(moves []Move, roll Roll) bool {
	var count [7]int
	for _, d := range roll.Values() {
		count[d]++
	}
	for _, m := range moves {
		if m.Die < 1 || m.Die > 6 {
			return false
		}
		count[m.Die]--
	}
	return count == [7]int{}
}

// Moves translates the entry into moves for pos's side to move and checks
// each against the move generator
func (o OpeningEntry) Moves(pos Position) ([]Move, error) {
	s := pos.Turn
	moves := make([]Move, 0, len(o.plays))
	for _, p := range o.plays {
		m := Move{From: indexOf(s, p.from), To: indexOf(s, p.to), Die: p.from - p.to}
		if !containsMove(legalMoves(pos, s, m.Die), m) {
			return nil, fmt.Errorf("book move %d/%d is not legal", p.from, p.to)
		}
		pos = Apply(pos, m)
		moves = append(moves, m)
	}
	return moves, nil
}

func containsMove(moves []Move, m Move) bool {
	for _, c := range moves {
		if c == m {
			return true
		}
	}
	return false
}
