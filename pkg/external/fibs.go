package external

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/bgengine/pkg/engine"
)

// ErrBadBoard is returned for board strings that cannot be parsed
var ErrBadBoard = errors.New("invalid FIBS board")

// FIBSBoard represents a parsed FIBS board string.
// See: http://www.fibs.com/fibs_interface.html#board_state
type FIBSBoard struct {
	Player1     string  // Your name
	Player2     string  // Opponent's name
	MatchLength int     // Match length (0 = unlimited)
	Score1      int     // Your score
	Score2      int     // Opponent's score
	Board       [26]int // 0 and 25 are the bars; sign follows Color
	Turn        int     // Color of the side to move (0 = game over)
	Dice        [2]int  // Your dice (0,0 if not rolled)
	OppDice     [2]int  // Opponent's dice
	Cube        int     // Cube value
	Doubled     bool    // Has opponent doubled?
	Color       int     // Your color (1 or -1)
	Direction   int     // 1 if you move from point 1 to 24, -1 otherwise
	Home        int     // Your home slot (0 or 25)
	Bar         int     // Your bar slot (0 or 25)
	OnHome      int     // Your checkers borne off
	OppOnHome   int     // Opponent's checkers borne off
	OnBar       int     // Your checkers on the bar
	OppOnBar    int     // Opponent's checkers on the bar
}

// Field offsets after the "board:" prefix
const (
	fieldBoard     = 5
	fieldTurn      = 31
	fieldDice      = 32
	fieldCube      = 36
	fieldDoubled   = 39
	fieldColor     = 40
	fieldDirection = 41
	fieldHome      = 42
	fieldBar       = 43
	fieldOnHome    = 44
	minFields      = 32
	fullFields     = 48
)

// ParseFIBSBoard parses a FIBS board string.
// Format: board:player1:player2:matchlen:score1:score2:board[26]:turn:dice[4]:cube:...
func ParseFIBSBoard(s string) (*FIBSBoard, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "board:")

	parts := strings.Split(s, ":")
	if len(parts) < minFields {
		return nil, fmt.Errorf("%w: expected at least %d fields, got %d", ErrBadBoard, minFields, len(parts))
	}

	fb := &FIBSBoard{
		Player1:   parts[0],
		Player2:   parts[1],
		Color:     1,
		Direction: 1,
		Bar:       0,
		Home:      25,
	}

	p := &fieldParser{parts: parts}
	fb.MatchLength = p.atoi(2)
	fb.Score1 = p.atoi(3)
	fb.Score2 = p.atoi(4)
	for i := range fb.Board {
		fb.Board[i] = p.atoi(fieldBoard + i)
	}
	fb.Turn = p.atoi(fieldTurn)

	if len(parts) > fieldDice+3 {
		fb.Dice = [2]int{p.atoi(fieldDice), p.atoi(fieldDice + 1)}
		fb.OppDice = [2]int{p.atoi(fieldDice + 2), p.atoi(fieldDice + 3)}
	}
	if len(parts) > fieldCube {
		fb.Cube = p.atoi(fieldCube)
	}
	if len(parts) > fieldDoubled {
		fb.Doubled = p.atoi(fieldDoubled) != 0
	}
	if len(parts) > fieldDirection {
		fb.Color = p.atoi(fieldColor)
		fb.Direction = p.atoi(fieldDirection)
	}
	if len(parts) >= fullFields {
		fb.Home = p.atoi(fieldHome)
		fb.Bar = p.atoi(fieldBar)
		fb.OnHome = p.atoi(fieldOnHome)
		fb.OppOnHome = p.atoi(fieldOnHome + 1)
		fb.OnBar = p.atoi(fieldOnHome + 2)
		fb.OppOnBar = p.atoi(fieldOnHome + 3)
	} else {
		if fb.Direction < 0 {
			fb.Bar, fb.Home = 25, 0
		}
		fb.OnBar = abs(fb.Board[fb.Bar])
		fb.OppOnBar = abs(fb.Board[25-fb.Bar])
	}

	if p.err != nil {
		return nil, p.err
	}
	if fb.Color != 1 && fb.Color != -1 {
		return nil, fmt.Errorf("%w: color %d", ErrBadBoard, fb.Color)
	}
	if fb.Direction != 1 && fb.Direction != -1 {
		return nil, fmt.Errorf("%w: direction %d", ErrBadBoard, fb.Direction)
	}
	return fb, nil
}

// fieldParser collects the first conversion error
type fieldParser struct {
	parts []string
	err   error
}

func (p *fieldParser) atoi(i int) int {
	n, err := strconv.Atoi(strings.TrimSpace(p.parts[i]))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%w: field %d: %v", ErrBadBoard, i, err)
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// YouToMove reports whether the side to move is the board's owner
func (fb *FIBSBoard) YouToMove() bool {
	return fb.Turn == fb.Color
}

// index maps a FIBS point (1..24) to an engine index. The board's owner
// always plays White.
func (fb *FIBSBoard) index(point int) int {
	if fb.Direction > 0 {
		return point - 1
	}
	return engine.NumPoints - point
}

// point is the inverse of index
func (fb *FIBSBoard) point(index int) int {
	if fb.Direction > 0 {
		return index + 1
	}
	return engine.NumPoints - index
}

// ToPosition converts a FIBS board to an engine position. The board's
// owner plays White; borne-off counts are derived from the checkers left.
func (fb *FIBSBoard) ToPosition() (engine.Position, error) {
	var pos engine.Position

	for p := 1; p <= engine.NumPoints; p++ {
		pos.Points[fb.index(p)] = int8(fb.Board[p] * fb.Color)
	}
	pos.Bar = [2]int8{int8(fb.OnBar), int8(fb.OppOnBar)}

	white, black := 0, 0
	for _, c := range pos.Points {
		if c > 0 {
			white += int(c)
		} else {
			black -= int(c)
		}
	}
	pos.Off = [2]int8{
		int8(engine.NumCheckers - white - fb.OnBar),
		int8(engine.NumCheckers - black - fb.OppOnBar),
	}

	switch {
	case fb.Turn == 0:
		return pos, fmt.Errorf("%w: game is over", ErrBadBoard)
	case fb.YouToMove():
		pos.Turn = engine.White
		pos.Dice = engine.Roll(fb.Dice)
	default:
		pos.Turn = engine.Black
		pos.Dice = engine.Roll(fb.OppDice)
	}

	if err := pos.Validate(); err != nil {
		return pos, err
	}
	return pos, nil
}

// FormatMoves formats a turn in FIBS point numbers, e.g. "1/4 19/20"
func (fb *FIBSBoard) FormatMoves(moves []engine.Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = fb.formatPoint(m.From) + "/" + fb.formatPoint(m.To)
	}
	return strings.Join(parts, " ")
}

// formatPoint formats an engine index for FIBS output.
func (fb *FIBSBoard) formatPoint(index int) string {
	switch index {
	case engine.BarPoint:
		return "bar"
	case engine.OffPoint:
		return "off"
	}
	return strconv.Itoa(fb.point(index))
}
