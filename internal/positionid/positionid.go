// Package positionid implements canonical position keys for backgammon boards.
//
// A position is packed into 32 bytes: the 24 signed point counts, both bars,
// both borne-off counts, the side to move and the roll (high die first).
// The packed bytes serve two purposes:
//   - PositionKey (8 uint32s) is the fast in-memory key used by the node cache
//   - PositionID is the same bytes as a 43-character URL-safe base64 string,
//     used as the transposition table key and as a wire format
package positionid

import (
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// NumPoints is the number of points on the board
	NumPoints = 24
	// NumBytes is the size of the packed representation
	NumBytes = 32
	// PositionIDLength is the length of a position ID string
	PositionIDLength = 43
	// MaxCheckers is the number of checkers per side
	MaxCheckers = 15
)

// Errors returned when decoding position IDs.
var (
	ErrBadLength = errors.New("positionid: bad length")
	ErrBadID     = errors.New("positionid: malformed id")
)

// Board is the raw content of a position as stored by the engine.
// Points are signed: positive counts belong to the side with Turn == +1,
// negative counts to the side with Turn == -1.
type Board struct {
	Points [NumPoints]int8
	Bar    [2]uint8 // [0] = positive side, [1] = negative side
	Off    [2]uint8
	Turn   int8     // +1 or -1
	Dice   [2]uint8 // high die first, zero when not rolled
}

// PositionKey is a compact binary representation of a position
// Uses 8 uint32s, 4 packed bytes each
type PositionKey struct {
	Data [8]uint32
}

// packBytes lays a board out in its canonical byte order
func packBytes(b Board) [NumBytes]byte {
	var raw [NumBytes]byte
	for i := 0; i < NumPoints; i++ {
		raw[i] = byte(b.Points[i])
	}
	raw[24] = b.Bar[0]
	raw[25] = b.Bar[1]
	raw[26] = b.Off[0]
	raw[27] = b.Off[1]
	raw[28] = byte(b.Turn)

	d0, d1 := b.Dice[0], b.Dice[1]
	if d1 > d0 {
		d0, d1 = d1, d0
	}
	raw[29] = d0
	raw[30] = d1
	return raw
}

// unpackBytes is the inverse of packBytes
func unpackBytes(raw [NumBytes]byte) Board {
	var b Board
	for i := 0; i < NumPoints; i++ {
		b.Points[i] = int8(raw[i])
	}
	b.Bar[0] = raw[24]
	b.Bar[1] = raw[25]
	b.Off[0] = raw[26]
	b.Off[1] = raw[27]
	b.Turn = int8(raw[28])
	b.Dice[0] = raw[29]
	b.Dice[1] = raw[30]
	return b
}

// MakePositionKey creates a compact key from a board.
// Dice order does not matter: {3,1} and {1,3} produce the same key.
func MakePositionKey(b Board) PositionKey {
	var key PositionKey
	raw := packBytes(b)
	for i, j := 0, 0; i < 8; i, j = i+1, j+4 {
		key.Data[i] = uint32(raw[j]) | uint32(raw[j+1])<<8 |
			uint32(raw[j+2])<<16 | uint32(raw[j+3])<<24
	}
	return key
}

// PositionID generates the base64 position ID string for a board
func PositionID(b Board) string {
	raw := packBytes(b)
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

// BoardFromPositionID decodes a position ID string.
// The decoded board is only checked for shape; callers validate checker
// conservation themselves.
func BoardFromPositionID(posID string) (Board, error) {
	if len(posID) != PositionIDLength {
		return Board{}, fmt.Errorf("%w: got %d characters, want %d", ErrBadLength, len(posID), PositionIDLength)
	}

	data, err := base64.RawURLEncoding.DecodeString(posID)
	if err != nil {
		return Board{}, fmt.Errorf("%w: %v", ErrBadID, err)
	}
	if len(data) != NumBytes || data[31] != 0 {
		return Board{}, ErrBadID
	}

	var raw [NumBytes]byte
	copy(raw[:], data)
	b := unpackBytes(raw)

	if b.Turn != 1 && b.Turn != -1 {
		return Board{}, fmt.Errorf("%w: side to move %d", ErrBadID, b.Turn)
	}
	if b.Dice[0] > 6 || b.Dice[1] > 6 {
		return Board{}, fmt.Errorf("%w: dice %v", ErrBadID, b.Dice)
	}
	return b, nil
}

// CheckPosition reports whether a board satisfies checker conservation:
// each side has exactly 15 checkers across points, bar and borne off.
func CheckPosition(b Board) bool {
	var count [2]int
	for _, c := range b.Points {
		if c > 0 {
			count[0] += int(c)
		} else if c < 0 {
			count[1] -= int(c)
		}
	}
	for side := 0; side < 2; side++ {
		count[side] += int(b.Bar[side]) + int(b.Off[side])
		if count[side] != MaxCheckers {
			return false
		}
	}
	return true
}

// EqualKeys returns true if two position keys are identical
func EqualKeys(k1, k2 PositionKey) bool {
	return k1.Data == k2.Data
}

// SwapSides returns the mirror image of a board: points reflected and
// negated, bars and borne-off counts exchanged, side to move flipped.
func SwapSides(b Board) Board {
	var out Board
	for i := 0; i < NumPoints; i++ {
		out.Points[NumPoints-1-i] = -b.Points[i]
	}
	out.Bar[0], out.Bar[1] = b.Bar[1], b.Bar[0]
	out.Off[0], out.Off[1] = b.Off[1], b.Off[0]
	out.Turn = -b.Turn
	out.Dice = b.Dice
	return out
}
