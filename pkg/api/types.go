// Package api provides the HTTP/JSON, SSE and WebSocket surface of the
// backgammon engine.
package api

import "github.com/yourusername/bgengine/pkg/engine"

// ============================================================================
// Request Types
// ============================================================================

// AnalyzeRequest is the request body for POST /api/analyze.
type AnalyzeRequest struct {
	Position string `json:"position"`          // Position ID; the side to move is encoded in it
	Dice     [2]int `json:"dice"`              // Dice roll [die1, die2]
	Rescore  bool   `json:"rescore,omitempty"` // Ask the external rescorer, if one is configured
}

// MovesRequest is the request body for POST /api/moves.
type MovesRequest struct {
	Position string `json:"position"`            // Position ID
	Dice     [2]int `json:"dice"`                // Dice roll
	NumMoves int    `json:"num_moves,omitempty"` // Max moves to return (0 = all)
}

// ReviewRequest is the request body for POST /api/review.
type ReviewRequest struct {
	Position string `json:"position"` // Position ID before the play
	Dice     [2]int `json:"dice"`     // Dice rolled
	Move     string `json:"move"`     // Play in the mover's point numbers, e.g. "8/5 6/5"; "pass" or "" for none
}

// LuckRequest is the request body for POST /api/luck.
type LuckRequest struct {
	Position string `json:"position"` // Position ID
	Dice     [2]int `json:"dice"`     // Dice rolled
}

// FIBSBoardRequest is the request body for POST /api/fibsboard.
type FIBSBoardRequest struct {
	Board   string `json:"board"` // FIBS "board:..." string
	Rescore bool   `json:"rescore,omitempty"`
}

// ============================================================================
// Response Types
// ============================================================================

// PipCounts holds both sides' pip counts.
type PipCounts struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// AnalyzeResponse is the response for POST /api/analyze.
type AnalyzeResponse struct {
	engine.Evaluation
	Notation string    `json:"notation"`   // Best moves in the mover's point numbers
	Position string    `json:"position"`   // Position analyzed
	Dice     [2]int    `json:"dice"`       // Dice used
	Turn     string    `json:"turn"`       // Side to move
	Pips     PipCounts `json:"pips"`       // Pip counts before the play
	Elapsed  float64   `json:"elapsed_ms"` // Time spent in the engine
}

// MovesResponse is the response for POST /api/moves.
type MovesResponse struct {
	Moves    []engine.RankedSequence `json:"moves"`     // Ranked plays (best first)
	NumLegal int                     `json:"num_legal"` // Total number of legal plays
	Dice     [2]int                  `json:"dice"`      // Dice used
	Position string                  `json:"position"`  // Position evaluated
}

// ReviewResponse is the response for POST /api/review.
type ReviewResponse struct {
	*engine.PlayReview
	SkillAbbr  string `json:"skill_abbr"`  // "", "?!", "?", "??"
	PlayedText string `json:"played_text"` // Played moves as notation
	BestText   string `json:"best_text"`   // Best moves as notation
	Suggestion string `json:"suggestion"`  // Improvement suggestion
}

// LuckResponse is the response for POST /api/luck.
type LuckResponse struct {
	Swing float64 `json:"swing"` // Equity of this roll minus the average roll
	Luck  string  `json:"luck"`  // Rating
}

// FIBSBoardResponse is the response for POST /api/fibsboard.
type FIBSBoardResponse struct {
	AnalyzeResponse
	FIBSMove string `json:"fibs_move"` // Best moves in the board's own numbering
}

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error   string `json:"error"`             // Error message
	Code    string `json:"code,omitempty"`    // Error code
	Details string `json:"details,omitempty"` // Additional details
}

// CacheStats summarises the engine caches.
type CacheStats struct {
	Transpositions engine.TranspositionStats `json:"transpositions"`
	NodeHitRate    float64                   `json:"node_hit_rate"` // Percent
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status   string      `json:"status"`          // "ok" or "error"
	Version  string      `json:"version"`         // Engine version
	Ready    bool        `json:"ready"`           // Whether the engine is loaded
	Tier     string      `json:"tier,omitempty"`  // Engine tier
	Rescorer bool        `json:"rescorer"`        // Whether a rescorer is configured
	Pool     *PoolStats  `json:"pool,omitempty"`  // Worker pool statistics
	Cache    *CacheStats `json:"cache,omitempty"` // Cache statistics
}

// ============================================================================
// Helper Functions
// ============================================================================

// newAnalyzeResponse wraps an evaluation with the request context.
func newAnalyzeResponse(pos engine.Position, ev *engine.Evaluation, elapsedMs float64) AnalyzeResponse {
	return AnalyzeResponse{
		Evaluation: *ev,
		Notation:   engine.FormatMoves(pos.Turn, ev.BestMoves),
		Position:   pos.ID(),
		Dice:       pos.Dice,
		Turn:       pos.Turn.String(),
		Pips:       PipCounts{White: pos.PipCount(engine.White), Black: pos.PipCount(engine.Black)},
		Elapsed:    elapsedMs,
	}
}
