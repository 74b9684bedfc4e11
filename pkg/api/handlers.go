package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/bgengine/pkg/engine"
	"github.com/yourusername/bgengine/pkg/external"
)

// Handlers holds the HTTP handlers and engine reference.
type Handlers struct {
	engine  *engine.Engine
	version string
	pool    *WorkerPool
	log     zerolog.Logger
}

// NewHandlers creates a new Handlers instance without a worker pool.
func NewHandlers(e *engine.Engine, version string) *Handlers {
	return NewHandlersWithPool(e, version, nil)
}

// NewHandlersWithPool creates a new Handlers instance with a worker pool.
func NewHandlersWithPool(e *engine.Engine, version string, pool *WorkerPool) *Handlers {
	return &Handlers{
		engine:  e,
		version: version,
		pool:    pool,
		log:     zerolog.Nop(),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// writeEngineError maps engine sentinel errors to client errors.
func (h *Handlers) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidDice):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_DICE")
	case errors.Is(err, engine.ErrInvalidPosition):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_POSITION")
	default:
		h.log.Error().Err(err).Msg("engine error")
		writeError(w, http.StatusInternalServerError, err.Error(), "ENGINE_ERROR")
	}
}

// acquire takes a pool slot when a pool is configured. On failure the
// response has been written.
func (h *Handlers) acquire(w http.ResponseWriter, r *http.Request, lane Lane) (func(), bool) {
	if h.pool == nil {
		return func() {}, true
	}
	release, err := h.pool.Acquire(r.Context(), lane)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
		return nil, false
	}
	return release, true
}

// decode reads a JSON body. On failure the response has been written.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return false
	}
	return true
}

// parsePositionRoll decodes a position ID and the dice to play. Zero dice
// fall back to the dice stored in the ID.
func parsePositionRoll(id string, dice [2]int) (engine.Position, engine.Roll, error) {
	if id == "" {
		return engine.Position{}, engine.Roll{}, fmt.Errorf("%w: position is required", engine.ErrInvalidPosition)
	}
	pos, err := engine.PositionFromID(id)
	if err != nil {
		return engine.Position{}, engine.Roll{}, err
	}
	roll := engine.Roll(dice)
	if roll.IsZero() {
		roll = pos.Dice
	}
	if !roll.Valid() {
		return engine.Position{}, engine.Roll{}, fmt.Errorf("%w: %v", engine.ErrInvalidDice, roll)
	}
	pos.Dice = roll
	return pos, roll, nil
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Ready:   h.engine != nil,
	}

	if h.engine != nil {
		resp.Tier = h.engine.Options().Tier.String()
		resp.Rescorer = h.engine.HasRescorer()
		resp.Cache = &CacheStats{
			Transpositions: h.engine.Transpositions().Stats(),
			NodeHitRate:    h.engine.NodeCache().HitRate(),
		}
	}

	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}

	writeJSON(w, http.StatusOK, resp)
}

// Analyze handles POST /api/analyze
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decode(w, r, &req) {
		return
	}
	pos, roll, err := parsePositionRoll(req.Position, req.Dice)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	release, ok := h.acquire(w, r, LaneSlow)
	if !ok {
		return
	}
	defer release()

	start := time.Now()
	ev, err := h.engine.Analyze(r.Context(), pos, roll, engine.AnalyzeOptions{Rescore: req.Rescore})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAnalyzeResponse(pos, ev, elapsedMs(start)))
}

// Moves handles POST /api/moves
func (h *Handlers) Moves(w http.ResponseWriter, r *http.Request) {
	var req MovesRequest
	if !decode(w, r, &req) {
		return
	}
	pos, roll, err := parsePositionRoll(req.Position, req.Dice)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	release, ok := h.acquire(w, r, LaneFast)
	if !ok {
		return
	}
	defer release()

	ranked, err := h.engine.RankSequences(pos, roll)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	numLegal := len(ranked)
	if req.NumMoves > 0 && req.NumMoves < numLegal {
		ranked = ranked[:req.NumMoves]
	}
	writeJSON(w, http.StatusOK, MovesResponse{
		Moves:    ranked,
		NumLegal: numLegal,
		Dice:     roll,
		Position: req.Position,
	})
}

// Review handles POST /api/review
func (h *Handlers) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decode(w, r, &req) {
		return
	}
	pos, roll, err := parsePositionRoll(req.Position, req.Dice)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	var played []engine.Move
	if text := strings.TrimSpace(req.Move); text != "" && text != "pass" {
		played, err = engine.ParseMoves(pos.Turn, text)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid move notation: %v", err), "INVALID_MOVE")
			return
		}
	}

	release, ok := h.acquire(w, r, LaneFast)
	if !ok {
		return
	}
	defer release()

	review, err := h.engine.ReviewPlay(pos, roll, played)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidPosition) {
			writeError(w, http.StatusBadRequest, err.Error(), "ILLEGAL_MOVE")
			return
		}
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReviewResponse{
		PlayReview: review,
		SkillAbbr:  review.Skill.Abbr(),
		PlayedText: engine.FormatMoves(pos.Turn, review.Played),
		BestText:   engine.FormatMoves(pos.Turn, review.Best),
		Suggestion: generateMoveSuggestion(pos.Turn, review),
	})
}

// Luck handles POST /api/luck
func (h *Handlers) Luck(w http.ResponseWriter, r *http.Request) {
	var req LuckRequest
	if !decode(w, r, &req) {
		return
	}
	pos, _, err := parsePositionRoll(req.Position, req.Dice)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	release, ok := h.acquire(w, r, LaneFast)
	if !ok {
		return
	}
	defer release()

	swing, luck, err := h.engine.RollLuck(pos)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LuckResponse{Swing: swing, Luck: luck.String()})
}

// FIBSBoard handles POST /api/fibsboard
func (h *Handlers) FIBSBoard(w http.ResponseWriter, r *http.Request) {
	var req FIBSBoardRequest
	if !decode(w, r, &req) {
		return
	}

	fb, err := external.ParseFIBSBoard(req.Board)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_BOARD")
		return
	}
	pos, err := fb.ToPosition()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_BOARD")
		return
	}
	if !pos.Dice.Valid() {
		writeError(w, http.StatusBadRequest, "no dice rolled", "INVALID_DICE")
		return
	}

	release, ok := h.acquire(w, r, LaneSlow)
	if !ok {
		return
	}
	defer release()

	start := time.Now()
	ev, err := h.engine.Analyze(r.Context(), pos, pos.Dice, engine.AnalyzeOptions{Rescore: req.Rescore})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FIBSBoardResponse{
		AnalyzeResponse: newAnalyzeResponse(pos, ev, elapsedMs(start)),
		FIBSMove:        fb.FormatMoves(ev.BestMoves),
	})
}

// generateMoveSuggestion generates an improvement suggestion for a move error.
func generateMoveSuggestion(s engine.Side, review *engine.PlayReview) string {
	if review.Skill == engine.SkillNone || review.Forced {
		return ""
	}

	best := engine.FormatMoves(s, review.Best)
	switch review.Skill {
	case engine.SkillVeryBad:
		return fmt.Sprintf("This was a blunder losing %.3f equity. The best move was %s.",
			review.EquityLoss, best)
	case engine.SkillBad:
		return fmt.Sprintf("This was an error losing %.3f equity. Consider %s instead.",
			review.EquityLoss, best)
	case engine.SkillDoubtful:
		return fmt.Sprintf("This move is questionable (%.3f equity loss). %s was slightly better.",
			review.EquityLoss, best)
	default:
		return ""
	}
}
