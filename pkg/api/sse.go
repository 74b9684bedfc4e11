package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/yourusername/bgengine/pkg/engine"
)

// SSEProgress is the payload of a "progress" event.
type SSEProgress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Moves     string  `json:"moves"`  // Candidate that just finished
	Equity    float64 `json:"equity"` // Its deep equity
}

// AnalyzeSSE streams the progress of a deep search as Server-Sent Events.
// GET /api/analyze/stream?position=...&dice=31&rescore=true
//
// Events: "progress" per finished candidate, then "result" with the
// AnalyzeResponse and "done". Failures send a single "error" event.
func (h *Handlers) AnalyzeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}

	query := r.URL.Query()
	var dice [2]int
	if s := query.Get("dice"); s != "" {
		roll, err := engine.ParseRoll(s)
		if err != nil {
			writeSSEError(w, err.Error())
			return
		}
		dice = roll
	}
	pos, roll, err := parsePositionRoll(query.Get("position"), dice)
	if err != nil {
		writeSSEError(w, err.Error())
		return
	}
	rescore, _ := strconv.ParseBool(query.Get("rescore"))

	if h.pool != nil {
		release, err := h.pool.Acquire(r.Context(), LaneSlow)
		if err != nil {
			writeSSEError(w, "server busy")
			return
		}
		defer release()
	}

	progress := func(p engine.Progress) {
		writeSSEEvent(w, "progress", SSEProgress{
			Completed: p.Completed,
			Total:     p.Total,
			Percent:   100 * float64(p.Completed) / float64(p.Total),
			Moves:     engine.FormatMoves(pos.Turn, p.Moves),
			Equity:    p.Equity,
		})
		flusher.Flush()
	}

	start := time.Now()
	ev, err := h.engine.Analyze(r.Context(), pos, roll, engine.AnalyzeOptions{Rescore: rescore, Progress: progress})
	if err != nil {
		writeSSEError(w, "analysis failed: "+err.Error())
		return
	}

	writeSSEEvent(w, "result", newAnalyzeResponse(pos, ev, elapsedMs(start)))
	flusher.Flush()

	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
