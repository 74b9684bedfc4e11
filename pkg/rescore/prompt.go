package rescore

import (
	"fmt"
	"strings"

	"github.com/yourusername/bgengine/pkg/engine"
)

// DefaultSystem is the system prompt sent with every request
const DefaultSystem = "You are a world-class backgammon analyst. You evaluate positions precisely. Always answer with valid JSON."

// buildPrompt renders a rescore request as a prompt. Moves are given both
// in the mover's point numbers and as engine indices so the answer can use
// the same {from, to, die} shape.
func buildPrompt(req engine.RescoreRequest) string {
	var b strings.Builder
	pos := req.Position

	b.WriteString("Analyze this backgammon position and the proposed play.\n\n")
	b.WriteString("Board indices run 0..23; white moves toward 23 and bears off past it, black moves toward 0. ")
	fmt.Fprintf(&b, "From %d means the bar, to %d means borne off.\n\n", engine.BarPoint, engine.OffPoint)

	b.WriteString("Position:\n")
	b.WriteString(pos.Describe())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Proposed play: %s\n", engine.FormatMoves(pos.Turn, req.Moves))
	if len(req.Moves) > 0 {
		idx := make([]string, len(req.Moves))
		for i, m := range req.Moves {
			idx[i] = fmt.Sprintf("{\"from\":%d,\"to\":%d,\"die\":%d}", m.From, m.To, m.Die)
		}
		fmt.Fprintf(&b, "As indices: [%s]\n", strings.Join(idx, ","))
	}
	fmt.Fprintf(&b, "Heuristic equity for %s: %.3f\n\n", pos.Turn, req.Equity)

	b.WriteString(`Answer ONLY with one JSON object, no markdown:
{
  "winProbability": 0.0-1.0,
  "gammonProbability": 0.0-1.0,
  "backgammonProbability": 0.0-1.0,
  "equity": -3.0 to 3.0,
  "bestMoves": [{"from": number, "to": number, "die": number}]
}
Probabilities are for the side to move. Keep the proposed play unless a better legal play exists.`)
	return b.String()
}
