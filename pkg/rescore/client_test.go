package rescore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/bgengine/pkg/engine"
)

func testRequest() engine.RescoreRequest {
	pos := engine.StartingPosition()
	pos.Dice = engine.Roll{6, 2}
	moves := []engine.Move{{From: 0, To: 6, Die: 6}, {From: 11, To: 13, Die: 2}}
	return engine.RescoreRequest{
		Position: pos,
		Moves:    moves,
		Equity:   0.05,
		Heuristic: &engine.Evaluation{
			WinProb: 0.525, WinG: 0.105, WinBG: 0.02625, Equity: 0.05,
			BestMoves: moves, Source: engine.SourceSearch, Depth: 2,
		},
	}
}

// generateServer answers /api/generate with the given model text and
// records the last request body
func generateServer(t *testing.T, text string, last *generateRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models":[]}`))
		case "/api/generate":
			if r.Method != http.MethodPost {
				t.Errorf("method = %s", r.Method)
			}
			if last != nil {
				if err := json.NewDecoder(r.Body).Decode(last); err != nil {
					t.Errorf("decoding request: %v", err)
				}
			}
			json.NewEncoder(w).Encode(generateResponse{Response: text})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRescoreFullVerdict(t *testing.T) {
	var got generateRequest
	srv := generateServer(t, "Here you go:\n```json\n{\"winProbability\":0.61,\"gammonProbability\":0.15,\"backgammonProbability\":0.01,\"equity\":0.25,\"bestMoves\":[{\"from\":0,\"to\":8,\"die\":6}]}\n```", &got)
	c := New(Config{BaseURL: srv.URL + "/", Model: "test-model"})

	ev, err := c.Rescore(context.Background(), testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if ev.WinProb != 0.61 || ev.WinG != 0.15 || ev.WinBG != 0.01 || ev.Equity != 0.25 {
		t.Errorf("verdict = %+v", ev)
	}
	if len(ev.BestMoves) != 1 || ev.BestMoves[0] != (engine.Move{From: 0, To: 8, Die: 6}) {
		t.Errorf("BestMoves = %v", ev.BestMoves)
	}

	if got.Model != "test-model" || got.Stream || got.System != DefaultSystem {
		t.Errorf("request = %+v", got)
	}
	if got.Options != DefaultGenerateOptions() {
		t.Errorf("options = %+v", got.Options)
	}
	for _, want := range []string{"24/18 13/11", "white", "dice: 6-2"} {
		if !strings.Contains(got.Prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, got.Prompt)
		}
	}
}

func TestRescoreMissingFieldsKeepHeuristic(t *testing.T) {
	srv := generateServer(t, `{"winProbability": 0.7}`, nil)
	c := New(Config{BaseURL: srv.URL})

	req := testRequest()
	ev, err := c.Rescore(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if ev.WinProb != 0.7 {
		t.Errorf("WinProb = %v, want 0.7", ev.WinProb)
	}
	h := req.Heuristic
	if ev.WinG != h.WinG || ev.WinBG != h.WinBG || ev.Equity != h.Equity || len(ev.BestMoves) != len(h.BestMoves) {
		t.Errorf("missing fields should keep the heuristic values: %+v", ev)
	}
}

func TestRescoreRejectsBadAnswers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"no json", "I think white is better.", ErrNoJSON},
		{"probability above one", `{"winProbability": 1.4}`, ErrOutOfRange},
		{"negative gammons", `{"gammonProbability": -0.1}`, ErrOutOfRange},
		{"huge equity", `{"equity": 12}`, ErrOutOfRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := generateServer(t, tc.text, nil)
			_, err := New(Config{BaseURL: srv.URL}).Rescore(context.Background(), testRequest())
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		srv := generateServer(t, `{"winProbability": }`, nil)
		if _, err := New(Config{BaseURL: srv.URL}).Rescore(context.Background(), testRequest()); err == nil {
			t.Error("expected a decoding error")
		}
	})
}

func TestRescoreHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.Rescore(context.Background(), testRequest()); err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v, want a status error", err)
	}
	if c.Available(context.Background()) {
		t.Error("a 503 health check should report unavailable")
	}
}

func TestRescoreTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := New(Config{BaseURL: srv.URL}).Rescore(ctx, testRequest()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestAvailable(t *testing.T) {
	srv := generateServer(t, "", nil)
	if !New(Config{BaseURL: srv.URL}).Available(context.Background()) {
		t.Error("server should be available")
	}

	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()
	if New(Config{BaseURL: url}).Available(context.Background()) {
		t.Error("closed server should be unavailable")
	}
}

func TestEngineIntegration(t *testing.T) {
	// the model suggests an illegal play; the engine keeps its own moves
	srv := generateServer(t, `{"winProbability":0.55,"gammonProbability":0.1,"backgammonProbability":0.01,"equity":0.1,"bestMoves":[{"from":3,"to":9,"die":6}]}`, nil)

	eng, err := engine.NewEngine(engine.EngineOptions{Depth: 1, BranchCap: 2, Rescorer: New(Config{BaseURL: srv.URL})})
	if err != nil {
		t.Fatal(err)
	}
	pos := engine.StartingPosition()
	ev, err := eng.Analyze(context.Background(), pos, engine.Roll{6, 2}, engine.AnalyzeOptions{Rescore: true})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Source != engine.SourceExternal || ev.WinProb != 0.55 {
		t.Errorf("external verdict not applied: %+v", ev)
	}
	if engine.FormatMoves(pos.Turn, ev.BestMoves) != "24/18 13/11" {
		t.Errorf("BestMoves = %s, want the book play", engine.FormatMoves(pos.Turn, ev.BestMoves))
	}
}
