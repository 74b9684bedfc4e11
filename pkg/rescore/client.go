// Package rescore implements engine.Rescorer on top of an Ollama-style
// text generation endpoint.
package rescore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/bgengine/pkg/engine"
)

// Defaults for Config
const (
	DefaultBaseURL      = "http://localhost:11434"
	DefaultModel        = "deepseek-coder"
	DefaultProbeTimeout = 5 * time.Second
	maxResponseBytes    = 1 << 20
)

var (
	// ErrNoJSON is returned when the model's answer holds no JSON object
	ErrNoJSON = errors.New("no JSON object in response")
	// ErrOutOfRange is returned when a decoded value is outside its range
	ErrOutOfRange = errors.New("value out of range")
)

// GenerateOptions are the sampling parameters sent with each request
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

// DefaultGenerateOptions favour short, near-deterministic answers
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{Temperature: 0.2, NumPredict: 800, TopP: 0.9, TopK: 40}
}

// Config configures a Client. Zero fields take defaults.
type Config struct {
	BaseURL    string
	Model      string
	System     string
	Options    *GenerateOptions
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client posts rescore prompts to <BaseURL>/api/generate
type Client struct {
	baseURL string
	model   string
	system  string
	options GenerateOptions
	http    *http.Client
	log     zerolog.Logger
}

var _ engine.Rescorer = (*Client)(nil)

// New creates a client
func New(cfg Config) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		system:  cfg.System,
		options: DefaultGenerateOptions(),
		http:    cfg.HTTPClient,
		log:     zerolog.Nop(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.system == "" {
		c.system = DefaultSystem
	}
	if cfg.Options != nil {
		c.options = *cfg.Options
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("component", "rescore").Logger()
	}
	return c
}

// Model returns the model name sent with each request
func (c *Client) Model() string { return c.model }

// Available probes <BaseURL>/api/tags. It gives up after five seconds.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, DefaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Msg("rescorer not available")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return resp.StatusCode == http.StatusOK
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	System  string          `json:"system"`
	Options GenerateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Rescore sends the request to the model and decodes its verdict. Fields
// the model leaves out keep the heuristic values.
func (c *Client) Rescore(ctx context.Context, req engine.RescoreRequest) (*engine.Evaluation, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  buildPrompt(req),
		Stream:  false,
		System:  c.system,
		Options: c.options,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generate returned status %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&gen); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	ev, err := parseVerdict(gen.Response, req)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("model", c.model).
		Float64("equity", ev.Equity).
		Dur("elapsed", time.Since(start)).
		Msg("rescored")
	return ev, nil
}

// verdict is the JSON the model is asked for. Pointers tell a missing field
// from a zero value.
type verdict struct {
	WinProbability        *float64      `json:"winProbability"`
	GammonProbability     *float64      `json:"gammonProbability"`
	BackgammonProbability *float64      `json:"backgammonProbability"`
	Equity                *float64      `json:"equity"`
	BestMoves             []engine.Move `json:"bestMoves"`
}

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// parseVerdict extracts the first-to-last brace block of text and merges it
// over the heuristic evaluation in req
func parseVerdict(text string, req engine.RescoreRequest) (*engine.Evaluation, error) {
	text = strings.NewReplacer("```json", "", "```", "").Replace(text)
	raw := jsonObject.FindString(text)
	if raw == "" {
		return nil, ErrNoJSON
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decoding verdict: %w", err)
	}

	var ev engine.Evaluation
	if req.Heuristic != nil {
		ev = *req.Heuristic.Clone()
	} else {
		ev.Equity = req.Equity
		ev.BestMoves = req.Moves
	}

	probs := []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"winProbability", v.WinProbability, &ev.WinProb},
		{"gammonProbability", v.GammonProbability, &ev.WinG},
		{"backgammonProbability", v.BackgammonProbability, &ev.WinBG},
	}
	for _, p := range probs {
		if p.src == nil {
			continue
		}
		if math.IsNaN(*p.src) || *p.src < 0 || *p.src > 1 {
			return nil, fmt.Errorf("%w: %s %v", ErrOutOfRange, p.name, *p.src)
		}
		*p.dst = *p.src
	}

	if v.Equity != nil {
		if math.IsNaN(*v.Equity) || math.Abs(*v.Equity) > 3 {
			return nil, fmt.Errorf("%w: equity %v", ErrOutOfRange, *v.Equity)
		}
		ev.Equity = *v.Equity
	}
	if len(v.BestMoves) > 0 {
		ev.BestMoves = v.BestMoves
	}
	return &ev, nil
}
