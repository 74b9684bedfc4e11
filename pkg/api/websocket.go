package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/bgengine/pkg/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is a generic WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`    // Message type: "analyze", "moves", "review", "ping"
	ID      string          `json:"id"`      // Request ID for correlating responses
	Payload json.RawMessage `json:"payload"` // Type-specific payload
}

// WSResponse is a generic WebSocket response.
type WSResponse struct {
	Type    string      `json:"type"`              // Response type: "progress", "result", "error", "pong"
	ID      string      `json:"id,omitempty"`      // Request ID
	Payload interface{} `json:"payload,omitempty"` // Response data
	Error   string      `json:"error,omitempty"`   // Error message if any
}

// wsIdlePingInterval is how long a connection may go without a write
// before the server pings it
const wsIdlePingInterval = 30 * time.Second

// WSClient represents a connected WebSocket client.
type WSClient struct {
	conn     *websocket.Conn
	handlers *Handlers
	requests chan WSMessage
	sendChan chan WSResponse
	done     chan struct{} // closed when the writer exits
	ctx      context.Context
	cancel   context.CancelFunc
}

// WebSocket handles WebSocket connections for real-time analysis. Requests
// on one connection are served in order; "analyze" streams progress
// messages before its result. The connection context is cancelled as soon
// as the client goes away, which stops any analysis in progress.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	client := &WSClient{
		conn:     conn,
		handlers: h,
		requests: make(chan WSMessage, 16),
		sendChan: make(chan WSResponse, 256),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("websocket connected")
	go client.writePump()
	go client.servePump()
	client.readPump()
}

// writePump owns all writes. Idle connections are pinged; a failed write
// or ping ends the connection.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer func() {
		ticker.Stop()
		c.cancel()
		close(c.done)
		c.conn.Close()
	}()
	lastWrite := time.Now()
	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				c.handlers.log.Debug().Err(err).Msg("websocket ping failed")
				return
			}
			lastWrite = time.Now()
		}
	}
}

// readPump queues requests for servePump. A read error means the client
// is gone and cancels the connection context.
func (c *WSClient) readPump() {
	defer func() {
		c.cancel()
		close(c.requests)
		c.conn.Close()
	}()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case c.requests <- msg:
		case <-c.done:
			return
		}
	}
}

// servePump handles queued requests one at a time
func (c *WSClient) servePump() {
	defer close(c.sendChan)
	for msg := range c.requests {
		if c.ctx.Err() != nil {
			continue
		}
		c.handleMessage(msg)
	}
}

// send queues a response unless the writer has gone away
func (c *WSClient) send(resp WSResponse) {
	select {
	case c.sendChan <- resp:
	case <-c.done:
	}
}

func (c *WSClient) sendError(id, msg string) {
	c.send(WSResponse{Type: "error", ID: id, Error: msg})
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "analyze":
		c.handleAnalyze(msg)
	case "moves":
		c.handleMoves(msg)
	case "review":
		c.handleReview(msg)
	case "ping":
		c.send(WSResponse{Type: "pong", ID: msg.ID})
	default:
		c.sendError(msg.ID, "unknown message type")
	}
}

func (c *WSClient) acquire(id string, lane Lane) (func(), bool) {
	if c.handlers.pool == nil {
		return func() {}, true
	}
	release, err := c.handlers.pool.Acquire(c.ctx, lane)
	if err != nil {
		c.sendError(id, "server busy")
		return nil, false
	}
	return release, true
}

func (c *WSClient) handleAnalyze(msg WSMessage) {
	var req AnalyzeRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}
	pos, roll, err := parsePositionRoll(req.Position, req.Dice)
	if err != nil {
		c.sendError(msg.ID, err.Error())
		return
	}

	release, ok := c.acquire(msg.ID, LaneSlow)
	if !ok {
		return
	}
	defer release()

	progress := func(p engine.Progress) {
		c.send(WSResponse{Type: "progress", ID: msg.ID, Payload: SSEProgress{
			Completed: p.Completed,
			Total:     p.Total,
			Percent:   100 * float64(p.Completed) / float64(p.Total),
			Moves:     engine.FormatMoves(pos.Turn, p.Moves),
			Equity:    p.Equity,
		}})
	}

	start := time.Now()
	ev, err := c.handlers.engine.Analyze(c.ctx, pos, roll, engine.AnalyzeOptions{Rescore: req.Rescore, Progress: progress})
	if err != nil {
		c.sendError(msg.ID, "analysis failed: "+err.Error())
		return
	}
	c.send(WSResponse{Type: "result", ID: msg.ID, Payload: newAnalyzeResponse(pos, ev, elapsedMs(start))})
}

func (c *WSClient) handleMoves(msg WSMessage) {
	var req MovesRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}
	pos, roll, err := parsePositionRoll(req.Position, req.Dice)
	if err != nil {
		c.sendError(msg.ID, err.Error())
		return
	}

	release, ok := c.acquire(msg.ID, LaneFast)
	if !ok {
		return
	}
	defer release()

	ranked, err := c.handlers.engine.RankSequences(pos, roll)
	if err != nil {
		c.sendError(msg.ID, "ranking failed: "+err.Error())
		return
	}
	numLegal := len(ranked)
	if req.NumMoves > 0 && req.NumMoves < numLegal {
		ranked = ranked[:req.NumMoves]
	}
	c.send(WSResponse{Type: "result", ID: msg.ID, Payload: MovesResponse{
		Moves: ranked, NumLegal: numLegal, Dice: roll, Position: req.Position,
	}})
}

func (c *WSClient) handleReview(msg WSMessage) {
	var req ReviewRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendError(msg.ID, "invalid payload")
		return
	}
	pos, roll, err := parsePositionRoll(req.Position, req.Dice)
	if err != nil {
		c.sendError(msg.ID, err.Error())
		return
	}
	var played []engine.Move
	if text := strings.TrimSpace(req.Move); text != "" && text != "pass" {
		if played, err = engine.ParseMoves(pos.Turn, text); err != nil {
			c.sendError(msg.ID, "invalid move notation: "+err.Error())
			return
		}
	}

	release, ok := c.acquire(msg.ID, LaneFast)
	if !ok {
		return
	}
	defer release()

	review, err := c.handlers.engine.ReviewPlay(pos, roll, played)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidPosition) {
			c.sendError(msg.ID, "illegal move: "+err.Error())
			return
		}
		c.sendError(msg.ID, "review failed: "+err.Error())
		return
	}
	c.send(WSResponse{Type: "result", ID: msg.ID, Payload: ReviewResponse{
		PlayReview: review,
		SkillAbbr:  review.Skill.Abbr(),
		PlayedText: engine.FormatMoves(pos.Turn, review.Played),
		BestText:   engine.FormatMoves(pos.Turn, review.Best),
		Suggestion: generateMoveSuggestion(pos.Turn, review),
	}})
}
