// Package external implements a line-oriented external player protocol.
// This allows the engine to play against other backgammon programs
// via a TCP socket using FIBS board format.
//
// Protocol overview:
// - Server listens on a TCP port
// - Client connects and sends one command per line
// - Commands include: fibsboard, evaluation, analyze, id, set, version, exit
// - Positions are sent in FIBS board format or as position IDs
// - Each command gets exactly one response line
package external

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/bgengine/pkg/engine"
)

// Version is reported by the version command
const Version = "bgengine external player protocol 1.0"

// Server implements the external player protocol server.
type Server struct {
	engine   *engine.Engine
	listener net.Listener
	mu       sync.Mutex
	running  bool
	options  ServerOptions
	log      zerolog.Logger
	active   map[net.Conn]struct{}
	conns    sync.WaitGroup
}

// ServerOptions configures the external player server.
type ServerOptions struct {
	Addr          string        // TCP address to listen on
	Timeout       time.Duration // Per-request analysis budget (0 = none)
	PromptEnabled bool          // Send prompts after responses
	Logger        *zerolog.Logger
}

// DefaultServerOptions returns sensible defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Addr:          ":1234",
		Timeout:       30 * time.Second,
		PromptEnabled: true,
	}
}

// NewServer creates a new external player server.
func NewServer(eng *engine.Engine, opts ServerOptions) *Server {
	s := &Server{
		engine:  eng,
		options: opts,
		log:     zerolog.Nop(),
		active:  make(map[net.Conn]struct{}),
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("component", "external").Logger()
	}
	return s
}

// Start begins listening for connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.options.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.options.Addr, err)
	}

	s.listener = listener
	s.running = true
	s.log.Info().Str("addr", listener.Addr().String()).Msg("external player listening")

	go s.acceptLoop()

	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every open connection, then waits for
// the sessions to end.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	err := s.listener.Close()
	for c := range s.active {
		c.Close()
	}
	s.mu.Unlock()

	s.conns.Wait()
	return err
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return // Server stopped
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.active[conn] = struct{}{}
		s.conns.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)

			s.mu.Lock()
			delete(s.active, conn)
			s.mu.Unlock()
		}()
	}
}

// session holds per-connection settings changed with "set"
type session struct {
	timeout time.Duration
	prompt  bool
}

// handleConnection handles a single client connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("client connected")
	defer log.Debug().Msg("client disconnected")

	sess := &session{timeout: s.options.Timeout, prompt: s.options.PromptEnabled}
	reader := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	writePrompt := func() {
		if sess.prompt {
			w.WriteString("> ")
		}
		w.Flush()
	}
	writePrompt()

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		response := s.processCommand(sess, line)
		w.WriteString(response)
		if !strings.HasSuffix(response, "\n") {
			w.WriteString("\n")
		}

		cmd := strings.ToLower(strings.Fields(line)[0])
		if cmd == "exit" || cmd == "quit" {
			w.Flush()
			return
		}
		writePrompt()
	}
}

// processCommand processes a single command and returns the response.
func (s *Server) processCommand(sess *session, cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return "Error: empty command"
	}

	command := strings.ToLower(parts[0])

	switch command {
	case "version":
		return Version

	case "help":
		return helpResponse

	case "exit", "quit":
		return "Goodbye"

	case "set":
		return s.handleSet(sess, parts[1:])

	case "evaluation", "eval":
		return s.handleEvaluation(cmd)

	case "fibsboard":
		return s.handleFIBSBoard(sess, cmd)

	case "analyze":
		return s.handleAnalyze(sess, parts[1:])

	case "id":
		return s.handleID(cmd)

	default:
		// Try to parse as FIBS board directly
		if strings.HasPrefix(cmd, "board:") {
			return s.handleFIBSBoard(sess, cmd)
		}
		return fmt.Sprintf("Error: unknown command '%s'", command)
	}
}

const helpResponse = `Available commands:
  version              - Show version information
  help                 - Show this help
  set <opt> <value>    - Set option (timeout, prompt)
  evaluation <board>   - Static evaluation: equity win gammon backgammon
  fibsboard <board>    - Best move for a FIBS board
  analyze <id> <roll>  - Best move for a position ID and a roll such as 31
  id <board>           - Position ID of a FIBS board
  exit                 - Close connection`

// handleSet handles the set command.
func (s *Server) handleSet(sess *session, args []string) string {
	if len(args) < 2 {
		return "Error: set requires option and value"
	}

	option := strings.ToLower(args[0])
	value := strings.ToLower(args[1])

	switch option {
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return "Error: timeout must be a duration such as 5s"
		}
		sess.timeout = d
		return fmt.Sprintf("timeout set to %v", d)

	case "prompt":
		sess.prompt = value == "on" || value == "true" || value == "1"
		return fmt.Sprintf("prompt set to %v", sess.prompt)

	default:
		return fmt.Sprintf("Error: unknown option '%s'", option)
	}
}

// parseBoardArg extracts and parses the FIBS board in a command
func parseBoardArg(cmd string) (*FIBSBoard, engine.Position, error) {
	boardStart := strings.Index(cmd, "board:")
	if boardStart < 0 {
		return nil, engine.Position{}, errors.New("no board specified")
	}
	fb, err := ParseFIBSBoard(cmd[boardStart:])
	if err != nil {
		return nil, engine.Position{}, err
	}
	pos, err := fb.ToPosition()
	if err != nil {
		return nil, engine.Position{}, err
	}
	return fb, pos, nil
}

// handleEvaluation returns the static equity and win probabilities of a
// position from the side to move's point of view.
func (s *Server) handleEvaluation(cmd string) string {
	_, pos, err := parseBoardArg(cmd)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	eval, err := s.engine.Evaluate(pos)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	return fmt.Sprintf("%.6f %.6f %.6f %.6f", eval.Equity, eval.WinProb, eval.WinG, eval.WinBG)
}

func (s *Server) analysisContext(sess *session) (context.Context, context.CancelFunc) {
	if sess.timeout > 0 {
		return context.WithTimeout(context.Background(), sess.timeout)
	}
	return context.WithCancel(context.Background())
}

// handleFIBSBoard returns the best move for a position.
func (s *Server) handleFIBSBoard(sess *session, cmd string) string {
	fb, pos, err := parseBoardArg(cmd)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	if fb.Doubled {
		return "Error: cube decisions are not supported"
	}
	if pos.Dice.IsZero() {
		return "Error: no dice rolled"
	}

	ctx, cancel := s.analysisContext(sess)
	defer cancel()

	eval, err := s.engine.Analyze(ctx, pos, pos.Dice, engine.AnalyzeOptions{})
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if len(eval.BestMoves) == 0 {
		return "cannot move"
	}
	return fb.FormatMoves(eval.BestMoves)
}

// handleAnalyze answers "analyze <position id> <roll>" in the mover's own
// point numbers.
func (s *Server) handleAnalyze(sess *session, args []string) string {
	if len(args) < 2 {
		return "Error: analyze requires a position ID and a roll"
	}
	pos, err := engine.PositionFromID(args[0])
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	roll, err := engine.ParseRoll(args[1])
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	ctx, cancel := s.analysisContext(sess)
	defer cancel()

	eval, err := s.engine.Analyze(ctx, pos, roll, engine.AnalyzeOptions{})
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("%s %.6f %s", engine.FormatMoves(pos.Turn, eval.BestMoves), eval.Equity, eval.Source)
}

// handleID returns the position ID of a FIBS board, dice included
func (s *Server) handleID(cmd string) string {
	_, pos, err := parseBoardArg(cmd)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return pos.ID()
}
