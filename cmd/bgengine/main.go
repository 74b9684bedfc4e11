// bgengine - A backgammon position analysis engine
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/bgengine/internal/config"
	"github.com/yourusername/bgengine/pkg/engine"
	"github.com/yourusername/bgengine/pkg/external"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "analyze":
		err = cmdAnalyze(args)
	case "moves":
		err = cmdMoves(args)
	case "eval":
		err = cmdEval(args)
	case "review":
		err = cmdReview(args)
	case "external":
		err = cmdExternal(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bgengine - Backgammon Analysis Engine

Usage: bgengine <command> [options]

Commands:
  analyze   Find the best play for a dice roll
  moves     Rank every legal play of a roll
  eval      Static evaluation of a position
  review    Rate a played move and the luck of the roll
  external  Serve the external player protocol over TCP

Use "bgengine <command> -h" for command-specific help.

Positions are given as position IDs (see "bgengine eval -p start").
"start" is the opening layout with white to move. Dice are written
"31", "3-1" or "3,1". Settings are also read from BG_* environment
variables and an optional .env file.`)
}

// common holds the flags shared by the analysis commands
type common struct {
	cfg      config.Config
	position *string
	dice     *string
	tier     *string
	depth    *int
	asJSON   *bool
	verbose  *bool
}

func newCommon(fs *flag.FlagSet, needDice bool) (*common, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	c := &common{cfg: cfg}
	c.position = fs.String("p", "start", "Position ID, or \"start\"")
	if needDice {
		c.dice = fs.String("d", "", "Dice roll, e.g. 31 or 3-1 (default: dice stored in the position)")
	}
	c.tier = fs.String("tier", cfg.Tier.String(), "Engine tier: basic, advanced or superior")
	c.depth = fs.Int("depth", 0, "Search depth in rolls (0 = tier default, -1 = static only)")
	c.asJSON = fs.Bool("json", false, "Print JSON")
	c.verbose = fs.Bool("v", false, "Debug logging to stderr")
	return c, nil
}

func (c *common) logger() zerolog.Logger {
	if *c.verbose {
		c.cfg.LogLevel = zerolog.DebugLevel
	} else if c.cfg.LogLevel < zerolog.WarnLevel {
		c.cfg.LogLevel = zerolog.WarnLevel
	}
	return c.cfg.NewLogger(os.Stderr)
}

func (c *common) engine(logger *zerolog.Logger) (*engine.Engine, error) {
	tier, err := engine.ParseTier(*c.tier)
	if err != nil {
		return nil, err
	}
	c.cfg.Tier = tier
	opts := c.cfg.EngineOptions(logger)
	opts.Depth = *c.depth
	return engine.NewEngine(opts)
}

// positionAndRoll resolves -p and -d. The roll falls back to the dice in
// the position ID.
func (c *common) positionAndRoll() (engine.Position, engine.Roll, error) {
	pos, err := parsePosition(*c.position)
	if err != nil {
		return engine.Position{}, engine.Roll{}, err
	}
	roll := pos.Dice
	if c.dice != nil && *c.dice != "" {
		if roll, err = engine.ParseRoll(*c.dice); err != nil {
			return engine.Position{}, engine.Roll{}, err
		}
	}
	if !roll.Valid() {
		return engine.Position{}, engine.Roll{}, fmt.Errorf("dice required (-d)")
	}
	pos.Dice = roll
	return pos, roll, nil
}

func parsePosition(s string) (engine.Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "start":
		return engine.StartingPosition(), nil
	}
	return engine.PositionFromID(strings.TrimSpace(s))
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEvaluation(ev *engine.Evaluation) {
	fmt.Printf("Equity: %+.3f\n", ev.Equity)
	fmt.Printf("  Win:    %.1f%% (G: %.1f%%, BG: %.1f%%)\n",
		ev.WinProb*100, ev.WinG*100, ev.WinBG*100)
	fmt.Printf("  Lose:   %.1f%%\n", (1-ev.WinProb)*100)
}

func cmdAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	c, err := newCommon(fs, true)
	if err != nil {
		return err
	}
	rescore := fs.Bool("rescore", false, "Ask the rescoring service (BG_RESCORE_URL)")
	timeout := fs.Duration("timeout", 0, "Stop the search after this long and report the best play so far")
	fs.Parse(args)

	pos, roll, err := c.positionAndRoll()
	if err != nil {
		return err
	}
	logger := c.logger()
	e, err := c.engine(&logger)
	if err != nil {
		return err
	}
	if *rescore && !e.HasRescorer() {
		return engine.ErrNoRescorer
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	ev, err := e.Analyze(ctx, pos, roll, engine.AnalyzeOptions{Rescore: *rescore})
	if err != nil {
		return err
	}
	if *c.asJSON {
		return printJSON(ev)
	}

	fmt.Println(pos.Describe())
	fmt.Printf("Best play for %v: %s\n", roll, engine.FormatMoves(pos.Turn, ev.BestMoves))
	printEvaluation(ev)
	fmt.Printf("  Source: %s, depth %d", ev.Source, ev.Depth)
	if ev.Partial {
		fmt.Print(" (partial)")
	}
	fmt.Printf(", %.2fs\n", time.Since(start).Seconds())
	return nil
}

func cmdMoves(args []string) error {
	fs := flag.NewFlagSet("moves", flag.ExitOnError)
	c, err := newCommon(fs, true)
	if err != nil {
		return err
	}
	numMoves := fs.Int("n", 5, "Number of plays to show (0 = all)")
	fs.Parse(args)

	pos, roll, err := c.positionAndRoll()
	if err != nil {
		return err
	}
	logger := c.logger()
	e, err := c.engine(&logger)
	if err != nil {
		return err
	}

	ranked, err := e.RankSequences(pos, roll)
	if err != nil {
		return err
	}
	total := len(ranked)
	if *numMoves > 0 && *numMoves < total {
		ranked = ranked[:*numMoves]
	}
	if *c.asJSON {
		return printJSON(ranked)
	}

	if total == 1 && len(ranked[0].Moves) == 0 {
		fmt.Println("No legal moves (forced to pass)")
		return nil
	}
	fmt.Printf("Best plays for roll %v (%d legal):\n", roll, total)
	for i, r := range ranked {
		fmt.Printf("  %d. %-20s  Eq: %+.3f\n", i+1, r.Notation, r.Equity)
	}
	return nil
}

func cmdEval(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	c, err := newCommon(fs, false)
	if err != nil {
		return err
	}
	fs.Parse(args)

	pos, err := parsePosition(*c.position)
	if err != nil {
		return err
	}
	logger := c.logger()
	e, err := c.engine(&logger)
	if err != nil {
		return err
	}

	ev, err := e.Evaluate(pos)
	if err != nil {
		return err
	}
	if *c.asJSON {
		return printJSON(struct {
			*engine.Evaluation
			ID   string `json:"id"`
			Pips [2]int `json:"pips"`
		}{ev, pos.ID(), [2]int{pos.PipCount(engine.White), pos.PipCount(engine.Black)}})
	}

	fmt.Println(pos.Describe())
	fmt.Printf("Position ID: %s\n", pos.ID())
	printEvaluation(ev)
	return nil
}

func cmdReview(args []string) error {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	c, err := newCommon(fs, true)
	if err != nil {
		return err
	}
	move := fs.String("m", "", "Play to review, e.g. \"8/5 6/5\" (empty = pass)")
	fs.Parse(args)

	pos, roll, err := c.positionAndRoll()
	if err != nil {
		return err
	}
	var played []engine.Move
	if text := strings.TrimSpace(*move); text != "" && text != "pass" {
		if played, err = engine.ParseMoves(pos.Turn, text); err != nil {
			return err
		}
	}

	logger := c.logger()
	e, err := c.engine(&logger)
	if err != nil {
		return err
	}
	review, err := e.ReviewPlay(pos, roll, played)
	if err != nil {
		return err
	}
	swing, luck, err := e.RollLuck(pos)
	if err != nil {
		return err
	}

	if *c.asJSON {
		return printJSON(struct {
			*engine.PlayReview
			LuckSwing float64         `json:"luckSwing"`
			Luck      engine.LuckType `json:"luck"`
		}{review, swing, luck})
	}

	fmt.Printf("Played: %s%s  (rank %d, equity %+.3f)\n",
		engine.FormatMoves(pos.Turn, review.Played), review.Skill.Abbr(), review.Rank, review.Equity)
	fmt.Printf("Best:   %s  (equity %+.3f)\n", engine.FormatMoves(pos.Turn, review.Best), review.BestEquity)
	fmt.Printf("Loss:   %.3f  %s", review.EquityLoss, review.Skill)
	if review.Forced {
		fmt.Print(" (forced)")
	}
	fmt.Println()
	fmt.Printf("Roll:   %v  %+.3f  %s\n", roll, swing, luck)
	return nil
}

func cmdExternal(args []string) error {
	fs := flag.NewFlagSet("external", flag.ExitOnError)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	defaults := external.DefaultServerOptions()
	addr := fs.String("addr", cfg.ExternalAddr, "Address to listen on")
	tier := fs.String("tier", cfg.Tier.String(), "Engine tier: basic, advanced or superior")
	timeout := fs.Duration("timeout", defaults.Timeout, "Per-request analysis time limit")
	prompt := fs.Bool("prompt", defaults.PromptEnabled, "Send a prompt before each command")
	verbose := fs.Bool("v", false, "Debug logging")
	fs.Parse(args)

	if cfg.Tier, err = engine.ParseTier(*tier); err != nil {
		return err
	}
	if *verbose {
		cfg.LogLevel = zerolog.DebugLevel
	}
	logger := cfg.NewLogger(os.Stderr)

	e, err := engine.NewEngine(cfg.EngineOptions(&logger))
	if err != nil {
		return err
	}

	srv := external.NewServer(e, external.ServerOptions{
		Addr:          *addr,
		Timeout:       *timeout,
		PromptEnabled: *prompt,
		Logger:        &logger,
	})
	if err := srv.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutting down")
	return srv.Stop()
}
