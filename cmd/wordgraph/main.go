package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ritzau/wordgraph/pkg/bridge"
	"github.com/ritzau/wordgraph/pkg/config"
	"github.com/ritzau/wordgraph/pkg/graph"
	"github.com/ritzau/wordgraph/pkg/logging"
	"github.com/ritzau/wordgraph/pkg/output"
	"github.com/ritzau/wordgraph/pkg/paths"
	"github.com/ritzau/wordgraph/pkg/pubsub"
	"github.com/ritzau/wordgraph/pkg/rank"
	"github.com/ritzau/wordgraph/pkg/walk"
	"github.com/ritzau/wordgraph/pkg/watcher"
	"github.com/ritzau/wordgraph/pkg/web"
	"github.com/ritzau/wordgraph/pkg/workspace"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// Exit codes
const (
	exitOK       = 0
	exitFailure  = 1 // unreadable input or bad usage
	exitNotFound = 2 // a queried word is not in the graph
)

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	f := pflag.NewFlagSet("wordgraph", pflag.ContinueOnError)
	f.SetOutput(stderr)
	f.Usage = func() {
		fmt.Fprintln(stderr, "Usage: wordgraph [flags] <command> [args]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Commands:")
		fmt.Fprintln(stderr, "  graph                  print the words and weighted edges")
		fmt.Fprintln(stderr, "  path <from> [to]       shortest paths from a word")
		fmt.Fprintln(stderr, "  bridge <w1> <w2>       words w such that w1 -> w -> w2")
		fmt.Fprintln(stderr, "  augment <text...>      insert bridge words into text")
		fmt.Fprintln(stderr, "  rank [boost words...]  PageRank of every word")
		fmt.Fprintln(stderr, "  walk                   random walk until an edge repeats")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Flags:")
		fmt.Fprint(stderr, f.FlagUsages())
	}

	f.StringP("input", "i", "", "Text file the graph is built from")
	f.Bool("web", false, "Start web server instead of running a command")
	f.Int("port", 8080, "Port for web server (only used with --web)")
	f.Bool("watch", false, "Reload the graph when the input changes (only used with --web)")
	f.Duration("debounce", 500*time.Millisecond, "Quiet period before a change triggers a reload")
	f.Bool("open", false, "Open a browser on the web server")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	f.Bool("log-json", false, "Log as JSON")
	f.Float64("rank-damping", 0.85, "PageRank damping factor")
	f.Int("rank-iterations", 100, "PageRank iteration cap")
	f.Float64("rank-tolerance", 1e-6, "PageRank convergence tolerance")
	f.Float64("rank-boost", 1.2, "Score multiplier for boosted words")
	f.Duration("walk-delay", 0, "Pause between walk steps")
	f.Uint64("walk-seed", 0, "Random walk seed (0 picks one)")
	f.String("walk-out", "", "File receiving the visited words, one per line")
	return f
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f := newFlagSet(stderr)
	if err := f.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}

	cfg, err := config.Load(f)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	logging.Setup(stderr, logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt), cfg.Log.JSON)

	if cfg.Input == "" {
		fmt.Fprintln(stderr, "Error: no input file, use --input")
		f.Usage()
		return exitFailure
	}

	if cfg.WebMode {
		err = serve(ctx, cfg)
	} else {
		err = runCommand(ctx, cfg, f.Args(), stdout)
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		f.Usage()
		return exitFailure
	case errors.Is(err, graph.ErrNodeNotFound):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitNotFound
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
}

func rankOptions(cfg *config.Config) rank.Options {
	return rank.Options{
		Damping:       cfg.Rank.Damping,
		MaxIterations: cfg.Rank.Iterations,
		Tolerance:     cfg.Rank.Tolerance,
	}
}

func walker(cfg *config.Config) walk.Walker {
	w := walk.Walker{StepDelay: cfg.Walk.Delay}
	if cfg.Walk.Seed != 0 {
		w.Rand = rand.New(rand.NewPCG(cfg.Walk.Seed, cfg.Walk.Seed))
	}
	return w
}

// word folds a command line argument the way graph keys are folded.
func word(arg string) string {
	return strings.ToLower(strings.TrimSpace(arg))
}

func runCommand(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, args := args[0], args[1:]

	if cfg.Watch {
		logging.Warn("--watch only applies to --web, ignoring")
	}

	g, err := graph.BuildFromFile(cfg.Input)
	if err != nil {
		return err
	}
	logging.Debug("graph built", "source", cfg.Input, "nodes", g.Len(), "edges", g.EdgeCount())

	switch cmd {
	case "graph":
		output.PrintGraph(stdout, cfg.Input, g)
		return nil

	case "path":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: path takes <from> [to]", errUsage)
		}
		return runPath(g, args, stdout)

	case "bridge":
		if len(args) != 2 {
			return fmt.Errorf("%w: bridge takes <w1> <w2>", errUsage)
		}
		w1, w2 := word(args[0]), word(args[1])
		bridges, err := bridge.Words(g, w1, w2)
		output.PrintBridge(stdout, w1, w2, bridges, err)
		return err

	case "augment":
		if len(args) == 0 {
			return fmt.Errorf("%w: augment takes <text...>", errUsage)
		}
		output.PrintAugmented(stdout, bridge.AugmentText(g, strings.Join(args, " ")))
		return nil

	case "rank":
		res, err := rank.Compute(g, rankOptions(cfg))
		if err != nil {
			return err
		}
		var boosted []string
		for _, arg := range args {
			boosted = append(boosted, graph.Tokenize(arg)...)
		}
		scores := rank.Boost(res.Scores, boosted, cfg.Rank.Boost)
		output.PrintRanking(stdout, rank.Ranked(scores), res)
		return nil

	case "walk":
		return runWalk(ctx, cfg, g, stdout)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func runPath(g *graph.Graph, args []string, stdout io.Writer) error {
	from := word(args[0])
	finder := paths.Dijkstra{}

	if len(args) == 2 {
		to := word(args[1])
		if g.HasWord(to) {
			result, err := paths.Between(finder, g, from, to)
			if err != nil {
				return err
			}
			output.PrintPaths(stdout, []paths.Result{result})
			return nil
		}
		logging.Warn("destination not in graph, showing all targets", "to", to)
	}

	results, err := paths.AllFrom(finder, g, from)
	if err != nil {
		return err
	}
	output.PrintPaths(stdout, results)
	return nil
}

func runWalk(ctx context.Context, cfg *config.Config, g *graph.Graph, stdout io.Writer) error {
	run := walker(cfg).Start(ctx, g)

	index := 0
	for w := range run.Steps() {
		output.PrintWalkStep(stdout, index, w)
		index++
	}
	res := run.Wait()
	output.PrintWalkResult(stdout, res)

	if cfg.Walk.Out != "" {
		if err := walk.SaveVisited(cfg.Walk.Out, res.Visited); err != nil {
			return fmt.Errorf("saving walk: %w", err)
		}
		logging.Info("walk saved", "path", cfg.Walk.Out, "words", len(res.Visited))
	}
	return nil
}

// serve runs the web server, and the watcher if enabled, until ctx is done.
func serve(ctx context.Context, cfg *config.Config) error {
	publisher := pubsub.NewSSEPublisher()
	ws := workspace.New(cfg.Input, publisher)
	server := web.NewServer(ws, publisher, web.Options{
		Rank:        rankOptions(cfg),
		BoostFactor: cfg.Rank.Boost,
		Walker:      walker(cfg),
		WalkOut:     cfg.Walk.Out,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(ctx, cfg.Port)
	})

	// The server reports load failures over graph_status and keeps running
	g.Go(func() error {
		if err := ws.Load(ctx, "startup"); err != nil && ctx.Err() == nil {
			logging.Warn("initial load failed", "error", err)
		}
		return nil
	})

	if cfg.Watch {
		g.Go(func() error {
			err := watcher.Watch(ctx, ws.Source(), cfg.Debounce, 4*cfg.Debounce, ws.Load)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if cfg.OpenBrowser {
		url := fmt.Sprintf("http://localhost:%d", cfg.Port)
		// Give the listener a moment to come up
		time.AfterFunc(500*time.Millisecond, func() { openBrowser(url) })
	}

	return g.Wait()
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser", "platform", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
