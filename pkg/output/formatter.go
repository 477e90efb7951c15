package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/ritzau/wordgraph/pkg/graph"
	"github.com/ritzau/wordgraph/pkg/paths"
	"github.com/ritzau/wordgraph/pkg/rank"
	"github.com/ritzau/wordgraph/pkg/walk"
)

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// PrintGraph prints the node and edge counts followed by every edge with
// its weight.
func PrintGraph(w io.Writer, source string, g *graph.Graph) {
	bold.Fprintln(w, "Word Graph")
	bold.Fprintln(w, "==========")
	fmt.Fprintf(w, "Source: %s\n", source)
	fmt.Fprintf(w, "Words: %d\n", g.Len())
	fmt.Fprintf(w, "Edges: %d\n", g.EdgeCount())
	fmt.Fprintln(w)

	for _, e := range g.Edges() {
		fmt.Fprintf(w, "  %s -> %s ", e.From, e.To)
		cyan.Fprintf(w, "(%d)\n", e.Weight)
	}
}

// PrintPaths prints one line per path result.
func PrintPaths(w io.Writer, results []paths.Result) {
	for _, r := range results {
		if !r.Found() {
			yellow.Fprintf(w, "%s -> %s: no path\n", r.From, r.To)
			continue
		}
		fmt.Fprintf(w, "%s ", strings.Join(r.Words(), " -> "))
		cyan.Fprintf(w, "(cost %d)\n", r.Cost())
	}
}

// PrintBridge prints the outcome of a bridge word query. err is the error
// returned by the query, if any.
func PrintBridge(w io.Writer, w1, w2 string, bridges []string, err error) {
	var nf *graph.NodeNotFoundError
	switch {
	case errors.As(err, &nf):
		red.Fprintf(w, "No %q in the graph!\n", nf.Word)
	case err != nil:
		red.Fprintf(w, "Error: %v\n", err)
	case len(bridges) == 0:
		yellow.Fprintf(w, "No bridge words from %q to %q!\n", w1, w2)
	default:
		fmt.Fprintf(w, "The bridge words from %q to %q are: ", w1, w2)
		green.Fprintln(w, strings.Join(bridges, ", "))
	}
}

// PrintAugmented prints augmented text.
func PrintAugmented(w io.Writer, text string) {
	green.Fprintln(w, text)
}

// PrintRanking prints "word: score" lines in the given order.
func PrintRanking(w io.Writer, scores []rank.Score, res rank.Result) {
	bold.Fprintln(w, "PageRank")
	bold.Fprintln(w, "========")
	if res.Converged {
		green.Fprintf(w, "Converged after %d iterations\n", res.Iterations)
	} else {
		yellow.Fprintf(w, "Stopped after %d iterations without converging\n", res.Iterations)
	}
	fmt.Fprintln(w)

	for _, s := range scores {
		fmt.Fprintf(w, "%s: %.6f\n", s.Word, s.Score)
	}
}

// PrintWalkStep prints one visited word as it arrives.
func PrintWalkStep(w io.Writer, index int, word string) {
	cyan.Fprintf(w, "%4d ", index)
	fmt.Fprintln(w, word)
}

// PrintWalkResult prints the terminal status of a walk.
func PrintWalkResult(w io.Writer, res walk.Result) {
	switch res.Status {
	case walk.Cancelled:
		yellow.Fprintf(w, "Walk stopped after %d words\n", len(res.Visited))
	case walk.Empty:
		yellow.Fprintln(w, "Graph is empty, nothing to walk")
	default:
		green.Fprintf(w, "Walk completed (%s) after %d words\n", statusText(res.Status), len(res.Visited))
	}
}

func statusText(s walk.Status) string {
	switch s {
	case walk.DeadEnd:
		return "dead end"
	case walk.RepeatedEdge:
		return "repeated edge"
	default:
		return s.String()
	}
}
