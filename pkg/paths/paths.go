// Package paths answers shortest-path queries over a word graph.
//
// Edge weights are adjacency counts and are used directly as path cost, so
// frequently adjacent words are "further apart". Callers wanting a
// different notion of distance supply their own Finder.
package paths

import (
	"strings"

	"github.com/ritzau/wordgraph/pkg/graph"
)

// Finder finds a minimum-cost path between two words.
//
// FindPath returns the traversed edges in order. An empty result with a nil
// error means src == dst or dst is unreachable. A missing endpoint yields
// a *graph.NodeNotFoundError.
type Finder interface {
	FindPath(g *graph.Graph, src, dst string) ([]graph.Edge, error)
}

// Result is the outcome of a single path query.
type Result struct {
	From  string       `json:"from"`
	To    string       `json:"to"`
	Edges []graph.Edge `json:"edges"`
}

// Found reports whether a non-empty path exists.
func (r Result) Found() bool {
	return len(r.Edges) > 0
}

// Cost returns the summed edge weight of the path.
func (r Result) Cost() int {
	cost := 0
	for _, e := range r.Edges {
		cost += e.Weight
	}
	return cost
}

// Words returns the visited vertex sequence, or nil when there is no path.
func (r Result) Words() []string {
	if !r.Found() {
		return nil
	}
	words := make([]string, 0, len(r.Edges)+1)
	words = append(words, r.Edges[0].From)
	for _, e := range r.Edges {
		words = append(words, e.To)
	}
	return words
}

// String renders "a -> b -> c", or "a -> c: no path".
func (r Result) String() string {
	if !r.Found() {
		return r.From + " -> " + r.To + ": no path"
	}
	return strings.Join(r.Words(), " -> ")
}

// Between runs a single query and wraps it in a Result.
func Between(f Finder, g *graph.Graph, src, dst string) (Result, error) {
	edges, err := f.FindPath(g, src, dst)
	if err != nil {
		return Result{}, err
	}
	return Result{From: src, To: dst, Edges: edges}, nil
}

// AllFrom queries a path from src to every other word, in the graph's
// word order. Unreachable targets are included with an empty path.
func AllFrom(f Finder, g *graph.Graph, src string) ([]Result, error) {
	if err := graph.RequireWords(g, src); err != nil {
		return nil, err
	}

	results := make([]Result, 0, g.Len())
	for _, dst := range g.Words() {
		if dst == src {
			continue
		}
		result, err := Between(f, g, src, dst)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
