// Package bridge finds words that connect an ordered word pair in a single
// hop and uses them to rewrite text.
package bridge

import (
	"strings"

	"github.com/ritzau/wordgraph/pkg/graph"
)

// Words returns every b with edges w1 -> b and b -> w2, in the order w1's
// outgoing edges were first observed.
//
// A missing w1 or w2 yields a *graph.NodeNotFoundError. When both words
// exist but nothing bridges them the result is an empty, non-nil slice.
func Words(g *graph.Graph, w1, w2 string) ([]string, error) {
	if err := graph.RequireWords(g, w1, w2); err != nil {
		return nil, err
	}

	bridges := make([]string, 0)
	for _, e := range g.OutEdges(w1) {
		if _, exists := g.EdgeBetween(e.To, w2); exists {
			bridges = append(bridges, e.To)
		}
	}
	return bridges, nil
}

// Augment inserts the bridge words of every consecutive token pair between
// the two tokens. Pairs involving unknown words are left as they are. This
// is a single pass: bridges of inserted words are not looked up.
func Augment(g *graph.Graph, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i, token := range tokens {
		out = append(out, token)
		if i+1 == len(tokens) {
			break
		}
		if bridges, err := Words(g, token, tokens[i+1]); err == nil {
			out = append(out, bridges...)
		}
	}
	return out
}

// AugmentText tokenizes text the same way the graph was built and returns
// the augmented tokens joined by single spaces.
func AugmentText(g *graph.Graph, text string) string {
	return strings.Join(Augment(g, graph.Tokenize(text)), " ")
}
