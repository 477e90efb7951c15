// Package rank computes PageRank scores over a word graph.
//
// Mass held by dead-end words is spread uniformly over all words on every
// iteration, so the scores keep summing to one.
package rank

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ritzau/wordgraph/pkg/graph"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidOptions is returned by Compute for out-of-range options.
var ErrInvalidOptions = errors.New("invalid rank options")

// Options controls the power iteration.
type Options struct {
	Damping       float64
	MaxIterations int
	Tolerance     float64
}

// DefaultOptions returns damping 0.85, 100 iterations and tolerance 1e-6.
func DefaultOptions() Options {
	return Options{
		Damping:       0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// Validate checks that the options describe a well-defined iteration.
func (o Options) Validate() error {
	switch {
	case !(o.Damping > 0 && o.Damping < 1):
		return fmt.Errorf("%w: damping %v not in (0, 1)", ErrInvalidOptions, o.Damping)
	case o.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations %d must be positive", ErrInvalidOptions, o.MaxIterations)
	case o.Tolerance < 0 || math.IsNaN(o.Tolerance):
		return fmt.Errorf("%w: tolerance %v must not be negative", ErrInvalidOptions, o.Tolerance)
	}
	return nil
}

// Result holds the final scores of a Compute run.
type Result struct {
	Scores     map[string]float64
	Iterations int
	Converged  bool
}

// share is the fraction of a predecessor's score flowing along one edge.
type share struct {
	from     int
	fraction float64
}

// Compute runs the power iteration until the largest per-word change drops
// below opts.Tolerance or opts.MaxIterations is reached.
func Compute(g *graph.Graph, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	words := g.Words()
	n := len(words)
	if n == 0 {
		return Result{Scores: map[string]float64{}, Converged: true}, nil
	}

	position := make(map[string]int, n)
	for i, word := range words {
		position[word] = i
	}

	inflow := make([][]share, n)
	var deadEnds []int
	for i, word := range words {
		if g.OutDegree(word) == 0 {
			deadEnds = append(deadEnds, i)
		}
		for _, e := range g.InEdges(word) {
			inflow[i] = append(inflow[i], share{
				from:     position[e.From],
				fraction: float64(e.Weight) / float64(g.OutWeight(e.From)),
			})
		}
	}

	d := opts.Damping
	size := float64(n)
	pr := make([]float64, n)
	for i := range pr {
		pr[i] = 1 / size
	}
	next := make([]float64, n)

	result := Result{}
	for result.Iterations < opts.MaxIterations {
		result.Iterations++

		deadEndMass := 0.0
		for _, i := range deadEnds {
			deadEndMass += pr[i]
		}

		for v, shares := range inflow {
			sum := 0.0
			for _, s := range shares {
				sum += s.fraction * pr[s.from]
			}
			next[v] = sum
		}
		floats.Scale(d, next)
		floats.AddConst((1-d)/size+d*deadEndMass/size, next)

		change := floats.Distance(next, pr, math.Inf(1))
		pr, next = next, pr
		if change < opts.Tolerance {
			result.Converged = true
			break
		}
	}

	result.Scores = make(map[string]float64, n)
	for i, word := range words {
		result.Scores[word] = pr[i]
	}
	return result, nil
}

// Score pairs a word with its rank.
type Score struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Ranked returns the scores sorted by descending score, ties broken by word.
func Ranked(scores map[string]float64) []Score {
	ranked := make([]Score, 0, len(scores))
	for word, score := range scores {
		ranked = append(ranked, Score{Word: word, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Word < ranked[j].Word
	})
	return ranked
}

// Boost returns a copy of scores with every listed word multiplied by
// factor once. Unknown words are ignored. The result no longer sums to one.
func Boost(scores map[string]float64, words []string, factor float64) map[string]float64 {
	listed := make(map[string]bool, len(words))
	for _, word := range words {
		listed[word] = true
	}

	boosted := make(map[string]float64, len(scores))
	for word, score := range scores {
		if listed[word] {
			score *= factor
		}
		boosted[word] = score
	}
	return boosted
}

// Total returns the sum of all scores.
func Total(scores map[string]float64) float64 {
	values := make([]float64, 0, len(scores))
	for _, score := range scores {
		values = append(values, score)
	}
	return floats.Sum(values)
}
