package paths

import (
	"fmt"

	"github.com/ritzau/wordgraph/pkg/graph"
	"gonum.org/v1/gonum/graph/path"
)

// Dijkstra finds minimum-weight paths with Dijkstra's algorithm.
type Dijkstra struct{}

var _ Finder = Dijkstra{}

// FindPath implements Finder.
func (Dijkstra) FindPath(g *graph.Graph, src, dst string) ([]graph.Edge, error) {
	if err := graph.RequireWords(g, src, dst); err != nil {
		return nil, err
	}
	if src == dst {
		return nil, nil
	}

	from, _ := g.NodeOf(src)
	to, _ := g.NodeOf(dst)

	nodes, _ := path.DijkstraFromTo(from, to, g.Directed())
	if len(nodes) < 2 {
		return nil, nil
	}

	edges := make([]graph.Edge, 0, len(nodes)-1)
	for i := 0; i+1 < len(nodes); i++ {
		u, _ := g.WordOf(nodes[i].ID())
		v, _ := g.WordOf(nodes[i+1].ID())
		e, exists := g.EdgeBetween(u, v)
		if !exists {
			return nil, fmt.Errorf("shortest path uses missing edge %s -> %s", u, v)
		}
		edges = append(edges, e)
	}
	return edges, nil
}
