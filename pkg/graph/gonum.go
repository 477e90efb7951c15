package graph

import (
	"math"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
)

// weightedEdge adapts an Edge to gonum's graph.WeightedEdge.
type weightedEdge struct {
	from, to Node
	weight   float64
}

func (e weightedEdge) From() gonum.Node         { return e.from }
func (e weightedEdge) To() gonum.Node           { return e.to }
func (e weightedEdge) Weight() float64          { return e.weight }
func (e weightedEdge) ReversedEdge() gonum.Edge { return weightedEdge{from: e.to, to: e.from, weight: e.weight} }

// directed is a read-only gonum view of a Graph.
type directed struct {
	g *Graph
}

// Directed returns the graph as a gonum weighted directed graph so gonum
// algorithms can run on it. Node IDs are word positions; iteration follows
// first appearance, which keeps gonum algorithms deterministic.
func (g *Graph) Directed() gonum.WeightedDirected {
	return directed{g: g}
}

// WordOf returns the word for a gonum node ID.
func (g *Graph) WordOf(id int64) (string, bool) {
	if id < 0 || id >= int64(len(g.nodes)) {
		return "", false
	}
	return g.nodes[id].Word, true
}

func (d directed) Node(id int64) gonum.Node {
	if id < 0 || id >= int64(len(d.g.nodes)) {
		return nil
	}
	return d.g.nodes[id]
}

func (d directed) Nodes() gonum.Nodes {
	if len(d.g.nodes) == 0 {
		return gonum.Empty
	}
	nodes := make([]gonum.Node, len(d.g.nodes))
	for i, node := range d.g.nodes {
		nodes[i] = node
	}
	return iterator.NewOrderedNodes(nodes)
}

func (d directed) From(id int64) gonum.Nodes {
	if d.Node(id) == nil || len(d.g.out[id]) == 0 {
		return gonum.Empty
	}
	nodes := make([]gonum.Node, len(d.g.out[id]))
	for i, pos := range d.g.out[id] {
		nodes[i] = d.g.nodes[d.g.ids[d.g.edges[pos].To]]
	}
	return iterator.NewOrderedNodes(nodes)
}

func (d directed) To(id int64) gonum.Nodes {
	if d.Node(id) == nil || len(d.g.in[id]) == 0 {
		return gonum.Empty
	}
	nodes := make([]gonum.Node, len(d.g.in[id]))
	for i, pos := range d.g.in[id] {
		nodes[i] = d.g.nodes[d.g.ids[d.g.edges[pos].From]]
	}
	return iterator.NewOrderedNodes(nodes)
}

func (d directed) HasEdgeBetween(xid, yid int64) bool {
	return d.HasEdgeFromTo(xid, yid) || d.HasEdgeFromTo(yid, xid)
}

func (d directed) HasEdgeFromTo(uid, vid int64) bool {
	_, exists := d.g.index[pair{from: uid, to: vid}]
	return exists
}

func (d directed) Edge(uid, vid int64) gonum.Edge {
	e := d.WeightedEdge(uid, vid)
	if e == nil {
		return nil
	}
	return e
}

func (d directed) WeightedEdge(uid, vid int64) gonum.WeightedEdge {
	pos, exists := d.g.index[pair{from: uid, to: vid}]
	if !exists {
		return nil
	}
	return weightedEdge{
		from:   d.g.nodes[uid],
		to:     d.g.nodes[vid],
		weight: float64(d.g.edges[pos].Weight),
	}
}

// Weight returns the adjacency count of x -> y. A node without a self-loop
// has zero distance to itself.
func (d directed) Weight(xid, yid int64) (w float64, ok bool) {
	if pos, exists := d.g.index[pair{from: xid, to: yid}]; exists {
		return float64(d.g.edges[pos].Weight), true
	}
	if xid == yid {
		return 0, true
	}
	return math.Inf(1), false
}
