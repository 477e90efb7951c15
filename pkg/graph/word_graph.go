package graph

// Node is a word in the graph. Its ID is the position of the word's first
// appearance in the source text.
type Node struct {
	id   int64
	Word string
}

// ID returns the dense node ID.
func (n Node) ID() int64 {
	return n.id
}

// Edge is a directed adjacency between two words. Weight counts how many
// times To immediately followed From in the source text.
type Edge struct {
	From   string `json:"source"`
	To     string `json:"target"`
	Weight int    `json:"weight"`
}

type pair struct {
	from, to int64
}

// Graph is a directed, weighted word-adjacency graph.
//
// A Graph is built once by a Builder and never modified afterwards, so any
// number of goroutines may query the same Graph without synchronization.
type Graph struct {
	nodes []Node           // in order of first appearance
	ids   map[string]int64 // word -> node ID
	edges []Edge           // in order of first observation
	index map[pair]int     // (from, to) -> position in edges
	out   [][]int          // node ID -> positions in edges
	in    [][]int          // node ID -> positions in edges
	outW  []int            // node ID -> total outgoing weight
}

func newGraph() *Graph {
	return &Graph{
		ids:   make(map[string]int64),
		index: make(map[pair]int),
	}
}

// addWord adds a word if it is not present yet and returns its node ID.
func (g *Graph) addWord(word string) int64 {
	if id, exists := g.ids[word]; exists {
		return id
	}

	id := int64(len(g.nodes))
	g.nodes = append(g.nodes, Node{id: id, Word: word})
	g.ids[word] = id
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.outW = append(g.outW, 0)
	return id
}

// addAdjacency records one occurrence of to following from.
func (g *Graph) addAdjacency(from, to string) {
	fromID := g.addWord(from)
	toID := g.addWord(to)

	key := pair{from: fromID, to: toID}
	if pos, exists := g.index[key]; exists {
		g.edges[pos].Weight++
	} else {
		pos = len(g.edges)
		g.edges = append(g.edges, Edge{From: from, To: to, Weight: 1})
		g.index[key] = pos
		g.out[fromID] = append(g.out[fromID], pos)
		g.in[toID] = append(g.in[toID], pos)
	}
	g.outW[fromID]++
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct ordered word pairs.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Words returns all words in order of first appearance.
func (g *Graph) Words() []string {
	words := make([]string, len(g.nodes))
	for i, node := range g.nodes {
		words[i] = node.Word
	}
	return words
}

// HasWord reports whether word is a node of the graph.
func (g *Graph) HasWord(word string) bool {
	_, exists := g.ids[word]
	return exists
}

// NodeOf returns the node for a word.
func (g *Graph) NodeOf(word string) (Node, bool) {
	id, exists := g.ids[word]
	if !exists {
		return Node{}, false
	}
	return g.nodes[id], true
}

// EdgeBetween returns the edge from -> to if the pair was ever adjacent.
func (g *Graph) EdgeBetween(from, to string) (Edge, bool) {
	fromID, ok := g.ids[from]
	if !ok {
		return Edge{}, false
	}
	toID, ok := g.ids[to]
	if !ok {
		return Edge{}, false
	}
	pos, exists := g.index[pair{from: fromID, to: toID}]
	if !exists {
		return Edge{}, false
	}
	return g.edges[pos], true
}

// Edges returns all edges in order of first observation.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// OutEdges returns the outgoing edges of word in order of first observation.
func (g *Graph) OutEdges(word string) []Edge {
	id, exists := g.ids[word]
	if !exists {
		return nil
	}
	return g.collect(g.out[id])
}

// InEdges returns the incoming edges of word in order of first observation.
func (g *Graph) InEdges(word string) []Edge {
	id, exists := g.ids[word]
	if !exists {
		return nil
	}
	return g.collect(g.in[id])
}

// OutDegree returns the number of distinct successors of word.
func (g *Graph) OutDegree(word string) int {
	id, exists := g.ids[word]
	if !exists {
		return 0
	}
	return len(g.out[id])
}

// OutWeight returns the summed weight of all outgoing edges of word.
func (g *Graph) OutWeight(word string) int {
	id, exists := g.ids[word]
	if !exists {
		return 0
	}
	return g.outW[id]
}

func (g *Graph) collect(positions []int) []Edge {
	edges := make([]Edge, len(positions))
	for i, pos := range positions {
		edges[i] = g.edges[pos]
	}
	return edges
}
