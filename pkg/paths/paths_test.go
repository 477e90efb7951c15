package paths

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/wordgraph/pkg/graph"
)

func scenarioGraph() *graph.Graph {
	return graph.Build([]string{"the cat sat on the mat the cat ran"})
}

func TestFindPathScenario(t *testing.T) {
	g := scenarioGraph()

	edges, err := Dijkstra{}.FindPath(g, "the", "ran")
	if err != nil {
		t.Fatalf("FindPath() error = %v", err)
	}

	want := []graph.Edge{
		{From: "the", To: "cat", Weight: 2},
		{From: "cat", To: "ran", Weight: 1},
	}
	if diff := cmp.Diff(want, edges); diff != "" {
		t.Errorf("FindPath(the, ran) mismatch (-want +got):\n%s", diff)
	}
}

func TestFindPathPrefersLowerWeight(t *testing.T) {
	// a->b->d costs 1+1, a->d costs 3
	g := graph.Build([]string{
		"a d", "a d", "a d",
		"a b d",
	})

	r, err := Between(Dijkstra{}, g, "a", "d")
	if err != nil {
		t.Fatalf("Between() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "d"}, r.Words()); diff != "" {
		t.Errorf("Path mismatch (-want +got):\n%s", diff)
	}
	if r.Cost() != 2 {
		t.Errorf("Expected cost 2, got %d", r.Cost())
	}
}

func TestFindPathSameNode(t *testing.T) {
	g := scenarioGraph()

	for _, word := range g.Words() {
		edges, err := Dijkstra{}.FindPath(g, word, word)
		if err != nil {
			t.Errorf("FindPath(%s, %s) error = %v", word, word, err)
		}
		if len(edges) != 0 {
			t.Errorf("FindPath(%s, %s) = %v, want empty path", word, word, edges)
		}
	}
}

func TestFindPathSelfLoopNode(t *testing.T) {
	g := graph.Build([]string{"a a b"})

	edges, err := Dijkstra{}.FindPath(g, "a", "a")
	if err != nil || len(edges) != 0 {
		t.Errorf("FindPath(a, a) = %v, %v; want empty path", edges, err)
	}

	edges, err = Dijkstra{}.FindPath(g, "a", "b")
	if err != nil || len(edges) != 1 {
		t.Errorf("FindPath(a, b) = %v, %v; want single edge", edges, err)
	}
}

func TestFindPathUnreachable(t *testing.T) {
	g := scenarioGraph()

	edges, err := Dijkstra{}.FindPath(g, "ran", "the")
	if err != nil {
		t.Fatalf("FindPath() error = %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("Expected no path from dead end, got %v", edges)
	}
}

func TestFindPathMissingNode(t *testing.T) {
	g := scenarioGraph()

	tests := []struct {
		src, dst, missing string
	}{
		{"dog", "the", "dog"},
		{"the", "dog", "dog"},
	}
	for _, tt := range tests {
		_, err := Dijkstra{}.FindPath(g, tt.src, tt.dst)
		if !errors.Is(err, graph.ErrNodeNotFound) {
			t.Errorf("FindPath(%s, %s): expected ErrNodeNotFound, got %v", tt.src, tt.dst, err)
			continue
		}
		var nf *graph.NodeNotFoundError
		if errors.As(err, &nf) && nf.Word != tt.missing {
			t.Errorf("Expected missing word %s, got %s", tt.missing, nf.Word)
		}
	}
}

func TestAllFrom(t *testing.T) {
	g := scenarioGraph()

	results, err := AllFrom(Dijkstra{}, g, "cat")
	if err != nil {
		t.Fatalf("AllFrom() error = %v", err)
	}

	var targets []string
	for _, r := range results {
		targets = append(targets, r.To)
	}
	if diff := cmp.Diff([]string{"the", "sat", "on", "mat", "ran"}, targets); diff != "" {
		t.Errorf("Targets mismatch (-want +got):\n%s", diff)
	}

	for _, r := range results {
		if !r.Found() {
			t.Errorf("Expected path cat -> %s", r.To)
		}
	}
}

func TestAllFromReportsNoPath(t *testing.T) {
	g := scenarioGraph()

	results, err := AllFrom(Dijkstra{}, g, "ran")
	if err != nil {
		t.Fatalf("AllFrom() error = %v", err)
	}
	if len(results) != g.Len()-1 {
		t.Fatalf("Expected %d results, got %d", g.Len()-1, len(results))
	}
	for _, r := range results {
		if r.Found() {
			t.Errorf("Unexpected path %s", r)
		}
	}
	if got := results[0].String(); got != "ran -> the: no path" {
		t.Errorf("String() = %q", got)
	}
}

func TestAllFromMissingSource(t *testing.T) {
	_, err := AllFrom(Dijkstra{}, scenarioGraph(), "dog")
	if !errors.Is(err, graph.ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
}

func TestResultString(t *testing.T) {
	r, err := Between(Dijkstra{}, scenarioGraph(), "sat", "mat")
	if err != nil {
		t.Fatal(err)
	}
	if got := r.String(); got != "sat -> on -> the -> mat" {
		t.Errorf("String() = %q", got)
	}
	if r.Cost() != 3 {
		t.Errorf("Cost() = %d, want 3", r.Cost())
	}
}

// delegating is a stand-in strategy proving callers depend only on Finder.
type delegating struct{ inner Finder }

func (r delegating) FindPath(g *graph.Graph, src, dst string) ([]graph.Edge, error) {
	return r.inner.FindPath(g, src, dst)
}

func TestFinderIsSubstitutable(t *testing.T) {
	var f Finder = delegating{inner: Dijkstra{}}

	results, err := AllFrom(f, scenarioGraph(), "the")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Errorf("Expected 5 results, got %d", len(results))
	}
}
