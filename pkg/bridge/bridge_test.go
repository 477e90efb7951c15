package bridge

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/wordgraph/pkg/graph"
)

func TestWordsSingleBridge(t *testing.T) {
	g := graph.Build([]string{"w1 b w2"})

	got, err := Words(g, "w1", "w2")
	if err != nil {
		t.Fatalf("Words() error = %v", err)
	}
	if diff := cmp.Diff([]string{"b"}, got); diff != "" {
		t.Errorf("Words(w1, w2) mismatch (-want +got):\n%s", diff)
	}
}

func TestWordsMultipleBridgesInEdgeOrder(t *testing.T) {
	g := graph.Build([]string{
		"seek a new life",
		"seek the new world",
		"seek out",
	})

	got, err := Words(g, "seek", "new")
	if err != nil {
		t.Fatalf("Words() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a", "the"}, got); diff != "" {
		t.Errorf("Words(seek, new) mismatch (-want +got):\n%s", diff)
	}
}

func TestWordsMissingNode(t *testing.T) {
	g := graph.Build([]string{"w1 b w2"})

	tests := []struct {
		w1, w2, missing string
	}{
		{"nope", "w2", "nope"},
		{"w1", "nope", "nope"},
	}
	for _, tt := range tests {
		got, err := Words(g, tt.w1, tt.w2)
		if !errors.Is(err, graph.ErrNodeNotFound) {
			t.Errorf("Words(%s, %s): expected ErrNodeNotFound, got %v (%v)", tt.w1, tt.w2, err, got)
			continue
		}
		var nf *graph.NodeNotFoundError
		if errors.As(err, &nf) && nf.Word != tt.missing {
			t.Errorf("Expected missing word %s, got %s", tt.missing, nf.Word)
		}
		if got != nil {
			t.Errorf("Expected nil bridges with error, got %v", got)
		}
	}
}

func TestWordsNoBridge(t *testing.T) {
	g := graph.Build([]string{"w1 b w2"})

	got, err := Words(g, "w2", "w1")
	if err != nil {
		t.Fatalf("Words() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil result, got %#v", got)
	}
}

func TestWordsTwoHopsIsNotABridge(t *testing.T) {
	g := graph.Build([]string{"a x y b"})

	got, err := Words(g, "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no bridge for a two-hop chain, got %v", got)
	}
}

func TestAugment(t *testing.T) {
	g := graph.Build([]string{
		"to explore strange new worlds",
		"to seek out new life and new civilizations",
	})

	tests := []struct {
		name string
		text string
		want string
	}{
		{"inserts bridge", "seek new life", "seek out new life"},
		{"keeps pairs without bridges", "explore new worlds", "explore strange new worlds"},
		{"unknown words pass through", "boldly go", "boldly go"},
		{"case folded", "Explore NEW", "explore strange new"},
		{"single token", "life", "life"},
		{"empty", "", ""},
		{"last token once", "life new", "life and new"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AugmentText(g, tt.text); got != tt.want {
				t.Errorf("AugmentText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestAugmentDeterministic(t *testing.T) {
	g := graph.Build([]string{"a x b", "a y b", "b z c"})

	first := Augment(g, []string{"a", "b", "c"})
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Augment(g, []string{"a", "b", "c"})); diff != "" {
			t.Fatalf("Augment is not deterministic (-first +got):\n%s", diff)
		}
	}
	if diff := cmp.Diff([]string{"a", "x", "y", "b", "z", "c"}, first); diff != "" {
		t.Errorf("Augment mismatch (-want +got):\n%s", diff)
	}
}

func TestAugmentAlreadyBridgedText(t *testing.T) {
	g := graph.Build([]string{"w1 b w2"})

	if got := AugmentText(g, "w1 b w2"); got != "w1 b w2" {
		t.Errorf("AugmentText(w1 b w2) = %q, want unchanged", got)
	}
}

func TestAugmentIsNotIdempotent(t *testing.T) {
	// y only bridges x and b, so it shows up once x has been inserted.
	g := graph.Build([]string{"a x b", "x y b"})

	once := AugmentText(g, "a b")
	twice := AugmentText(g, once)

	if once != "a x b" {
		t.Errorf("First pass = %q, want %q", once, "a x b")
	}
	if twice != "a x y b" {
		t.Errorf("Second pass = %q, want %q", twice, "a x y b")
	}
}
