package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// maxLineSize bounds a single line of input text.
const maxLineSize = 4 * 1024 * 1024

// Tokenize case-folds a line and splits it on runs of whitespace.
func Tokenize(line string) []string {
	return strings.Fields(strings.ToLower(line))
}

// SanitizeID strips everything but ASCII letters and digits from a word.
// The result is a display identifier; graph keys stay the raw tokens.
func SanitizeID(word string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, word)
	if cleaned == "" {
		return "_empty_"
	}
	return cleaned
}

// Builder accumulates adjacencies line by line.
type Builder struct {
	g     *Graph
	lines int
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{g: newGraph()}
}

// AddLine tokenizes a line and records every adjacent token pair in it.
// Adjacency never crosses a line boundary.
func (b *Builder) AddLine(line string) {
	b.lines++
	tokens := Tokenize(line)
	for i := 0; i+1 < len(tokens); i++ {
		b.g.addAdjacency(tokens[i], tokens[i+1])
	}
}

// Lines returns the number of lines consumed so far.
func (b *Builder) Lines() int {
	return b.lines
}

// Graph hands the built graph to the caller and resets the builder.
// The returned graph is never touched by the builder again.
func (b *Builder) Graph() *Graph {
	g := b.g
	b.g = newGraph()
	b.lines = 0
	return g
}

// Build builds a graph from in-memory lines.
func Build(lines []string) *Graph {
	b := NewBuilder()
	for _, line := range lines {
		b.AddLine(line)
	}
	return b.Graph()
}

// BuildFromReader consumes r completely before returning a graph. A read
// error yields ErrInputUnavailable and no graph.
func BuildFromReader(r io.Reader) (*Graph, error) {
	b := NewBuilder()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		b.AddLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputUnavailable, err)
	}

	return b.Graph(), nil
}

// BuildFromFile builds a graph from a text file.
func BuildFromFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputUnavailable, err)
	}
	defer f.Close()

	g, err := BuildFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return g, nil
}
