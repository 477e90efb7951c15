package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrInputUnavailable is returned when the text source cannot be read.
	// No graph is produced in that case.
	ErrInputUnavailable = errors.New("input unavailable")

	// ErrNodeNotFound matches any *NodeNotFoundError.
	ErrNodeNotFound = errors.New("node not found")
)

// NodeNotFoundError reports a queried word that is not in the graph.
type NodeNotFoundError struct {
	Word string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("word %q is not in the graph", e.Word)
}

// Is makes errors.Is(err, ErrNodeNotFound) hold.
func (e *NodeNotFoundError) Is(target error) bool {
	return target == ErrNodeNotFound
}

// RequireWords returns a *NodeNotFoundError for the first word that is not
// in g.
func RequireWords(g *Graph, words ...string) error {
	for _, word := range words {
		if !g.HasWord(word) {
			return &NodeNotFoundError{Word: word}
		}
	}
	return nil
}
