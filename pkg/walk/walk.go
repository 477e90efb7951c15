// Package walk runs randomized walks over a word graph.
//
// A walk starts at a uniformly chosen word and keeps following a uniformly
// chosen outgoing edge. It halts at a word without outgoing edges, when the
// chosen edge was already traversed, or when its context is cancelled.
package walk

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/ritzau/wordgraph/pkg/graph"
)

// Status tells why a walk halted.
type Status int

const (
	// Empty means the graph had no words to start from.
	Empty Status = iota
	// DeadEnd means the last word has no outgoing edges.
	DeadEnd
	// RepeatedEdge means the next edge had already been traversed.
	RepeatedEdge
	// Cancelled means the walk's context was done before it halted.
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Empty:
		return "empty"
	case DeadEnd:
		return "dead_end"
	case RepeatedEdge:
		return "repeated_edge"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText renders the status name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Completed reports whether the walk ran to a natural end.
func (s Status) Completed() bool {
	return s == DeadEnd || s == RepeatedEdge
}

// Result is the outcome of a finished walk.
type Result struct {
	Visited []string `json:"visited"`
	Status  Status   `json:"status"`
}

// Walker configures walks. The zero value picks with the global random
// source and does not pause between steps.
type Walker struct {
	// Rand is used for every random choice. A *rand.Rand is not safe for
	// concurrent use, so a Walker with Rand set must not run walks in
	// parallel.
	Rand *rand.Rand

	// StepDelay is slept before each move to a new word.
	StepDelay time.Duration
}

// Run is a walk in progress.
type Run struct {
	steps  chan string
	done   chan struct{}
	result Result
}

// Steps delivers visited words in order, starting with the start word.
// The channel is closed when the walk halts. A consumer that stops reading
// must cancel the walk's context.
func (r *Run) Steps() <-chan string {
	return r.steps
}

// Done is closed when the walk has halted.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the walk halted and returns its result. Words are only
// recorded as visited once they were delivered on Steps, so Steps must be
// drained or the context cancelled for Wait to return.
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Start begins a walk over g on a new goroutine.
func (w Walker) Start(ctx context.Context, g *graph.Graph) *Run {
	run := &Run{
		steps: make(chan string),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(run.done)
		defer close(run.steps)
		run.result = w.walk(ctx, g, run.steps)
	}()
	return run
}

// Walk runs a walk to completion, discarding the step stream.
func (w Walker) Walk(ctx context.Context, g *graph.Graph) Result {
	run := w.Start(ctx, g)
	for range run.Steps() {
	}
	return run.Wait()
}

func (w Walker) walk(ctx context.Context, g *graph.Graph, steps chan<- string) Result {
	words := g.Words()
	if len(words) == 0 {
		return Result{Status: Empty}
	}

	var visited []string
	emit := func(word string) bool {
		select {
		case steps <- word:
			visited = append(visited, word)
			return true
		case <-ctx.Done():
			return false
		}
	}

	if ctx.Err() != nil {
		return Result{Status: Cancelled}
	}
	current := words[w.intN(len(words))]
	if !emit(current) {
		return Result{Visited: visited, Status: Cancelled}
	}

	traversed := make(map[graph.Edge]bool)
	for {
		if ctx.Err() != nil {
			return Result{Visited: visited, Status: Cancelled}
		}

		out := g.OutEdges(current)
		if len(out) == 0 {
			return Result{Visited: visited, Status: DeadEnd}
		}

		edge := out[w.intN(len(out))]
		key := graph.Edge{From: edge.From, To: edge.To}
		if traversed[key] {
			return Result{Visited: visited, Status: RepeatedEdge}
		}
		traversed[key] = true

		if !w.pause(ctx) {
			return Result{Visited: visited, Status: Cancelled}
		}

		current = edge.To
		if !emit(current) {
			return Result{Visited: visited, Status: Cancelled}
		}
	}
}

func (w Walker) intN(n int) int {
	if w.Rand == nil {
		return rand.IntN(n)
	}
	return w.Rand.IntN(n)
}

// pause sleeps StepDelay and reports false if ctx ended first.
func (w Walker) pause(ctx context.Context) bool {
	if w.StepDelay <= 0 {
		return true
	}
	timer := time.NewTimer(w.StepDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// WriteVisited writes one word per line.
func WriteVisited(w io.Writer, visited []string) error {
	bw := bufio.NewWriter(w)
	for _, word := range visited {
		if _, err := bw.WriteString(word + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveVisited writes the visited words to path, one per line.
func SaveVisited(path string, visited []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteVisited(f, visited); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
