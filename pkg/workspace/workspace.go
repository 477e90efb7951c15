// Package workspace owns the graph built from the configured text source.
//
// Loading builds a complete new graph and swaps it in atomically. Callers
// that already hold a graph keep using it unchanged.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ritzau/wordgraph/pkg/graph"
	"github.com/ritzau/wordgraph/pkg/logging"
	"github.com/ritzau/wordgraph/pkg/pubsub"
)

// Graph status states.
const (
	StateLoading = "loading"
	StateReady   = "ready"
	StateError   = "error"
)

// Workspace holds the current graph of one text source.
type Workspace struct {
	source    string
	publisher pubsub.Publisher // optional
	logger    *slog.Logger

	mu      sync.Mutex // serializes loads
	current atomic.Pointer[graph.Graph]
	version atomic.Int64
}

// New creates a workspace for the text file at source. Nothing is read
// until Load is called. publisher may be nil.
func New(source string, publisher pubsub.Publisher) *Workspace {
	return &Workspace{
		source:    source,
		publisher: publisher,
		logger:    logging.New("workspace"),
	}
}

// Source returns the path of the text source.
func (w *Workspace) Source() string {
	return w.source
}

// Version counts successful loads.
func (w *Workspace) Version() int64 {
	return w.version.Load()
}

// Graph returns the current graph. Before the first successful load it
// returns an error matching graph.ErrInputUnavailable.
func (w *Workspace) Graph() (*graph.Graph, error) {
	g := w.current.Load()
	if g == nil {
		return nil, fmt.Errorf("%w: %s has not been loaded", graph.ErrInputUnavailable, w.source)
	}
	return g, nil
}

// Load reads the text source and replaces the current graph. On failure
// the previous graph stays in place and the error is returned.
func (w *Workspace) Load(ctx context.Context, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	w.logger.Info("loading graph", "source", w.source, "reason", reason)
	w.publish(pubsub.GraphStatus{
		State:   StateLoading,
		Message: fmt.Sprintf("Loading %s (%s)", w.source, reason),
	})

	g, err := graph.BuildFromFile(w.source)
	if err != nil {
		w.logger.Error("graph load failed", "source", w.source, "error", err)
		w.publish(pubsub.GraphStatus{State: StateError, Message: err.Error()})
		return err
	}
	if err := ctx.Err(); err != nil {
		w.logger.Warn("graph load abandoned", "source", w.source, "error", err)
		w.publishCurrent(fmt.Sprintf("Load abandoned: %v", err))
		return err
	}

	w.current.Store(g)
	version := w.version.Add(1)

	w.logger.Info("graph loaded", "nodes", g.Len(), "edges", g.EdgeCount(), "version", version)
	w.publish(pubsub.GraphStatus{
		State:   StateReady,
		Message: fmt.Sprintf("Loaded %d words and %d edges", g.Len(), g.EdgeCount()),
		Nodes:   g.Len(),
		Edges:   g.EdgeCount(),
	})
	return nil
}

// publishCurrent reports the graph still being served after a load that
// did not replace it.
func (w *Workspace) publishCurrent(reason string) {
	g := w.current.Load()
	if g == nil {
		w.publish(pubsub.GraphStatus{State: StateError, Message: reason})
		return
	}
	w.publish(pubsub.GraphStatus{
		State:   StateReady,
		Message: fmt.Sprintf("%s, keeping %d words and %d edges", reason, g.Len(), g.EdgeCount()),
		Nodes:   g.Len(),
		Edges:   g.EdgeCount(),
	})
}

func (w *Workspace) publish(status pubsub.GraphStatus) {
	if w.publisher == nil {
		return
	}
	status.Source = w.source
	status.Version = w.version.Load()
	if err := w.publisher.Publish(pubsub.TopicGraphStatus, status.State, status); err != nil {
		w.logger.Debug("graph status not published", "error", err)
	}
}
