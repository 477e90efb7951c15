package web

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ritzau/wordgraph/pkg/graph"
	"github.com/ritzau/wordgraph/pkg/logging"
	"github.com/ritzau/wordgraph/pkg/pubsub"
	"github.com/ritzau/wordgraph/pkg/walk"
)

var (
	errWalkActive   = errors.New("a walk is already running")
	errServerClosed = errors.New("server is shutting down")
)

// activeWalk is the single walk a server runs at a time.
type activeWalk struct {
	id       string
	cancel   context.CancelFunc
	finished atomic.Bool   // result known, final event being published
	done     chan struct{} // closed once the walk is no longer active
}

// WalkResponse answers the walk endpoints.
type WalkResponse struct {
	Active bool   `json:"active"`
	RunID  string `json:"run_id,omitempty"`
}

func (s *Server) handleWalkStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	active := s.running()
	s.mu.Unlock()

	resp := WalkResponse{Active: active != nil}
	if active != nil {
		resp.RunID = active.id
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleStartWalk(w http.ResponseWriter, r *http.Request) {
	g, err := s.workspace.Graph()
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.startWalk(r.Context(), g)
	switch {
	case errors.Is(err, errWalkActive):
		writeJSON(w, r, http.StatusConflict, WalkResponse{Active: true, RunID: id})
		return
	case errors.Is(err, errServerClosed):
		writeJSON(w, r, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		logging.DebugContext(r.Context(), "walk not started", "error", err)
		return
	}
	logging.InfoContext(r.Context(), "walk started", "run", id)
	writeJSON(w, r, http.StatusAccepted, WalkResponse{Active: true, RunID: id})
}

func (s *Server) handleStopWalk(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	active := s.running()
	s.mu.Unlock()

	if active == nil {
		writeJSON(w, r, http.StatusNotFound, ErrorResponse{Error: "no active walk"})
		return
	}
	active.cancel()
	logging.InfoContext(r.Context(), "walk stop requested", "run", active.id)
	writeJSON(w, r, http.StatusAccepted, WalkResponse{Active: true, RunID: active.id})
}

// running returns the active walk unless it already has its result. Must
// be called with s.mu held.
func (s *Server) running() *activeWalk {
	if s.active == nil || s.active.finished.Load() {
		return nil
	}
	return s.active
}

// startWalk launches a walk over g. It fails with errWalkActive and the
// running walk's ID while another walk runs. A walk that already has its
// result is waited for, so a client that saw "finished" can start the
// next one right away.
func (s *Server) startWalk(ctx context.Context, g *graph.Graph) (string, error) {
	s.mu.Lock()
	for {
		if s.closed {
			s.mu.Unlock()
			return "", errServerClosed
		}
		prev := s.active
		if prev == nil {
			break
		}
		if !prev.finished.Load() {
			s.mu.Unlock()
			return prev.id, errWalkActive
		}

		s.mu.Unlock()
		select {
		case <-prev.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	walkCtx, cancel := context.WithCancel(s.baseCtx)
	active := &activeWalk{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
	s.active = active

	// Subscribers joining mid-walk replay this walk only
	s.publisher.ResetTopic(pubsub.TopicWalk)

	run := s.opts.Walker.Start(walkCtx, g)
	s.walks.Add(1)
	go s.streamWalk(active, run)

	return active.id, nil
}

// streamWalk publishes the start, every step and the outcome of run. It is
// the only publisher on the walk topic while active.
func (s *Server) streamWalk(active *activeWalk, run *walk.Run) {
	defer s.walks.Done()
	defer active.cancel()

	log := s.logger.With("run", active.id)

	s.publish(pubsub.WalkStarted, pubsub.WalkStepData{RunID: active.id})

	index := 0
	for word := range run.Steps() {
		s.publish(pubsub.WalkStep, pubsub.WalkStepData{RunID: active.id, Index: index, Word: word})
		index++
	}
	res := run.Wait()
	active.finished.Store(true)
	log.Info("walk finished", "status", res.Status.String(), "visited", len(res.Visited))

	if s.opts.WalkOut != "" && len(res.Visited) > 0 {
		if err := walk.SaveVisited(s.opts.WalkOut, res.Visited); err != nil {
			log.Warn("failed to save walk", "error", err)
		}
	}

	visited := res.Visited
	if visited == nil {
		visited = []string{}
	}
	s.publish(pubsub.WalkFinished, pubsub.WalkFinishedData{
		RunID:     active.id,
		Status:    res.Status.String(),
		Completed: res.Status.Completed(),
		Visited:   visited,
	})

	s.mu.Lock()
	if s.active == active {
		s.active = nil
	}
	s.mu.Unlock()
	close(active.done)
}

func (s *Server) publish(eventType string, data any) {
	if err := s.publisher.Publish(pubsub.TopicWalk, eventType, data); err != nil {
		s.logger.Debug("walk event not published", "type", eventType, "error", err)
	}
}
