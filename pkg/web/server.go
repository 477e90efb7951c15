package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/ritzau/wordgraph/pkg/logging"
	"github.com/ritzau/wordgraph/pkg/paths"
	"github.com/ritzau/wordgraph/pkg/pubsub"
	"github.com/ritzau/wordgraph/pkg/rank"
	"github.com/ritzau/wordgraph/pkg/walk"
	"github.com/ritzau/wordgraph/pkg/workspace"
)

//go:embed static/*
var staticFiles embed.FS

// shutdownTimeout bounds graceful shutdown of open requests.
const shutdownTimeout = 5 * time.Second

// Options configures the query parameters used by the server.
type Options struct {
	Finder      paths.Finder // defaults to paths.Dijkstra
	Rank        rank.Options
	BoostFactor float64 // applied to words passed in ?boost=
	Walker      walk.Walker
	WalkOut     string // file receiving the visited words of each walk, if set
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	workspace *workspace.Workspace
	publisher *pubsub.SSEPublisher
	opts      Options
	logger    *slog.Logger

	baseCtx context.Context // parent of every walk
	stop    context.CancelFunc

	mu     sync.Mutex // guards active and closed
	active *activeWalk
	closed bool
	walks  sync.WaitGroup
}

// NewServer creates a new web server serving the graph held by ws. The
// publisher should be the one ws publishes its status to.
func NewServer(ws *workspace.Workspace, publisher *pubsub.SSEPublisher, opts Options) *Server {
	if opts.Finder == nil {
		opts.Finder = paths.Dijkstra{}
	}

	ConfigureTopics(publisher)

	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		router:    mux.NewRouter(),
		workspace: ws,
		publisher: publisher,
		opts:      opts,
		logger:    logging.New("web"),
		baseCtx:   ctx,
		stop:      stop,
	}
	s.setupRoutes()
	return s
}

// ConfigureTopics sets the buffering the web client relies on.
func ConfigureTopics(publisher *pubsub.SSEPublisher) {
	// graph_status: new subscribers only need the current state
	publisher.ConfigureTopic(pubsub.TopicGraphStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	// walk: a late subscriber gets every step of the current walk, and a
	// slow one slows the walk down instead of missing steps
	publisher.ConfigureTopic(pubsub.TopicWalk, pubsub.TopicConfig{
		BufferSize: 10000,
		ReplayAll:  true,
		Lossless:   true,
	})
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	// Queries
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/path", s.handlePath).Methods("GET")
	s.router.HandleFunc("/api/bridge", s.handleBridge).Methods("GET")
	s.router.HandleFunc("/api/augment", s.handleAugment).Methods("POST")
	s.router.HandleFunc("/api/rank", s.handleRank).Methods("GET")

	// Walk lifecycle
	s.router.HandleFunc("/api/walk", s.handleWalkStatus).Methods("GET")
	s.router.HandleFunc("/api/walk", s.handleStartWalk).Methods("POST")
	s.router.HandleFunc("/api/walk", s.handleStopWalk).Methods("DELETE")

	s.router.HandleFunc("/api/reload", s.handleReload).Methods("POST")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// The embed pattern guarantees the directory exists
		panic(err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// Handler returns the routed handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	switch topic {
	case pubsub.TopicGraphStatus, pubsub.TopicWalk:
		pubsub.ServeSSE(w, r, s.publisher, topic)
	default:
		http.Error(w, fmt.Sprintf("unknown topic %q", topic), http.StatusNotFound)
	}
}

// Start serves on port until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	s.logger.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownDone
		return nil
	}
	return err
}

// Close cancels the active walk and waits for it to finish. No walk can
// be started afterwards. SSE streams end with the publisher.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.stop()
	// Releases a walk waiting on a slow subscriber
	s.publisher.Close()
	s.walks.Wait()
}
