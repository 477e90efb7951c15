package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/wordgraph/pkg/logging"
)

// batchWindow groups the burst of raw events a single save produces.
const batchWindow = 100 * time.Millisecond

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches a single text source for changes.
//
// The containing directory is watched rather than the file itself, so
// editors that save by writing a temporary file and renaming it over the
// source are still noticed.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	source  string
	events  chan ChangeEvent
	logger  *slog.Logger
}

// NewFileWatcher creates a new file system watcher for source
func NewFileWatcher(source string) (*FileWatcher, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", source, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		source:  abs,
		events:  make(chan ChangeEvent, 100),
		logger:  logging.New("watcher"),
	}, nil
}

// Start begins watching. Events stop and the Events channel is closed
// once ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(fw.source)
	if err := fw.watcher.Add(dir); err != nil {
		fw.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fw.logger.Info("started watching text source", "path", fw.source)

	go fw.processEvents(ctx)
	return nil
}

// processEvents filters raw events to the source file and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()
	defer flushTimer.Stop()

	flush := func() {
		for _, t := range changeOrder {
			paths := pending[t]
			if len(paths) == 0 {
				continue
			}
			select {
			case fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
		pending = make(map[ChangeType][]string)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			changeType, relevant := classify(event, fw.source)
			if !relevant {
				continue
			}
			logging.Trace("source event", "op", event.Op.String(), "path", event.Name)
			pending[changeType] = append(pending[changeType], event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Source returns the absolute path being watched.
func (fw *FileWatcher) Source() string {
	return fw.source
}
