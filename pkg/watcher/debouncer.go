package watcher

import (
	"context"
	"time"

	"github.com/ritzau/wordgraph/pkg/logging"
)

// Debouncer batches rapid file system events to avoid excessive reloads.
//
// A batch is emitted once no event arrived for the quiet period, or once
// maxWait has passed since the first event of the batch.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan []ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan []ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		pending  []ChangeEvent
		quiet    *time.Timer
		deadline *time.Timer
		quietC   <-chan time.Time // nil while nothing is pending
		maxC     <-chan time.Time
	)

	stop := func() {
		if quiet != nil {
			quiet.Stop()
		}
		if deadline != nil {
			deadline.Stop()
		}
		quietC, maxC = nil, nil
	}
	defer stop()

	flush := func() {
		stop()
		if len(pending) == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "count", len(pending))
		select {
		case d.output <- pending:
		case <-ctx.Done():
		}
		pending = nil
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			pending = append(pending, event)

			if quiet == nil {
				quiet = time.NewTimer(d.quietPeriod)
			} else {
				quiet.Reset(d.quietPeriod)
			}
			quietC = quiet.C

			if maxC == nil {
				if deadline == nil {
					deadline = time.NewTimer(d.maxWait)
				} else {
					deadline.Reset(d.maxWait)
				}
				maxC = deadline.C
			}

		case <-quietC:
			flush()

		case <-maxC:
			flush()
		}
	}
}

// Output returns the channel of debounced batches
func (d *Debouncer) Output() <-chan []ChangeEvent {
	return d.output
}
