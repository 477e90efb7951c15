package watcher

import (
	"context"
	"time"

	"github.com/ritzau/wordgraph/pkg/logging"
)

// ReloadFunc rebuilds whatever depends on the watched source.
type ReloadFunc func(ctx context.Context, reason string) error

// Watch calls reload after every debounced change to source until ctx is
// done. Reload errors are logged and watching continues.
func Watch(ctx context.Context, source string, quietPeriod, maxWait time.Duration, reload ReloadFunc) error {
	fw, err := NewFileWatcher(source)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := NewDebouncer(fw.Events(), quietPeriod, maxWait)
	debouncer.Start(ctx)

	for batch := range debouncer.Output() {
		analysis := AnalyzeChanges(batch)
		if !analysis.NeedReload {
			logging.Info("text source removed, keeping current graph", "path", fw.Source())
			continue
		}
		if err := reload(ctx, analysis.Reason); err != nil {
			logging.Warn("reload failed", "reason", analysis.Reason, "error", err)
		}
	}
	return ctx.Err()
}
