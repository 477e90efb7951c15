package watcher

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeWritten means the source was written in place.
	ChangeTypeWritten ChangeType = iota
	// ChangeTypeReplaced means a file was created or renamed onto the source path.
	ChangeTypeReplaced
	// ChangeTypeRemoved means the source disappeared.
	ChangeTypeRemoved
)

// changeOrder is the order batches are emitted in.
var changeOrder = []ChangeType{ChangeTypeRemoved, ChangeTypeReplaced, ChangeTypeWritten}

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeWritten:
		return "written"
	case ChangeTypeReplaced:
		return "replaced"
	case ChangeTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// classify maps a raw fsnotify event to a change of the source file.
func classify(event fsnotify.Event, source string) (ChangeType, bool) {
	if filepath.Clean(event.Name) != source {
		return 0, false
	}
	switch {
	case event.Has(fsnotify.Create):
		return ChangeTypeReplaced, true
	case event.Has(fsnotify.Write):
		return ChangeTypeWritten, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return ChangeTypeRemoved, true
	}
	// Chmod alone does not change the content
	return 0, false
}

// ChangeAnalysis describes what changed and whether the graph must be rebuilt
type ChangeAnalysis struct {
	NeedReload   bool
	Reason       string
	ChangedFiles []string
}

// AnalyzeChanges decides whether a debounced batch warrants a reload. A
// batch that only removed the source is skipped: the current graph stays
// until a new file shows up.
func AnalyzeChanges(events []ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}

	var kinds []string
	seen := make(map[ChangeType]bool)
	for _, event := range events {
		analysis.ChangedFiles = append(analysis.ChangedFiles, event.Paths...)
		if event.Type != ChangeTypeRemoved {
			analysis.NeedReload = true
		}
		if !seen[event.Type] {
			seen[event.Type] = true
			kinds = append(kinds, event.Type.String())
		}
	}

	if len(kinds) > 0 {
		analysis.Reason = "source " + strings.Join(kinds, ", ")
	}
	return analysis
}
