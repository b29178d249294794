// Package snapshot captures point-in-time views of the local environment
// for tool-execution evidence collection.
//
// A Snapshot records the number of processes visible to this process and a
// shallow listing of regular files under a root directory. Capture is
// strictly best-effort: permission errors, unreadable paths, and platform
// gaps degrade to zero/empty values instead of failing, because evidence
// collection must never be the reason a monitored tool call fails.
package snapshot

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// MaxFileEntries bounds the file listing so that pathological directory
// trees cannot make capture unpredictable. Excess entries are dropped
// silently.
const MaxFileEntries = 10000

// FileEntry describes one regular file seen during capture.
type FileEntry struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Snapshot is an immutable view of the environment at a single instant.
// It is created once and never mutated; diffing two snapshots yields
// execution evidence.
type Snapshot struct {
	ProcessCount int                  `json:"process_count"`
	Files        map[string]FileEntry `json:"files"`
	TakenAt      time.Time            `json:"taken_at"`
}

// Capture records the current process count and the files under root up to
// maxDepth directory levels (0 means only root's immediate entries).
// It never returns an error; any OS-level failure yields a partial or
// empty snapshot.
func Capture(root string, maxDepth int) *Snapshot {
	if root == "" {
		root = "."
	}
	if maxDepth < 0 {
		maxDepth = 0
	}

	s := &Snapshot{
		ProcessCount: countProcesses(),
		Files:        make(map[string]FileEntry),
		TakenAt:      time.Now(),
	}

	base, err := filepath.Abs(root)
	if err != nil {
		return s
	}

	filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entry: skip it, keep walking.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if depthBelow(base, path) > maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(s.Files) >= MaxFileEntries {
			return fs.SkipAll
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		s.Files[path] = FileEntry{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		return nil
	})

	return s
}

// depthBelow returns how many directory levels path sits below base.
func depthBelow(base, path string) int {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
