// Package evidence derives execution evidence from environment snapshots.
//
// Evidence is the observable-delta half of an authenticity verdict: how
// many processes appeared, which files changed, and how long the call
// took. It says nothing about the result text; that is the scanner's job.
package evidence

import (
	"sort"
	"time"

	"toolwitness/internal/snapshot"
)

// ChangeKind classifies a filesystem delta.
type ChangeKind string

const (
	// ChangeAdded means the path exists after but not before.
	ChangeAdded ChangeKind = "added"
	// ChangeRemoved means the path exists before but not after.
	ChangeRemoved ChangeKind = "removed"
	// ChangeModified means the path exists in both with different size
	// or modification time.
	ChangeModified ChangeKind = "modified"
)

// Change describes one filesystem delta observed during a monitored call.
type Change struct {
	Kind ChangeKind `json:"kind"`
	Path string     `json:"path"`

	// SizeDelta is after minus before in bytes. Removed entries carry the
	// negated prior size; added entries carry the new size.
	SizeDelta int64 `json:"size_delta"`
}

// Evidence is the immutable environmental delta attributed to one
// monitored call. It is a pure function of the two snapshots that
// produced it.
type Evidence struct {
	SubprocessSpawned int           `json:"subprocess_spawned"`
	FilesystemChanges []Change      `json:"filesystem_changes"`
	ExecutionTime     time.Duration `json:"execution_time"`
}

// Milliseconds returns the execution time in milliseconds.
func (e Evidence) Milliseconds() float64 {
	return float64(e.ExecutionTime) / float64(time.Millisecond)
}

// HasPhysicalEvidence reports whether any observable side effect was
// recorded. Its absence, combined with completion-claim language, is the
// canonical fabrication signature.
func (e Evidence) HasPhysicalEvidence() bool {
	return e.SubprocessSpawned > 0 || len(e.FilesystemChanges) > 0
}

// Diff computes the evidence between two snapshots taken by the same
// session. Change order is deterministic: added and modified paths in
// lexical order, then removed paths in lexical order.
func Diff(before, after *snapshot.Snapshot) Evidence {
	ev := Evidence{
		ExecutionTime: after.TakenAt.Sub(before.TakenAt),
	}
	if ev.ExecutionTime < 0 {
		ev.ExecutionTime = 0
	}

	if spawned := after.ProcessCount - before.ProcessCount; spawned > 0 {
		ev.SubprocessSpawned = spawned
	}

	afterPaths := sortedPaths(after.Files)
	for _, path := range afterPaths {
		cur := after.Files[path]
		prev, existed := before.Files[path]
		if !existed {
			ev.FilesystemChanges = append(ev.FilesystemChanges, Change{
				Kind:      ChangeAdded,
				Path:      path,
				SizeDelta: cur.Size,
			})
			continue
		}
		if cur.Size != prev.Size || !cur.ModTime.Equal(prev.ModTime) {
			ev.FilesystemChanges = append(ev.FilesystemChanges, Change{
				Kind:      ChangeModified,
				Path:      path,
				SizeDelta: cur.Size - prev.Size,
			})
		}
	}

	beforePaths := sortedPaths(before.Files)
	for _, path := range beforePaths {
		if _, exists := after.Files[path]; !exists {
			ev.FilesystemChanges = append(ev.FilesystemChanges, Change{
				Kind:      ChangeRemoved,
				Path:      path,
				SizeDelta: -before.Files[path].Size,
			})
		}
	}

	return ev
}

func sortedPaths(files map[string]snapshot.FileEntry) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
