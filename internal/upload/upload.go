package upload

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/nathanbai50/hacklytics/internal/models"
)

// Stats summarizes one CLI run.
type Stats struct {
	FilesTotal    int
	FilesAnalyzed int
	FilesSkipped  int
	FilesErrored  int
	RepsScored    int
}

// sender is satisfied by *Client; tests substitute a stub.
type sender interface {
	AnalyzeVideo(path string) (*models.WorkoutSet, error)
}

// Uploader walks a directory of recordings and sends each new video through
// the server's analyze-and-save flow, deduplicating by size and hash.
type Uploader struct {
	client sender
	state  *StateDB
	dir    string
	dryRun bool
	log    *slog.Logger
}

// New creates an Uploader.
func New(client sender, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{client: client, state: state, dir: dir, dryRun: dryRun, log: log}
}

// videoFile reports whether a path looks like a set recording.
func videoFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov":
		return true
	}
	return false
}

// Run processes every recording under the directory. Per-file errors are
// counted and logged, not fatal; an unreadable directory is.
func (u *Uploader) Run() (*Stats, error) {
	stats := &Stats{}

	err := filepath.WalkDir(u.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !videoFile(path) {
			return nil
		}
		stats.FilesTotal++

		relPath, err := filepath.Rel(u.dir, path)
		if err != nil {
			relPath = path
		}

		info, err := d.Info()
		if err != nil {
			u.log.Warn("stat failed", "file", relPath, "error", err)
			stats.FilesErrored++
			return nil
		}

		hash, err := HashFile(path)
		if err != nil {
			u.log.Warn("hash failed", "file", relPath, "error", err)
			stats.FilesErrored++
			return nil
		}

		done, err := u.state.IsAnalyzed(relPath, info.Size(), hash)
		if err != nil {
			return fmt.Errorf("checking state for %s: %w", relPath, err)
		}
		if done {
			stats.FilesSkipped++
			return nil
		}

		if u.dryRun {
			u.log.Info("would analyze", "file", relPath, "size", info.Size())
			stats.FilesAnalyzed++
			return nil
		}

		set, err := u.client.AnalyzeVideo(path)
		if err != nil {
			u.log.Warn("analyze failed", "file", relPath, "error", err)
			stats.FilesErrored++
			return nil
		}

		if err := u.state.MarkAnalyzed(relPath, info.Size(), hash, set.ID.String()); err != nil {
			return fmt.Errorf("marking %s analyzed: %w", relPath, err)
		}

		stats.FilesAnalyzed++
		stats.RepsScored += set.TotalValidReps
		u.log.Info("set saved",
			"file", relPath, "workout", set.ID,
			"score", set.OverallScore, "reps", set.TotalValidReps)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walking %s: %w", u.dir, err)
	}

	return stats, nil
}
