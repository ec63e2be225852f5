// Package logging sets up the per-run structured log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// Run is the logger for one process run.
type Run struct {
	Logger *slog.Logger
	Path   string // log file, empty when logging to console only
	file   *os.File
}

// Close flushes and closes the log file.
func (r *Run) Close() error {
	if r.file == nil {
		return nil
	}
	if err := r.file.Sync(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// FileName returns the log file name for a run started at t.
func FileName(t time.Time) string {
	return "app_" + t.Format("20060102_150405") + ".log"
}

// ParseLevel maps a config level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: %q", types.ErrLogLevelUnknown, s)
	}
	return lvl, nil
}

// Setup writes log records to console and, when cfg.Dir is set, to a new
// file named after the start time.
func Setup(cfg types.LogConfig, console io.Writer, start time.Time) (*Run, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	run := &Run{}
	out := console
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		run.Path = filepath.Join(cfg.Dir, FileName(start))
		f, err := os.OpenFile(run.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		run.file = f
		out = io.MultiWriter(f, console)
	}
	run.Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl}))
	run.Logger.Info("logging initialized", "file", run.Path, "level", lvl.String())
	return run, nil
}
