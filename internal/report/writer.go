// Package report persists cleaned line profiler reports.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kernprof-mcp/internal/analyzer"
	"kernprof-mcp/internal/config"
	"kernprof-mcp/internal/kernprof"
	"kernprof-mcp/internal/logging"
)

// Writer stores a report as a fixed-name current file plus a
// timestamp-named archive copy.
type Writer struct {
	Dir             string
	Name            string
	TimestampFormat string
	Now             func() time.Time
}

// NewWriter builds a writer from the output settings in cfg.
func NewWriter(cfg config.Config) *Writer {
	return &Writer{
		Dir:             cfg.OutputDir,
		Name:            cfg.OutputName,
		TimestampFormat: cfg.TimestampFormat,
		Now:             time.Now,
	}
}

// Paths returns the current and archive file names for time t.
func (w *Writer) Paths(t time.Time) (current, archive string) {
	current = filepath.Join(w.Dir, w.Name+".txt")
	archive = filepath.Join(w.Dir, fmt.Sprintf("%s.%s.txt", w.Name, t.Format(w.TimestampFormat)))
	return current, archive
}

// Write stores text under both names and returns the paths written.
func (w *Writer) Write(text string) ([]string, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	current, archive := w.Paths(now())
	return []string{current, archive}, w.writeAll([]byte(text), current, archive)
}

// WriteArtifact stores data next to the current report as <name><ext>.
func (w *Writer) WriteArtifact(ext string, data []byte) (string, error) {
	path := filepath.Join(w.Dir, w.Name+ext)
	return path, w.writeAll(data, path)
}

func (w *Writer) writeAll(data []byte, paths ...string) error {
	if w.Dir != "" {
		if err := os.MkdirAll(w.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory %s: %w", w.Dir, err)
		}
	}
	for _, path := range paths {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report %s: %w", path, err)
		}
	}
	return nil
}

// DumpResult describes what Dump produced.
type DumpResult struct {
	Summary string
	Files   []string
}

// Dump cleans the report from src and writes it with the summary appended.
// When profiling is off the returned error wraps
// kernprof.ErrProfilingDisabled and nothing is written.
func Dump(src kernprof.Source, cfg config.Config, w *Writer) (*DumpResult, error) {
	if !cfg.Enabled {
		src = kernprof.Disabled{}
	}
	res, err := analyzer.CleanSource(src, cfg.Kernprof())
	if err != nil {
		return nil, fmt.Errorf("failed to dump profile: %w", err)
	}

	files, err := w.Write(res.Output + "\n" + res.Summary)
	if err != nil {
		return nil, err
	}

	if cfg.Chart {
		var buf bytes.Buffer
		if err := analyzer.RenderChart(res.Entries, &buf); err != nil {
			return nil, err
		}
		path, err := w.WriteArtifact(".html", buf.Bytes())
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}

	if cfg.Pprof {
		var buf bytes.Buffer
		if err := analyzer.ExportPprof(res.Blocks, &buf); err != nil {
			return nil, err
		}
		path, err := w.WriteArtifact(".pb.gz", buf.Bytes())
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}

	logging.GlobalLogger.WithField("files", files).Info("profile report written")
	return &DumpResult{Summary: res.Summary, Files: files}, nil
}
