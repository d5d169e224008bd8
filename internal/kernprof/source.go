package kernprof

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"kernprof-mcp/internal/logging"
)

// Source supplies the raw text of a line profiler report.
type Source interface {
	RawText() (string, error)
}

// TextSource is a report already held in memory.
type TextSource string

// RawText returns the report unchanged.
func (s TextSource) RawText() (string, error) {
	return string(s), nil
}

// FileSource reads a report dump from disk.
type FileSource struct {
	Path string
}

// RawText reads the file verbatim.
func (s FileSource) RawText() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read profile report %s: %w", s.Path, err)
	}
	logging.GlobalLogger.WithField("path", s.Path).Debugf("read %d bytes of profile text", len(data))
	return string(data), nil
}

// Disabled stands in for a profiler that was never switched on.
type Disabled struct{}

// RawText always fails with ErrProfilingDisabled.
func (Disabled) RawText() (string, error) {
	return "", ErrProfilingDisabled
}

// NewSource returns a FileSource for path, or Disabled when profiling is off.
func NewSource(enabled bool, path string) Source {
	if !enabled {
		return Disabled{}
	}
	return FileSource{Path: path}
}

// ResolvePath turns a plain path, a file:// URI or an http(s):// URI into a
// local file path. Downloads go to a temporary file which cleanup removes.
func ResolvePath(uriStr string) (filePath string, cleanup func(), err error) {
	cleanup = func() {}

	if !strings.Contains(uriStr, "://") {
		absPath, err := filepath.Abs(uriStr)
		if err != nil {
			return "", nil, fmt.Errorf("failed to get absolute path for '%s': %w", uriStr, err)
		}
		return absPath, cleanup, nil
	}

	parsedURI, err := url.Parse(uriStr)
	if err != nil {
		return "", nil, fmt.Errorf("invalid report URI '%s': %w", uriStr, err)
	}

	switch parsedURI.Scheme {
	case "file":
		if parsedURI.Path == "" {
			return "", nil, fmt.Errorf("invalid file path derived from URI '%s'", uriStr)
		}
		return parsedURI.Path, cleanup, nil

	case "http", "https":
		return download(uriStr)

	default:
		return "", nil, fmt.Errorf("unsupported URI scheme '%s', only 'file://', 'http://', 'https://', or a plain local path are supported", parsedURI.Scheme)
	}
}

func download(uriStr string) (string, func(), error) {
	logging.GlobalLogger.WithField("url", uriStr).Info("downloading profile report")
	resp, err := http.Get(uriStr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to download report from '%s': %w", uriStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("failed to download report from '%s': received status code %d", uriStr, resp.StatusCode)
	}

	tempFile, err := os.CreateTemp("", "lprof-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary file for download: %w", err)
	}
	filePath := tempFile.Name()
	cleanup := func() {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logging.GlobalLogger.Warnf("failed to remove temporary file '%s': %v", filePath, err)
		}
	}

	_, err = io.Copy(tempFile, resp.Body)
	closeErr := tempFile.Close()
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write downloaded report to '%s': %w", filePath, err)
	}
	if closeErr != nil {
		logging.GlobalLogger.Warnf("failed to close temporary file '%s': %v", filePath, closeErr)
	}
	return filePath, cleanup, nil
}
