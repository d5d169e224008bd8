package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawReport = `Timer unit: 1e-06 s

Total time: 2.50 s
File: a.py
Function: foo at line 10

Total time: 0 s
File: c.py
Function: unused at line 1

Total time: 1.00 s
File: b.py
Function: bar at line 3
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCleanFromStdin(t *testing.T) {
	out, err := run(t, rawReport, "clean", "-")
	require.NoError(t, err)

	assert.NotContains(t, out, "Function: unused")
	assert.Less(t, strings.Index(out, "Function: bar"), strings.Index(out, "Function: foo"))
	assert.Contains(t, out, "  2.50 seconds - foo   :a.py:10")
}

func TestSummaryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte(rawReport), 0o644))

	out, err := run(t, "", "summary", "--max-lines", "2", path)
	require.NoError(t, err)
	assert.Equal(t, "  2.50 seconds - foo   :a.py:10\n  1.00 seconds - bar   :b.py:3\n", out)
}

func TestDisabledPrintsNotice(t *testing.T) {
	out, err := run(t, rawReport, "summary", "--disabled", "-")
	require.NoError(t, err)
	assert.Equal(t, "profile is not on\n", out)
}

func TestMissingFile(t *testing.T) {
	_, err := run(t, "", "clean", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestDumpWritesReports(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, rawReport, "dump", "--output-dir", dir, "--chart", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Dumping Profile Information")

	data, err := os.ReadFile(filepath.Join(dir, "profile_output.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "seconds - foo")

	matches, err := filepath.Glob(filepath.Join(dir, "profile_output.*.txt"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.FileExists(t, filepath.Join(dir, "profile_output.html"))
}

func TestExportRequiresOutput(t *testing.T) {
	_, err := run(t, rawReport, "export", "-")
	assert.ErrorContains(t, err, "--output")

	path := filepath.Join(t.TempDir(), "out.pb.gz")
	_, err = run(t, rawReport, "export", "-o", path, "-")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestConfigCommand(t *testing.T) {
	out, err := run(t, "", "config", "--max-lines", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "max_lines: 7")

	_, err = run(t, "", "config", "--max-lines", "0")
	assert.ErrorContains(t, err, "max_lines")
}

func TestExportFailureLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.pb.gz")
	_, err := run(t, rawReport, "export", "-o", path, "-")
	assert.ErrorContains(t, err, "failed to create")
	assert.NoFileExists(t, path)
}
