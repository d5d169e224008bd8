package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kernprof-mcp/internal/config"
	"kernprof-mcp/internal/kernprof"
)

const rawReport = `Timer unit: 1e-06 s

Total time: 2.50 s
File: a.py
Function: foo at line 10

Total time: 1.00 s
File: b.py
Function: bar at line 3
`

// withConfig installs c and an empty cache for the duration of the test.
func withConfig(t *testing.T, c config.Config) {
	t.Helper()
	saved := cfg
	cfg = c
	cacheMu.Lock()
	profileCache = make(map[string][]kernprof.Block)
	cacheMu.Unlock()
	t.Cleanup(func() { cfg = saved })
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return text.Text
}

func writeReport(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadBlocks(t *testing.T) {
	path := writeReport(t, rawReport)

	disabled := config.Default()
	disabled.Enabled = false

	tests := []struct {
		name       string
		cfg        config.Config
		args       map[string]any
		wantBlocks int
		wantErr    error
		errText    string
	}{
		{name: "Text", cfg: config.Default(), args: map[string]any{"text": rawReport}, wantBlocks: 3},
		{name: "File", cfg: config.Default(), args: map[string]any{"file_path": path}, wantBlocks: 3},
		{name: "FileURI", cfg: config.Default(), args: map[string]any{"file_path": "file://" + path}, wantBlocks: 3},
		{name: "NoInput", cfg: config.Default(), args: map[string]any{}, errText: "either file_path or text is required"},
		{name: "DisabledText", cfg: disabled, args: map[string]any{"text": rawReport}, wantErr: kernprof.ErrProfilingDisabled},
		{name: "DisabledFile", cfg: disabled, args: map[string]any{"file_path": path}, wantErr: kernprof.ErrProfilingDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withConfig(t, tt.cfg)

			blocks, err := loadBlocks(toolRequest(tt.args), false)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				assert.ErrorContains(t, err, tt.errText)
			default:
				require.NoError(t, err)
				assert.Len(t, blocks, tt.wantBlocks)
			}
		})
	}
}

func TestLoadBlocksCache(t *testing.T) {
	withConfig(t, config.Default())
	path := writeReport(t, rawReport)
	req := toolRequest(map[string]any{"file_path": path})

	blocks, err := loadBlocks(req, false)
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	cacheMu.Lock()
	_, cached := profileCache[path]
	cacheMu.Unlock()
	assert.True(t, cached, "cache is keyed by the caller's path")

	require.NoError(t, os.WriteFile(path, []byte("Timer unit: 1e-06 s\n"), 0o644))

	blocks, err = loadBlocks(req, false)
	require.NoError(t, err)
	assert.Len(t, blocks, 3, "served from cache")

	blocks, err = loadBlocks(req, true)
	require.NoError(t, err)
	assert.Len(t, blocks, 1, "refresh re-reads the file")
}

func TestHandlersRespectDisabled(t *testing.T) {
	c := config.Default()
	c.Enabled = false
	c.OutputDir = t.TempDir()
	withConfig(t, c)

	req := toolRequest(map[string]any{"text": rawReport, "block_index": 1.0, "output_path": filepath.Join(c.OutputDir, "out.pb.gz")})
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"load_profile":          handleLoadProfile,
		"clean_profile":         handleCleanProfile,
		"profile_summary":       handleProfileSummary,
		"find_hotspots":         handleFindHotspots,
		"profile_statistics":    handleStatistics,
		"detect_profile_issues": handleDetectIssues,
		"view_block":            handleViewBlock,
		"dump_report":           handleDumpReport,
		"export_pprof":          handleExportPprof,
	}

	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			res, err := h(context.Background(), req)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), "Profiling is not on")
		})
	}
	assert.NoFileExists(t, filepath.Join(c.OutputDir, "out.pb.gz"))
}

func TestCleanProfileHandler(t *testing.T) {
	withConfig(t, config.Default())

	res, err := handleCleanProfile(context.Background(), toolRequest(map[string]any{"text": rawReport}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "  2.50 seconds - foo ")
}

func TestWritePprof(t *testing.T) {
	blocks := kernprof.ParseBlocks(rawReport, kernprof.DefaultConfig())

	path := filepath.Join(t.TempDir(), "out.pb.gz")
	require.NoError(t, writePprof(path, blocks))
	assert.FileExists(t, path)

	missing := filepath.Join(t.TempDir(), "no-such-dir", "out.pb.gz")
	assert.Error(t, writePprof(missing, blocks))
	assert.NoFileExists(t, missing)
}
