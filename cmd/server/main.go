package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"kernprof-mcp/internal/analyzer"
	"kernprof-mcp/internal/config"
	"kernprof-mcp/internal/kernprof"
	"kernprof-mcp/internal/logging"
	"kernprof-mcp/internal/report"
)

// Parsed reports keyed by resolved file path
var (
	profileCache = make(map[string][]kernprof.Block)
	cacheMu      sync.Mutex
)

var cfg config.Config

func main() {
	var err error
	cfg, err = config.Load(os.Getenv("KERNPROF_CONFIG"))
	if err != nil {
		logging.GlobalLogger.Fatalf("Config error: %v", err)
	}
	if err := logging.Init(cfg.LogLevel); err != nil {
		logging.GlobalLogger.Warnf("Unknown log level %q: %v", cfg.LogLevel, err)
	}

	s := server.NewMCPServer(
		"kernprof-cleaner",
		"1.0.0",
		server.WithLogging(),
		server.WithRecovery(),
	)
	registerTools(s)

	logging.GlobalLogger.Info("Starting kernprof MCP server via stdio")
	if err := server.ServeStdio(s); err != nil {
		logging.GlobalLogger.Fatalf("Server error: %v", err)
	}
}

func reportSourceOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("file_path",
			mcp.Description("Path or URI (file://, http://, https://) of a line profiler text report. Ignored when text is given."),
		),
		mcp.WithString("text",
			mcp.Description("Raw line profiler report text"),
		),
	}
}

func newTool(name, description string, extra ...mcp.ToolOption) mcp.Tool {
	options := append([]mcp.ToolOption{mcp.WithDescription(description)}, reportSourceOptions()...)
	return mcp.NewTool(name, append(options, extra...)...)
}

func registerTools(s *server.MCPServer) {
	// Tool 1: Load Profile
	s.AddTool(newTool("load_profile",
		"Load a line profiler text report (kernprof/line_profiler output) and cache its parsed blocks for later tools",
	), handleLoadProfile)

	// Tool 2: Clean Profile
	s.AddTool(newTool("clean_profile",
		"Return the cleaned report: blocks with unknown time first, then blocks sorted by ascending total time, zero time blocks removed. The ranked summary is appended.",
	), handleCleanProfile)

	// Tool 3: Profile Summary
	s.AddTool(newTool("profile_summary",
		"Return the ranked summary of the slowest functions (highest total time first)",
		mcp.WithNumber("max_lines",
			mcp.Description("Maximum number of summary lines (default: configured max_lines)"),
		),
	), handleProfileSummary)

	// Tool 4: Find Hotspots
	s.AddTool(newTool("find_hotspots",
		"Find the functions with the highest total time and their share of all profiled time",
		mcp.WithNumber("top_n",
			mcp.Description("Number of top hotspots to return (default: 10)"),
		),
	), handleFindHotspots)

	// Tool 5: Statistics
	s.AddTool(newTool("profile_statistics",
		"Count timed, unknown and zero time blocks and aggregate their times",
	), handleStatistics)

	// Tool 6: Detect Issues
	s.AddTool(newTool("detect_profile_issues",
		"Heuristically flag dominant functions, never-run functions and reports that failed to parse",
	), handleDetectIssues)

	// Tool 7: View Block
	s.AddTool(newTool("view_block",
		"Show the raw text of one block with its parsed time and identity",
		mcp.WithNumber("block_index",
			mcp.Required(),
			mcp.Description("Index of the block in the raw report (0 is the preamble)"),
		),
	), handleViewBlock)

	// Tool 8: Dump Report
	s.AddTool(newTool("dump_report",
		"Clean the report and write it with its summary to the configured output directory, plus a timestamped archive copy",
	), handleDumpReport)

	// Tool 9: Export pprof
	s.AddTool(newTool("export_pprof",
		"Write the timed blocks as a gzipped pprof profile for use with 'go tool pprof'",
		mcp.WithString("output_path",
			mcp.Required(),
			mcp.Description("Where to write the .pb.gz file"),
		),
	), handleExportPprof)
}

// loadBlocks parses the report named by the request. File reports are
// cached by the path or URI the caller gave; refresh forces a re-read.
func loadBlocks(request mcp.CallToolRequest, refresh bool) ([]kernprof.Block, error) {
	k := cfg.Kernprof()
	if text := request.GetString("text", ""); text != "" {
		var src kernprof.Source = kernprof.TextSource(text)
		if !cfg.Enabled {
			src = kernprof.Disabled{}
		}
		return kernprof.NewParser(src, k).Blocks()
	}

	uri := request.GetString("file_path", "")
	if uri == "" {
		return nil, errors.New("either file_path or text is required")
	}
	if !cfg.Enabled {
		return kernprof.NewParser(kernprof.Disabled{}, k).Blocks()
	}

	cacheMu.Lock()
	blocks, ok := profileCache[uri]
	cacheMu.Unlock()
	if ok && !refresh {
		return blocks, nil
	}

	filePath, cleanup, err := kernprof.ResolvePath(uri)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	blocks, err = kernprof.NewParser(kernprof.NewSource(cfg.Enabled, filePath), k).Blocks()
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	profileCache[uri] = blocks
	cacheMu.Unlock()
	return blocks, nil
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, kernprof.ErrProfilingDisabled) {
		return mcp.NewToolResultError("Profiling is not on: no timing data was recorded")
	}
	return mcp.NewToolResultError(err.Error())
}

func handleLoadProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blocks, err := loadBlocks(request, true)
	if err != nil {
		return toolError(err), nil
	}

	stats := analyzer.ComputeStatistics(blocks)
	result := fmt.Sprintf(`Profile loaded successfully!

Blocks: %d
Timed: %d
Unknown time: %d
Zero time: %d
Total time: %.6f seconds

Use other tools to analyze this profile.
`,
		stats.TotalBlocks,
		stats.TimedBlocks,
		stats.UnknownBlocks,
		stats.ZeroBlocks,
		stats.TotalTime,
	)
	return mcp.NewToolResultText(result), nil
}

func handleCleanProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blocks, err := loadBlocks(request, false)
	if err != nil {
		return toolError(err), nil
	}

	res := analyzer.CleanBlocks(blocks, cfg.MaxLines)
	return mcp.NewToolResultText(res.Output + "\n" + res.Summary), nil
}

func handleProfileSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blocks, err := loadBlocks(request, false)
	if err != nil {
		return toolError(err), nil
	}

	maxLines := int(request.GetFloat("max_lines", float64(cfg.MaxLines)))
	entries := analyzer.Summarize(blocks, maxLines)

	var sb strings.Builder
	sb.WriteString("⏱  LINE PROFILE SUMMARY (Highest Total Time First)\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")
	sb.WriteString(analyzer.FormatSummary(entries))
	sb.WriteString("\n")
	return mcp.NewToolResultText(sb.String()), nil
}

func handleFindHotspots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blocks, err := loadBlocks(request, false)
	if err != nil {
		return toolError(err), nil
	}

	topN := int(request.GetFloat("top_n", 10.0))
	hotspots := analyzer.FindHotspots(blocks, topN)

	var sb strings.Builder
	sb.WriteString("🔥 TOP HOTSPOTS (Functions With Highest Total Time)\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")

	if len(hotspots) == 0 {
		sb.WriteString("No timed functions found.\n")
	} else {
		for i, hs := range hotspots {
			sb.WriteString(analyzer.FormatHotspot(hs, i+1))
			sb.WriteString("\n")
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func handleStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blocks, err := loadBlocks(request, false)
	if err != nil {
		return toolError(err), nil
	}

	stats := analyzer.ComputeStatistics(blocks)

	var sb strings.Builder
	sb.WriteString("📊 PROFILE STATISTICS\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")
	sb.WriteString(fmt.Sprintf("Total Blocks: %d\n", stats.TotalBlocks))
	sb.WriteString(fmt.Sprintf("  Timed: %d\n", stats.TimedBlocks))
	sb.WriteString(fmt.Sprintf("  Unknown time: %d\n", stats.UnknownBlocks))
	sb.WriteString(fmt.Sprintf("  Zero time (dropped): %d\n", stats.ZeroBlocks))
	sb.WriteString(fmt.Sprintf("  With identity: %d\n\n", stats.IdentifiedBlocks))

	sb.WriteString("Time:\n")
	sb.WriteString(fmt.Sprintf("  Total: %.6f seconds\n", stats.TotalTime))
	sb.WriteString(fmt.Sprintf("  Maximum: %.6f seconds\n", stats.MaxTime))
	sb.WriteString(fmt.Sprintf("  Mean: %.6f seconds\n\n", stats.MeanTime))

	sb.WriteString("Unique Elements:\n")
	sb.WriteString(fmt.Sprintf("  Functions: %d\n", stats.UniqueFunctions))
	sb.WriteString(fmt.Sprintf("  Files: %d\n", stats.UniqueFiles))
	return mcp.NewToolResultText(sb.String()), nil
}

func handleDetectIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	blocks, err := loadBlocks(request, false)
	if err != nil {
		return toolError(err), nil
	}

	issues := analyzer.DetectIssues(blocks)

	var sb strings.Builder
	sb.WriteString("⚠️  AUTOMATED PROFILE ISSUE DETECTION\n")
	sb.WriteString("═══════════════════════════════════════════════════\n\n")

	if len(issues) == 0 {
		sb.WriteString("✅ No significant issues detected!\n")
		return mcp.NewToolResultText(sb.String()), nil
	}

	for i, issue := range issues {
		sb.WriteString(fmt.Sprintf("%d. [%s] [%s] %s\n", i+1, issue.Severity, issue.Category, issue.Description))
		if issue.Function != "" {
			sb.WriteString(fmt.Sprintf("   Function: %s", issue.Function))
			if issue.SourceFile != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", issue.SourceFile))
			}
			sb.WriteString("\n")
		}
		if issue.Impact > 0 {
			sb.WriteString(fmt.Sprintf("   Impact: %.2f%% of total time\n", issue.Impact))
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func handleViewBlock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, err := request.RequireFloat("block_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	blocks, err := loadBlocks(request, false)
	if err != nil {
		return toolError(err), nil
	}

	index := int(idx)
	if index < 0 || index >= len(blocks) {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid block index. Valid range: 0-%d", len(blocks)-1)), nil
	}

	b := blocks[index]
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📄 BLOCK #%d\n", index))
	sb.WriteString("═══════════════════════════════════════════════════\n\n")
	sb.WriteString(fmt.Sprintf("Identity: %s\n", b.ID()))
	if b.HasTime() {
		sb.WriteString(fmt.Sprintf("Total time: %.6f seconds\n\n", *b.TotalTime))
	} else {
		sb.WriteString("Total time: unknown\n\n")
	}
	sb.WriteString(b.Text)
	return mcp.NewToolResultText(sb.String()), nil
}

func handleDumpReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var src kernprof.Source
	if text := request.GetString("text", ""); text != "" {
		src = kernprof.TextSource(text)
	} else {
		uri := request.GetString("file_path", "")
		if uri == "" {
			return mcp.NewToolResultError("either file_path or text is required"), nil
		}
		filePath, cleanup, err := kernprof.ResolvePath(uri)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		defer cleanup()
		src = kernprof.FileSource{Path: filePath}
	}

	res, err := report.Dump(src, cfg, report.NewWriter(cfg))
	if err != nil {
		return toolError(err), nil
	}

	var sb strings.Builder
	sb.WriteString("Report written:\n")
	for _, f := range res.Files {
		sb.WriteString(fmt.Sprintf("  - %s\n", f))
	}
	sb.WriteString("\n")
	sb.WriteString(res.Summary)
	return mcp.NewToolResultText(sb.String()), nil
}

func handleExportPprof(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	outputPath, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	blocks, err := loadBlocks(request, false)
	if err != nil {
		return toolError(err), nil
	}

	if err := writePprof(outputPath, blocks); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("pprof profile written to %s\nView it with: go tool pprof -top %s", outputPath, outputPath)), nil
}

// writePprof writes blocks to path as a gzipped profile. A partially
// written file is removed.
func writePprof(path string, blocks []kernprof.Block) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return analyzer.ExportPprof(blocks, f)
}
