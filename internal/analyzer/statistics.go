package analyzer

import (
	"fmt"
	"sort"

	"kernprof-mcp/internal/kernprof"
)

// ProfileStatistics summarizes what a clean pass found in a raw report.
type ProfileStatistics struct {
	TotalBlocks      int
	TimedBlocks      int // positive time
	UnknownBlocks    int // no parsable time, kept at the top of the report
	ZeroBlocks       int // dropped from the cleaned report
	IdentifiedBlocks int
	TotalTime        float64
	MaxTime          float64
	MeanTime         float64
	UniqueFunctions  int
	UniqueFiles      int
}

// ComputeStatistics counts blocks by category and aggregates their times.
func ComputeStatistics(blocks []kernprof.Block) ProfileStatistics {
	stats := ProfileStatistics{TotalBlocks: len(blocks)}

	functionSet := make(map[string]bool)
	fileSet := make(map[string]bool)

	for _, b := range blocks {
		if b.Identity != nil {
			stats.IdentifiedBlocks++
			functionSet[b.ID()] = true
			fileSet[b.Identity.File] = true
		}

		switch {
		case !b.HasTime():
			stats.UnknownBlocks++
		case *b.TotalTime == 0:
			stats.ZeroBlocks++
		default:
			stats.TimedBlocks++
			stats.TotalTime += *b.TotalTime
			stats.MaxTime = max(stats.MaxTime, *b.TotalTime)
		}
	}

	if stats.TimedBlocks > 0 {
		stats.MeanTime = stats.TotalTime / float64(stats.TimedBlocks)
	}
	stats.UniqueFunctions = len(functionSet)
	stats.UniqueFiles = len(fileSet)

	return stats
}

// PerformanceIssue is a heuristic finding about a report.
type PerformanceIssue struct {
	Severity    string // "Critical", "High", "Medium", "Low"
	Category    string
	Description string
	Function    string
	SourceFile  string
	Impact      float64 // % of total time
}

// DetectIssues flags dominant functions and reports that mostly failed to
// parse.
func DetectIssues(blocks []kernprof.Block) []PerformanceIssue {
	issues := []PerformanceIssue{}
	stats := ComputeStatistics(blocks)

	for _, hs := range FindHotspots(blocks, 10) {
		severity := ""
		switch {
		case hs.Percentage > 20.0:
			severity = "Critical"
		case hs.Percentage > 10.0:
			severity = "High"
		default:
			continue
		}
		issues = append(issues, PerformanceIssue{
			Severity:    severity,
			Category:    "Time Hotspot",
			Description: fmt.Sprintf("Function accounts for %.2f%% of total profiled time", hs.Percentage),
			Function:    hs.Function,
			SourceFile:  hs.SourceFile,
			Impact:      hs.Percentage,
		})
	}

	// The preamble before the first delimiter never has a time, so it is
	// not counted against the report.
	unknown := stats.UnknownBlocks
	if unknown > 0 && len(blocks) > 0 && !blocks[0].HasTime() {
		unknown--
	}
	if parsed := stats.TotalBlocks - 1; parsed > 0 && unknown*2 > parsed {
		issues = append(issues, PerformanceIssue{
			Severity:    "Medium",
			Category:    "Unparsed Blocks",
			Description: fmt.Sprintf("%d of %d blocks have no readable total time; check the delimiter and marker settings", unknown, parsed),
		})
	}

	if stats.ZeroBlocks > 0 {
		issues = append(issues, PerformanceIssue{
			Severity:    "Low",
			Category:    "Never Run",
			Description: fmt.Sprintf("%d profiled functions reported zero time and were dropped", stats.ZeroBlocks),
		})
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Impact > issues[j].Impact
	})

	return issues
}
