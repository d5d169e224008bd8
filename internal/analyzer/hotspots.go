package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"kernprof-mcp/internal/kernprof"
)

// Hotspot is a function whose block reported a positive total time.
type Hotspot struct {
	Function   string
	SourceFile string
	LineNumber string
	TotalTime  float64
	Percentage float64 // share of all positive block time
	BlockIndex int     // position of the block in the raw report
}

// FindHotspots returns the timed blocks sorted by time (descending), limited
// to topN when topN is positive. Blocks without identity are reported as
// "[unknown]".
func FindHotspots(blocks []kernprof.Block, topN int) []Hotspot {
	total := 0.0
	hotspots := make([]Hotspot, 0, len(blocks))
	for _, b := range blocks {
		if !b.HasTime() || *b.TotalTime <= 0 {
			continue
		}
		total += *b.TotalTime

		hs := Hotspot{
			Function:   "[unknown]",
			TotalTime:  *b.TotalTime,
			BlockIndex: b.Index,
		}
		if b.Identity != nil {
			hs.Function = b.Identity.Function
			hs.SourceFile = b.Identity.File
			hs.LineNumber = b.Identity.Line
		}
		hotspots = append(hotspots, hs)
	}

	if total > 0 {
		for i := range hotspots {
			hotspots[i].Percentage = (hotspots[i].TotalTime / total) * 100.0
		}
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].TotalTime > hotspots[j].TotalTime
	})

	if topN > 0 && topN < len(hotspots) {
		return hotspots[:topN]
	}
	return hotspots
}

// FormatHotspot returns a human-readable string representation of a hotspot
func FormatHotspot(hs Hotspot, rank int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("#%d: %s\n", rank, hs.Function))
	sb.WriteString(fmt.Sprintf("    Time: %.6f seconds (%.2f%%)\n", hs.TotalTime, hs.Percentage))
	sb.WriteString(fmt.Sprintf("    Block: %d\n", hs.BlockIndex))

	if hs.SourceFile != "" {
		sb.WriteString(fmt.Sprintf("    Source: %s:%s\n", hs.SourceFile, hs.LineNumber))
	}

	return sb.String()
}
