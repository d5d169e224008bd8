package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"kernprof-mcp/internal/kernprof"
)

// UnknownTime ranks blocks without a parsed time below every real time.
const UnknownTime = -1.0

// SummaryEntry is one ranked row of the summary.
type SummaryEntry struct {
	Time  float64 // UnknownTime when the block had no time
	ID    string
	Label string // ID padded so the first ':' lines up across rows
	Index int    // block position in the original report
}

// String renders the row as "  2.50 seconds - foo:a.py:10".
func (e SummaryEntry) String() string {
	return fmt.Sprintf("%6.2f seconds - %s", e.Time, e.Label)
}

// Summarize ranks every block, including unknown and zero time ones, and
// keeps the maxLines highest. Rows come back highest time first. A
// non-positive maxLines uses the default of 20.
func Summarize(blocks []kernprof.Block, maxLines int) []SummaryEntry {
	if maxLines <= 0 {
		maxLines = kernprof.DefaultConfig().MaxLines
	}

	entries := make([]SummaryEntry, len(blocks))
	for i, b := range blocks {
		t := UnknownTime
		if b.HasTime() {
			t = *b.TotalTime
		}
		entries[i] = SummaryEntry{Time: t, ID: b.ID(), Index: b.Index}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time < entries[j].Time
	})

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	for i, label := range AlignColumns(ids, ":") {
		entries[i].Label = label
	}

	if len(entries) > maxLines {
		entries = entries[len(entries)-maxLines:]
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// FormatSummary joins the rows with newlines.
func FormatSummary(entries []SummaryEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// AlignColumns pads the text before the first sep in every line so the
// separators line up. Lines without sep are returned unchanged.
func AlignColumns(lines []string, sep string) []string {
	width := 0
	for _, line := range lines {
		if head, _, ok := strings.Cut(line, sep); ok {
			width = max(width, utf8.RuneCountInString(head))
		}
	}

	aligned := make([]string, len(lines))
	for i, line := range lines {
		head, tail, ok := strings.Cut(line, sep)
		if !ok {
			aligned[i] = line
			continue
		}
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(head))
		aligned[i] = head + pad + sep + tail
	}
	return aligned
}
