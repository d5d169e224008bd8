package analyzer

import (
	"sort"
	"strings"

	"kernprof-mcp/internal/kernprof"
)

// Result is the outcome of one clean pass over a raw report.
type Result struct {
	Blocks  []kernprof.Block // every block in original order
	Ordered []kernprof.Block // blocks kept in the cleaned report
	Entries []SummaryEntry   // summary rows, highest time first
	Output  string
	Summary string
}

// PartitionBlocks separates blocks with unknown time from blocks with a
// known time. Known times are grouped in a TimeMap; blocks whose time is
// exactly zero are dropped.
func PartitionBlocks(blocks []kernprof.Block) ([]kernprof.Block, kernprof.TimeMap) {
	var prefix []kernprof.Block
	timemap := make(kernprof.TimeMap)
	for _, b := range blocks {
		switch {
		case !b.HasTime():
			prefix = append(prefix, b)
		case *b.TotalTime != 0:
			timemap[*b.TotalTime] = append(timemap[*b.TotalTime], b)
		}
	}
	return prefix, timemap
}

// OrderBlocks returns the unknown-time blocks followed by the timed blocks in
// ascending time order. Blocks sharing a time keep their original order.
func OrderBlocks(blocks []kernprof.Block) []kernprof.Block {
	prefix, timemap := PartitionBlocks(blocks)

	keys := make([]float64, 0, len(timemap))
	for k := range timemap {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	ordered := make([]kernprof.Block, 0, len(blocks))
	ordered = append(ordered, prefix...)
	for _, k := range keys {
		ordered = append(ordered, timemap[k]...)
	}
	return ordered
}

// JoinBlocks joins block texts with a newline.
func JoinBlocks(blocks []kernprof.Block) string {
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	return strings.Join(texts, "\n")
}

// CleanBlocks builds the cleaned report and summary from parsed blocks.
func CleanBlocks(blocks []kernprof.Block, maxLines int) *Result {
	ordered := OrderBlocks(blocks)
	entries := Summarize(blocks, maxLines)
	return &Result{
		Blocks:  blocks,
		Ordered: ordered,
		Entries: entries,
		Output:  JoinBlocks(ordered),
		Summary: FormatSummary(entries),
	}
}

// Clean sorts a raw report by block time and drops blocks that never ran.
// It returns the cleaned report and the ranked summary.
func Clean(text string, cfg kernprof.Config) (output, summary string) {
	r := CleanBlocks(kernprof.ParseBlocks(text, cfg), cfg.MaxLines)
	return r.Output, r.Summary
}

// CleanSource fetches the report from src and cleans it. Source errors,
// including kernprof.ErrProfilingDisabled, are returned unchanged.
func CleanSource(src kernprof.Source, cfg kernprof.Config) (*Result, error) {
	blocks, err := kernprof.NewParser(src, cfg).Blocks()
	if err != nil {
		return nil, err
	}
	return CleanBlocks(blocks, cfg.MaxLines), nil
}
