package kernprof

import (
	"errors"
	"strconv"
)

// UnknownID is the block id used when a block has no File/Function header.
const UnknownID = "None:None:None"

// ErrProfilingDisabled is returned when a report is requested but profiling
// was never turned on, so no timing data exists.
var ErrProfilingDisabled = errors.New("profiling is not enabled")

// Config holds the literals and limits that drive a clean pass.
type Config struct {
	Delimiter string // line prefix that separates blocks in the raw dump
	Marker    string // prefix written in front of every block after the first
	TimeUnit  string // unit suffix following the time value
	MaxLines  int    // summary length
}

// DefaultConfig returns the settings matching line_profiler output.
func DefaultConfig() Config {
	return Config{
		Delimiter: "Total time: ",
		Marker:    "Pystone time: ",
		TimeUnit:  "s",
		MaxLines:  20,
	}
}

// Identity is the function a block reports on.
type Identity struct {
	Function string
	File     string
	Line     string // line number exactly as printed in the report
}

// Block is one function's timing section of a raw report.
type Block struct {
	Index     int      // position in the original split
	Text      string   // block text, including the marker prefix
	TotalTime *float64 // nil when the time line is missing or unparsable
	Identity  *Identity
}

// HasTime reports whether the block carries a parsed total time.
func (b *Block) HasTime() bool {
	return b.TotalTime != nil
}

// Time returns the parsed total time or -1 when unknown.
func (b *Block) Time() float64 {
	if b.TotalTime == nil {
		return -1
	}
	return *b.TotalTime
}

// ID returns "function:file:line", or UnknownID.
func (b *Block) ID() string {
	if b.Identity == nil {
		return UnknownID
	}
	return b.Identity.String()
}

func (id Identity) String() string {
	return id.Function + ":" + id.File + ":" + id.Line
}

// LineNumber returns the line as an integer, or 0 when it does not fit.
func (id Identity) LineNumber() int64 {
	n, err := strconv.ParseInt(id.Line, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// TimeMap groups blocks by their exact total time.
type TimeMap map[float64][]Block
