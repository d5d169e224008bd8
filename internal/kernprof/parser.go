package kernprof

import (
	"regexp"
	"strconv"
)

var (
	// fileLinePattern matches the "File: <path>" header line of a block.
	fileLinePattern = regexp.MustCompile(`(?m)File: (\S+)$`)

	// functionLinePattern matches "Function: <name> at line <n>".
	functionLinePattern = regexp.MustCompile(`(?m)Function: (\S+) at line ([0-9]+)$`)
)

// SplitBlocks cuts a raw report at every line starting with cfg.Delimiter.
// The delimiter is consumed and every block after the first gets
// cfg.Marker put in front of it. Text before the first delimiter is
// returned as the first block, so the result always has at least one
// element.
func SplitBlocks(text string, cfg Config) []string {
	delim := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(cfg.Delimiter))

	matches := delim.FindAllStringIndex(text, -1)
	blocks := make([]string, 0, len(matches)+1)
	start := 0
	for _, m := range matches {
		blocks = append(blocks, text[start:m[0]])
		start = m[1]
	}
	blocks = append(blocks, text[start:])

	for i := 1; i < len(blocks); i++ {
		blocks[i] = cfg.Marker + blocks[i]
	}
	return blocks
}

// Analyzer extracts timing and identity fields from blocks.
type Analyzer struct {
	timePattern *regexp.Regexp
}

// NewAnalyzer builds an analyzer whose time pattern looks for
// "<marker><number> <unit>".
func NewAnalyzer(cfg Config) *Analyzer {
	expr := regexp.QuoteMeta(cfg.Marker) + `([0-9.]*(?:[eE][-+]?[0-9]+)?) ` + regexp.QuoteMeta(cfg.TimeUnit)
	return &Analyzer{timePattern: regexp.MustCompile(expr)}
}

// TotalTime returns the block's reported time, or nil when the time line is
// missing or its number does not parse.
func (a *Analyzer) TotalTime(block string) *float64 {
	m := a.timePattern.FindStringSubmatch(block)
	if m == nil || m[1] == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// MatchFileLine returns the path from the block's "File:" line.
func MatchFileLine(block string) (string, bool) {
	m := fileLinePattern.FindStringSubmatch(block)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// MatchFunctionLine returns the function name and the line number text
// from the block's "Function: ... at line ..." line.
func MatchFunctionLine(block string) (string, string, bool) {
	m := functionLinePattern.FindStringSubmatch(block)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// BlockIdentity returns the block's identity, or nil unless both the File
// and Function lines are present.
func BlockIdentity(block string) *Identity {
	path, ok := MatchFileLine(block)
	if !ok {
		return nil
	}
	name, line, ok := MatchFunctionLine(block)
	if !ok {
		return nil
	}
	return &Identity{Function: name, File: path, Line: line}
}

// Analyze fills in the derived fields for one block of text.
func (a *Analyzer) Analyze(index int, text string) Block {
	return Block{
		Index:     index,
		Text:      text,
		TotalTime: a.TotalTime(text),
		Identity:  BlockIdentity(text),
	}
}

// ParseBlocks splits text and analyzes every resulting block.
func ParseBlocks(text string, cfg Config) []Block {
	a := NewAnalyzer(cfg)
	parts := SplitBlocks(text, cfg)
	blocks := make([]Block, 0, len(parts))
	for i, part := range parts {
		blocks = append(blocks, a.Analyze(i, part))
	}
	return blocks
}

// Parser reads a report from a Source and splits it into blocks.
type Parser struct {
	Source Source
	Config Config
}

// NewParser returns a parser over src. A nil src behaves as Disabled.
func NewParser(src Source, cfg Config) *Parser {
	if src == nil {
		src = Disabled{}
	}
	return &Parser{Source: src, Config: cfg}
}

// RawText returns the unprocessed report.
func (p *Parser) RawText() (string, error) {
	return p.Source.RawText()
}

// Blocks fetches the report and parses it. Only the Source can fail.
func (p *Parser) Blocks() ([]Block, error) {
	text, err := p.Source.RawText()
	if err != nil {
		return nil, err
	}
	return ParseBlocks(text, p.Config), nil
}
