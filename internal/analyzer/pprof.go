package analyzer

import (
	"fmt"
	"io"
	"math"

	"github.com/google/pprof/profile"

	"kernprof-mcp/internal/kernprof"
)

// BuildProfile converts the timed blocks into a pprof profile with one
// sample per block. Sample values are the block time in nanoseconds.
func BuildProfile(blocks []kernprof.Block) (*profile.Profile, error) {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "time", Unit: "nanoseconds"}},
		PeriodType: &profile.ValueType{Type: "time", Unit: "nanoseconds"},
		Period:     1,
	}

	locations := make(map[string]*profile.Location)

	for _, b := range blocks {
		if !b.HasTime() || *b.TotalTime <= 0 {
			continue
		}

		key := b.ID()
		loc, ok := locations[key]
		if !ok {
			fn := &profile.Function{
				ID:   uint64(len(p.Function) + 1),
				Name: "[unknown]",
			}
			var line int64
			if b.Identity != nil {
				fn.Name = b.Identity.Function
				fn.SystemName = b.Identity.Function
				fn.Filename = b.Identity.File
				line = b.Identity.LineNumber()
				fn.StartLine = line
			}
			p.Function = append(p.Function, fn)

			loc = &profile.Location{
				ID:   uint64(len(p.Location) + 1),
				Line: []profile.Line{{Function: fn, Line: line}},
			}
			locations[key] = loc
			p.Location = append(p.Location, loc)
		}

		nanos := int64(math.Round(*b.TotalTime * 1e9))
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{nanos},
			Label:    map[string][]string{"block": {fmt.Sprint(b.Index)}},
		})
		p.DurationNanos += nanos
	}

	if err := p.CheckValid(); err != nil {
		return nil, fmt.Errorf("invalid profile built from report: %w", err)
	}
	return p, nil
}

// ExportPprof writes the timed blocks as a gzipped pprof profile.
func ExportPprof(blocks []kernprof.Block, w io.Writer) error {
	p, err := BuildProfile(blocks)
	if err != nil {
		return err
	}
	if err := p.Write(w); err != nil {
		return fmt.Errorf("failed to write pprof profile: %w", err)
	}
	return nil
}
