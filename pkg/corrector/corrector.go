// Package corrector softens extrusion at the ends of printed segments.
//
// A run replays the G-code stream with pkg/gcode, finds extruding moves
// that meet a neighbouring extrusion at a corner and splits each into a
// start, main and end piece. The start and end pieces get less filament
// the sharper the corner, which removes the blobs and zits left where
// the nozzle slows down to turn.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package corrector

import (
	"context"
	"time"

	"gcode-corrector/pkg/errors"
	"gcode-corrector/pkg/gcode"
	"gcode-corrector/pkg/log"
)

// Stats summarises a run.
type Stats struct {
	Lines       int `json:"lines"`
	Commands    int `json:"commands"`
	Extruding   int `json:"extruding"`
	Corrected   int `json:"corrected"`
	OutputLines int `json:"output_lines"`

	// Skipped counts extruding or unreadable moves left alone, by reason.
	Skipped map[Outcome]int `json:"-"`

	// ExtrusionRemoved is the filament taken out, in E units.
	ExtrusionRemoved float64 `json:"extrusion_removed"`

	Duration time.Duration `json:"duration_ns"`
}

// SkippedByName returns Skipped keyed by outcome name.
func (s Stats) SkippedByName() map[string]int {
	out := make(map[string]int, len(s.Skipped))
	for o, n := range s.Skipped {
		out[o.String()] = n
	}
	return out
}

// Result is the output of a run.
type Result struct {
	Lines []string
	Stats Stats

	// Program and Decisions describe every input line, for inspection.
	Program   *gcode.Program
	Decisions []Decision
}

// Corrector runs corrections with fixed options. It holds no per-run
// state and may be used from several goroutines.
type Corrector struct {
	opts Options
	log  *log.Logger
}

// New returns a corrector for opts.
func New(opts Options) (*Corrector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Corrector{
		opts: opts,
		log:  log.GetLogger("corrector"),
	}, nil
}

// Options returns the options the corrector was built with.
func (c *Corrector) Options() Options {
	return c.opts
}

// SetLogger replaces the logger.
func (c *Corrector) SetLogger(l *log.Logger) {
	c.log = l
}

// Run corrects lines (without their '\n' terminators) in a single pass.
// progress, when not nil, receives the percentage of lines processed each
// time it changes, ending with 100. The context is checked between lines;
// a canceled run returns an ErrRunCanceled error and no result.
func (c *Corrector) Run(ctx context.Context, lines []string, progress func(int)) (*Result, error) {
	began := time.Now()
	prog := gcode.Replay(lines, c.opts.TrackOptions())

	res := &Result{
		Program:   prog,
		Decisions: make([]Decision, len(prog.Lines)),
		Stats: Stats{
			Lines:    len(lines),
			Commands: len(prog.Commands),
			Skipped:  make(map[Outcome]int),
		},
	}

	p := newProgress(len(prog.Lines), progress)
	p.report(0)
	for i := range prog.Lines {
		select {
		case <-ctx.Done():
			return nil, errors.CanceledError(i+1, ctx.Err())
		default:
		}

		d := evaluate(prog, i, c.opts)
		res.Decisions[i] = d
		c.record(&res.Stats, &prog.Lines[i], d)
		p.report(i + 1)
	}
	p.finish()

	res.Lines = gcode.Emit(prog)
	res.Stats.OutputLines = len(res.Lines)
	res.Stats.Duration = time.Since(began)

	c.log.WithFields(log.Fields{
		"lines":     res.Stats.Lines,
		"extruding": res.Stats.Extruding,
		"corrected": res.Stats.Corrected,
		"removed_e": res.Stats.ExtrusionRemoved,
		"duration":  res.Stats.Duration,
	}).Debug("run complete")
	return res, nil
}

func (c *Corrector) record(s *Stats, ln *gcode.Line, d Decision) {
	switch d.Outcome {
	case OutcomeNotCommand, OutcomeNotExtruding:
		return
	case OutcomeParseFailed:
		s.Skipped[d.Outcome]++
		if d.Err != nil {
			c.log.WithError(d.Err).Debug("line passed through")
		}
		return
	case OutcomeCorrected:
		s.Extruding++
		s.Corrected++
		s.ExtrusionRemoved += d.Removed()
		if c.log.Enabled(log.DEBUG) {
			c.log.WithFields(log.Fields{
				"line":        ln.Index + 1,
				"start_angle": d.Start.Angle,
				"end_angle":   d.End.Angle,
				"pieces":      len(ln.Expansion),
			}).Debug("corrected")
		}
	default:
		s.Extruding++
		s.Skipped[d.Outcome]++
		if d.Err != nil {
			c.log.WithError(d.Err).Debug("line passed through")
		}
	}
}

// progress turns line counts into percentages and reports changes only.
type progress struct {
	total int
	fn    func(int)
	last  int
}

func newProgress(total int, fn func(int)) *progress {
	return &progress{total: total, fn: fn, last: -1}
}

func (p *progress) report(done int) {
	if p.fn == nil {
		return
	}
	pct := 100
	if p.total > 0 {
		pct = done * 100 / p.total
	}
	if pct == p.last {
		return
	}
	p.last = pct
	p.fn(pct)
}

func (p *progress) finish() {
	p.report(p.total)
}
