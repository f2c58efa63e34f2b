package archive

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type LineOp int

const (
	LineEqual LineOp = iota
	LineAdded
	LineRemoved
)

func (o LineOp) prefix() string {
	switch o {
	case LineAdded:
		return "+ "
	case LineRemoved:
		return "- "
	}
	return "  "
}

type DiffLine struct {
	Op   LineOp
	Text string
}

// LineDiff is a line-level comparison of two revisions.
type LineDiff struct {
	Lines   []DiffLine
	Added   int
	Removed int
}

func (d LineDiff) Changed() bool { return d.Added > 0 || d.Removed > 0 }

// Diff compares a and b line by line.
func Diff(a, b string) LineDiff {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out LineDiff
	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = LineAdded
		case diffmatchpatch.DiffDelete:
			op = LineRemoved
		}
		for _, line := range splitLines(d.Text) {
			out.Lines = append(out.Lines, DiffLine{Op: op, Text: line})
			switch op {
			case LineAdded:
				out.Added++
			case LineRemoved:
				out.Removed++
			}
		}
	}
	return out
}

// Render prints changed lines with up to context unchanged lines around
// each. Skipped runs are marked with "@@ ... @@". A negative context prints
// everything.
func (d LineDiff) Render(context int) string {
	if !d.Changed() {
		return ""
	}
	keep := make([]bool, len(d.Lines))
	for i, l := range d.Lines {
		if l.Op == LineEqual && context >= 0 {
			continue
		}
		lo, hi := i-max(context, 0), i+max(context, 0)
		for j := max(lo, 0); j <= hi && j < len(d.Lines); j++ {
			keep[j] = true
		}
	}

	var sb strings.Builder
	skipped := 0
	for i, l := range d.Lines {
		if !keep[i] {
			skipped++
			continue
		}
		if skipped > 0 {
			fmt.Fprintf(&sb, "@@ %d unchanged @@\n", skipped)
			skipped = 0
		}
		sb.WriteString(l.Op.prefix())
		sb.WriteString(l.Text)
		sb.WriteString("\n")
	}
	if skipped > 0 {
		fmt.Fprintf(&sb, "@@ %d unchanged @@\n", skipped)
	}
	return sb.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
