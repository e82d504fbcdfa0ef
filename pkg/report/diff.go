package report

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffLines returns the removed and added lines between before and after,
// prefixed with "-" and "+", in file order.
func DiffLines(before, after []byte) []string {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	var out []string

	for _, d := range diffs {
		var prefix string

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffEqual:
			continue
		}

		for line := range strings.Lines(d.Text) {
			out = append(out, prefix+strings.TrimRight(line, "\r\n"))
		}
	}

	return out
}

func (r *Reporter) printDiff(before, after []byte) {
	for _, line := range DiffLines(before, after) {
		if strings.HasPrefix(line, "-") {
			r.removed.Fprintln(r.out, line)
		} else {
			r.added.Fprintln(r.out, line)
		}
	}
}
