// Package report renders the outcome of a fix run: per-file console notices
// while the run progresses and a summary once it is done.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
)

// Format selects how the summary is rendered.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// durationPrecision rounds the run time in the summary line.
const durationPrecision = time.Millisecond

// ErrUnknownFormat is returned for a format other than text, json or yaml.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(value)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, value)
	}
}

// Options configures a [Reporter].
type Options struct {
	Format Format
	// Quiet suppresses per-file notices.
	Quiet bool
	// Verbose adds the summary table in text format.
	Verbose bool
	// Diff prints the changed lines under each fixed or would-fix notice.
	Diff bool
	// NoColor disables ANSI colors regardless of the terminal.
	NoColor bool
}

// Reporter writes notices and summaries to an output stream.
type Reporter struct {
	out  io.Writer
	opts Options

	success *color.Color
	warn    *color.Color
	pending *color.Color
	added   *color.Color
	removed *color.Color
}

// New creates a Reporter writing to out.
func New(out io.Writer, opts Options) *Reporter {
	if opts.Format == "" {
		opts.Format = FormatText
	}

	rep := &Reporter{
		out:     out,
		opts:    opts,
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		pending: color.New(color.FgCyan),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
	}

	if opts.NoColor {
		for _, c := range []*color.Color{rep.success, rep.warn, rep.pending, rep.added, rep.removed} {
			c.DisableColor()
		}
	}

	return rep
}

// File prints the notices for one processed file: a warning per unresolved
// alias, then the fixed (or would-fix) line. Machine formats print nothing
// here; everything goes into the summary.
func (r *Reporter) File(file importmodel.File) {
	if r.opts.Quiet || r.opts.Format != FormatText {
		return
	}

	for _, warning := range file.Warnings {
		r.warn.Fprintf(r.out, "⚠️ Failed to resolve %s in %s: %s\n", warning.Alias, file.Path, warning.Reason)
	}

	switch {
	case file.Error != nil:
		r.warn.Fprintf(r.out, "⚠️ Failed to process %s: %s\n", file.Path, file.Reason)
	case file.Written:
		r.success.Fprintf(r.out, "✔ Fixed imports in: %s\n", file.Path)
	case file.Changed:
		r.pending.Fprintf(r.out, "~ Would fix imports in: %s\n", file.Path)
	default:
		return
	}

	if r.opts.Diff && file.Changed && file.Error == nil {
		r.printDiff(file.Before, file.After)
	}
}

// Summary renders the run summary: the language table in verbose text mode,
// or the whole summary as JSON or YAML.
func (r *Reporter) Summary(summary *importmodel.Summary) error {
	switch r.opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")

		err := enc.Encode(summary)
		if err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)

		err := enc.Encode(summary)
		if err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}

		return enc.Close()
	case FormatText:
		if r.opts.Verbose {
			fmt.Fprintln(r.out, FormatSummaryTable(summary))
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, r.opts.Format)
	}
}

// FormatSummaryTable renders files per language and run totals.
func FormatSummaryTable(summary *importmodel.Summary) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	tbl.AppendHeader(table.Row{"Language", "Files"})

	langs := make([]string, 0, len(summary.ByLanguage))
	for lang := range summary.ByLanguage {
		langs = append(langs, lang)
	}

	slices.Sort(langs)

	for _, lang := range langs {
		tbl.AppendRow(table.Row{lang, summary.ByLanguage[lang]})
	}

	tbl.AppendFooter(table.Row{"Total", summary.Scanned})

	totals := fmt.Sprintf(
		"scanned %d files (%s), changed %d, rewrites %d, warnings %d, skipped %d in %s",
		summary.Scanned,
		humanize.Bytes(uint64(max(summary.Bytes, 0))),
		summary.Changed,
		summary.Rewrites,
		summary.Warnings,
		summary.Skipped,
		summary.Duration.Round(durationPrecision),
	)

	if summary.DryRun {
		totals += " (dry run)"
	}

	return tbl.Render() + "\n" + totals
}
