// Package importmodel defines the data model for alias import rewriting.
package importmodel

import "time"

// Rewrite is one alias occurrence replaced by a relative import.
type Rewrite struct {
	Line        int    `json:"line"        yaml:"line"`
	Alias       string `json:"alias"       yaml:"alias"`
	Replacement string `json:"replacement" yaml:"replacement"`
}

// Warning is one alias occurrence that could not be resolved. The line that
// holds it is left as it was.
type Warning struct {
	Line   int    `json:"line"  yaml:"line"`
	Alias  string `json:"alias" yaml:"alias"`
	Reason string `json:"error" yaml:"error"`
	Err    error  `json:"-"     yaml:"-"`
}

// NewWarning records err against the alias found on line.
func NewWarning(line int, alias string, err error) Warning {
	warning := Warning{Line: line, Alias: alias, Err: err}
	if err != nil {
		warning.Reason = err.Error()
	}

	return warning
}

// File represents a source file with its detected alias imports, language,
// and the outcome of rewriting it.
type File struct {
	Path     string    `json:"path"               yaml:"path"`
	Lang     string    `json:"lang,omitempty"     yaml:"lang,omitempty"`
	Imports  []string  `json:"imports,omitempty"  yaml:"imports,omitempty"`
	Rewrites []Rewrite `json:"rewrites,omitempty" yaml:"rewrites,omitempty"`
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Size     int       `json:"size"               yaml:"size"`

	// Changed reports whether the rewritten content differs from the input.
	Changed bool `json:"changed" yaml:"changed"`
	// Written reports whether the new content reached the disk.
	Written bool `json:"written" yaml:"written"`

	Before []byte `json:"-" yaml:"-"`
	After  []byte `json:"-" yaml:"-"`

	// Error is set when the file could not be read or written.
	Error  error  `json:"-"               yaml:"-"`
	Reason string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Fail marks the file as not processed because of err.
func (f *File) Fail(err error) {
	f.Error = err
	if err != nil {
		f.Reason = err.Error()
	}
}

// Summary aggregates the outcome of one run over a tree.
type Summary struct {
	Root       string         `json:"root"        yaml:"root"`
	DryRun     bool           `json:"dry_run"     yaml:"dry_run"`
	Scanned    int            `json:"scanned"     yaml:"scanned"`
	Changed    int            `json:"changed"     yaml:"changed"`
	Rewrites   int            `json:"rewrites"    yaml:"rewrites"`
	Warnings   int            `json:"warnings"    yaml:"warnings"`
	Skipped    int            `json:"skipped"     yaml:"skipped"`
	Bytes      int64          `json:"bytes"       yaml:"bytes"`
	ByLanguage map[string]int `json:"by_language" yaml:"by_language"`
	Files      []File         `json:"files"       yaml:"files"`
	Duration   time.Duration  `json:"duration_ns" yaml:"duration"`
}

// NewSummary returns an empty summary for root.
func NewSummary(root string, dryRun bool) *Summary {
	return &Summary{
		Root:       root,
		DryRun:     dryRun,
		ByLanguage: map[string]int{},
	}
}

// Add folds one examined file into the summary. Only files that changed or
// carried warnings are retained in Files.
func (s *Summary) Add(file File) {
	s.Scanned++
	s.Bytes += int64(file.Size)
	s.Rewrites += len(file.Rewrites)
	s.Warnings += len(file.Warnings)

	if file.Error != nil {
		s.Warnings++
	}

	if file.Lang != "" {
		s.ByLanguage[file.Lang]++
	}

	if file.Changed {
		s.Changed++
	}

	if file.Changed || len(file.Warnings) > 0 || file.Error != nil {
		file.Before = nil
		file.After = nil
		s.Files = append(s.Files, file)
	}
}
