// Package rewrite replaces alias import references in source files with
// relative imports.
//
// Matching is line based: an occurrence is a `from "<alias>..."` clause (or,
// when enabled, a side-effect `import "<alias>..."`) contained in a single
// line. Multi-line statements and aliases inside other expressions are not
// matched.
package rewrite

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
	"github.com/Sumatoshi-tech/relimport/pkg/resolve"
)

// Sentinel errors for file level failures.
var (
	ErrReadFile  = errors.New("read source file")
	ErrWriteFile = errors.New("write source file")
)

// Submatch indexes of the import pattern.
const (
	groupKeyword = 1
	groupSpace   = 2
	groupAlias   = 3
)

// AliasResolver resolves one alias occurrence found in sourceFile.
type AliasResolver interface {
	Resolve(sourceFile, alias string) resolve.Result
}

// Options configures a [Rewriter].
type Options struct {
	// Alias is the prefix that marks alias references, e.g. "@/".
	Alias string
	// MatchBareImports also rewrites side-effect imports (`import "@/x"`).
	MatchBareImports bool
	// DryRun computes rewrites without touching the file system.
	DryRun bool
}

// Rewriter rewrites alias imports line by line.
type Rewriter struct {
	resolver AliasResolver
	pattern  *regexp.Regexp
	dryRun   bool
}

// New creates a Rewriter that uses resolver for every matched alias.
func New(resolver AliasResolver, opts Options) *Rewriter {
	return &Rewriter{
		resolver: resolver,
		pattern:  ImportPattern(opts.Alias, opts.MatchBareImports),
		dryRun:   opts.DryRun,
	}
}

// ImportPattern builds the single-line import pattern for alias. Either
// quote style is accepted on input.
func ImportPattern(alias string, matchBare bool) *regexp.Regexp {
	keyword := "from"
	if matchBare {
		keyword = "from|import"
	}

	return regexp.MustCompile(`\b(` + keyword + `)(\s+)['"](` + regexp.QuoteMeta(alias) + `[^'"]+)['"]`)
}

// RewriteFile reads path, rewrites its alias imports and writes the result
// back when anything changed. Files without changes are never written, so
// their modification time is kept.
func (rw *Rewriter) RewriteFile(path string) importmodel.File {
	info, err := os.Stat(path)
	if err != nil {
		file := importmodel.File{Path: path}
		file.Fail(fmt.Errorf("%w %s: %w", ErrReadFile, path, err))

		return file
	}

	content, err := os.ReadFile(path)
	if err != nil {
		file := importmodel.File{Path: path}
		file.Fail(fmt.Errorf("%w %s: %w", ErrReadFile, path, err))

		return file
	}

	file := rw.RewriteContent(path, content)

	if !file.Changed || rw.dryRun {
		return file
	}

	writeErr := writeFileAtomic(path, file.After, info.Mode().Perm())
	if writeErr != nil {
		file.Fail(fmt.Errorf("%w %s: %w", ErrWriteFile, path, writeErr))

		return file
	}

	file.Written = true

	return file
}

// RewriteContent rewrites the alias imports in content, which was read from
// path. It never touches the file system.
func (rw *Rewriter) RewriteContent(path string, content []byte) importmodel.File {
	file := importmodel.File{
		Path:   path,
		Size:   len(content),
		Before: content,
	}

	lines := strings.SplitAfter(string(content), "\n")

	var out strings.Builder

	out.Grow(len(content))

	for idx, line := range lines {
		out.WriteString(rw.rewriteLine(&file, idx+1, line))
	}

	file.After = []byte(out.String())
	file.Changed = !bytes.Equal(file.Before, file.After)

	return file
}

func (rw *Rewriter) rewriteLine(file *importmodel.File, lineNo int, line string) string {
	matches := rw.pattern.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return line
	}

	var out strings.Builder

	last := 0

	for _, match := range matches {
		alias := line[match[2*groupAlias]:match[2*groupAlias+1]]
		file.Imports = append(file.Imports, alias)

		result := rw.resolver.Resolve(file.Path, alias)
		if !result.OK() {
			file.Warnings = append(file.Warnings, importmodel.NewWarning(lineNo, alias, result.Err))

			continue
		}

		keyword := line[match[2*groupKeyword]:match[2*groupKeyword+1]]
		space := line[match[2*groupSpace]:match[2*groupSpace+1]]

		out.WriteString(line[last:match[0]])
		out.WriteString(keyword)
		out.WriteString(space)
		out.WriteString(`"` + result.Import + `"`)

		last = match[1]

		file.Rewrites = append(file.Rewrites, importmodel.Rewrite{
			Line:        lineNo,
			Alias:       alias,
			Replacement: result.Import,
		})
	}

	out.WriteString(line[last:])

	return out.String()
}
