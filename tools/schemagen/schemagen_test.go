package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
	"github.com/Sumatoshi-tech/relimport/pkg/report"
)

func validateReport(t *testing.T, summary *importmodel.Summary) *gojsonschema.Result {
	t.Helper()

	var buf bytes.Buffer

	reporter := report.New(&buf, report.Options{Format: report.FormatJSON})
	require.NoError(t, reporter.Summary(summary))

	path, err := writeSchema(t.TempDir(), reportName, generateSchema(&importmodel.Summary{}))
	require.NoError(t, err)

	result, err := gojsonschema.Validate(
		gojsonschema.NewReferenceLoader("file://"+filepath.ToSlash(path)),
		gojsonschema.NewBytesLoader(buf.Bytes()),
	)
	require.NoError(t, err)

	return result
}

func TestGenerateSchema_Summary(t *testing.T) {
	t.Parallel()

	schema := generateSchema(&importmodel.Summary{})

	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Required, "scanned")
	assert.Contains(t, schema.Required, "duration_ns")
	assert.Equal(t, "#/definitions/File", schema.Properties["files"].Items.Ref)

	file := schema.Definitions["File"]
	require.NotNil(t, file)
	assert.NotContains(t, file.Properties, "Before")
	assert.NotContains(t, file.Required, "lang")
	assert.Contains(t, file.Required, "changed")
	assert.Equal(t, "#/definitions/Warning", file.Properties["warnings"].Items.Ref)
	assert.Equal(t, "integer", schema.Properties["by_language"].AdditionalProperties.Type)
}

func TestGenerateSchema_ValidatesReport(t *testing.T) {
	t.Parallel()

	summary := importmodel.NewSummary("src", true)
	summary.Add(importmodel.File{
		Path:     "src/x/y.ts",
		Lang:     "TypeScript",
		Imports:  []string{"@/a/b", "@/c"},
		Rewrites: []importmodel.Rewrite{{Line: 1, Alias: "@/a/b", Replacement: "../a/b"}},
		Warnings: []importmodel.Warning{importmodel.NewWarning(2, "@/c", errors.New("boom"))},
		Size:     64,
		Changed:  true,
	})
	summary.Duration = 2 * time.Millisecond

	result := validateReport(t, summary)
	assert.True(t, result.Valid(), "%v", result.Errors())
}

func TestGenerateSchema_ValidatesEmptyReport(t *testing.T) {
	t.Parallel()

	result := validateReport(t, importmodel.NewSummary("src", false))
	assert.True(t, result.Valid(), "%v", result.Errors())
}

func TestWriteSchema_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := writeSchema(filepath.Join(t.TempDir(), "missing"), reportName, &Schema{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
