package rewrite_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/relimport/pkg/config"
	"github.com/Sumatoshi-tech/relimport/pkg/resolve"
	"github.com/Sumatoshi-tech/relimport/pkg/rewrite"
)

var errBoom = errors.New("boom")

// failingResolver fails for the listed aliases and delegates otherwise.
type failingResolver struct {
	inner rewrite.AliasResolver
	fail  map[string]bool
}

func (f failingResolver) Resolve(sourceFile, alias string) resolve.Result {
	if f.fail[alias] {
		return resolve.Result{Alias: alias, Err: errBoom}
	}

	return f.inner.Resolve(sourceFile, alias)
}

type fixture struct {
	dir      string
	resolver *resolve.Resolver
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	opts := resolve.OptionsFromConfig(&cfg)
	opts.WorkDir = dir

	resolver, err := resolve.New(opts)
	require.NoError(t, err)

	return fixture{dir: dir, resolver: resolver}
}

// write creates rel (slash separated, relative to the fixture dir) and returns
// its absolute path.
func (f fixture) write(t *testing.T, rel, content string) string {
	t.Helper()

	full := filepath.Join(f.dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))

	return full
}

func (f fixture) rewriter(opts rewrite.Options) *rewrite.Rewriter {
	if opts.Alias == "" {
		opts.Alias = config.DefaultAlias
	}

	return rewrite.New(f.resolver, opts)
}

func readString(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

func TestRewriteFile_NoAlias_LeavesFileUntouched(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	content := "import { x } from \"./x\";\nconsole.log(x);\n"
	path := fx.write(t, "src/a.ts", content)

	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, past, past))

	file := fx.rewriter(rewrite.Options{}).RewriteFile(path)

	assert.False(t, file.Changed)
	assert.False(t, file.Written)
	assert.Empty(t, file.Rewrites)
	assert.Equal(t, content, readString(t, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(past))
}

func TestRewriteFile_NestedSource(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := fx.write(t, "src/x/y.ts", "import { a } from \"@/a/b\";\nexport const y = a;\n")

	file := fx.rewriter(rewrite.Options{}).RewriteFile(path)

	require.NoError(t, file.Error)
	assert.True(t, file.Changed)
	assert.True(t, file.Written)
	assert.Equal(t, "import { a } from \"../a/b\";\nexport const y = a;\n", readString(t, path))

	require.Len(t, file.Rewrites, 1)
	assert.Equal(t, 1, file.Rewrites[0].Line)
	assert.Equal(t, "@/a/b", file.Rewrites[0].Alias)
	assert.Equal(t, "../a/b", file.Rewrites[0].Replacement)
	assert.Equal(t, []string{"@/a/b"}, file.Imports)
}

func TestRewriteFile_TwoLevelsDeep(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := fx.write(t, "src/x/z/y.ts", "import { a } from '@/a/b';\n")

	file := fx.rewriter(rewrite.Options{}).RewriteFile(path)

	require.NoError(t, file.Error)
	assert.True(t, file.Written)
	assert.Equal(t, "import { a } from \"../../a/b\";\n", readString(t, path))
}

func TestRewriteContent_NormalizesQuotesAndKeepsLineContent(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := filepath.Join(fx.dir, "src", "pages", "home.tsx")

	content := "import auth from '@/lib/auth'; // session helpers\n" +
		"  export * from   \"@/lib/util.js\"\n"

	file := fx.rewriter(rewrite.Options{}).RewriteContent(path, []byte(content))

	want := "import auth from \"../lib/auth\"; // session helpers\n" +
		"  export * from   \"../lib/util\"\n"
	assert.Equal(t, want, string(file.After))
	assert.Len(t, file.Rewrites, 2)
}

func TestRewriteContent_SameDirectoryGetsDotSlash(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := filepath.Join(fx.dir, "src", "lib", "a.ts")

	file := fx.rewriter(rewrite.Options{}).RewriteContent(path, []byte(`import b from "@/lib/b";`))

	assert.Equal(t, `import b from "./b";`, string(file.After))
}

func TestRewriteContent_MultipleOccurrencesOnOneLine(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := filepath.Join(fx.dir, "src", "index.ts")

	content := `export { a } from "@/a"; export { b } from '@/x/b';` + "\n"

	file := fx.rewriter(rewrite.Options{}).RewriteContent(path, []byte(content))

	assert.Equal(t, `export { a } from "./a"; export { b } from "./x/b";`+"\n", string(file.After))
	assert.Len(t, file.Rewrites, 2)
}

func TestRewriteFile_ResolveFailure_LineKeptOthersWritten(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := fx.write(t, "src/x/y.ts",
		"import a from \"@/a\";\nimport bad from \"@/bad\";\nimport c from \"@/c\";\n")

	rw := rewrite.New(failingResolver{inner: fx.resolver, fail: map[string]bool{"@/bad": true}},
		rewrite.Options{Alias: config.DefaultAlias})

	file := rw.RewriteFile(path)

	require.NoError(t, file.Error)
	assert.True(t, file.Written)
	assert.Equal(t,
		"import a from \"../a\";\nimport bad from \"@/bad\";\nimport c from \"../c\";\n",
		readString(t, path))

	require.Len(t, file.Warnings, 1)
	assert.Equal(t, 2, file.Warnings[0].Line)
	assert.Equal(t, "@/bad", file.Warnings[0].Alias)
	require.ErrorIs(t, file.Warnings[0].Err, errBoom)
	assert.Equal(t, "boom", file.Warnings[0].Reason)
	assert.Len(t, file.Rewrites, 2)
}

func TestRewriteFile_OnlyFailures_NotWritten(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	content := "import bad from \"@/bad\";\n"
	path := fx.write(t, "src/y.ts", content)

	rw := rewrite.New(failingResolver{inner: fx.resolver, fail: map[string]bool{"@/bad": true}},
		rewrite.Options{Alias: config.DefaultAlias})

	file := rw.RewriteFile(path)

	assert.False(t, file.Changed)
	assert.False(t, file.Written)
	assert.Len(t, file.Warnings, 1)
	assert.Equal(t, content, readString(t, path))
}

func TestRewriteFile_SecondRunIsNoop(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := fx.write(t, "src/x/y.ts", "import { a } from \"@/a/b\";\n")
	rw := fx.rewriter(rewrite.Options{})

	first := rw.RewriteFile(path)
	require.True(t, first.Written)

	second := rw.RewriteFile(path)
	assert.False(t, second.Changed)
	assert.False(t, second.Written)
	assert.Empty(t, second.Imports)
}

func TestRewriteFile_DryRun_DoesNotWrite(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	content := "import { a } from \"@/a/b\";\n"
	path := fx.write(t, "src/x/y.ts", content)

	file := fx.rewriter(rewrite.Options{DryRun: true}).RewriteFile(path)

	assert.True(t, file.Changed)
	assert.False(t, file.Written)
	assert.Equal(t, "import { a } from \"../a/b\";\n", string(file.After))
	assert.Equal(t, content, readString(t, path))
}

func TestRewriteContent_BareImportsOptIn(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := filepath.Join(fx.dir, "src", "main.ts")
	content := "import \"@/styles/global\";\n"

	off := fx.rewriter(rewrite.Options{}).RewriteContent(path, []byte(content))
	assert.False(t, off.Changed)

	on := fx.rewriter(rewrite.Options{MatchBareImports: true}).RewriteContent(path, []byte(content))
	assert.Equal(t, "import \"./styles/global\";\n", string(on.After))
}

func TestRewriteContent_MultiLineImportIsOutOfScope(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := filepath.Join(fx.dir, "src", "main.ts")
	content := "import {\n  a,\n} from\n  \"@/a\";\n"

	file := fx.rewriter(rewrite.Options{}).RewriteContent(path, []byte(content))

	assert.False(t, file.Changed)
	assert.Equal(t, content, string(file.After))
}

func TestRewriteContent_PreservesLineEndings(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := filepath.Join(fx.dir, "src", "main.ts")

	crlf := fx.rewriter(rewrite.Options{}).RewriteContent(path, []byte("import a from \"@/a\";\r\nlet b = 1;\r\n"))
	assert.Equal(t, "import a from \"./a\";\r\nlet b = 1;\r\n", string(crlf.After))

	noEOL := fx.rewriter(rewrite.Options{}).RewriteContent(path, []byte("import a from \"@/a\""))
	assert.Equal(t, "import a from \"./a\"", string(noEOL.After))
}

func TestRewriteFile_PreservesPermissions(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	path := fx.write(t, "src/x/y.ts", "import { a } from \"@/a\";\n")
	require.NoError(t, os.Chmod(path, 0o600))

	file := fx.rewriter(rewrite.Options{}).RewriteFile(path)
	require.True(t, file.Written)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestRewriteFile_MissingFile(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)

	file := fx.rewriter(rewrite.Options{}).RewriteFile(filepath.Join(fx.dir, "src", "gone.ts"))

	require.ErrorIs(t, file.Error, rewrite.ErrReadFile)
	assert.NotEmpty(t, file.Reason)
}

func TestImportPattern_QuotesAlias(t *testing.T) {
	t.Parallel()

	pattern := rewrite.ImportPattern("$lib/", false)

	assert.True(t, pattern.MatchString(`import x from "$lib/x"`))
	assert.False(t, pattern.MatchString(`import x from "Xlib/x"`))
	assert.False(t, pattern.MatchString(`const s = datafrom "$lib/x"`))
}
