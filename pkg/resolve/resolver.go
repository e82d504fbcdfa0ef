// Package resolve turns alias import references into relative import paths.
//
// Resolution happens in two steps. [Resolver.ResolveAlias] maps a reference
// such as "@/lib/auth" onto an absolute file path under the source root,
// appending the default extension when the reference carries none.
// [Resolver.RelativeImport] then expresses that path relative to the
// directory of the file that contains the import, in the form an import
// statement expects: forward slashes, no known extension, and a leading
// "./" or "../". Target existence is never checked.
package resolve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Sumatoshi-tech/relimport/pkg/config"
)

// Sentinel errors.
var (
	// ErrUnresolvable wraps every failure to compute a relative import.
	ErrUnresolvable = errors.New("unresolvable alias")
	// ErrNotAlias indicates the reference does not start with the alias prefix.
	ErrNotAlias = errors.New("reference does not start with alias prefix")
	// ErrInvalidOptions indicates the resolver was built with unusable options.
	ErrInvalidOptions = errors.New("invalid resolver options")
)

const (
	currentDirPrefix = "./"
	parentDirPrefix  = "../"
)

// Options configures a [Resolver].
type Options struct {
	// Root is the source root directory the alias prefix maps to.
	Root string
	// Alias is the prefix that marks alias references, e.g. "@/".
	Alias string
	// DefaultExtension is appended to targets without a known extension.
	DefaultExtension string
	// Extensions are the known target extensions. A target ending in one of
	// them gets no default extension, and the matching suffix is stripped
	// from the relative import.
	Extensions []string
	// WorkDir anchors a relative Root and relative source paths.
	// Empty means the process working directory.
	WorkDir string
	// CacheSize bounds the memo of (directory, alias) results. Zero disables it.
	CacheSize int
}

// OptionsFromConfig derives resolver options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:             cfg.Root,
		Alias:            cfg.Alias,
		DefaultExtension: cfg.DefaultExtension,
		Extensions:       cfg.ResolvedExtensions,
		CacheSize:        cfg.CacheSize,
	}
}

// Result is the outcome of resolving one alias occurrence. Exactly one of
// Import and Err is meaningful.
type Result struct {
	Alias  string
	Target string
	Import string
	Err    error
}

// OK reports whether the alias resolved.
func (r Result) OK() bool {
	return r.Err == nil
}

type cacheKey struct {
	dir   string
	alias string
}

// Resolver computes relative imports for alias references.
type Resolver struct {
	opts  Options
	cache *lru.Cache[cacheKey, Result]
}

// New creates a Resolver.
func New(opts Options) (*Resolver, error) {
	if opts.Root == "" || opts.Alias == "" || opts.DefaultExtension == "" {
		return nil, fmt.Errorf("%w: root, alias and default extension are required", ErrInvalidOptions)
	}

	resolver := &Resolver{opts: opts}

	if opts.CacheSize > 0 {
		cache, err := lru.New[cacheKey, Result](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create resolve cache: %w", err)
		}

		resolver.cache = cache
	}

	return resolver, nil
}

// Alias returns the configured alias prefix.
func (r *Resolver) Alias() string {
	return r.opts.Alias
}

// Resolve maps alias, found in sourceFile, onto a relative import.
func (r *Resolver) Resolve(sourceFile, alias string) Result {
	absSource, err := r.absolute(sourceFile)
	if err != nil {
		return Result{Alias: alias, Err: fmt.Errorf("%w: %w", ErrUnresolvable, err)}
	}

	key := cacheKey{dir: filepath.Dir(absSource), alias: alias}

	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			return cached
		}
	}

	result := r.resolve(absSource, alias)

	if r.cache != nil {
		r.cache.Add(key, result)
	}

	return result
}

func (r *Resolver) resolve(absSource, alias string) Result {
	target, err := r.ResolveAlias(alias)
	if err != nil {
		return Result{Alias: alias, Err: fmt.Errorf("%w: %w", ErrUnresolvable, err)}
	}

	rel, err := r.RelativeImport(absSource, target)
	if err != nil {
		return Result{Alias: alias, Target: target, Err: fmt.Errorf("%w: %w", ErrUnresolvable, err)}
	}

	return Result{Alias: alias, Target: target, Import: rel}
}

// ResolveAlias converts an alias reference such as "@/lib/auth" into the
// absolute path of its target, e.g. "<workdir>/src/lib/auth.ts".
func (r *Resolver) ResolveAlias(alias string) (string, error) {
	subpath, found := strings.CutPrefix(alias, r.opts.Alias)
	if !found {
		return "", fmt.Errorf("%w: %q", ErrNotAlias, alias)
	}

	path := strings.TrimSpace(strings.TrimSuffix(r.opts.Root, "/") + "/" + subpath)

	if !r.hasKnownExtension(path) {
		path += r.opts.DefaultExtension
	}

	return r.absolute(path)
}

// RelativeImport expresses target relative to the directory of sourceFile,
// in import statement form.
func (r *Resolver) RelativeImport(sourceFile, target string) (string, error) {
	absSource, err := r.absolute(sourceFile)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(filepath.Dir(absSource), target)
	if err != nil {
		return "", fmt.Errorf("relative path from %s: %w", sourceFile, err)
	}

	rel = r.stripKnownExtension(rel)
	rel = strings.ReplaceAll(filepath.ToSlash(rel), `\`, "/")

	if !isRelativeSpecifier(rel) {
		rel = currentDirPrefix + rel
	}

	return rel, nil
}

func (r *Resolver) absolute(path string) (string, error) {
	path = filepath.FromSlash(path)

	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	base := r.opts.WorkDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("working directory: %w", err)
		}

		base = wd
	}

	return filepath.Join(base, path), nil
}

func (r *Resolver) hasKnownExtension(path string) bool {
	for _, ext := range r.opts.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}

func (r *Resolver) stripKnownExtension(path string) string {
	for _, ext := range r.opts.Extensions {
		if trimmed, found := strings.CutSuffix(path, ext); found {
			return trimmed
		}
	}

	return path
}

func isRelativeSpecifier(path string) bool {
	return path == "." || path == ".." ||
		strings.HasPrefix(path, currentDirPrefix) ||
		strings.HasPrefix(path, parentDirPrefix)
}
