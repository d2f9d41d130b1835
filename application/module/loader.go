// Package module implements require() over a single support directory.
package module

import (
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/domain/errors"
)

const (
	exportsName = "exports"
	extension   = ".js"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	logger *slog.Logger
	strict bool
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{logger: slog.Default()}
}

// LoaderOption configures a Loader.
type LoaderOption func(*loaderConfig)

// WithStrict compiles modules in strict mode.
func WithStrict(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strict = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		c.logger = logger
	}
}

// Loader resolves module names against the entries of one directory.
type Loader struct {
	fsys   fs.FS
	config loaderConfig
}

// NewLoader creates a Loader over fsys. Only regular files at the root of
// fsys are loadable.
func NewLoader(fsys fs.FS, opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader{fsys: fsys, config: cfg}
}

// Cache holds the exports of the modules loaded into one context.
type Cache struct {
	exports map[string]goja.Value
	loading map[string]bool
}

// NewCache creates an empty module cache.
func NewCache() *Cache {
	return &Cache{exports: make(map[string]goja.Value), loading: make(map[string]bool)}
}

// Len returns the number of cached modules.
func (c *Cache) Len() int { return len(c.exports) }

// Resolve maps a module name to a file name listed in the support
// directory. name matches an entry literally, or with ".js" appended.
func (l *Loader) Resolve(name string) (string, error) {
	if name == "" {
		return "", &errors.ModuleLoadFailure{Module: name, Err: fmt.Errorf("empty module name")}
	}

	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return "", &errors.ModuleLoadFailure{Module: name, Err: fmt.Errorf("cannot list support directory: %w", err)}
	}

	for _, candidate := range []string{name, name + extension} {
		for _, e := range entries {
			if e.Name() == candidate && e.Type().IsRegular() {
				return candidate, nil
			}
		}
	}
	return "", &errors.ModuleLoadFailure{Module: name, Err: fmt.Errorf("not found in support directory")}
}

// Available lists the loadable module names, without extension.
func (l *Loader) Available() ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), extension) {
			names = append(names, strings.TrimSuffix(e.Name(), extension))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Require loads name into rt, or returns its cached exports.
//
// The module body runs as a function whose "exports" parameter starts as a
// fresh object, so top-level declarations stay local and functions defined
// by the module keep seeing that object after loading. Whatever "exports"
// holds when the body returns is the result. The caller's own "exports"
// binding is shadowed, never written.
func (l *Loader) Require(rt *goja.Runtime, cache *Cache, name string) (goja.Value, error) {
	file, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	if v, ok := cache.exports[file]; ok {
		return v, nil
	}
	if cache.loading[file] {
		return nil, &errors.ModuleLoadFailure{Module: name, Err: fmt.Errorf("circular require")}
	}

	src, err := fs.ReadFile(l.fsys, file)
	if err != nil {
		return nil, &errors.ModuleLoadFailure{Module: name, Err: err}
	}

	// Same-line wrapper keeps reported line numbers intact.
	prog, err := goja.Compile(file, "(function("+exportsName+"){"+string(src)+"\nreturn "+exportsName+";})", l.config.strict)
	if err != nil {
		return nil, &errors.ModuleLoadFailure{Module: name, Err: &errors.CompileError{Source: file, Err: err}}
	}
	wrapper, err := rt.RunProgram(prog)
	if err != nil {
		return nil, &errors.ModuleLoadFailure{Module: name, Err: &errors.RuntimeException{Source: file, Err: err}}
	}
	body, ok := goja.AssertFunction(wrapper)
	if !ok {
		return nil, &errors.ModuleLoadFailure{Module: name, Err: fmt.Errorf("module wrapper is not callable")}
	}

	cache.loading[file] = true
	defer delete(cache.loading, file)

	exports, err := body(goja.Undefined(), rt.NewObject())
	if err != nil {
		return nil, &errors.ModuleLoadFailure{Module: name, Err: &errors.RuntimeException{Source: file, Err: err}}
	}
	if exports == nil {
		exports = goja.Undefined()
	}
	cache.exports[file] = exports
	l.config.logger.Debug("module loaded", "module", name, "file", file)
	return exports, nil
}
