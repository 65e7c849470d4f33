// Package stepsource loads raw step declarations and custom parameter types
// from a project's step-definition modules.
//
// The package is the plugin boundary between the matching core and any
// particular module-loading mechanism: a [Source] yields plain data records
// ([step.RawStep] and [step.TypeTable]), nothing else. The bundled
// [PythonSource] extracts them statically from Python step modules with
// tree-sitter, so no target-project code is ever executed.
package stepsource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/step"
)

// MaxWorkers is the maximum number of concurrent file parsers.
const MaxWorkers = 64

// ErrNoStepSources is returned when no step-definition file could be loaded
// at all. The previous inventory, if any, stays authoritative.
var ErrNoStepSources = errors.New("stepsource: no step definitions could be loaded")

// DefaultPatterns are the glob patterns used to discover step-definition
// modules, relative to the project root.
var DefaultPatterns = []string{
	"features/**/*.py",
	"**/steps/**/*.py",
	"**/steps/*.py",
}

// DefaultSkipDirs are directory names excluded from discovery.
var DefaultSkipDirs = []string{
	".git",
	".venv",
	"venv",
	"__pycache__",
	".pytest_cache",
	"node_modules",
}

// Source supplies raw step declarations per rebuild.
type Source interface {
	Load(ctx context.Context) (*Result, error)
}

// Result is the outcome of one load.
type Result struct {
	// Steps are the discovered step declarations, ordered by file and line.
	Steps []step.RawStep

	// Types maps custom parameter type names to their descriptors.
	Types step.TypeTable

	// Errors are the non-fatal per-file failures encountered.
	Errors []LoadError
}

// LoadError is a failure scoped to one phase and file of the load.
type LoadError struct {
	Err   error
	Path  string
	Phase string
}

func (e LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Phase, e.Path, e.Err)
}

func (e LoadError) Unwrap() error { return e.Err }

// Options configures a PythonSource.
type Options struct {
	// Patterns are doublestar globs for step-definition files, relative to
	// the root. Empty means DefaultPatterns.
	Patterns []string

	// SkipDirs are directory names excluded from the walk, combined with
	// DefaultSkipDirs.
	SkipDirs []string

	// Workers is the number of concurrent file parsers. Zero or negative
	// uses GOMAXPROCS.
	Workers int
}

// Option is a functional option for NewPythonSource.
type Option func(*Options)

// WithPatterns overrides the discovery glob patterns.
func WithPatterns(patterns []string) Option {
	return func(o *Options) {
		if len(patterns) > 0 {
			o.Patterns = patterns
		}
	}
}

// WithSkipDirs adds directory names to exclude from discovery.
func WithSkipDirs(dirs []string) Option {
	return func(o *Options) {
		o.SkipDirs = append(o.SkipDirs, dirs...)
	}
}

// WithWorkers sets the number of concurrent file parsers.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.Workers = n
		}
	}
}

// PythonSource discovers and statically parses Python step-definition
// modules under a project root.
type PythonSource struct {
	root    string
	options *Options
}

// NewPythonSource creates a source rooted at the given project directory.
func NewPythonSource(root string, opts ...Option) *PythonSource {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if len(options.Patterns) == 0 {
		options.Patterns = DefaultPatterns
	}
	options.SkipDirs = append(options.SkipDirs, DefaultSkipDirs...)

	return &PythonSource{root: root, options: options}
}

// Root returns the project root directory.
func (s *PythonSource) Root() string { return s.root }

// Load discovers step-definition files and extracts their step declarations
// and custom parameter types. Files are parsed in parallel; per-file
// failures are collected as soft errors. Load fails with ErrNoStepSources
// when nothing at all could be loaded.
func (s *PythonSource) Load(ctx context.Context) (*Result, error) {
	files := s.discover(ctx)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no step-definition files under %s", ErrNoStepSources, s.root)
	}

	result := s.parseParallel(ctx, files)

	if len(result.Steps) == 0 && len(result.Errors) == len(files) {
		return nil, fmt.Errorf("%w: all %d files failed", ErrNoStepSources, len(files))
	}
	return result, nil
}

// discover walks the root collecting files that match any configured
// pattern.
func (s *PythonSource) discover(ctx context.Context) []string {
	skip := make(map[string]struct{}, len(s.options.SkipDirs))
	for _, d := range s.options.SkipDirs {
		skip[d] = struct{}{}
	}

	var files []string
	_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if walkErr != nil {
			return nil
		}

		if d.IsDir() {
			if _, skipped := skip[d.Name()]; skipped && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAnyPattern(path, s.root, s.options.Patterns) {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)
	return files
}

func matchesAnyPattern(path, root string, patterns []string) bool {
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, relPath)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// parseParallel extracts steps and types from all files concurrently and
// merges the per-file results deterministically.
func (s *PythonSource) parseParallel(ctx context.Context, files []string) *Result {
	workers := s.options.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	sem := semaphore.NewWeighted(int64(workers))
	g, gCtx := errgroup.WithContext(ctx)

	var (
		mu     sync.Mutex
		result = &Result{Types: make(step.TypeTable)}
	)

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			relPath, err := filepath.Rel(s.root, file)
			if err != nil {
				relPath = file
			}
			relPath = filepath.ToSlash(relPath)

			content, err := os.ReadFile(file)
			if err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, LoadError{Err: err, Path: relPath, Phase: "read"})
				mu.Unlock()
				return nil
			}

			steps, types, err := parsePythonModule(gCtx, content, relPath)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, LoadError{Err: err, Path: relPath, Phase: "parse"})
				return nil
			}
			result.Steps = append(result.Steps, steps...)
			for name, desc := range types {
				result.Types[name] = desc
			}
			return nil
		})
	}

	_ = g.Wait()

	// Goroutines finish in arbitrary order; sort for a stable inventory.
	sort.Slice(result.Steps, func(i, j int) bool {
		if result.Steps[i].Location.File != result.Steps[j].Location.File {
			return result.Steps[i].Location.File < result.Steps[j].Location.File
		}
		return result.Steps[i].Location.Line < result.Steps[j].Location.Line
	})

	return result
}

// moduleName derives the dotted Python module path from a file path
// relative to the project root.
func moduleName(relPath string) string {
	trimmed := strings.TrimSuffix(filepath.ToSlash(relPath), ".py")
	return strings.ReplaceAll(trimmed, "/", ".")
}

// StaticSource wraps fixed step and type records, for callers that resolve
// declarations by other means (tests, pre-baked manifests).
type StaticSource struct {
	Steps []step.RawStep
	Types step.TypeTable
	Err   error
}

// Load returns the wrapped records unchanged.
func (s *StaticSource) Load(context.Context) (*Result, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return &Result{Steps: s.Steps, Types: s.Types}, nil
}
