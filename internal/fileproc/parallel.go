// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/ccworks/hoist/pkg/analyzer"
	"github.com/ccworks/hoist/pkg/parser"
	"github.com/ccworks/hoist/pkg/source"
)

// ErrFileTooLarge is recorded for files over the size limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Sorted returns the errors ordered by path.
func (e *ProcessingErrors) Sorted() []ProcessingError {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	out := make([]ProcessingError, len(e.Errors))
	copy(out, e.Errors)
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// parserPool hands out tree-sitter parsers, one per concurrent task.
type parserPool struct {
	parsers chan *parser.Parser
}

func newParserPool(size int) *parserPool {
	return &parserPool{parsers: make(chan *parser.Parser, size)}
}

func (p *parserPool) get() *parser.Parser {
	select {
	case psr := <-p.parsers:
		return psr
	default:
		return parser.New()
	}
}

func (p *parserPool) put(psr *parser.Parser) {
	select {
	case p.parsers <- psr:
	default:
		psr.Close()
	}
}

func (p *parserPool) close() {
	close(p.parsers)
	for psr := range p.parsers {
		psr.Close()
	}
}

// Options tune MapSourceFiles.
type Options struct {
	// MaxWorkers defaults to DefaultWorkerMultiplier x NumCPU.
	MaxWorkers int
	// MaxFileSize skips larger files with ErrFileTooLarge (0 = no limit).
	MaxFileSize int64
}

type fileWithContent struct {
	index   int
	path    string
	content []byte
}

// MapSourceFiles reads every file from src and processes it in parallel with
// a pooled parser. Results keep the order of files; entries for files that
// failed are dropped and their errors collected. Progress is tracked via
// context using analyzer.WithTracker.
func MapSourceFiles[T any](
	ctx context.Context,
	files []string,
	src source.ContentSource,
	opts Options,
	fn func(*parser.Parser, string, []byte) (T, error),
) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	errs := &ProcessingErrors{}

	// Read sequentially; git trees are not safe for concurrent access.
	loaded := make([]fileWithContent, 0, len(files))
	for i, path := range files {
		content, err := src.Read(path)
		if err != nil {
			errs.Add(path, err)
			continue
		}
		if opts.MaxFileSize > 0 && int64(len(content)) > opts.MaxFileSize {
			errs.Add(path, fmt.Errorf("%d bytes: %w", len(content), ErrFileTooLarge))
			continue
		}
		loaded = append(loaded, fileWithContent{index: i, path: path, content: content})
	}

	tracker := analyzer.TrackerFromContext(ctx)
	tracker.Add(len(loaded))

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	slots := make([]T, len(files))
	ok := make([]bool, len(files))

	parsers := newParserPool(maxWorkers)
	defer parsers.close()

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for _, fc := range loaded {
		p.Go(func(ctx context.Context) error {
			defer tracker.Tick(fc.path)

			select {
			case <-ctx.Done():
				errs.Add(fc.path, ctx.Err())
				return ctx.Err()
			default:
			}

			psr := parsers.get()
			defer parsers.put(psr)

			result, err := fn(psr, fc.path, fc.content)
			if err != nil {
				errs.Add(fc.path, err)
				return nil // Don't stop pool on individual file errors
			}
			slots[fc.index] = result
			ok[fc.index] = true
			return nil
		})
	}
	_ = p.Wait() // Context errors are already captured in errs

	results := make([]T, 0, len(loaded))
	for i := range slots {
		if ok[i] {
			results = append(results, slots[i])
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
