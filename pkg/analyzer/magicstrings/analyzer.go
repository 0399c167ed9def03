package magicstrings

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ccworks/hoist/internal/cache"
	"github.com/ccworks/hoist/internal/fileproc"
	"github.com/ccworks/hoist/pkg/analyzer"
	"github.com/ccworks/hoist/pkg/parser"
	"github.com/ccworks/hoist/pkg/source"
)

// Ensure Analyzer implements analyzer.FileAnalyzer.
var _ analyzer.FileAnalyzer[*Analysis] = (*Analyzer)(nil)

// ResultCache stores solved files keyed by path, validated by content hash.
type ResultCache interface {
	GetWithHash(key, hash string) ([]byte, bool)
	SetWithHash(key, hash string, data []byte) error
}

// Analyzer solves many files in parallel.
type Analyzer struct {
	solver      *Solver
	source      source.ContentSource
	cache       ResultCache
	maxFileSize int64
	maxWorkers  int
	logger      *zap.Logger
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithSolver sets the solver used for every file.
func WithSolver(s *Solver) Option {
	return func(a *Analyzer) {
		if s != nil {
			a.solver = s
		}
	}
}

// WithSource sets where file content is read from. Default is the filesystem.
func WithSource(src source.ContentSource) Option {
	return func(a *Analyzer) {
		if src != nil {
			a.source = src
		}
	}
}

// WithCache enables result caching.
func WithCache(c ResultCache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithMaxWorkers bounds parallelism (0 = default).
func WithMaxWorkers(n int) Option {
	return func(a *Analyzer) {
		a.maxWorkers = n
	}
}

// WithAnalyzerLogger sets the diagnostic logger.
func WithAnalyzerLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates a batch analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		solver: NewSolver(),
		source: source.NewFilesystem(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// cacheEntry keeps the rewritten text alongside the report fields.
type cacheEntry struct {
	Result FileResult `json:"result"`
	Text   string     `json:"text"`
}

// Analyze solves every file. Per-file failures are recorded on the file's
// result and do not stop the batch. Progress is tracked via context using
// analyzer.WithTracker.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Analysis, error) {
	fingerprint := cache.Fingerprint(a.solver.Fingerprint())

	results, errs := fileproc.MapSourceFiles(ctx, files, a.source, fileproc.Options{
		MaxWorkers:  a.maxWorkers,
		MaxFileSize: a.maxFileSize,
	}, func(psr *parser.Parser, path string, content []byte) (FileResult, error) {
		return a.solveFile(ctx, psr, path, content, fingerprint), nil
	})

	for _, pe := range errs.Sorted() {
		results = append(results, FileResult{Path: pe.Path, Error: pe.Err.Error()})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	analysis := &Analysis{
		Files:      results,
		ScopeMode:  a.solver.ScopeMode(),
		AnalyzedAt: time.Now().UTC(),
	}
	analysis.Summary.TotalFiles = len(results)
	for _, r := range results {
		switch {
		case r.Error != "":
			analysis.Summary.FailedFiles++
		case r.Changed:
			analysis.Summary.ChangedFiles++
		}
		analysis.Summary.Stats.Add(r.Stats)
	}

	if err := ctx.Err(); err != nil {
		return analysis, err
	}
	return analysis, nil
}

func (a *Analyzer) solveFile(ctx context.Context, psr *parser.Parser, path string, content []byte, fingerprint string) FileResult {
	key := cache.Key(path, fingerprint)
	hash := ""
	if a.cache != nil {
		hash = cache.HashBytes(content)
		if data, ok := a.cache.GetWithHash(key, hash); ok {
			var entry cacheEntry
			if err := json.Unmarshal(data, &entry); err == nil {
				entry.Result.Text = entry.Text
				a.logger.Debug("cache hit", zap.String("path", path))
				return entry.Result
			}
		}
	}

	res, err := a.solver.SolveWithParser(ctx, psr, content)
	fr := FileResult{
		Path:      path,
		Stats:     res.Stats,
		Constants: res.Constants,
		Text:      res.Text,
		Changed:   res.Text != string(content),
	}
	if err != nil {
		fr.Error = err.Error()
		a.logger.Debug("solve failed", zap.String("path", path), zap.Error(err))
		return fr
	}

	if a.cache != nil {
		data, merr := json.Marshal(cacheEntry{Result: fr, Text: fr.Text})
		if merr == nil {
			if serr := a.cache.SetWithHash(key, hash, data); serr != nil {
				a.logger.Debug("cache write failed", zap.String("path", path), zap.Error(serr))
			}
		}
	}
	return fr
}

// cachePruner is implemented by caches that can drop expired entries.
type cachePruner interface {
	Prune() (int, error)
}

// Close sweeps expired entries from the result cache, if it supports it,
// and detaches the cache from the analyzer.
func (a *Analyzer) Close() {
	if a.cache == nil {
		return
	}
	if p, ok := a.cache.(cachePruner); ok {
		n, err := p.Prune()
		if err != nil {
			a.logger.Debug("cache prune failed", zap.Error(err))
		} else if n > 0 {
			a.logger.Debug("cache pruned", zap.Int("removed", n))
		}
	}
	a.cache = nil
}
