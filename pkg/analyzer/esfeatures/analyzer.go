package esfeatures

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/panbanda/esmin/internal/cache"
	"github.com/panbanda/esmin/internal/fileproc"
	"github.com/panbanda/esmin/pkg/analyzer"
	"github.com/panbanda/esmin/pkg/feature"
	"github.com/panbanda/esmin/pkg/parser"
)

// Ensure Analyzer implements analyzer.FileAnalyzer.
var _ analyzer.FileAnalyzer[*Analysis] = (*Analyzer)(nil)

// CacheVersion tags cached results. It changes whenever the catalog grows so
// stale entries are not reused.
var CacheVersion = fmt.Sprintf("esfeatures-1-%d", feature.Count)

// Analyzer runs feature detection over files.
type Analyzer struct {
	parser      *parser.Parser
	maxFileSize int64
	workers     int
	cache       *cache.Cache
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithWorkers sets the number of files analysed concurrently
// (0 = fileproc.DefaultWorkers).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithCache stores and reuses per-file results in c.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// New creates a new feature analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		parser: parser.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeFile analyzes a single file.
func (a *Analyzer) AnalyzeFile(path string) (*FileResult, error) {
	return a.analyzeFile(a.parser, path, nil)
}

// AnalyzeSource analyzes in-memory source. path labels the result and any
// syntax error; it is not read.
func (a *Analyzer) AnalyzeSource(path string, src []byte) (*FileResult, error) {
	return a.analyzeSource(a.parser, path, src, nil)
}

// Analyze analyzes all files using parallel processing.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Analysis, error) {
	return a.AnalyzeWithProgress(ctx, files, nil)
}

// AnalyzeWithProgress is Analyze with a callback after each file.
//
// Files that fail to read or parse do not stop the run; they are listed in
// Analysis.Errors. If ctx is cancelled the partial analysis is returned
// together with the context error.
func (a *Analyzer) AnalyzeWithProgress(ctx context.Context, files []string, onProgress fileproc.ProgressFunc) (*Analysis, error) {
	seen := &memo{}
	results, errs := fileproc.MapFilesN(ctx, files, a.workers, func(psr *parser.Parser, path string) (FileResult, error) {
		fr, err := a.analyzeFile(psr, path, seen)
		if err != nil {
			return FileResult{}, err
		}
		return *fr, nil
	}, onProgress)

	analysis := buildAnalysis(results, errs)
	if err := ctx.Err(); err != nil {
		return analysis, err
	}
	return analysis, nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {
	a.parser.Close()
}

func (a *Analyzer) analyzeFile(psr *parser.Parser, path string, m *memo) (*FileResult, error) {
	src, err := parser.ReadSource(path, a.maxFileSize)
	if err != nil {
		return nil, err
	}
	return a.analyzeSource(psr, path, src, m)
}

func (a *Analyzer) analyzeSource(psr *parser.Parser, path string, src []byte, m *memo) (*FileResult, error) {
	hash := cache.HashBytes(src)

	if data, ok := a.cache.GetWithHash(path, hash); ok {
		var cached FileResult
		if err := json.Unmarshal(data, &cached); err == nil {
			cached.Path = path
			return &cached, nil
		}
	}

	key := xxhash.Sum64(src)
	det, ok := m.get(key)
	if !ok {
		result, err := psr.Parse(src, path)
		if err != nil {
			return nil, err
		}
		d := run(result)
		det = detection{features: d.found, occurrences: d.occurrences()}
		m.put(key, det)
	}

	fr := &FileResult{
		Path:        path,
		Hash:        hash,
		Features:    det.features,
		Occurrences: det.occurrences,
	}
	fr.MinEdition, _ = Minimum(det.features)

	if data, err := json.Marshal(fr); err == nil {
		_ = a.cache.SetWithHash(path, hash, data)
	}
	return fr, nil
}

type detection struct {
	features    feature.Set
	occurrences []Occurrence
}

// memo shares detection results between files with identical content
// within one run. A nil memo stores nothing.
type memo struct {
	m sync.Map // uint64 -> detection
}

func (m *memo) get(key uint64) (detection, bool) {
	if m == nil {
		return detection{}, false
	}
	v, ok := m.m.Load(key)
	if !ok {
		return detection{}, false
	}
	return v.(detection), true
}

func (m *memo) put(key uint64, d detection) {
	if m == nil {
		return
	}
	m.m.Store(key, d)
}
