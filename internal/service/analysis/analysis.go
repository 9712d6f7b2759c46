package analysis

import (
	"context"
	"fmt"

	"github.com/panbanda/esmin/internal/cache"
	"github.com/panbanda/esmin/internal/fileproc"
	"github.com/panbanda/esmin/pkg/analyzer/esfeatures"
	"github.com/panbanda/esmin/pkg/config"
	"github.com/panbanda/esmin/pkg/edition"
	"github.com/rs/zerolog"
)

// Service orchestrates feature analysis operations.
type Service struct {
	config  *config.Config
	logger  zerolog.Logger
	noCache bool
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithoutCache disables the result cache regardless of configuration.
func WithoutCache() Option {
	return func(s *Service) {
		s.noCache = true
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	return s
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// FeatureOptions configures feature analysis.
type FeatureOptions struct {
	MaxFileSize int64 // overrides analysis.max_file_size when > 0
	Workers     int   // overrides analysis.workers when > 0
	OnProgress  fileproc.ProgressFunc
}

// AnalyzeFeatures detects the features used by each file.
func (s *Service) AnalyzeFeatures(ctx context.Context, files []string, opts FeatureOptions) (*esfeatures.Analysis, error) {
	a := esfeatures.New(s.analyzerOptions(opts)...)
	defer a.Close()

	s.logger.Debug().Int("files", len(files)).Msg("analyzing features")
	analysis, err := a.AnalyzeWithProgress(ctx, files, opts.OnProgress)
	if err != nil {
		return analysis, err
	}

	for _, fe := range analysis.Errors {
		s.logger.Warn().Str("path", fe.Path).Msg(fe.Error)
	}
	s.logger.Debug().
		Int("with_features", analysis.Summary.FilesWithFeatures).
		Int("errors", analysis.Summary.FilesWithErrors).
		Stringer("min_edition", analysis.Summary.MinEdition).
		Msg("analysis complete")
	return analysis, nil
}

// CheckCompat analyzes files and checks them against target. A zero target
// falls back to analysis.target from the configuration.
func (s *Service) CheckCompat(ctx context.Context, files []string, target edition.Edition, opts FeatureOptions) (*esfeatures.CheckResult, *esfeatures.Analysis, error) {
	if target == edition.Unknown {
		t, err := s.config.TargetEdition()
		if err != nil {
			return nil, nil, fmt.Errorf("target edition: %w", err)
		}
		target = t
	}

	analysis, err := s.AnalyzeFeatures(ctx, files, opts)
	if err != nil {
		return nil, analysis, err
	}
	return analysis.Check(target), analysis, nil
}

func (s *Service) analyzerOptions(opts FeatureOptions) []esfeatures.Option {
	var out []esfeatures.Option

	maxSize := s.config.Analysis.MaxFileSize
	if opts.MaxFileSize > 0 {
		maxSize = opts.MaxFileSize
	}
	if maxSize > 0 {
		out = append(out, esfeatures.WithMaxFileSize(maxSize))
	}

	workers := s.config.Analysis.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	if workers > 0 {
		out = append(out, esfeatures.WithWorkers(workers))
	}

	if c := s.openCache(); c != nil {
		out = append(out, esfeatures.WithCache(c))
	}
	return out
}

// openCache returns the configured cache, or nil when caching is off or the
// cache directory cannot be created.
func (s *Service) openCache() *cache.Cache {
	if s.noCache || !s.config.Cache.Enabled {
		return nil
	}
	c, err := cache.New(s.config.Cache.Dir, s.config.Cache.TTL, true, cache.WithVersion(esfeatures.CacheVersion))
	if err != nil {
		s.logger.Warn().Err(err).Str("dir", s.config.Cache.Dir).Msg("cache disabled")
		return nil
	}
	return c
}
