package scanner

import (
	"github.com/panbanda/esmin/internal/scanner"
	"github.com/panbanda/esmin/pkg/config"
)

// ScanResult contains the result of a file scan.
type ScanResult struct {
	Paths []string // inputs after defaulting
	Files []string
}

// Service provides file scanning functionality.
type Service struct {
	config *config.Config
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// New creates a new scanner service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	return s
}

// ScanPaths scans files and directories, defaulting to the working directory.
func (s *Service) ScanPaths(paths []string) (*ScanResult, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	files, err := scanner.New(s.config).ScanPaths(paths)
	if err != nil {
		return nil, &ScanError{Paths: paths, Err: err}
	}
	return &ScanResult{Paths: paths, Files: files}, nil
}

// ScanError indicates a scanning failure.
type ScanError struct {
	Paths []string
	Err   error
}

func (e *ScanError) Error() string {
	return "failed to scan: " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
