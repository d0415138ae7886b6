package parser

import (
	"context"
	"fmt"
	"log/slog"

	"TrendingDigest/internal/config"
	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/ports"
	"TrendingDigest/internal/scanner"
)

// StrategySource implements ProjectSource via the configured scanner strategy.
type StrategySource struct {
	registry *scanner.Registry
	source   config.SourceConfig
	logger   *slog.Logger
}

var _ ports.ProjectSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with the configured listing.
func NewStrategySource(reg *scanner.Registry, source config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		source:   source,
		logger:   log,
	}
}

// FetchTrending resolves the configured scanner and runs it once.
func (s *StrategySource) FetchTrending(ctx context.Context) ([]domain.Project, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("%w: scanner registry is not configured", domain.ErrFetch)
	}

	strategy, err := s.registry.Resolve(s.source.Scanner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}

	s.debug("fetch trending", "scanner", strategy.Name(), "url", s.source.URL, "limit", s.source.MaxProjects)

	projects, err := strategy.Scan(ctx, scanner.Request{
		URL:   s.source.URL,
		Limit: s.source.MaxProjects,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.source.URL, err)
	}

	s.debug("strategy source done", "projects", len(projects))
	return projects, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
