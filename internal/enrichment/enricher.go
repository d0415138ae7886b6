package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/ports"
)

const responsePreviewRunes = 200

// Enricher asks the text generator for localized fields of one project and
// applies the extraction policy to the answer.
type Enricher struct {
	generator ports.TextGenerator
	timeout   time.Duration
	logger    *slog.Logger
}

var _ ports.Enricher = (*Enricher)(nil)

// NewEnricher wires a generator; a non-positive timeout disables the deadline.
func NewEnricher(generator ports.TextGenerator, timeout time.Duration, log *slog.Logger) *Enricher {
	return &Enricher{generator: generator, timeout: timeout, logger: log}
}

// Enrich issues exactly one generation call for project. Transport failures
// and deadline expiry are returned as ErrEnrichment; malformed answers are
// recovered through the fallback and never returned as errors.
func (e *Enricher) Enrich(ctx context.Context, project domain.Project) (domain.EnrichedProject, error) {
	if e.generator == nil {
		return domain.EnrichedProject{}, fmt.Errorf("%w: text generator is not configured", domain.ErrEnrichment)
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	text, err := e.generator.Generate(callCtx, BuildPrompt(project))
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return domain.EnrichedProject{}, fmt.Errorf("%w: no response within %s: %v", domain.ErrEnrichment, e.timeout, err)
		}
		return domain.EnrichedProject{}, fmt.Errorf("%w: %v", domain.ErrEnrichment, err)
	}

	text = strings.TrimSpace(text)
	e.debug("model response", "project", project.Name, "preview", Preview(strings.ReplaceAll(text, "\n", " "), responsePreviewRunes))

	result := Extract(project, text)
	if result.Block != "" {
		e.debug("structured block", "project", project.Name, "block", result.Block)
	}
	if result.Err != nil {
		e.info("use fallback data", "project", project.Name, "reason", result.Err)
	}

	return result.Project, nil
}

func (e *Enricher) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Enricher) info(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}
