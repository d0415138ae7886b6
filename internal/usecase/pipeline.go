package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/enrichment"
	"TrendingDigest/internal/ports"
	"TrendingDigest/internal/render"
)

const descriptionPreviewRunes = 80

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source    ports.ProjectSource
	Enricher  ports.Enricher
	Renderer  ports.Renderer
	Document  ports.DocumentUpdater
	Publisher ports.Publisher
	History   ports.HistoryStore
	Notifier  ports.Notifier
	Logger    *slog.Logger
	Now       func() time.Time
}

// Options tune a single run.
type Options struct {
	CommitMessage string
	DryRun        bool
	NoPublish     bool
}

// Pipeline implements the fetch, enrich, render, splice and publish workflow.
// Projects are handled one at a time in source order.
type Pipeline struct {
	source    ports.ProjectSource
	enricher  ports.Enricher
	renderer  ports.Renderer
	document  ports.DocumentUpdater
	publisher ports.Publisher
	history   ports.HistoryStore
	notifier  ports.Notifier
	logger    *slog.Logger
	now       func() time.Time
	opts      Options
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts Options) *Pipeline {
	renderer := deps.Renderer
	if renderer == nil {
		renderer = render.CardRenderer{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if opts.CommitMessage == "" {
		opts.CommitMessage = "Auto Update"
	}
	return &Pipeline{
		source:    deps.Source,
		enricher:  deps.Enricher,
		renderer:  renderer,
		document:  deps.Document,
		publisher: deps.Publisher,
		history:   deps.History,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		now:       now,
		opts:      opts,
	}
}

// Run executes one pass. Fetch, enrichment and push failures are returned;
// a missing anchor is logged and ends the run without publishing.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{StartedAt: p.now(), Publish: domain.PublishSkipped}

	if p.source == nil || p.enricher == nil || p.document == nil {
		return report, fmt.Errorf("pipeline is missing source, enricher or document")
	}

	p.info("fetch trending projects")
	projects, err := p.source.FetchTrending(ctx)
	if err != nil {
		return report, &domain.StageError{Stage: domain.StageFetch, Err: err}
	}
	report.Fetched = len(projects)

	if len(projects) == 0 {
		p.info("no projects fetched, nothing to do")
		return report, nil
	}
	p.info("fetched projects", "count", len(projects))

	enriched := make([]domain.EnrichedProject, 0, len(projects))
	for i, project := range projects {
		p.info("enrich project",
			"index", i+1,
			"name", project.Name,
			"url", project.URL,
			"description", enrichment.Preview(project.Description, descriptionPreviewRunes))

		item, err := p.enricher.Enrich(ctx, project)
		if err != nil {
			report.Projects = enriched
			return report, &domain.StageError{Stage: domain.StageEnrich, Record: project.Name, Err: err}
		}
		if item.Fallback {
			report.Fallbacks++
		}
		p.debug("enriched project", "name", item.Name, "name_zh", item.NameZH, "desc_zh", item.DescZH, "comment", item.Comment)
		enriched = append(enriched, item)
	}
	report.Projects = enriched
	p.info("enrichment done", "count", len(enriched), "fallbacks", report.Fallbacks)

	fragments, err := render.RenderAll(p.renderer, enriched)
	if err != nil {
		return report, &domain.StageError{Stage: domain.StageRender, Err: err}
	}
	report.Fragments = fragments
	p.info("rendered cards", "count", len(fragments))

	if p.opts.DryRun {
		report.Document = domain.DocumentDryRun
		p.info("dry run, document and repository untouched")
		return report, nil
	}

	outcome, err := p.document.Update(ctx, fragments)
	report.Document = outcome
	if err != nil {
		if errors.Is(err, domain.ErrAnchorNotFound) {
			p.logError("document not updated", "error", err)
			return report, nil
		}
		return report, &domain.StageError{Stage: domain.StageDocument, Err: err}
	}
	if outcome != domain.DocumentWritten {
		return report, nil
	}

	p.archive(ctx, report)

	if err := p.publish(ctx, &report); err != nil {
		return report, &domain.StageError{Stage: domain.StagePublish, Err: err}
	}

	p.notify(ctx, report)
	p.info("run complete", "document", report.Document, "publish", report.Publish)
	return report, nil
}

func (p *Pipeline) publish(ctx context.Context, report *domain.RunReport) error {
	if p.publisher == nil || p.opts.NoPublish {
		report.Publish = domain.PublishDisabled
		p.info("publishing disabled")
		return nil
	}

	p.info("stage and commit changes")
	if err := p.publisher.StageAll(ctx); err != nil {
		return err
	}
	if err := p.publisher.Commit(ctx, p.opts.CommitMessage); err != nil {
		if errors.Is(err, domain.ErrNothingToCommit) {
			report.Publish = domain.PublishNothingToCommit
			p.info("nothing to commit, skip push")
			return nil
		}
		return err
	}
	if err := p.publisher.Push(ctx); err != nil {
		return err
	}
	report.Publish = domain.PublishPushed
	p.info("changes pushed")
	return nil
}

func (p *Pipeline) archive(ctx context.Context, report domain.RunReport) {
	if p.history == nil {
		return
	}
	if err := p.history.SaveRun(ctx, report.StartedAt, report.Projects); err != nil {
		p.warn("archive run", "error", err)
	}
}

func (p *Pipeline) notify(ctx context.Context, report domain.RunReport) {
	if p.notifier == nil || report.Publish != domain.PublishPushed {
		return
	}
	if err := p.notifier.PublishDigest(ctx, report.Projects); err != nil {
		p.warn("send notification", "error", err)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) logError(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
