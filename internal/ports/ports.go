package ports

import (
	"context"
	"time"

	"TrendingDigest/internal/domain"
)

// ProjectSource pulls the ranked project list from upstream.
type ProjectSource interface {
	FetchTrending(ctx context.Context) ([]domain.Project, error)
}

// TextGenerator sends a single prompt to a generative-text service and
// returns the raw response text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Enricher turns one Project into an EnrichedProject.
type Enricher interface {
	Enrich(ctx context.Context, project domain.Project) (domain.EnrichedProject, error)
}

// Renderer converts an enriched project into a presentational fragment.
type Renderer interface {
	Render(project domain.EnrichedProject) (string, error)
}

// DocumentUpdater replaces the anchor contents of the persisted document.
type DocumentUpdater interface {
	Update(ctx context.Context, fragments []string) (domain.DocumentOutcome, error)
}

// Publisher records the mutated document in version control.
type Publisher interface {
	StageAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context) error
}

// HistoryStore archives enriched projects per run.
type HistoryStore interface {
	SaveRun(ctx context.Context, day time.Time, projects []domain.EnrichedProject) error
}

// Notifier announces the published projects to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, projects []domain.EnrichedProject) error
}
