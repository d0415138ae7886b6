package domain

import "time"

// Project is a single entry scraped from the trending listing.
type Project struct {
	Name        string
	URL         string
	Description string
}

// EnrichedProject carries the localized fields produced for one Project.
// NameZH, DescZH and Comment are always populated, either from the model
// response or from the fallback policy.
type EnrichedProject struct {
	Project
	NameZH  string `json:"name_zh"`
	DescZH  string `json:"desc_zh"`
	Comment string `json:"comment"`

	// Fallback reports whether any localized field was synthesized.
	Fallback bool `json:"-"`
}

// DocumentOutcome enumerates what happened to the persisted document.
type DocumentOutcome string

const (
	DocumentWritten       DocumentOutcome = "written"
	DocumentSkippedEmpty  DocumentOutcome = "skipped-empty"
	DocumentAnchorMissing DocumentOutcome = "anchor-missing"
	DocumentDryRun        DocumentOutcome = "dry-run"
)

// PublishOutcome enumerates the version-control result of a run.
type PublishOutcome string

const (
	PublishPushed          PublishOutcome = "pushed"
	PublishNothingToCommit PublishOutcome = "nothing-to-commit"
	PublishDisabled        PublishOutcome = "disabled"
	PublishSkipped         PublishOutcome = "skipped"
)

// RunReport summarizes one pipeline execution.
type RunReport struct {
	StartedAt time.Time
	Fetched   int
	Projects  []EnrichedProject
	Fallbacks int
	Fragments []string
	Document  DocumentOutcome
	Publish   PublishOutcome
}
