package domain

import (
	"errors"
	"fmt"
)

// Error classes surfaced by the pipeline. Adapters wrap these so callers can
// branch with errors.Is regardless of the underlying cause.
var (
	ErrFetch           = errors.New("fetch failed")
	ErrClientInit      = errors.New("client init failed")
	ErrInvalidConfig   = errors.New("invalid config")
	ErrEnrichment      = errors.New("enrichment failed")
	ErrExtraction      = errors.New("no structured block")
	ErrAnchorNotFound  = errors.New("anchor not found")
	ErrPublish         = errors.New("publish failed")
	ErrNothingToCommit = errors.New("nothing to commit")
)

// Stage names a pipeline step for error reporting.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageEnrich   Stage = "enrich"
	StageRender   Stage = "render"
	StageDocument Stage = "document"
	StagePublish  Stage = "publish"
)

// StageError attaches the failing stage and, when relevant, the record name.
type StageError struct {
	Stage  Stage
	Record string
	Err    error
}

func (e *StageError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Record, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
