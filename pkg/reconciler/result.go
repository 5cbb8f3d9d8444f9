package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/oztfix/pkg/identifier"
	"github.com/agentstation/oztfix/pkg/provenance"
)

// Result represents the outcome of processing one document.
type Result struct {
	// Input and output
	InputPath  string `yaml:"input"`
	OutputPath string `yaml:"output,omitempty"`

	// Identity; OriginalID differs from DocumentID after a suffix fallback
	DocumentID string `yaml:"document_id,omitempty"`
	OriginalID string `yaml:"original_id,omitempty"`
	Fallback   bool   `yaml:"fallback,omitempty"`

	// State machine
	State   State   `yaml:"state"`
	History []State `yaml:"history"`

	// Embedded titles
	Counts TitleCounts `yaml:"titles"`
	Titles []Title     `yaml:"title_candidates,omitempty"`

	// Changes
	MergedFields       int                   `yaml:"merged_fields"`
	ClearedDivisions   int                   `yaml:"cleared_divisions"`
	DeletedSubmetadata []string              `yaml:"deleted_submetadata,omitempty"`
	Identifiers        identifier.ApplyStats `yaml:"identifiers"`

	// Metadata
	Metadata ResultMetadata `yaml:"metadata"`

	// Provenance tracking
	Provenance provenance.Map `yaml:"-"`

	// Issues
	Err      error    `yaml:"-"`
	Warnings []string `yaml:"warnings,omitempty"`
}

// Title is one chapter or act division examined as an embedded title candidate.
type Title struct {
	Sequence    int                   `yaml:"sequence"`
	ID          string                `yaml:"id"`
	DivisionID  string                `yaml:"division_id,omitempty"`
	Confirmed   bool                  `yaml:"confirmed"`
	Identifiers identifier.ApplyStats `yaml:"identifiers,omitempty"`
}

// ResultMetadata contains metadata about the processing run.
type ResultMetadata struct {
	StartTime utc.Time      `yaml:"start_time"`
	EndTime   utc.Time      `yaml:"end_time"`
	Duration  time.Duration `yaml:"duration"`
	DryRun    bool          `yaml:"dry_run,omitempty"`
	Strategy  StrategyType  `yaml:"strategy"`
}

// NewResult creates a new result with defaults.
func NewResult(inputPath string) *Result {
	return &Result{
		InputPath:  inputPath,
		History:    []State{},
		Provenance: make(provenance.Map),
		Warnings:   []string{},
		Metadata: ResultMetadata{
			StartTime: utc.Now(),
		},
	}
}

// transition moves the result into a new state.
func (r *Result) transition(s State) {
	r.State = s
	r.History = append(r.History, s)
}

// fail moves the result into the error state and records err.
func (r *Result) fail(err error) error {
	r.transition(StateError)
	r.Err = err
	return err
}

// Finalize stamps the end time and duration.
func (r *Result) Finalize() {
	r.Metadata.EndTime = utc.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
}

// IsSuccess returns true if the document was saved or passed through.
func (r *Result) IsSuccess() bool {
	return r.Err == nil && (r.State == StateSaved || r.State == StatePassThrough)
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	switch {
	case !r.State.IsTerminal():
		return fmt.Sprintf("%s stopped in state %s", r.InputPath, r.State)
	case r.State == StateError:
		return fmt.Sprintf("%s failed: %v", r.InputPath, r.Err)
	case r.State == StatePassThrough:
		return fmt.Sprintf("%s passed through unchanged", r.InputPath)
	}

	verb := "saved to " + r.OutputPath
	if r.Metadata.DryRun {
		verb = "checked (dry run)"
	}
	return fmt.Sprintf("%s %s: %d/%d embedded titles confirmed, %d of %d candidates unmatched",
		r.DocumentID, verb, r.Counts.Confirmed, r.Counts.Expected, r.Counts.Unmatched, r.Counts.Examined())
}
