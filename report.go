package oztfix

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/agentstation/oztfix/pkg/folia"
	"github.com/agentstation/oztfix/pkg/metadata"
	"github.com/agentstation/oztfix/pkg/provenance"
	"github.com/agentstation/oztfix/pkg/reconciler"
)

// Report describes one run over a list of documents.
type Report struct {
	RunID     string                  `yaml:"run_id"`
	StartTime utc.Time                `yaml:"start_time"`
	EndTime   utc.Time                `yaml:"end_time"`
	Duration  time.Duration           `yaml:"duration"`
	DryRun    bool                    `yaml:"dry_run,omitempty"`
	Strategy  reconciler.StrategyType `yaml:"strategy"`

	Metadata   metadata.Stats       `yaml:"metadata"`
	Summary    Summary              `yaml:"summary"`
	Documents  []*reconciler.Result `yaml:"documents"`
	Provenance *provenance.Report   `yaml:"provenance,omitempty"`

	provenance provenance.Map
}

// Summary counts document outcomes.
type Summary struct {
	Processed      int `yaml:"processed"`
	Saved          int `yaml:"saved"`
	PassedThrough  int `yaml:"passed_through"`
	Failed         int `yaml:"failed"`
	EmbeddedTitles int `yaml:"embedded_titles"`
	FalsePositives int `yaml:"false_positives"`
}

func newReport(runID string, stats metadata.Stats, cfg *config) *Report {
	return &Report{
		RunID:      runID,
		StartTime:  utc.Now(),
		DryRun:     cfg.dryRun,
		Strategy:   cfg.strategy,
		Metadata:   stats,
		Documents:  []*reconciler.Result{},
		provenance: make(provenance.Map),
	}
}

// add records a processed document.
func (r *Report) add(result *reconciler.Result) {
	r.Documents = append(r.Documents, result)
	r.Summary.Processed++

	switch {
	case result.State == reconciler.StatePassThrough:
		r.Summary.PassedThrough++
	case result.IsSuccess():
		r.Summary.Saved++
	default:
		r.Summary.Failed++
	}
	r.Summary.EmbeddedTitles += result.Counts.Confirmed
	r.Summary.FalsePositives += result.Counts.Unmatched

	for key, history := range result.Provenance {
		r.provenance[key] = append(r.provenance[key], history...)
	}
}

// finish stamps the end of the run.
func (r *Report) finish() {
	r.EndTime = utc.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	if len(r.provenance) > 0 {
		r.Provenance = provenance.GenerateReport(r.provenance)
	}
}

// String returns a short human-readable summary.
func (r *Report) String() string {
	return fmt.Sprintf("%d documents: %d saved, %d passed through, %d failed; %d embedded titles, %d false positives",
		r.Summary.Processed, r.Summary.Saved, r.Summary.PassedThrough, r.Summary.Failed,
		r.Summary.EmbeddedTitles, r.Summary.FalsePositives)
}

// Save writes the report as YAML.
func (r *Report) Save(fs afero.Fs, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return folia.WriteFile(fs, path, data)
}
