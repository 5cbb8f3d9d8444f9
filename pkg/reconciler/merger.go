package reconciler

import (
	"github.com/agentstation/oztfix/pkg/authority"
	"github.com/agentstation/oztfix/pkg/folia"
	"github.com/agentstation/oztfix/pkg/metadata"
	"github.com/agentstation/oztfix/pkg/provenance"
	"github.com/agentstation/oztfix/pkg/types"
)

// Merger copies record fields into a document metadata block.
type Merger interface {
	// Merge copies every mergeable, non-empty field of rec into target and
	// returns the number of fields that changed
	Merge(target *folia.Metadata, rec *metadata.Record, resourceType types.ResourceType, resourceID string) int
}

// merger is the default Merger. Excluded fields and empty values are never
// copied, so merging the same record twice is the same as merging it once.
type merger struct {
	authorities authority.Authority
	tracker     provenance.Tracker
}

// newMerger creates a merger that records provenance in tracker.
func newMerger(authorities authority.Authority, tracker provenance.Tracker) Merger {
	return &merger{
		authorities: authorities,
		tracker:     tracker,
	}
}

// Merge copies record fields into target.
func (m *merger) Merge(target *folia.Metadata, rec *metadata.Record, resourceType types.ResourceType, resourceID string) int {
	changed := 0
	for _, field := range rec.Fields() {
		if field.Value == "" || !m.authorities.Mergeable(field.Name, resourceType) {
			continue
		}

		previous, had := target.Get(field.Name)
		if had && previous == field.Value {
			continue
		}
		target.Set(field.Name, field.Value)
		changed++

		history := provenance.Provenance{
			Source: rec.Source(field.Name),
			Value:  field.Value,
			Reason: "merged from " + rec.Source(field.Name).String(),
		}
		if had {
			history.Previous = previous
		}
		m.tracker.Track(provenance.Key{Type: resourceType, ID: resourceID, Field: field.Name}, history)
	}
	return changed
}
