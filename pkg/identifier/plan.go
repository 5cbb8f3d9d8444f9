package identifier

import (
	"slices"

	"github.com/agentstation/oztfix/pkg/folia"
)

// Assignment is one planned identifier change.
type Assignment struct {
	Element folia.Element
	OldID   string
	NewID   string
}

// Plan is the full set of changes for one embedded title subtree.
type Plan struct {
	Root            folia.Element
	RootID          string
	Assignments     []Assignment
	ClearedMetadata []folia.Element
	ClearedLayers   []folia.Element

	// Renamed maps each replaced identifier to its successor. Word
	// references anywhere in the document follow it.
	Renamed map[string]string

	// Local holds renamed identifiers that more than one element carried.
	// Only word references inside Root follow them.
	Local map[string]string

	planned   map[folia.Element]string
	carriers  map[string]int
	generator *Generator
}

// Rename records that old is replaced by id. An identifier that is not
// unique in the document is only retargeted inside the title.
func (pl *Plan) Rename(old, id string) {
	if old == "" || old == id {
		return
	}
	if pl.carriers[old] > 1 {
		pl.Local[old] = id
		return
	}
	pl.Renamed[old] = id
}

// RenameRoot records the identifier Root carried before it was relabelled.
// Root no longer carries old, so any element still carrying it shares it.
func (pl *Plan) RenameRoot(old string) {
	if old == "" || old == pl.RootID {
		return
	}
	if pl.carriers[old] > 0 {
		pl.Local[old] = pl.RootID
		return
	}
	pl.Renamed[old] = pl.RootID
}

// Ambiguous returns the renamed identifiers that were carried by more than
// one element, sorted.
func (pl *Plan) Ambiguous() []string {
	out := make([]string, 0, len(pl.Local))
	for old := range pl.Local {
		out = append(out, old)
	}
	slices.Sort(out)
	return out
}

// ApplyStats counts what Apply changed.
type ApplyStats struct {
	Assigned        int `yaml:"assigned"`
	ClearedMetadata int `yaml:"cleared_metadata"`
	ClearedLayers   int `yaml:"cleared_layers"`
	RewrittenRefs   int `yaml:"rewritten_refs"`
}

// Apply performs the planned changes on doc and retargets the word
// references that pointed at a renamed element.
func (pl *Plan) Apply(doc *folia.Document) ApplyStats {
	var stats ApplyStats

	for _, e := range pl.ClearedMetadata {
		e.ClearMetadataRef()
		stats.ClearedMetadata++
	}
	for _, layer := range pl.ClearedLayers {
		layer.ClearID()
		stats.ClearedLayers++
	}
	for _, a := range pl.Assignments {
		a.Element.SetID(a.NewID)
		stats.Assigned++
	}

	if len(pl.Renamed) > 0 || len(pl.Local) > 0 {
		for _, ref := range doc.WordRefs() {
			id, ok := pl.Renamed[ref.RefID()]
			if !ok {
				id, ok = pl.Local[ref.RefID()]
				ok = ok && pl.inside(ref)
			}
			if ok {
				ref.SetRefID(id)
				stats.RewrittenRefs++
			}
		}
	}

	return stats
}

func (pl *Plan) inside(e folia.Element) bool {
	for a := e.Parent(); !a.IsZero(); a = a.Parent() {
		if a == pl.Root {
			return true
		}
	}
	return false
}

// NewID returns the planned identifier for an element.
func (pl *Plan) NewID(e folia.Element) (string, bool) {
	id, ok := pl.planned[e]
	return id, ok && id != ""
}
