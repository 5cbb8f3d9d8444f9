package identifier

import (
	"fmt"

	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/folia"
)

// Planner computes identifier reassignments for subtrees of one document.
type Planner struct {
	doc *folia.Document
}

// NewPlanner creates a planner for doc.
func NewPlanner(doc *folia.Document) *Planner {
	return &Planner{doc: doc}
}

// Plan walks the structure elements strictly inside root in document order
// and records, without modifying anything:
//   - a cleared metadata reference for every element that has one;
//   - a new identifier for every element that is not a line break or
//     whitespace marker, generated under its nearest identified ancestor;
//   - for sentences, a cleared identifier on each entity layer and a new
//     identifier for each of its entities.
//
// Planned identifiers are visible to later elements, so children are
// numbered under their parent's new identifier. root must already carry
// its final identifier.
func (p *Planner) Plan(root folia.Element) (*Plan, error) {
	if root.ID() == "" {
		return nil, errors.NewInvariantError(root.Kind(), "embedded title root has no identifier")
	}

	plan := &Plan{
		Root:     root,
		RootID:   root.ID(),
		Renamed:  make(map[string]string),
		Local:    make(map[string]string),
		planned:  make(map[folia.Element]string),
		carriers: make(map[string]int),
	}

	elements := root.StructureDescendants()

	// everything that will not be renamed keeps its identifier
	renamed := make(map[folia.Element]bool)
	for _, e := range elements {
		if !e.IsFormatting() {
			renamed[e] = true
		}
		if e.IsSentence() {
			for _, layer := range e.EntityLayers() {
				renamed[layer] = true
				for _, ent := range layer.Entities() {
					renamed[ent] = true
				}
			}
		}
	}
	gen := NewGenerator()
	for _, e := range p.doc.Elements() {
		if !renamed[e] {
			gen.Reserve(e.ID())
		}
		if id := e.ID(); id != "" {
			plan.carriers[id]++
		}
	}
	plan.generator = gen

	for _, e := range elements {
		if e.MetadataRef() != "" {
			plan.ClearedMetadata = append(plan.ClearedMetadata, e)
		}

		if !e.IsFormatting() {
			if err := plan.assign(e); err != nil {
				return nil, err
			}
		}

		if e.IsSentence() {
			for _, layer := range e.EntityLayers() {
				plan.ClearedLayers = append(plan.ClearedLayers, layer)
				plan.planned[layer] = ""
				for _, ent := range layer.Entities() {
					if err := plan.assign(ent); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return plan, nil
}

// assign generates a new identifier for e under its nearest identified ancestor.
func (pl *Plan) assign(e folia.Element) error {
	ancestorID, ok := pl.nearestIdentifiedAncestor(e)
	if !ok {
		return errors.NewInvariantError(describe(e), "no ancestor carries an identifier")
	}

	id := pl.generator.Next(ancestorID, e.Kind())
	pl.planned[e] = id
	pl.Assignments = append(pl.Assignments, Assignment{
		Element: e,
		OldID:   e.ID(),
		NewID:   id,
	})
	pl.Rename(e.ID(), id)
	return nil
}

// nearestIdentifiedAncestor returns the planned or current identifier of the
// closest ancestor that has one.
func (pl *Plan) nearestIdentifiedAncestor(e folia.Element) (string, bool) {
	for a := e.Parent(); !a.IsZero(); a = a.Parent() {
		id, planned := pl.planned[a]
		if !planned {
			id = a.ID()
		}
		if id != "" {
			return id, true
		}
	}
	return "", false
}

func describe(e folia.Element) string {
	if id := e.ID(); id != "" {
		return fmt.Sprintf("%s %s", e.Kind(), id)
	}
	return e.Kind()
}
