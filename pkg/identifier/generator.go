// Package identifier regenerates hierarchical element identifiers inside an
// embedded title subtree.
//
// Identifiers have the form <ancestorId>.<kind>.<n>, where n counts up per
// (ancestor identifier, element kind) pair. Planning and applying are separate
// steps: a Planner computes every change into a Plan without touching the
// document, and Plan.Apply performs them.
package identifier

import "fmt"

// counterKey scopes a sequence counter.
type counterKey struct {
	ancestor string
	kind     string
}

// Generator hands out identifiers from per-(ancestor, kind) counters. An
// identifier that is reserved is skipped, so generated identifiers never
// collide with ones that stay in the document.
type Generator struct {
	counters map[counterKey]int
	reserved map[string]bool
}

// NewGenerator creates a generator that avoids the given identifiers.
func NewGenerator(reserved ...string) *Generator {
	g := &Generator{
		counters: make(map[counterKey]int),
		reserved: make(map[string]bool, len(reserved)),
	}
	for _, id := range reserved {
		g.Reserve(id)
	}
	return g
}

// Reserve marks an identifier as taken.
func (g *Generator) Reserve(id string) {
	if id != "" {
		g.reserved[id] = true
	}
}

// Reserved reports whether an identifier is taken.
func (g *Generator) Reserved(id string) bool {
	return g.reserved[id]
}

// Next returns the next free identifier for kind under ancestorID.
func (g *Generator) Next(ancestorID, kind string) string {
	k := counterKey{ancestor: ancestorID, kind: kind}
	for {
		g.counters[k]++
		id := fmt.Sprintf("%s.%s.%d", ancestorID, kind, g.counters[k])
		if !g.reserved[id] {
			g.reserved[id] = true
			return id
		}
	}
}
