// Package authority decides which metadata source is authoritative for each
// field and which fields are never merged into a document.
package authority

import (
	"path/filepath"

	"github.com/agentstation/oztfix/pkg/types"
)

// Authority determines which source is authoritative for each field
type Authority interface {
	// Find returns the authority configuration for a specific field
	Find(field string, resourceType types.ResourceType) *Field

	// List returns all authorities for a resource type
	List(resourceType types.ResourceType) []Field

	// Mergeable reports whether a field may be copied into a document's metadata
	Mergeable(field string, resourceType types.ResourceType) bool
}

// Field defines source priority for a specific field
type Field struct {
	Path     string         `json:"path" yaml:"path"`                             // e.g., "witnessYearMin", "witnessYear*"
	Source   types.SourceID `json:"source" yaml:"source"`                         // Which source is authoritative
	Priority int            `json:"priority" yaml:"priority"`                     // Priority (higher = more authoritative)
	Excluded bool           `json:"excluded,omitempty" yaml:"excluded,omitempty"` // Never merged into documents
}

// ExcludedFields are derived or bookkeeping columns that must not override
// what a document already carries.
var ExcludedFields = []string{"title", "ingestTime", "updateTime", "processingMethod"}

// CuratedFields are the columns the curated table overrides.
var CuratedFields = []string{"witnessYearMin", "witnessYearMax", "witnessYearApprox"}

// authorities provides standard field authorities
type authorities struct {
	documentAuthorities      []Field
	embeddedTitleAuthorities []Field
}

// New creates a new Authority with the standard configuration
func New() Authority {
	return &authorities{
		documentAuthorities:      defaultDocumentAuthorities(),
		embeddedTitleAuthorities: defaultEmbeddedTitleAuthorities(),
	}
}

// NewWithExclusions creates an Authority whose excluded fields are
// replaced by the given lists. A nil list keeps the default for that resource type.
func NewWithExclusions(document, embeddedTitle []string) Authority {
	a := &authorities{
		documentAuthorities:      defaultDocumentAuthorities(),
		embeddedTitleAuthorities: defaultEmbeddedTitleAuthorities(),
	}
	if document != nil {
		a.documentAuthorities = withExclusions(a.documentAuthorities, types.TitlesID, document)
	}
	if embeddedTitle != nil {
		a.embeddedTitleAuthorities = withExclusions(a.embeddedTitleAuthorities, types.DependentTitlesID, embeddedTitle)
	}
	return a
}

// Find returns the authority configuration for a specific field
func (da *authorities) Find(field string, resourceType types.ResourceType) *Field {
	return ByField(field, da.List(resourceType))
}

// List returns all authorities for a resource type
func (da *authorities) List(resourceType types.ResourceType) []Field {
	switch resourceType {
	case types.ResourceTypeDocument:
		return da.documentAuthorities
	case types.ResourceTypeEmbeddedTitle:
		return da.embeddedTitleAuthorities
	default:
		return nil
	}
}

// Mergeable reports whether a field may be copied into a document's metadata
func (da *authorities) Mergeable(field string, resourceType types.ResourceType) bool {
	f := da.Find(field, resourceType)
	return f != nil && !f.Excluded
}

// ByField returns the highest priority authority for a given field path
func ByField(field string, authorities []Field) *Field {
	var bestMatch *Field
	var bestPriority int
	var bestMatchLength int

	for i, auth := range authorities {
		if MatchesPattern(field, auth.Path) {
			// Prioritize by: 1) priority, 2) pattern specificity (length), 3) order
			patternLength := len(auth.Path)
			if bestMatch == nil || auth.Priority > bestPriority ||
				(auth.Priority == bestPriority && patternLength > bestMatchLength) {
				bestMatch = &authorities[i]
				bestPriority = auth.Priority
				bestMatchLength = patternLength
			}
		}
	}

	return bestMatch
}

// MatchesPattern checks if a field path matches a pattern (supports * wildcards)
func MatchesPattern(field, pattern string) bool {
	if field == pattern {
		return true
	}

	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(field) >= len(prefix) && field[:len(prefix)] == prefix
	}

	matched, err := filepath.Match(pattern, field)
	if err != nil {
		return false
	}
	return matched
}

// FilterBySource returns only the authorities for a specific source
func FilterBySource(authorities []Field, source types.SourceID) []Field {
	var filtered []Field
	for _, auth := range authorities {
		if auth.Source == source {
			filtered = append(filtered, auth)
		}
	}
	return filtered
}

// defaultDocumentAuthorities returns the default field authorities for documents
func defaultDocumentAuthorities() []Field {
	fields := []Field{
		// Everything else comes from the bulk title export
		{Path: "*", Source: types.TitlesID, Priority: 10},

		// Curated witness years always win over the bulk export
		{Path: "witnessYearMin", Source: types.CuratedID, Priority: 110},
		{Path: "witnessYearMax", Source: types.CuratedID, Priority: 110},
		{Path: "witnessYearApprox", Source: types.CuratedID, Priority: 110},
		{Path: "curated", Source: types.CuratedID, Priority: 110},
	}
	return withExclusions(fields, types.TitlesID, ExcludedFields)
}

// defaultEmbeddedTitleAuthorities returns the default field authorities for embedded titles
func defaultEmbeddedTitleAuthorities() []Field {
	fields := []Field{
		{Path: "*", Source: types.DependentTitlesID, Priority: 10},
	}
	return withExclusions(fields, types.DependentTitlesID, ExcludedFields)
}

// withExclusions drops existing exclusions and adds one top-priority excluded entry per name.
func withExclusions(fields []Field, source types.SourceID, excluded []string) []Field {
	out := make([]Field, 0, len(fields)+len(excluded))
	for _, f := range fields {
		if !f.Excluded {
			out = append(out, f)
		}
	}
	for _, name := range excluded {
		out = append(out, Field{Path: name, Source: source, Priority: 1000, Excluded: true})
	}
	return out
}
