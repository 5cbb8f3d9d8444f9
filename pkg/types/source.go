//nolint:revive // Package types provides common type definitions
package types

import "slices"

// SourceID identifies one of the external metadata tables.
type SourceID string

// String returns the string representation of a source ID.
func (id SourceID) String() string {
	return string(id)
}

// Metadata sources, in load order.
const (
	// TitlesID identifies the primary per-document table (NLTitle.csv).
	TitlesID SourceID = "titles"

	// CuratedID identifies the manually verified witness year table.
	CuratedID SourceID = "curated"

	// DependentTitlesID identifies the embedded title table (NLDependentTitle.csv).
	DependentTitlesID SourceID = "dependent-titles"
)

// SourceIDs returns all metadata source identifiers in load order.
func SourceIDs() []SourceID {
	return []SourceID{
		TitlesID,
		CuratedID,
		DependentTitlesID,
	}
}

// IsValid returns true if the SourceID is one of the defined constants.
func (id SourceID) IsValid() bool {
	return slices.Contains(SourceIDs(), id)
}
