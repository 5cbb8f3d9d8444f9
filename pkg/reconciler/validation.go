package reconciler

import (
	"fmt"

	"github.com/agentstation/oztfix/pkg/folia"
)

// ValidationResult represents the result of checking a processed document.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError represents a validation error.
type ValidationError struct {
	ElementID string
	Message   string
}

// ValidationWarning represents a validation warning.
type ValidationWarning struct {
	ElementID string
	Message   string
}

// IsValid returns true if validation passed.
func (v *ValidationResult) IsValid() bool {
	return v.Valid && len(v.Errors) == 0
}

// HasWarnings returns true if there are warnings.
func (v *ValidationResult) HasWarnings() bool {
	return len(v.Warnings) > 0
}

// String returns a string representation of the validation result.
func (v *ValidationResult) String() string {
	if v.IsValid() {
		if v.HasWarnings() {
			return fmt.Sprintf("Validation passed with %d warnings", len(v.Warnings))
		}
		return "Validation passed"
	}
	return fmt.Sprintf("Validation failed with %d errors", len(v.Errors))
}

// ValidateDocument checks the identifier and metadata invariants of a
// processed document: identifiers below each embedded title are unique and
// every metadata reference resolves to a block. Duplicates elsewhere in the
// document were there before processing and are reported as warnings.
func ValidateDocument(doc *folia.Document, titleIDs []string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	inTitle := make(map[folia.Element]bool)
	for _, id := range titleIDs {
		root, ok := doc.ElementByID(id)
		if !ok {
			result.Errors = append(result.Errors, ValidationError{
				ElementID: id,
				Message:   "embedded title division not found",
			})
			continue
		}
		inTitle[root] = true
		for _, e := range root.Descendants() {
			inTitle[e] = true
		}
	}

	seen := make(map[string]folia.Element)
	for _, e := range doc.Elements() {
		id := e.ID()
		if id == "" {
			continue
		}
		first, dup := seen[id]
		if !dup {
			seen[id] = e
			continue
		}
		if inTitle[e] || inTitle[first] {
			result.Errors = append(result.Errors, ValidationError{
				ElementID: id,
				Message:   "duplicate identifier inside an embedded title",
			})
		} else {
			result.Warnings = append(result.Warnings, ValidationWarning{
				ElementID: id,
				Message:   "duplicate identifier",
			})
		}
	}

	blocks := make(map[string]bool)
	for _, id := range doc.SubmetadataIDs() {
		blocks[id] = true
	}
	for _, e := range doc.Elements() {
		if ref := e.MetadataRef(); ref != "" && !blocks[ref] {
			result.Warnings = append(result.Warnings, ValidationWarning{
				ElementID: e.ID(),
				Message:   fmt.Sprintf("metadata reference %q does not resolve", ref),
			})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
