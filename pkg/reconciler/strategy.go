package reconciler

import (
	"github.com/agentstation/oztfix/pkg/errors"
)

// StrategyType represents how title candidates without a record are treated.
type StrategyType string

// String returns the string representation of a strategy type.
func (s StrategyType) String() string {
	return string(s)
}

const (
	// StrategyTypeTolerant skips false positives and compares only confirmed titles.
	StrategyTypeTolerant StrategyType = "tolerant"
	// StrategyTypeStrict rejects any chapter or act division without a record.
	StrategyTypeStrict StrategyType = "strict"
)

// TitleCounts are the outcome of scanning a document for embedded titles.
type TitleCounts struct {
	Expected  int `yaml:"expected"`
	Confirmed int `yaml:"confirmed"`
	Unmatched int `yaml:"unmatched"`
}

// Examined is the number of candidate divisions looked at.
func (c TitleCounts) Examined() int {
	return c.Confirmed + c.Unmatched
}

// Strategy decides whether a document's embedded title scan is acceptable.
type Strategy interface {
	// Type returns the strategy type
	Type() StrategyType

	// Description returns a human-readable description
	Description() string

	// Validate checks the title counts of one document
	Validate(documentID string, counts TitleCounts) error
}

// baseStrategy provides common strategy functionality.
type baseStrategy struct {
	typ         StrategyType
	description string
}

// Type returns the strategy type.
func (s *baseStrategy) Type() StrategyType {
	return s.typ
}

// Description returns a human-readable description.
func (s *baseStrategy) Description() string {
	return s.description
}

// TolerantStrategy accepts false positives: only genuinely confirmed titles
// are compared with the expected count.
type TolerantStrategy struct {
	baseStrategy
}

// NewTolerantStrategy creates the default strategy.
func NewTolerantStrategy() Strategy {
	return &TolerantStrategy{
		baseStrategy: baseStrategy{
			typ:         StrategyTypeTolerant,
			description: "Skips chapter and act divisions without a record and requires confirmed == expected",
		},
	}
}

// Validate requires the confirmed count to equal the expected count.
func (s *TolerantStrategy) Validate(documentID string, counts TitleCounts) error {
	if counts.Confirmed != counts.Expected {
		return errors.NewEmbeddedTitleMismatchError(documentID, counts.Confirmed, counts.Expected, counts.Unmatched)
	}
	return nil
}

// StrictStrategy treats every chapter or act division as an embedded title.
type StrictStrategy struct {
	baseStrategy
}

// NewStrictStrategy creates a strategy that allows no false positives.
func NewStrictStrategy() Strategy {
	return &StrictStrategy{
		baseStrategy: baseStrategy{
			typ:         StrategyTypeStrict,
			description: "Requires every chapter and act division to have a record",
		},
	}
}

// Validate requires every examined candidate to be confirmed and to match the expected count.
func (s *StrictStrategy) Validate(documentID string, counts TitleCounts) error {
	if counts.Unmatched > 0 || counts.Confirmed != counts.Expected {
		return errors.NewEmbeddedTitleMismatchError(documentID, counts.Confirmed, counts.Expected, counts.Unmatched)
	}
	return nil
}

// StrategyByType returns the strategy of the given type.
func StrategyByType(typ StrategyType) (Strategy, error) {
	switch typ {
	case StrategyTypeTolerant, "":
		return NewTolerantStrategy(), nil
	case StrategyTypeStrict:
		return NewStrictStrategy(), nil
	default:
		return nil, &errors.ValidationError{
			Field:   "strategy",
			Value:   string(typ),
			Message: "unknown strategy",
		}
	}
}
