// Package metadata loads the external metadata tables into read-only lookup
// tables for documents and embedded titles.
package metadata

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentstation/oztfix/pkg/authority"
	"github.com/agentstation/oztfix/pkg/constants"
	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/logging"
	"github.com/agentstation/oztfix/pkg/provenance"
	"github.com/agentstation/oztfix/pkg/types"
)

// Store holds the merged metadata tables. It is read-only after Load.
type Store struct {
	documents map[string]*Record
	titles    map[string]*Record
	expected  map[string]int
	stats     Stats
}

// Stats summarises what was loaded.
type Stats struct {
	Titles          int `yaml:"titles"`           // Rows in the primary table
	Curated         int `yaml:"curated"`          // Documents whose witness years the curated table changed
	DependentTitles int `yaml:"dependent_titles"` // Rows in the embedded title table
}

// Load reads the three metadata tables below datadir. Any missing table,
// malformed row or missing required column fails the whole load.
func Load(ctx context.Context, datadir string, opts ...Option) (*Store, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}

	s := &Store{
		documents: make(map[string]*Record),
		titles:    make(map[string]*Record),
		expected:  make(map[string]int),
	}

	logger := logging.FromContext(ctx)
	logger.Info().Str("datadir", datadir).Msg("Loading metadata files")

	if err := s.loadTitles(ctx, o, filepath.Join(datadir, constants.TitleTablePath)); err != nil {
		return nil, err
	}
	logger.Info().Int("count", s.stats.Titles).Msg("Found titles")

	if err := s.loadCurated(ctx, o, filepath.Join(datadir, constants.CuratedTablePath)); err != nil {
		return nil, err
	}
	logger.Info().Int("count", s.stats.Curated).Msg("Found curated titles")

	if err := s.loadDependentTitles(ctx, o, filepath.Join(datadir, constants.DependentTitleTablePath)); err != nil {
		return nil, err
	}
	logger.Info().Int("count", s.stats.DependentTitles).Msg("Found dependent titles")

	return s, nil
}

// loadTitles reads the primary table, keying each row by sourceRef plus the edition suffix.
func (s *Store) loadTitles(ctx context.Context, o *options, path string) error {
	spec := tableSpec{
		source:    types.TitlesID,
		path:      path,
		delimiter: ',',
		required:  []string{FieldSourceRef, FieldNederlabID},
	}
	logger := logging.FromContext(logging.WithSource(ctx, string(spec.source)))

	n, err := readTable(o.fs, spec, func(r row) error {
		id := r.Get(FieldSourceRef) + constants.EditionSuffix
		if _, dup := s.documents[id]; dup {
			logger.Debug().Str("id", id).Int("line", r.line).Msg("Duplicate title row, keeping the last one")
		}
		s.documents[id] = newRecord(id, spec.source, r)
		return nil
	})
	s.stats.Titles = n
	return err
}

// loadCurated applies the curated witness years to documents already loaded.
func (s *Store) loadCurated(ctx context.Context, o *options, path string) error {
	overrides := curatedFields(o.authorities)
	required := append([]string{FieldFileID}, overrides...)
	spec := tableSpec{
		source:    types.CuratedID,
		path:      path,
		delimiter: '\t',
		required:  required,
	}

	_, err := readTable(o.fs, spec, func(r row) error {
		rec, ok := s.documents[r.Get(FieldFileID)]
		if !ok {
			return nil
		}

		if r.Get(FieldWitnessYearMin) != rec.WitnessYearMin || r.Get(FieldWitnessYearMax) != rec.WitnessYearMax {
			rec.override(FieldCurated, "1", spec.source)
			o.tracker.Track(provenance.DocumentField(rec.ID, FieldCurated), provenance.Provenance{
				Source: spec.source,
				Value:  "1",
				Reason: "curated witness years differ",
			})
			s.stats.Curated++
		}

		for _, name := range overrides {
			previous := rec.Get(name)
			value := r.Get(name)
			rec.override(name, value, spec.source)
			o.tracker.Track(provenance.DocumentField(rec.ID, name), provenance.Provenance{
				Source:   spec.source,
				Value:    value,
				Previous: previous,
				Reason:   "curated override",
			})
		}
		return nil
	})
	return err
}

// loadDependentTitles reads the embedded title table and counts titles per parent document.
func (s *Store) loadDependentTitles(ctx context.Context, o *options, path string) error {
	spec := tableSpec{
		source:    types.DependentTitlesID,
		path:      path,
		delimiter: ',',
		required:  []string{FieldSourceRef, FieldNederlabID},
	}
	logger := logging.FromContext(logging.WithSource(ctx, string(spec.source)))

	n, err := readTable(o.fs, spec, func(r row) error {
		id := r.Get(FieldSourceRef)
		parent, ok := ParentID(id)
		if !ok {
			return &errors.SourceLoadError{
				Source: string(spec.source),
				Path:   spec.path,
				Line:   r.line,
				Err:    fmt.Errorf("identifier %q has no sequence suffix", id),
			}
		}
		if _, dup := s.titles[id]; dup {
			logger.Warn().Str("id", id).Int("line", r.line).Msg("Duplicate dependent title row, the expected count includes it twice")
		}
		s.titles[id] = newRecord(id, spec.source, r)
		s.expected[parent]++
		return nil
	})
	s.stats.DependentTitles = n
	return err
}

// LookupDocument returns the record for a document identifier.
func (s *Store) LookupDocument(id string) (*Record, bool) {
	rec, ok := s.documents[id]
	return rec, ok
}

// LookupEmbeddedTitle returns the record for an embedded title identifier.
func (s *Store) LookupEmbeddedTitle(id string) (*Record, bool) {
	rec, ok := s.titles[id]
	return rec, ok
}

// ExpectedCount returns how many embedded titles the document should contain.
func (s *Store) ExpectedCount(parentID string) int {
	return s.expected[parentID]
}

// Stats returns load statistics.
func (s *Store) Stats() Stats {
	return s.stats
}

// ParentID strips the "_NNNN" sequence suffix from an embedded title identifier.
func ParentID(id string) (string, bool) {
	if len(id) <= constants.SequenceSuffixLength {
		return "", false
	}
	return id[:len(id)-constants.SequenceSuffixLength], true
}

// EmbeddedTitleID forms the identifier of the seq-th (1-based) embedded title of a document.
func EmbeddedTitleID(documentID string, seq int) string {
	return fmt.Sprintf("%s_%0*d", documentID, constants.SequenceDigits, seq)
}

// curatedFields returns the fixed fields the curated table is authoritative for.
func curatedFields(auth authority.Authority) []string {
	var fields []string
	for _, f := range authority.FilterBySource(auth.List(types.ResourceTypeDocument), types.CuratedID) {
		if f.Excluded || f.Path == FieldCurated || strings.ContainsAny(f.Path, "*?[") {
			continue
		}
		fields = append(fields, f.Path)
	}
	return fields
}
