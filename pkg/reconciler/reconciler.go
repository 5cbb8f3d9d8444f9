// Package reconciler fixes one document at a time: it matches the document
// against the metadata store, merges document metadata, relabels the
// embedded titles it contains, validates the result and writes it out.
package reconciler

import (
	"context"
	"os"
	"path/filepath"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/oztfix/pkg/authority"
	"github.com/agentstation/oztfix/pkg/constants"
	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/folia"
	"github.com/agentstation/oztfix/pkg/identifier"
	"github.com/agentstation/oztfix/pkg/logging"
	"github.com/agentstation/oztfix/pkg/metadata"
	"github.com/agentstation/oztfix/pkg/provenance"
	"github.com/agentstation/oztfix/pkg/types"
)

// Store is the read-only metadata the reconciler matches documents against.
type Store interface {
	LookupDocument(id string) (*metadata.Record, bool)
	LookupEmbeddedTitle(id string) (*metadata.Record, bool)
	ExpectedCount(parentID string) int
}

// Reconciler is the main interface for fixing documents.
type Reconciler interface {
	// File loads and processes the document at path
	File(ctx context.Context, path string) (*Result, error)

	// Document processes an already loaded document
	Document(ctx context.Context, doc *folia.Document) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	store          Store
	fs             afero.Fs
	outputDir      string
	strategy       Strategy
	authorities    authority.Authority
	permissive     bool
	suffixFallback bool
	dryRun         bool
	tracking       bool
	version        string
	host           string
}

// New creates a new Reconciler with options.
func New(store Store, opts ...Option) (Reconciler, error) {
	if store == nil {
		return nil, &errors.ValidationError{
			Field:   "store",
			Message: "cannot be nil",
		}
	}

	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	host, _ := os.Hostname()
	return &reconciler{
		store:          store,
		fs:             options.fs,
		outputDir:      options.outputDir,
		strategy:       options.strategy,
		authorities:    options.authorities,
		permissive:     options.permissive,
		suffixFallback: options.suffixFallback,
		dryRun:         options.dryRun,
		tracking:       options.tracking,
		version:        options.version,
		host:           host,
	}, nil
}

// documentContext holds the state of one document's processing.
type documentContext struct {
	doc     *folia.Document
	record  *metadata.Record
	result  *Result
	merger  Merger
	tracker provenance.Tracker
	logger  *zerolog.Logger
	titles  map[folia.Element]bool
}

// File loads and processes the document at path.
func (r *reconciler) File(ctx context.Context, path string) (*Result, error) {
	doc, err := folia.Load(r.fs, path)
	if err != nil {
		result := NewResult(path)
		_ = result.fail(err)
		result.Finalize()
		return result, err
	}
	return r.Document(ctx, doc)
}

// Document processes one document through the state machine.
func (r *reconciler) Document(ctx context.Context, doc *folia.Document) (*Result, error) {
	result := NewResult(doc.Path())
	result.Metadata.DryRun = r.dryRun
	result.Metadata.Strategy = r.strategy.Type()
	defer result.Finalize()

	if err := ctx.Err(); err != nil {
		return result, result.fail(err)
	}

	tracker := provenance.NewTracker(r.tracking)
	dctx := &documentContext{
		doc:     doc,
		result:  result,
		merger:  newMerger(r.authorities, tracker),
		tracker: tracker,
		logger:  logging.FromContext(ctx),
		titles:  make(map[folia.Element]bool),
	}

	// Step 1: Resolve the document against the metadata store
	passThrough, err := r.resolve(dctx)
	if err != nil {
		return result, err
	}
	if passThrough {
		return result, r.passThrough(dctx)
	}
	dctx.logger = logging.FromContext(logging.WithDocument(ctx, doc.ID()))

	// Step 2: Merge document metadata
	r.merge(dctx)

	// Step 3: Relabel embedded titles and clear stale division metadata
	if err := r.scanTitles(dctx); err != nil {
		return result, result.fail(err)
	}

	// Step 4: Validate title counts and identifiers
	if err := r.validate(dctx); err != nil {
		return result, result.fail(err)
	}

	// Step 5: Drop empty metadata blocks
	r.cleanup(dctx)

	// Step 6: Write the document
	if err := r.save(dctx); err != nil {
		return result, result.fail(err)
	}

	result.Provenance = tracker.Map()
	return result, nil
}

// resolve finds the document's record, falling back to the suffixed identifier.
// It reports whether the document should pass through unchanged.
func (r *reconciler) resolve(dctx *documentContext) (bool, error) {
	result := dctx.result
	result.transition(StateResolving)

	id := dctx.doc.ID()
	result.OriginalID = id
	tried := []string{id}

	rec, ok := r.store.LookupDocument(id)
	if !ok && r.suffixFallback {
		suffixed := id + constants.EditionSuffix
		tried = append(tried, suffixed)
		if rec, ok = r.store.LookupDocument(suffixed); ok {
			dctx.logger.Warn().
				Str("doc_id", id).
				Str("matched_id", suffixed).
				Msg("Document ID did not have the _01 suffix and did not match with metadata, added it so it matches again")
			dctx.doc.SetID(suffixed)
			result.Fallback = true
			result.Warnings = append(result.Warnings, "document identifier "+id+" renamed to "+suffixed)
		}
	}

	if !ok {
		err := errors.NewDocumentNotFoundError(id, tried...)
		if r.permissive {
			dctx.logger.Warn().
				Str("doc_id", id).
				Msg("Document not found in metadata, passing the document through as-is")
			result.Warnings = append(result.Warnings, err.Error())
			return true, nil
		}
		return false, result.fail(err)
	}

	dctx.record = rec
	result.DocumentID = dctx.doc.ID()
	return false, nil
}

// passThrough writes the document bytes as they were read.
func (r *reconciler) passThrough(dctx *documentContext) error {
	result := dctx.result
	result.transition(StatePassThrough)
	result.OutputPath = r.outputPath(dctx.doc)

	if r.dryRun {
		return nil
	}
	if err := folia.WriteFile(r.fs, result.OutputPath, dctx.doc.Raw()); err != nil {
		result.Err = err
		return err
	}
	return nil
}

// merge records this tool in the provenance chain and copies the document
// record into the document's own metadata.
func (r *reconciler) merge(dctx *documentContext) {
	dctx.result.transition(StateMerging)

	dctx.doc.AddProcessor(folia.Processor{
		ID:      constants.ProcessorName + "." + uuid.NewString(),
		Name:    constants.ProcessorName,
		Type:    constants.ProcessorType,
		Version: r.version,
		Host:    r.host,
		Begin:   utc.Now(),
	})

	n := dctx.merger.Merge(dctx.doc.Metadata(), dctx.record, types.ResourceTypeDocument, dctx.doc.ID())
	dctx.result.MergedFields += n
	dctx.logger.Debug().Int("fields", n).Msg("Merged document metadata")
}

// scanTitles classifies each top-level chapter or act division as a
// confirmed embedded title or a false positive, then clears metadata from
// every other division.
func (r *reconciler) scanTitles(dctx *documentContext) error {
	result := dctx.result
	result.transition(StateTitleScan)

	docID := dctx.doc.ID()
	result.Counts.Expected = r.store.ExpectedCount(docID)

	if result.Counts.Expected == 0 {
		dctx.logger.Info().Msg("Document has no independent titles, skipping")
	} else {
		seq := 0
		for _, div := range dctx.doc.Divisions() {
			if !isTitleCandidate(div) {
				continue
			}
			seq++
			if err := r.title(dctx, div, seq); err != nil {
				return err
			}
		}
	}

	for _, div := range dctx.doc.AllDivisions() {
		if dctx.titles[div] || div.MetadataRef() == "" {
			continue
		}
		dctx.logger.Debug().
			Str("division", div.ID()).
			Str("metadata", div.MetadataRef()).
			Msg("Clearing stale division metadata")
		div.ClearMetadataRef()
		result.ClearedDivisions++
	}

	return nil
}

// title handles the seq-th candidate division.
func (r *reconciler) title(dctx *documentContext, div folia.Element, seq int) error {
	result := dctx.result
	id := metadata.EmbeddedTitleID(dctx.doc.ID(), seq)

	rec, ok := r.store.LookupEmbeddedTitle(id)
	if !ok {
		result.Counts.Unmatched++
		result.Titles = append(result.Titles, Title{Sequence: seq, ID: id, DivisionID: div.ID()})
		dctx.logger.Warn().
			Str("title_id", id).
			Msgf("No metadata was found for %s, we expected an independent title but this is not one, skipping", id)
		return nil
	}

	dctx.logger.Info().Str("title_id", id).Msgf("Found %s, reassigning identifiers", id)

	oldID := div.ID()
	newID := id + constants.TextSuffix
	blockID := id + constants.MetadataSuffix

	div.SetID(newID)
	div.SetMetadataRef(blockID)
	block := dctx.doc.CreateSubmetadata(blockID, constants.NativeMetadataType)
	result.MergedFields += dctx.merger.Merge(block, rec, types.ResourceTypeEmbeddedTitle, id)

	plan, err := identifier.NewPlanner(dctx.doc).Plan(div)
	if err != nil {
		return err
	}
	plan.RenameRoot(oldID)
	stats := plan.Apply(dctx.doc)
	for _, dup := range plan.Ambiguous() {
		dctx.logger.Warn().Str("title_id", id).Str("id", dup).
			Msg("Identifier is not unique, only references inside the title were updated")
		result.Warnings = append(result.Warnings, "identifier "+dup+" is not unique, only references inside "+id+" were updated")
	}

	dctx.titles[div] = true
	result.Counts.Confirmed++
	result.Identifiers.Assigned += stats.Assigned
	result.Identifiers.ClearedMetadata += stats.ClearedMetadata
	result.Identifiers.ClearedLayers += stats.ClearedLayers
	result.Identifiers.RewrittenRefs += stats.RewrittenRefs
	result.Titles = append(result.Titles, Title{
		Sequence:    seq,
		ID:          id,
		DivisionID:  newID,
		Confirmed:   true,
		Identifiers: stats,
	})
	return nil
}

// validate checks the title counts against the strategy and the identifier invariants.
func (r *reconciler) validate(dctx *documentContext) error {
	result := dctx.result
	result.transition(StateValidating)

	if result.Counts.Expected > 0 {
		if err := r.strategy.Validate(dctx.doc.ID(), result.Counts); err != nil {
			return err
		}
	}

	var titleIDs []string
	for _, t := range result.Titles {
		if t.Confirmed {
			titleIDs = append(titleIDs, t.DivisionID)
		}
	}
	check := ValidateDocument(dctx.doc, titleIDs)
	dctx.logger.Debug().Int("titles", len(titleIDs)).Msg(check.String())
	for _, w := range check.Warnings {
		dctx.logger.Warn().Str("element", w.ElementID).Msg(w.Message)
		result.Warnings = append(result.Warnings, w.ElementID+": "+w.Message)
	}
	if !check.IsValid() {
		first := check.Errors[0]
		return errors.NewInvariantError(first.ElementID, first.Message)
	}
	return nil
}

// cleanup deletes metadata blocks that hold nothing, and any reference to them.
func (r *reconciler) cleanup(dctx *documentContext) {
	result := dctx.result
	result.transition(StateCleanup)

	empty := make(map[string]bool)
	for _, id := range dctx.doc.SubmetadataIDs() {
		block, ok := dctx.doc.Submetadata(id)
		if !ok || !block.IsEmpty() {
			continue
		}
		if t := block.Type(); t != "" && t != constants.NativeMetadataType {
			continue
		}
		dctx.doc.DeleteSubmetadata(id)
		empty[id] = true
		result.DeletedSubmetadata = append(result.DeletedSubmetadata, id)
	}

	if len(empty) == 0 {
		return
	}
	for _, e := range dctx.doc.Elements() {
		if empty[e.MetadataRef()] {
			e.ClearMetadataRef()
		}
	}
	dctx.logger.Debug().Strs("blocks", result.DeletedSubmetadata).Msg("Deleted empty metadata blocks")
}

// save writes the document to the output directory.
func (r *reconciler) save(dctx *documentContext) error {
	result := dctx.result
	result.OutputPath = r.outputPath(dctx.doc)

	if r.dryRun {
		dctx.logger.Info().Str("output", result.OutputPath).Msg("Dry run, not saving document")
	} else {
		dctx.logger.Info().Str("output", result.OutputPath).Msg("Saving document")
		if err := dctx.doc.Save(r.fs, result.OutputPath); err != nil {
			return err
		}
	}

	result.transition(StateSaved)
	return nil
}

// outputPath is the document's base name under the output directory.
func (r *reconciler) outputPath(doc *folia.Document) string {
	name := doc.Path()
	if name == "" {
		name = doc.ID() + constants.XMLExtension
	}
	return filepath.Join(r.outputDir, folia.OutputName(name))
}

// isTitleCandidate reports whether a division looks like an embedded title.
func isTitleCandidate(div folia.Element) bool {
	switch div.Class() {
	case "chapter", "act":
		return true
	default:
		return false
	}
}
