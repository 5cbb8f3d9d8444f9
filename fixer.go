// Package oztfix repairs FoLiA documents whose embedded (dependent) titles
// lost their identifiers and metadata. A Fixer loads the metadata tables once
// and then rewrites documents one after another.
package oztfix

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/logging"
	"github.com/agentstation/oztfix/pkg/metadata"
	"github.com/agentstation/oztfix/pkg/provenance"
	"github.com/agentstation/oztfix/pkg/reconciler"
)

// Fixer rewrites documents against the loaded metadata tables.
type Fixer interface {
	// Store returns the loaded metadata
	Store() *metadata.Store

	// Run processes files sequentially in the given order
	Run(ctx context.Context, files []string) (*Report, error)

	// OnDocumentSaved registers a callback for documents written or passed through
	OnDocumentSaved(DocumentSavedHook)

	// OnTitleRejected registers a callback for false positive title candidates
	OnTitleRejected(TitleRejectedHook)

	// OnDocumentFailed registers a callback for documents that failed
	OnDocumentFailed(DocumentFailedHook)
}

// fixer is the default implementation of Fixer.
type fixer struct {
	*hooks
	config     *config
	store      *metadata.Store
	reconciler reconciler.Reconciler
}

// New loads the metadata tables and returns a Fixer. Failing to load any
// table is fatal.
func New(ctx context.Context, opts ...Option) (Fixer, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}
	if cfg.datadir == "" {
		return nil, &errors.ValidationError{
			Field:   "datadir",
			Message: "is required",
		}
	}

	store, err := metadata.Load(ctx, cfg.datadir,
		metadata.WithFS(cfg.fs),
		metadata.WithAuthorities(cfg.authorities),
	)
	if err != nil {
		return nil, err
	}

	strategy, err := reconciler.StrategyByType(cfg.strategy)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().Str("strategy", strategy.Type().String()).Msg(strategy.Description())

	rec, err := reconciler.New(store,
		reconciler.WithFS(cfg.fs),
		reconciler.WithOutputDir(cfg.outputDir),
		reconciler.WithStrategy(strategy),
		reconciler.WithAuthorities(cfg.authorities),
		reconciler.WithPermissive(cfg.permissive),
		reconciler.WithSuffixFallback(cfg.suffixFallback),
		reconciler.WithDryRun(cfg.dryRun),
		reconciler.WithProvenance(cfg.provenancePath != "" || cfg.reportPath != ""),
		reconciler.WithVersion(cfg.version),
	)
	if err != nil {
		return nil, err
	}

	return &fixer{
		hooks:      newHooks(),
		config:     cfg,
		store:      store,
		reconciler: rec,
	}, nil
}

// Store returns the loaded metadata.
func (f *fixer) Store() *metadata.Store {
	return f.store
}

// Run processes files in order. By default the first failing document stops
// the run; with continue-on-error every failure is recorded and the joined
// errors are returned once all files were tried.
func (f *fixer) Run(ctx context.Context, files []string) (*Report, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	report := newReport(runID, f.store.Stats(), f.config)
	var errs []error

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		seq := i + 1
		docCtx := logging.WithSequence(logging.WithFile(ctx, file), seq)
		logging.FromContext(docCtx).Info().Msgf("#%d - Loading %s", seq, file)

		result, err := f.reconciler.File(docCtx, file)
		logging.FromContext(docCtx).Debug().Msg(result.Summary())
		report.add(result)
		f.trigger(result)

		if err == nil {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", file, err))
		if !f.config.continueOnError {
			break
		}
		logger.Error().Err(err).Str("file", file).Msg("Document failed, continuing with the next one")
	}

	report.finish()
	logger.Info().
		Int("processed", report.Summary.Processed).
		Int("saved", report.Summary.Saved).
		Int("passed_through", report.Summary.PassedThrough).
		Int("failed", report.Summary.Failed).
		Msg("Run finished")

	if err := f.write(report); err != nil {
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

// write saves the report and provenance files when configured.
func (f *fixer) write(report *Report) error {
	if f.config.reportPath != "" {
		if err := report.Save(f.config.fs, f.config.reportPath); err != nil {
			return err
		}
	}
	if f.config.provenancePath != "" {
		if err := provenance.Save(f.config.fs, f.config.provenancePath, report.provenance); err != nil {
			return errors.WrapIO("write", f.config.provenancePath, err)
		}
	}
	return nil
}
