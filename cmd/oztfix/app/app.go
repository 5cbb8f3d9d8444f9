// Package app provides the application context and dependency management
// for the oztfix CLI: configuration, logging and construction of the Fixer.
package app

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/oztfix"
	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/logging"
	"github.com/agentstation/oztfix/pkg/metadata"
)

// App represents the oztfix application with all its dependencies.
type App struct {
	version, commit, date, builtBy string

	config *Config
	logger *zerolog.Logger

	// tables, documents and reports are all read and written through fs
	fs afero.Fs
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		fs:      afero.NewOsFs(),
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.NewConfigError("app", "loading configuration", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Context attaches the application logger to ctx.
func (a *App) Context(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, a.logger)
}

// Fixer loads the metadata tables and returns a Fixer configured from the
// application configuration.
func (a *App) Fixer(ctx context.Context) (oztfix.Fixer, error) {
	return oztfix.New(a.Context(ctx), a.fixerOptions()...)
}

// Store loads only the metadata tables.
func (a *App) Store(ctx context.Context) (*metadata.Store, error) {
	if a.config.DataDir == "" {
		return nil, &errors.ValidationError{Field: "datadir", Message: "is required"}
	}
	return metadata.Load(a.Context(ctx), a.config.DataDir, metadata.WithFS(a.fs))
}

// fixerOptions constructs Fixer options from the app configuration.
func (a *App) fixerOptions() []oztfix.Option {
	opts := []oztfix.Option{
		oztfix.WithFS(a.fs),
		oztfix.WithDataDir(a.config.DataDir),
		oztfix.WithIgnoreMissing(a.config.Ignore),
		oztfix.WithContinueOnError(a.config.ContinueOnError),
		oztfix.WithDryRun(a.config.DryRun),
		oztfix.WithStrict(a.config.Strict),
		oztfix.WithSuffixFallback(a.config.SuffixFallback),
		oztfix.WithVersion(a.version),
	}

	if a.config.OutputDir != "" {
		opts = append(opts, oztfix.WithOutputDir(a.config.OutputDir))
	}
	if a.config.Report != "" {
		opts = append(opts, oztfix.WithReport(a.config.Report))
	}
	if a.config.Provenance != "" {
		opts = append(opts, oztfix.WithProvenanceFile(a.config.Provenance))
	}
	if len(a.config.ExcludedFields) > 0 {
		opts = append(opts, oztfix.WithExcludedFields(a.config.ExcludedFields))
	}

	return opts
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithFS sets the filesystem (useful for testing).
func WithFS(fs afero.Fs) Option {
	return func(a *App) error {
		a.fs = fs
		return nil
	}
}
