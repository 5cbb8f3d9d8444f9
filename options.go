package oztfix

import (
	"github.com/spf13/afero"

	"github.com/agentstation/oztfix/pkg/authority"
	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/reconciler"
)

// config holds the Fixer configuration.
type config struct {
	fs              afero.Fs
	datadir         string
	outputDir       string
	authorities     authority.Authority
	strategy        reconciler.StrategyType
	permissive      bool
	suffixFallback  bool
	continueOnError bool
	dryRun          bool
	reportPath      string
	provenancePath  string
	version         string
}

func defaultConfig() *config {
	return &config{
		fs:             afero.NewOsFs(),
		outputDir:      "./",
		authorities:    authority.New(),
		strategy:       reconciler.StrategyTypeTolerant,
		suffixFallback: true,
		version:        "dev",
	}
}

func newConfig(opts ...Option) (*config, error) {
	c := defaultConfig()
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Option is a function that configures a Fixer instance
type Option func(*config) error

// WithDataDir sets the directory holding the metadata tables
func WithDataDir(dir string) Option {
	return func(c *config) error {
		c.datadir = dir
		return nil
	}
}

// WithFS sets the filesystem tables, documents and reports live on
func WithFS(fs afero.Fs) Option {
	return func(c *config) error {
		if fs == nil {
			return &errors.ValidationError{Field: "fs", Message: "cannot be nil"}
		}
		c.fs = fs
		return nil
	}
}

// WithOutputDir sets the directory rewritten documents are saved to
func WithOutputDir(dir string) Option {
	return func(c *config) error {
		if dir == "" {
			return &errors.ValidationError{Field: "outputdir", Message: "cannot be empty"}
		}
		c.outputDir = dir
		return nil
	}
}

// WithExcludedFields replaces the fields that are never merged into
// documents and embedded titles
func WithExcludedFields(fields []string) Option {
	return func(c *config) error {
		c.authorities = authority.NewWithExclusions(fields, fields)
		return nil
	}
}

// WithStrict fails documents that contain any chapter or act without a
// record, instead of skipping them as false positives
func WithStrict(enabled bool) Option {
	return func(c *config) error {
		c.strategy = reconciler.StrategyTypeTolerant
		if enabled {
			c.strategy = reconciler.StrategyTypeStrict
		}
		return nil
	}
}

// WithIgnoreMissing passes documents without metadata through unchanged
func WithIgnoreMissing(enabled bool) Option {
	return func(c *config) error {
		c.permissive = enabled
		return nil
	}
}

// WithSuffixFallback controls the retry with the _01 edition suffix
func WithSuffixFallback(enabled bool) Option {
	return func(c *config) error {
		c.suffixFallback = enabled
		return nil
	}
}

// WithContinueOnError keeps processing after a document fails
func WithContinueOnError(enabled bool) Option {
	return func(c *config) error {
		c.continueOnError = enabled
		return nil
	}
}

// WithDryRun processes documents without writing them
func WithDryRun(enabled bool) Option {
	return func(c *config) error {
		c.dryRun = enabled
		return nil
	}
}

// WithReport writes a YAML run report to path
func WithReport(path string) Option {
	return func(c *config) error {
		c.reportPath = path
		return nil
	}
}

// WithProvenanceFile writes the field-level provenance of merged metadata to path
func WithProvenanceFile(path string) Option {
	return func(c *config) error {
		c.provenancePath = path
		return nil
	}
}

// WithVersion sets the version recorded in rewritten documents
func WithVersion(version string) Option {
	return func(c *config) error {
		c.version = version
		return nil
	}
}
