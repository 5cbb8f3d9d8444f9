package reconciler

import (
	"github.com/spf13/afero"

	"github.com/agentstation/oztfix/pkg/authority"
	"github.com/agentstation/oztfix/pkg/errors"
)

// options configures a reconciler.
type options struct {
	fs             afero.Fs
	outputDir      string
	strategy       Strategy
	authorities    authority.Authority
	permissive     bool
	suffixFallback bool
	dryRun         bool
	tracking       bool
	version        string
}

func defaultOptions() *options {
	return &options{
		fs:             afero.NewOsFs(),
		outputDir:      "./",
		strategy:       NewTolerantStrategy(),
		authorities:    authority.New(),
		suffixFallback: true,
		tracking:       true,
		version:        "dev",
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithFS sets the filesystem documents are read from and written to.
func WithFS(fs afero.Fs) Option {
	return func(r *options) error {
		if fs == nil {
			return &errors.ValidationError{
				Field:   "fs",
				Message: "cannot be nil",
			}
		}
		r.fs = fs
		return nil
	}
}

// WithOutputDir sets the directory rewritten documents are saved to.
func WithOutputDir(dir string) Option {
	return func(r *options) error {
		if dir == "" {
			return &errors.ValidationError{
				Field:   "outputdir",
				Message: "cannot be empty",
			}
		}
		r.outputDir = dir
		return nil
	}
}

// WithStrategy sets how false positive title candidates are judged.
func WithStrategy(strategy Strategy) Option {
	return func(r *options) error {
		if strategy == nil {
			return &errors.ValidationError{
				Field:   "strategy",
				Message: "cannot be nil",
			}
		}
		r.strategy = strategy
		return nil
	}
}

// WithAuthorities sets the field authorities that decide which fields are merged.
func WithAuthorities(authorities authority.Authority) Option {
	return func(r *options) error {
		if authorities == nil {
			return &errors.ValidationError{
				Field:   "authorities",
				Message: "cannot be nil",
			}
		}
		r.authorities = authorities
		return nil
	}
}

// WithPermissive passes documents without metadata through unchanged instead of failing.
func WithPermissive(enabled bool) Option {
	return func(r *options) error {
		r.permissive = enabled
		return nil
	}
}

// WithSuffixFallback controls whether a document identifier that lost its
// edition suffix is retried with the suffix appended.
func WithSuffixFallback(enabled bool) Option {
	return func(r *options) error {
		r.suffixFallback = enabled
		return nil
	}
}

// WithDryRun processes documents without writing any output.
func WithDryRun(enabled bool) Option {
	return func(r *options) error {
		r.dryRun = enabled
		return nil
	}
}

// WithProvenance enables field-level tracking of merged metadata.
func WithProvenance(enabled bool) Option {
	return func(r *options) error {
		r.tracking = enabled
		return nil
	}
}

// WithVersion sets the version recorded in the document provenance.
func WithVersion(version string) Option {
	return func(r *options) error {
		r.version = version
		return nil
	}
}
