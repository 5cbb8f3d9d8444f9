package metadata

import (
	"github.com/spf13/afero"

	"github.com/agentstation/oztfix/pkg/authority"
	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/provenance"
)

// options configures how a Store is loaded.
type options struct {
	fs          afero.Fs
	authorities authority.Authority
	tracker     provenance.Tracker
}

func defaultOptions() *options {
	return &options{
		fs:          afero.NewOsFs(),
		authorities: authority.New(),
		tracker:     provenance.NewTracker(false),
	}
}

// Option is a function that configures Store loading.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithFS sets the filesystem the tables are read from.
func WithFS(fs afero.Fs) Option {
	return func(o *options) error {
		if fs == nil {
			return &errors.ValidationError{Field: "fs", Message: "cannot be nil"}
		}
		o.fs = fs
		return nil
	}
}

// WithAuthorities sets the field authorities deciding which fields the curated table overrides.
func WithAuthorities(authorities authority.Authority) Option {
	return func(o *options) error {
		if authorities == nil {
			return &errors.ValidationError{Field: "authorities", Message: "cannot be nil"}
		}
		o.authorities = authorities
		return nil
	}
}

// WithTracker records curated overrides in the given provenance tracker.
func WithTracker(tracker provenance.Tracker) Option {
	return func(o *options) error {
		if tracker == nil {
			return &errors.ValidationError{Field: "tracker", Message: "cannot be nil"}
		}
		o.tracker = tracker
		return nil
	}
}
