package reconciler

import (
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/agentstation/listingmap/pkg/differ"
	"github.com/agentstation/listingmap/pkg/errors"
)

type options struct {
	logger    *zerolog.Logger
	labeler   Labeler
	diffOpts  []differ.Option
	onSkipped func(err error)
}

func defaultOptions() *options {
	return &options{
		labeler: NewLabeler(language.English),
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = l
		return nil
	}
}

// WithLocale selects marker text for the closest supported locale.
func WithLocale(tag language.Tag) Option {
	return func(o *options) error {
		o.labeler = NewLabeler(tag)
		return nil
	}
}

// WithLabeler replaces the marker text renderer.
func WithLabeler(l Labeler) Option {
	return func(o *options) error {
		if l == nil {
			return &errors.ValidationError{Field: "labeler", Message: "cannot be nil"}
		}
		o.labeler = l
		return nil
	}
}

// WithDifferOptions tunes change detection, for example a movement
// threshold below which a position change is not redrawn.
func WithDifferOptions(opts ...differ.Option) Option {
	return func(o *options) error {
		o.diffOpts = append(o.diffOpts, opts...)
		return nil
	}
}

// WithSkippedHandler is called once for every malformed record.
func WithSkippedHandler(fn func(err error)) Option {
	return func(o *options) error {
		o.onSkipped = fn
		return nil
	}
}
