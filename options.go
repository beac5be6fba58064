package xmlvalidator

import (
	"time"

	"github.com/agentflare-ai/go-xmlvalidator/xmlreader"
	"github.com/agentflare-ai/go-xmlvalidator/xsd"
	"github.com/rs/zerolog"
)

// Opener opens a document for validation. It is the validator capability
// an Engine depends on.
type Opener func(path string, opts ...xmlreader.Option) (*xmlreader.Reader, error)

// Recorder observes finished validation runs.
type Recorder interface {
	ObserveRun(valid bool, errors, nodes int, elapsed time.Duration)
}

// Option is a functional option for configuring an Engine.
type Option func(*Options)

// Options contains configuration for an Engine.
type Options struct {
	// Scanning behavior

	// FullScan reads the whole document and collects every diagnostic.
	// When false a run stops at the first node: it fails with the
	// diagnostics queued so far if that node is invalid and succeeds
	// otherwise.
	FullScan bool

	// ReadAhead is the number of bytes the reader validates past the
	// current node.
	ReadAhead int

	// MaxErrors caps the records kept per run. Zero keeps them all.
	MaxErrors int

	// Collaborators

	Logger  zerolog.Logger
	Metrics Recorder
	Cache   *xsd.SchemaCache
	Opener  Opener
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		ReadAhead: xmlreader.DefaultReadAhead,
		Logger:    zerolog.Nop(),
		Opener:    xmlreader.Open,
	}
}

// WithFullScan enables or disables reading the whole document.
func WithFullScan(enable bool) Option {
	return func(o *Options) {
		o.FullScan = enable
	}
}

// WithReadAhead sets the reader's read-ahead window in bytes.
func WithReadAhead(n int) Option {
	return func(o *Options) {
		o.ReadAhead = n
	}
}

// WithMaxErrors caps the number of records kept per run.
func WithMaxErrors(n int) Option {
	return func(o *Options) {
		if n < 0 {
			n = 0
		}
		o.MaxErrors = n
	}
}

// WithLogger sets the logger for the engine and its readers.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithMetrics reports every run to r.
func WithMetrics(r Recorder) Option {
	return func(o *Options) {
		o.Metrics = r
	}
}

// WithSchemaCache reuses compiled schemas across runs and engines.
func WithSchemaCache(c *xsd.SchemaCache) Option {
	return func(o *Options) {
		o.Cache = c
	}
}

// WithOpener replaces the document opener. A nil opener leaves the engine
// without a validator and every run fails with a ConfigurationError.
func WithOpener(fn Opener) Option {
	return func(o *Options) {
		o.Opener = fn
	}
}
