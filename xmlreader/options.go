package xmlreader

import (
	"io"

	"github.com/agentflare-ai/go-xmlvalidator/xsd"
	"github.com/rs/zerolog"
)

// DefaultReadAhead is the number of bytes decoded and validated past the
// current node.
const DefaultReadAhead = 4096

// Option configures a Reader.
type Option func(*Options)

// Options holds the Reader configuration.
type Options struct {
	// ReadAhead bounds how far past the current node the document is
	// decoded and validated. Zero validates node by node.
	ReadAhead int

	// Logger receives diagnostics when no Sink is capturing them.
	Logger zerolog.Logger

	// CharsetReader converts non-UTF-8 input.
	CharsetReader func(label string, input io.Reader) (io.Reader, error)

	// Cache, when set, is used by SetSchemaFile.
	Cache *xsd.SchemaCache
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		ReadAhead:     DefaultReadAhead,
		Logger:        zerolog.Nop(),
		CharsetReader: CharsetReader,
	}
}

// WithReadAhead sets the read-ahead window in bytes.
func WithReadAhead(n int) Option {
	return func(o *Options) {
		if n < 0 {
			n = 0
		}
		o.ReadAhead = n
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithCharsetReader replaces the charset conversion used for documents
// that declare a non-UTF-8 encoding.
func WithCharsetReader(fn func(label string, input io.Reader) (io.Reader, error)) Option {
	return func(o *Options) {
		o.CharsetReader = fn
	}
}

// WithSchemaCache makes SetSchemaFile reuse compiled schemas.
func WithSchemaCache(c *xsd.SchemaCache) Option {
	return func(o *Options) {
		o.Cache = c
	}
}
