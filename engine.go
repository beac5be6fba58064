// Package xmlvalidator validates XML documents against an XML Schema and
// reports the violations as normalized diagnostic records.
//
// An Engine holds one schema reference. Each call to Validate opens the
// document through the xmlreader package, binds the schema, and collects
// the diagnostics the reader captures:
//
//	e := xmlvalidator.New()
//	if err := e.SetSchema("catalog.xsd"); err != nil {
//		return err
//	}
//	res, err := e.Validate("feed.xml")
//	if err != nil {
//		return err
//	}
//	for _, d := range res.Errors {
//		fmt.Println(d)
//	}
//
// By default a run only examines the first node of the document: the
// reader validates a read-ahead window past that node, so violations near
// the start are found, but a document whose first violation lies deeper is
// reported valid. WithFullScan reads the whole document.
package xmlvalidator

import (
	"fmt"
	"os"
	"time"

	"github.com/agentflare-ai/go-xmlvalidator/xmlreader"
	"github.com/rs/zerolog"
)

// CodeLoadError is reported when a document cannot be opened.
const CodeLoadError = 1549

// Engine validates documents against one schema. It is not safe for
// concurrent use.
type Engine struct {
	opts   Options
	logger zerolog.Logger
	schema string
	last   Result
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Engine{
		opts:   *o,
		logger: o.Logger.With().Str("component", "engine").Logger(),
	}
}

// SetSchema accepts path as the schema for later runs. The schema is not
// compiled until Validate binds it.
func (e *Engine) SetSchema(path string) error {
	if !isRegularFile(path) {
		return &InvalidSchemaError{Path: path, Reason: ReasonNotAFile}
	}
	e.schema = path
	e.logger.Debug().Str("schema", path).Msg("schema accepted")
	return nil
}

// Schema returns the accepted schema path.
func (e *Engine) Schema() string {
	return e.schema
}

// Validate validates the document at path. Violations are reported in the
// Result, not as an error: the error is an *InvalidSchemaError or a
// *ConfigurationError and means the engine cannot validate at all.
func (e *Engine) Validate(path string) (Result, error) {
	if e.opts.Opener == nil {
		return Result{}, &ConfigurationError{Capability: "validator"}
	}
	if e.schema == "" || !isRegularFile(e.schema) {
		return Result{}, &InvalidSchemaError{Path: e.schema, Reason: ReasonSchemaMissing}
	}

	start := time.Now()
	e.logger.Debug().Str("document", path).Str("schema", e.schema).Bool("full_scan", e.opts.FullScan).Msg("validation started")
	res := e.run(path)
	elapsed := time.Since(start)

	e.last = res
	if e.opts.Metrics != nil {
		e.opts.Metrics.ObserveRun(res.Valid, res.ErrorCount, res.Nodes, elapsed)
	}
	e.logger.Info().
		Str("document", path).
		Bool("valid", res.Valid).
		Int("errors", res.ErrorCount).
		Int("nodes", res.Nodes).
		Dur("duration", elapsed).
		Msg("validation finished")
	return res, nil
}

// ValidateAll validates each document in order. It stops at the first
// error, returning the results gathered so far.
func (e *Engine) ValidateAll(paths []string) ([]Result, error) {
	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		res, err := e.Validate(path)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// LastResult returns the result of the latest run.
func (e *Engine) LastResult() Result {
	return e.last
}

// ErrorCount returns the error count of the latest run. Every run starts
// from zero: a sampled run leaves 1 when its first node is invalid and 0
// otherwise, and a full scan counts every error it read. Before the first
// run it is 0.
func (e *Engine) ErrorCount() int {
	return e.last.ErrorCount
}

// DisplayErrors returns the records of the latest run. The slice is empty,
// never nil, before the first run.
func (e *Engine) DisplayErrors() []DiagnosticRecord {
	out := make([]DiagnosticRecord, len(e.last.Errors))
	copy(out, e.last.Errors)
	return out
}

func (e *Engine) run(path string) Result {
	res := Result{Document: path, Errors: []DiagnosticRecord{}}

	opts := []xmlreader.Option{
		xmlreader.WithReadAhead(e.opts.ReadAhead),
		xmlreader.WithLogger(e.logger),
	}
	if e.opts.Cache != nil {
		opts = append(opts, xmlreader.WithSchemaCache(e.opts.Cache))
	}
	r, err := e.opts.Opener(path, opts...)
	if err != nil {
		e.logger.Warn().Err(err).Str("document", path).Msg("failed to open document")
		// like an empty document, an unreadable one yields no node; only
		// a full scan reports why
		if e.opts.FullScan {
			res.ErrorCount = 1
			res.Errors = append(res.Errors, DiagnosticRecord{
				Level:   xmlreader.LevelFatal.String(),
				Code:    CodeLoadError,
				Source:  path,
				Message: fmt.Sprintf("failed to load external entity %q", path),
			})
		}
		return res
	}
	defer r.Close()

	buf := xmlreader.NewBuffer()
	r.CaptureDiagnostics(buf)
	if err := r.SetSchemaFile(e.schema); err != nil {
		e.logger.Warn().Err(err).Str("schema", e.schema).Msg("schema bind failed")
	}

	if e.opts.FullScan {
		e.scan(r, buf, &res)
	} else {
		e.sample(r, buf, &res)
	}
	return res
}

// sample examines only the first node.
func (e *Engine) sample(r *xmlreader.Reader, buf *xmlreader.Buffer, res *Result) {
	if !r.Read() {
		// an empty or malformed prolog yields no node; its diagnostic is dropped
		buf.Clear()
		return
	}
	res.Nodes = 1
	if !r.IsValid() {
		res.Errors = e.records(buf.Drain())
		res.ErrorCount = 1
		return
	}
	res.Valid = true
}

// scan reads the whole document.
func (e *Engine) scan(r *xmlreader.Reader, buf *xmlreader.Buffer, res *Result) {
	for r.Read() {
		res.Nodes++
	}
	res.Valid = res.Nodes > 0 && r.IsValid()
	res.Errors = e.records(buf.Drain())
	res.ErrorCount = r.Errors()
}

func (e *Engine) records(diags []xmlreader.Diagnostic) []DiagnosticRecord {
	if limit := e.opts.MaxErrors; limit > 0 && len(diags) > limit {
		e.logger.Warn().Int("kept", limit).Int("dropped", len(diags)-limit).Msg("diagnostics over the cap dropped")
		diags = diags[:limit]
	}
	out := make([]DiagnosticRecord, 0, len(diags))
	for _, d := range diags {
		out = append(out, NewRecord(d))
	}
	return out
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
