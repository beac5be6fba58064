// Package xmlreader is a forward-only pull reader over an XML document. A
// schema bound before the first Read validates the document as it is
// decoded, and diagnostics go to an explicitly captured Sink rather than to
// any process-wide state.
package xmlreader

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agentflare-ai/go-xmlvalidator/xsd"
	"github.com/rs/zerolog"
)

// Parser error codes, numbered like libxml2's xmlParserErrors.
const (
	CodeInternal        = 1
	CodeDocumentEmpty   = 4
	CodeDocumentEnd     = 5
	CodeTagNameMismatch = 76
	CodeTagNotFinished  = 77
)

// ErrAlreadyStarted is returned when a schema is bound after reading began.
var ErrAlreadyStarted = errors.New("xmlreader: schema must be bound before the first Read")

// Reader reads one document. It is not safe for concurrent use.
type Reader struct {
	name   string
	in     io.Reader
	closer io.Closer
	opts   Options
	logger zerolog.Logger

	schema       *xsd.Schema
	schemaFailed bool
	validator    *xsd.Validator
	sink         Sink

	dec    *xml.Decoder
	window []Node
	node   Node
	scopes []map[string]string
	depth  int

	started    bool
	eof        bool
	closed     bool
	rootSeen   bool
	rootClosed bool
	errCount   int
}

// Open opens the document at path. Nothing is decoded until Read.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document %s: %w", path, err)
	}
	r := NewReader(f, path, opts...)
	r.closer = f
	return r, nil
}

// NewReader reads a document from in. name identifies it in diagnostics.
func NewReader(in io.Reader, name string, opts ...Option) *Reader {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Reader{
		name:   name,
		in:     in,
		opts:   *o,
		logger: o.Logger.With().Str("component", "xmlreader").Str("document", name).Logger(),
	}
}

// CaptureDiagnostics sends every later diagnostic to s. A nil Sink restores
// logging.
func (r *Reader) CaptureDiagnostics(s Sink) {
	r.sink = s
}

// SetSchema binds a compiled schema.
func (r *Reader) SetSchema(s *xsd.Schema) error {
	if r.started {
		return ErrAlreadyStarted
	}
	if s == nil {
		return errors.New("xmlreader: nil schema")
	}
	r.schema = s
	r.schemaFailed = false
	return nil
}

// SetSchemaFile compiles the schema at path and binds it. When the schema
// cannot be compiled the failure is reported as a diagnostic, the error is
// returned, and the document can still be read but is never valid.
func (r *Reader) SetSchemaFile(path string) error {
	if r.started {
		return ErrAlreadyStarted
	}
	var (
		s   *xsd.Schema
		err error
	)
	if r.opts.Cache != nil {
		s, err = r.opts.Cache.Get(path)
	} else {
		s, err = xsd.LoadSchemaWithImports(path)
	}
	if err != nil {
		r.schema = nil
		r.schemaFailed = true
		r.report(Diagnostic{
			Level:   LevelError,
			Code:    xsd.CodeSchemaLoad.Number(),
			File:    path,
			Message: fmt.Sprintf("Failed to compile the schema: %v", err),
		})
		return fmt.Errorf("failed to bind schema %s: %w", path, err)
	}
	return r.SetSchema(s)
}

// Read advances to the next node. It returns false at the end of the
// document, after a fatal parse error, or once the reader is closed.
func (r *Reader) Read() bool {
	if r.closed {
		return false
	}
	if !r.started {
		r.start()
	}
	for len(r.window) == 0 && !r.eof {
		r.decode()
	}
	if len(r.window) == 0 {
		r.node = Node{}
		return false
	}
	r.node = r.window[0]
	r.window = r.window[1:]
	for !r.eof && r.dec.InputOffset()-r.node.Offset < int64(r.opts.ReadAhead) {
		r.decode()
	}
	return true
}

// Node returns the current node.
func (r *Reader) Node() Node {
	return r.node
}

// IsValid reports whether no error has been found in the document read so
// far, including the read-ahead window. It is false once a bound schema
// failed to compile.
func (r *Reader) IsValid() bool {
	return !r.schemaFailed && r.errCount == 0
}

// Errors returns the number of error and fatal diagnostics reported.
func (r *Reader) Errors() int {
	return r.errCount
}

// Close releases the document. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.window = nil
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Reader) start() {
	r.started = true
	r.dec = xml.NewDecoder(r.in)
	r.dec.CharsetReader = r.opts.CharsetReader
	if r.schema != nil {
		r.validator = xsd.NewValidator(r.schema, r.violation)
	}
}

func (r *Reader) report(d Diagnostic) {
	if d.Level >= LevelError {
		r.errCount++
	}
	if r.sink != nil {
		r.sink.Report(d)
		return
	}
	level := zerolog.ErrorLevel
	if d.Level == LevelWarning {
		level = zerolog.WarnLevel
	}
	r.logger.WithLevel(level).
		Int("code", d.Code).
		Int("line", d.Line).
		Int("column", d.Column).
		Msg(d.Message)
}

func (r *Reader) violation(v xsd.Violation) {
	r.report(Diagnostic{
		Level:   LevelError,
		Code:    v.Code.Number(),
		File:    r.name,
		Line:    v.Position.Line,
		Column:  v.Position.Column,
		Message: v.Message,
	})
}

func (r *Reader) fatal(code, line, col int, msg string) {
	r.eof = true
	r.report(Diagnostic{Level: LevelFatal, Code: code, File: r.name, Line: line, Column: col, Message: msg})
}

// decode reads one token, validates it and queues the node it produces.
func (r *Reader) decode() {
	line, col := r.dec.InputPos()
	offset := r.dec.InputOffset()
	tok, err := r.dec.Token()
	if err == io.EOF {
		r.finish(line, col)
		return
	}
	if err != nil {
		r.syntaxError(err, line, col)
		return
	}

	pos := xsd.Position{Line: line, Column: col}
	switch t := tok.(type) {
	case xml.StartElement:
		if r.rootClosed {
			r.fatal(CodeDocumentEnd, line, col, "Extra content at the end of the document")
			return
		}
		r.rootSeen = true
		scope, attrs := splitAttrs(t.Attr)
		r.scopes = append(r.scopes, scope)
		name := xsd.QName{Namespace: t.Name.Space, Local: t.Name.Local}
		r.window = append(r.window, Node{Type: Element, Name: name, Attrs: attrs, Depth: r.depth, Line: line, Column: col, Offset: offset})
		if r.validator != nil {
			r.validator.StartElement(name, attrs, pos, r.resolve)
		}
		r.depth++
	case xml.EndElement:
		r.depth--
		name := xsd.QName{Namespace: t.Name.Space, Local: t.Name.Local}
		r.window = append(r.window, Node{Type: EndElement, Name: name, Depth: r.depth, Line: line, Column: col, Offset: offset})
		if r.validator != nil {
			r.validator.EndElement()
		}
		r.scopes = r.scopes[:len(r.scopes)-1]
		if r.depth == 0 {
			r.rootClosed = true
		}
	case xml.CharData:
		text := string(t)
		blank := strings.TrimSpace(text) == ""
		if r.depth == 0 {
			switch {
			case blank:
			case r.rootSeen:
				r.fatal(CodeDocumentEnd, line, col, "Extra content at the end of the document")
			default:
				r.fatal(CodeDocumentEmpty, line, col, "Start tag expected, '<' not found")
			}
			return
		}
		typ := Text
		if blank {
			typ = Whitespace
		}
		r.window = append(r.window, Node{Type: typ, Depth: r.depth, Value: text, Line: line, Column: col, Offset: offset})
		if r.validator != nil {
			r.validator.CharData(text)
		}
	case xml.Comment:
		r.window = append(r.window, Node{Type: Comment, Depth: r.depth, Value: string(t), Line: line, Column: col, Offset: offset})
	case xml.ProcInst:
		if t.Target == "xml" {
			return
		}
		r.window = append(r.window, Node{Type: ProcessingInstruction, Name: xsd.QName{Local: t.Target}, Depth: r.depth, Value: string(t.Inst), Line: line, Column: col, Offset: offset})
	case xml.Directive:
		r.window = append(r.window, Node{Type: DocumentType, Depth: r.depth, Value: string(t), Line: line, Column: col, Offset: offset})
	}
}

func (r *Reader) finish(line, col int) {
	r.eof = true
	if !r.rootSeen {
		r.fatal(CodeDocumentEmpty, line, col, "Document is empty")
		return
	}
	if r.validator != nil {
		r.validator.EndDocument()
	}
}

func (r *Reader) syntaxError(err error, line, col int) {
	var se *xml.SyntaxError
	if !errors.As(err, &se) {
		r.fatal(CodeInternal, line, col, err.Error())
		return
	}
	switch {
	case strings.Contains(se.Msg, "closed by"):
		r.fatal(CodeTagNameMismatch, se.Line, 0, "Opening and ending tag mismatch: "+se.Msg)
	case strings.Contains(se.Msg, "unexpected EOF"):
		r.fatal(CodeTagNotFinished, se.Line, 0, "Premature end of data in tag")
	default:
		r.fatal(CodeDocumentEnd, se.Line, 0, se.Msg)
	}
}

// resolve maps a prefix in scope at the innermost open element.
func (r *Reader) resolve(prefix string) (string, bool) {
	if prefix == "xml" {
		return xsd.XMLNamespace, true
	}
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if ns, ok := r.scopes[i][prefix]; ok {
			return ns, true
		}
	}
	return "", prefix == ""
}

// splitAttrs separates namespace declarations from ordinary attributes.
func splitAttrs(in []xml.Attr) (map[string]string, []xsd.Attr) {
	scope := make(map[string]string)
	attrs := make([]xsd.Attr, 0, len(in))
	for _, a := range in {
		switch {
		case a.Name.Space == "xmlns":
			scope[a.Name.Local] = a.Value
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			scope[""] = a.Value
		default:
			attrs = append(attrs, xsd.Attr{Name: xsd.QName{Namespace: a.Name.Space, Local: a.Name.Local}, Value: a.Value})
		}
	}
	return scope, attrs
}
