package xmlvalidator

import (
	"fmt"
	"strings"

	"github.com/agentflare-ai/go-xmlvalidator/xmlreader"
)

// DiagnosticRecord is one normalized validator diagnostic.
type DiagnosticRecord struct {
	Level   string `json:"level" yaml:"level"`
	Code    int    `json:"code" yaml:"code"`
	Source  string `json:"source" yaml:"source"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column,omitempty" yaml:"column,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// String renders the record as "Error <code> in <source> (Line:<line>):<message>".
func (d DiagnosticRecord) String() string {
	return fmt.Sprintf("Error %d in %s (Line:%d):%s", d.Code, d.Source, d.Line, d.Message)
}

// NewRecord normalizes a raw reader diagnostic.
func NewRecord(d xmlreader.Diagnostic) DiagnosticRecord {
	return DiagnosticRecord{
		Level:   d.Level.String(),
		Code:    d.Code,
		Source:  d.File,
		Line:    d.Line,
		Column:  d.Column,
		Message: strings.TrimSpace(d.Message),
	}
}

// Result is the outcome of validating one document.
type Result struct {
	Document   string             `json:"document" yaml:"document"`
	Valid      bool               `json:"valid" yaml:"valid"`
	ErrorCount int                `json:"error_count" yaml:"error_count"`
	Errors     []DiagnosticRecord `json:"errors" yaml:"errors"`
	Nodes      int                `json:"nodes" yaml:"nodes"`
}

// Messages returns the rendered records.
func (r Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, d := range r.Errors {
		out[i] = d.String()
	}
	return out
}
