// Package report renders validation results for people and for tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	xmlvalidator "github.com/agentflare-ai/go-xmlvalidator"
	"github.com/goccy/go-yaml"
)

// Format names an output format.
type Format string

const (
	FormatText   Format = "text"
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatPretty, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, pretty, json or yaml)", s)
}

// Text writes one line per record, in the "Error <code> in <source>
// (Line:<line>):<message>" form.
func Text(w io.Writer, records []xmlvalidator.DiagnosticRecord) error {
	for _, d := range records {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return err
		}
	}
	return nil
}

// JSON writes results as an indented JSON array.
func JSON(w io.Writer, results []xmlvalidator.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(normalize(results))
}

// YAML writes results as a YAML sequence.
func YAML(w io.Writer, results []xmlvalidator.Result) error {
	data, err := yaml.Marshal(normalize(results))
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// normalize keeps empty error lists from encoding as null.
func normalize(results []xmlvalidator.Result) []xmlvalidator.Result {
	out := make([]xmlvalidator.Result, len(results))
	for i, r := range results {
		if r.Errors == nil {
			r.Errors = []xmlvalidator.DiagnosticRecord{}
		}
		out[i] = r
	}
	return out
}
