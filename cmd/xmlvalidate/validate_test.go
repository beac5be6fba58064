package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	xmlvalidator "github.com/agentflare-ai/go-xmlvalidator"
	"github.com/agentflare-ai/go-xmlvalidator/internal/config"
	"github.com/agentflare-ai/go-xmlvalidator/xsd"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const noteXSD = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="note">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="to" type="xs:string"/>
        <xs:element name="body" type="xs:string"/>
      </xs:sequence>
      <xs:attribute name="id" type="xs:ID" use="required"/>
    </xs:complexType>
  </xs:element>
  <xs:complexType name="unused"/>
</xs:schema>`

func fixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"note.xsd": noteXSD,
		"good.xml": `<note id="n1"><to>Tove</to><body>Hi</body></note>`,
		"bad.xml":  "<note>\n<body>Hi</body>\n</note>",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestValidateFiles(t *testing.T) {
	dir := fixtures(t)
	good := filepath.Join(dir, "good.xml")
	bad := filepath.Join(dir, "bad.xml")

	tests := []struct {
		name     string
		files    []string
		format   string
		wantCode int
		contains []string
	}{
		{
			name:     "valid",
			files:    []string{good},
			format:   "text",
			wantCode: exitValid,
			contains: []string{good + " validates"},
		},
		{
			name:     "invalid text",
			files:    []string{good, bad},
			format:   "text",
			wantCode: exitInvalid,
			contains: []string{
				"Error 1868 in " + bad + " (Line:1):Element 'note': The attribute 'id' is required but missing.",
				bad + " fails to validate",
			},
		},
		{
			name:     "invalid pretty",
			files:    []string{bad},
			format:   "pretty",
			wantCode: exitInvalid,
			contains: []string{"error[1871]", " --> " + bad + ":2:1", "   2 | <body>Hi</body>", "help: expected <to> at this position"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := config.Default()
			conf.Schema = filepath.Join(dir, "note.xsd")
			conf.Output.Format = tt.format
			conf.Output.Color = "never"
			var out bytes.Buffer
			code, err := validateFiles(&out, conf, tt.files, zerolog.Nop())
			if err != nil {
				t.Fatal(err)
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestValidateFilesJSON(t *testing.T) {
	dir := fixtures(t)
	conf := config.Default()
	conf.Schema = filepath.Join(dir, "note.xsd")
	conf.Output.Format = "json"
	conf.FullScan = true
	conf.MetricsFile = filepath.Join(dir, "xmlvalidate.prom")

	var out bytes.Buffer
	code, err := validateFiles(&out, conf, []string{filepath.Join(dir, "good.xml"), filepath.Join(dir, "bad.xml")}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if code != exitInvalid {
		t.Errorf("exit code = %d", code)
	}
	var results []xmlvalidator.Result
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	var valid []bool
	for _, r := range results {
		valid = append(valid, r.Valid)
	}
	if diff := cmp.Diff([]bool{true, false}, valid); diff != "" {
		t.Errorf("validity mismatch (-want +got):\n%s", diff)
	}
	if results[1].ErrorCount != 2 {
		t.Errorf("full scan error count = %d, want 2", results[1].ErrorCount)
	}

	data, err := os.ReadFile(conf.MetricsFile)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`xmlvalidate_runs_total{result="valid"} 1`, "xmlvalidate_schema_cache_misses_total 1", "xmlvalidate_schema_cache_hits_total 1"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestValidateFilesUsageErrors(t *testing.T) {
	dir := fixtures(t)
	tests := []struct {
		name   string
		schema string
		format string
	}{
		{"no schema", "", "text"},
		{"missing schema", filepath.Join(dir, "missing.xsd"), "text"},
		{"schema is a directory", dir, "text"},
		{"unknown format", filepath.Join(dir, "note.xsd"), "html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := config.Default()
			conf.Schema = tt.schema
			conf.Output.Format = tt.format
			code, err := validateFiles(&bytes.Buffer{}, conf, []string{filepath.Join(dir, "good.xml")}, zerolog.Nop())
			if err == nil || code != exitUsage {
				t.Errorf("got %d, %v; want exit %d with an error", code, err, exitUsage)
			}
		})
	}
}

func TestUseColor(t *testing.T) {
	var buf bytes.Buffer
	if useColor("auto", &buf) {
		t.Error("auto colored a buffer")
	}
	if !useColor("always", &buf) || useColor("never", &buf) {
		t.Error("explicit modes ignored")
	}
}

func TestWriteSummary(t *testing.T) {
	dir := fixtures(t)
	path := filepath.Join(dir, "note.xsd")
	s, err := xsd.LoadSchemaWithImports(path)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := writeSummary(&out, path, s.Summarize()); err != nil {
		t.Fatal(err)
	}
	want := path + ` compiled
target namespace: (none)
elements (1):
  note
types (1):
  unused
groups (0):
attribute groups (0):
imports (0):
`
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
