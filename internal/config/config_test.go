package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var envVars = []string{
	"XMLVALIDATE_SCHEMA", "XMLVALIDATE_FULL_SCAN", "XMLVALIDATE_READ_AHEAD",
	"XMLVALIDATE_MAX_ERRORS", "XMLVALIDATE_CACHE_SIZE", "XMLVALIDATE_METRICS_FILE",
	"XMLVALIDATE_LOG_LEVEL", "XMLVALIDATE_LOG_FORMAT",
	"XMLVALIDATE_OUTPUT_FORMAT", "XMLVALIDATE_COLOR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "xmlvalidate.yaml")
	data := `schema: catalog.xsd
full_scan: true
max_errors: 10
log:
  level: debug
output:
  format: json
  color: never
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Schema = "catalog.xsd"
	want.FullScan = true
	want.MaxErrors = 10
	want.Log.Level = "debug"
	want.Output = OutputConfig{Format: "json", Color: "never"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "xmlvalidate.yaml")
	if err := os.WriteFile(path, []byte("schema: from-file.xsd\nread_ahead: 100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XMLVALIDATE_SCHEMA", "from-env.xsd")
	t.Setenv("XMLVALIDATE_FULL_SCAN", "true")
	t.Setenv("XMLVALIDATE_READ_AHEAD", "0")
	t.Setenv("XMLVALIDATE_OUTPUT_FORMAT", "pretty")
	t.Setenv("XMLVALIDATE_METRICS_FILE", "/tmp/x.prom")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Schema != "from-env.xsd" || !cfg.FullScan || cfg.ReadAhead != 0 {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Output.Format != "pretty" || cfg.MetricsFile != "/tmp/x.prom" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
		env  map[string]string
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.yaml")},
		{name: "unknown key", path: write("unknown.yaml", "schemas: a.xsd\n")},
		{name: "bad yaml", path: write("bad.yaml", "schema: [\n")},
		{name: "bad format", path: write("format.yaml", "output:\n  format: html\n")},
		{name: "bad color", path: write("color.yaml", "output:\n  color: sometimes\n")},
		{name: "negative read-ahead", path: write("neg.yaml", "read_ahead: -1\n")},
		{name: "bad int env", env: map[string]string{"XMLVALIDATE_MAX_ERRORS": "many"}},
		{name: "bad bool env", env: map[string]string{"XMLVALIDATE_FULL_SCAN": "perhaps"}},
		{name: "bad log format env", env: map[string]string{"XMLVALIDATE_LOG_FORMAT": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(tt.path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
