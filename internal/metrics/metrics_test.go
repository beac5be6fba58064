package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentflare-ai/go-xmlvalidator/xsd"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(true, 0, 1, 3*time.Millisecond)
	m.ObserveRun(false, 2, 14, time.Millisecond)
	m.ObserveRun(false, 1, 1, time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"valid runs", testutil.ToFloat64(m.RunsTotal.WithLabelValues("valid")), 1},
		{"invalid runs", testutil.ToFloat64(m.RunsTotal.WithLabelValues("invalid")), 2},
		{"diagnostics", testutil.ToFloat64(m.Diagnostics), 3},
		{"nodes", testutil.ToFloat64(m.NodesRead), 16},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if n := testutil.CollectAndCount(m.RunDuration); n != 1 {
		t.Errorf("run duration collected %d series", n)
	}
}

func TestInstrumentCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.xsd")
	schema := `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"><xs:element name="a"/></xs:schema>`
	if err := os.WriteFile(path, []byte(schema), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New()
	c := xsd.NewSchemaCache(4)
	m.InstrumentCache(c)
	for i := 0; i < 3; i++ {
		if _, err := c.Get(path); err != nil {
			t.Fatal(err)
		}
	}
	if got := testutil.ToFloat64(m.SchemaCacheMisses); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SchemaCacheHits); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.ObserveRun(false, 2, 5, time.Millisecond)
	path := filepath.Join(t.TempDir(), "xmlvalidate.prom")
	if err := m.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`xmlvalidate_runs_total{result="invalid"} 1`,
		"xmlvalidate_diagnostics_total 2",
		"# TYPE xmlvalidate_run_duration_seconds histogram",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}

	if err := m.WriteFile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
