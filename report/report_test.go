package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	xmlvalidator "github.com/agentflare-ai/go-xmlvalidator"
	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
)

var sample = []xmlvalidator.DiagnosticRecord{
	{Level: "error", Code: 1871, Source: "feed.xml", Line: 3, Column: 5, Message: "Element 'title': This element is not expected. Expected is ( author )."},
	{Level: "error", Code: 1871, Source: "feed.xml", Line: 5, Column: 3, Message: "Element 'booking': This element is not expected. Expected is one of ( book, {urn:x}shelf )."},
}

const sampleSource = `<catalog>
  <book>
    <title>t</title>
  </book>
  <booking/>
</catalog>`

func TestText(t *testing.T) {
	var buf bytes.Buffer
	if err := Text(&buf, sample); err != nil {
		t.Fatal(err)
	}
	want := "Error 1871 in feed.xml (Line:3):Element 'title': This element is not expected. Expected is ( author ).\n" +
		"Error 1871 in feed.xml (Line:5):Element 'booking': This element is not expected. Expected is one of ( book, {urn:x}shelf ).\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPretty(t *testing.T) {
	p := Pretty{ContextLines: 1}
	got := p.Format(sample[0], sampleSource)
	want := `error[1871]: Element 'title': This element is not expected. Expected is ( author ).
 --> feed.xml:3:5
     |
   2 |   <book>
   3 |     <title>t</title>
     |     ^
   4 |   </book>
     |
     = help: expected <author> at this position
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPrettyWithoutSource(t *testing.T) {
	var buf bytes.Buffer
	rec := xmlvalidator.DiagnosticRecord{Level: "fatal", Code: 4, Source: "empty.xml", Line: 1, Message: "Document is empty"}
	if err := (Pretty{}).Write(&buf, []xmlvalidator.DiagnosticRecord{rec, sample[1]}, ""); err != nil {
		t.Fatal(err)
	}
	want := `fatal[4]: Document is empty
 --> empty.xml:1

error[1871]: Element 'booking': This element is not expected. Expected is one of ( book, {urn:x}shelf ).
 --> feed.xml:5:3
     |
     = help: expected one of: book, {urn:x}shelf
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPrettyColor(t *testing.T) {
	got := Pretty{Color: true}.Format(sample[0], sampleSource)
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("no escape sequences in colored output:\n%q", got)
	}
	plain := Pretty{}.Format(sample[0], sampleSource)
	if strings.Contains(plain, "\x1b[") {
		t.Errorf("escape sequences in plain output:\n%q", plain)
	}
}

func TestHints(t *testing.T) {
	tests := []struct {
		msg  string
		want []string
	}{
		{"Element 'a': The attribute 'id' is required but missing.", []string{`add the attribute: id="..."`}},
		{"Element 'c': [facet 'enumeration'] The value 'x' is not an element of the set {'red', 'green'}.", []string{"valid values are: 'red', 'green'"}},
		{"Element 'b': 'x' is not a valid value of the atomic type 'xs:int'.", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, hintsFor(tt.msg)); diff != "" {
			t.Errorf("hintsFor(%q) mismatch (-want +got):\n%s", tt.msg, diff)
		}
	}
}

var results = []xmlvalidator.Result{
	{Document: "good.xml", Valid: true, Nodes: 1},
	{Document: "feed.xml", ErrorCount: 1, Errors: sample[:1], Nodes: 1},
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, results); err != nil {
		t.Fatal(err)
	}
	var got []xmlvalidator.Result
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := normalize(results)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), `"errors": []`) {
		t.Errorf("empty error list not rendered as []:\n%s", buf.String())
	}
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := YAML(&buf, results); err != nil {
		t.Fatal(err)
	}
	var got []map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[0]["document"] != "good.xml" || got[1]["valid"] != false {
		t.Errorf("unexpected YAML:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "error_count: 1") {
		t.Errorf("missing error_count:\n%s", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "pretty": FormatPretty, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected an error")
	}
}
