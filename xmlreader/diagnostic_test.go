package xmlreader

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuffer(t *testing.T) {
	b := NewBuffer()
	first := Diagnostic{Level: LevelError, Code: 1871, File: "a.xml", Line: 3, Column: 5, Message: "one"}
	second := Diagnostic{Level: LevelFatal, Code: 76, File: "a.xml", Line: 9, Message: "two"}
	b.Report(first)
	b.Report(second)
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	if diff := cmp.Diff([]Diagnostic{first, second}, b.Drain()); diff != "" {
		t.Errorf("Drain mismatch (-want +got):\n%s", diff)
	}
	if got := b.Drain(); len(got) != 0 {
		t.Errorf("second Drain returned %v", got)
	}

	b.Report(first)
	b.Clear()
	if b.Len() != 0 {
		t.Errorf("Len() after Clear = %d", b.Len())
	}
}

func TestBufferConcurrent(t *testing.T) {
	b := NewBuffer()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Report(Diagnostic{Level: LevelWarning})
			}
		}()
	}
	wg.Wait()
	if b.Len() != 800 {
		t.Errorf("Len() = %d, want 800", b.Len())
	}
}

func TestDiagnosticString(t *testing.T) {
	tests := []struct {
		d    Diagnostic
		want string
	}{
		{Diagnostic{Level: LevelError, File: "f.xml", Line: 2, Column: 4, Message: "bad"}, "f.xml:2:4: error: bad"},
		{Diagnostic{Level: LevelFatal, File: "f.xml", Line: 1, Message: "Document is empty"}, "f.xml:1:0: fatal: Document is empty"},
		{Diagnostic{Level: Level(9), File: "f.xml"}, "f.xml:0:0: level(9): "},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestNodeTypeString(t *testing.T) {
	if Element.String() != "element" || DocumentType.String() != "doctype" {
		t.Error("unexpected node type names")
	}
	if NodeType(42).String() != "unknown" {
		t.Errorf("NodeType(42) = %q", NodeType(42).String())
	}
}

func TestCharsetReader(t *testing.T) {
	// "café" in ISO-8859-1
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><name>caf\xe9</name>"
	r := NewReader(strings.NewReader(doc), "latin1.xml")
	defer r.Close()
	var text string
	for r.Read() {
		if r.Node().Type == Text {
			text = r.Node().Value
		}
	}
	if text != "café" {
		t.Errorf("decoded text = %q, want %q", text, "café")
	}
	if !r.IsValid() {
		t.Error("latin1 document reported invalid")
	}

	in := strings.NewReader("x")
	got, err := CharsetReader("utf-8", in)
	if err != nil {
		t.Fatal(err)
	}
	if got != io.Reader(in) {
		t.Error("utf-8 input should be returned unchanged")
	}
	if _, err := CharsetReader("no-such-charset", in); err == nil {
		t.Error("expected an error for an unknown charset")
	}
}

func TestCharsetUnsupported(t *testing.T) {
	buf := NewBuffer()
	r := NewReader(strings.NewReader(`<?xml version="1.0" encoding="klingon"?><a/>`), "k.xml")
	defer r.Close()
	r.CaptureDiagnostics(buf)
	for r.Read() {
	}
	d := buf.Drain()
	if len(d) != 1 || d[0].Level != LevelFatal {
		t.Fatalf("got %v, want one fatal diagnostic", d)
	}
	if d[0].Code != CodeInternal {
		t.Errorf("code = %d, want %d", d[0].Code, CodeInternal)
	}
}
