package xsd

import (
	"strings"
	"testing"

	"github.com/agentflare-ai/go-xmldom"
)

const xsHeader = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"`

// mustParse compiles an inline schema or fails the test.
func mustParse(t *testing.T, src string) *Schema {
	t.Helper()
	s, err := ParseReader(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Failed to parse schema: %v", err)
	}
	return s
}

// validateXML decodes src and validates it against s.
func validateXML(t *testing.T, s *Schema, src string) []Violation {
	t.Helper()
	doc, err := xmldom.Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Failed to parse XML: %v", err)
	}
	return s.ValidateDocument(doc)
}

func messages(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Message
	}
	return out
}

func codes(vs []Violation) []ErrorCode {
	out := make([]ErrorCode, len(vs))
	for i, v := range vs {
		out[i] = v.Code
	}
	return out
}
