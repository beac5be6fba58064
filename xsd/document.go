package xsd

import (
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// ValidateDocument validates an already parsed document and returns every
// violation found, in document order.
func (s *Schema) ValidateDocument(doc xmldom.Document) []Violation {
	var violations []Violation
	v := NewValidator(s, func(vi Violation) { violations = append(violations, vi) })
	if doc == nil {
		return violations
	}
	if root := doc.DocumentElement(); root != nil {
		w := &domWalker{v: v}
		w.element(root)
	}
	v.EndDocument()
	return violations
}

type domWalker struct {
	v      *Validator
	scopes []map[string]string
}

func (w *domWalker) resolve(prefix string) (string, bool) {
	if prefix == "xml" {
		return XMLNamespace, true
	}
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if ns, ok := w.scopes[i][prefix]; ok {
			return ns, true
		}
	}
	return "", prefix == ""
}

func (w *domWalker) element(e xmldom.Element) {
	w.scopes = append(w.scopes, declaredPrefixes(e))
	defer func() { w.scopes = w.scopes[:len(w.scopes)-1] }()

	var attrs []Attr
	list := e.Attributes()
	for i := uint(0); list != nil && i < list.Length(); i++ {
		a := list.Item(i)
		if a == nil {
			continue
		}
		local, ns := string(a.LocalName()), string(a.NamespaceURI())
		// xmldom reports xmlns:p with namespace "xmlns" and a bare xmlns
		// with local name "xmlns"
		if ns == xmlnsNamespace || ns == "xmlns" || local == "xmlns" || strings.HasPrefix(string(a.NodeName()), "xmlns:") {
			continue
		}
		attrs = append(attrs, Attr{Name: QName{ns, local}, Value: string(a.NodeValue())})
	}
	line, col, _ := e.Position()
	name := QName{string(e.NamespaceURI()), string(e.LocalName())}
	w.v.StartElement(name, attrs, Position{Line: line, Column: col}, w.resolve)

	var text strings.Builder
	nodes := e.ChildNodes()
	for i := uint(0); nodes != nil && i < nodes.Length(); i++ {
		// text and CDATA sections
		if n := nodes.Item(i); n != nil && (n.NodeType() == 3 || n.NodeType() == 4) {
			text.WriteString(string(n.NodeValue()))
		}
	}
	if text.Len() > 0 {
		w.v.CharData(text.String())
	}

	children := e.Children()
	for i := uint(0); i < children.Length(); i++ {
		if c := children.Item(i); c != nil {
			w.element(c)
		}
	}
	w.v.EndElement()
}
