package xsd

import (
	"fmt"
	"strings"
)

// IdentityKind is key, keyref or unique.
type IdentityKind string

const (
	KeyConstraint    IdentityKind = "key"
	KeyRefConstraint IdentityKind = "keyref"
	UniqueConstraint IdentityKind = "unique"
)

// IdentityConstraint is an xs:key, xs:keyref or xs:unique.
type IdentityConstraint struct {
	Name     QName
	Kind     IdentityKind
	Selector string
	Fields   []string
	Refer    QName

	selector []xpath
	fields   [][]xpath
}

// xpath is one alternative of the restricted XPath subset allowed in
// selectors and fields: an optional .// prefix, child steps, and for fields
// an optional trailing attribute step.
type xpath struct {
	descendant bool
	steps      []xstep
	attr       *xstep
}

type xstep struct {
	self  bool
	any   bool
	name  QName
	local bool // unprefixed: compare local names only
}

func (s xstep) matches(n QName) bool {
	switch {
	case s.any:
		return s.name.Namespace == "" || s.name.Namespace == n.Namespace
	case s.local:
		return s.name.Local == n.Local
	}
	return s.name == n
}

// compileXPath parses a selector or field expression. resolve maps a
// prefix to its namespace.
func compileXPath(expr string, field bool, resolve func(prefix string) (string, bool)) ([]xpath, error) {
	var out []xpath
	for _, alt := range strings.Split(expr, "|") {
		alt = strings.Join(strings.Fields(alt), "")
		var p xpath
		switch {
		case strings.HasPrefix(alt, ".//"):
			p.descendant = true
			alt = alt[3:]
		case strings.HasPrefix(alt, "//"):
			p.descendant = true
			alt = alt[2:]
		}
		alt = strings.TrimPrefix(alt, "child::")
		parts := strings.Split(alt, "/")
		for i, part := range parts {
			if part == "" {
				return nil, fmt.Errorf("xpath %q: empty step", expr)
			}
			isAttr := strings.HasPrefix(part, "@") || strings.HasPrefix(part, "attribute::")
			if isAttr {
				if !field || i != len(parts)-1 {
					return nil, fmt.Errorf("xpath %q: attribute step not allowed here", expr)
				}
				part = strings.TrimPrefix(strings.TrimPrefix(part, "@"), "attribute::")
			}
			st, err := parseStep(part, resolve)
			if err != nil {
				return nil, fmt.Errorf("xpath %q: %w", expr, err)
			}
			if isAttr {
				// unprefixed attribute names are in no namespace
				st.local = false
				p.attr = &st
				continue
			}
			p.steps = append(p.steps, st)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseStep(part string, resolve func(string) (string, bool)) (xstep, error) {
	switch part {
	case ".", "self::node()":
		return xstep{self: true}, nil
	case "*":
		return xstep{any: true}, nil
	}
	prefix, local, found := strings.Cut(part, ":")
	if !found {
		return xstep{name: QName{Local: part}, local: true}, nil
	}
	ns, ok := resolve(prefix)
	if !ok {
		return xstep{}, fmt.Errorf("undeclared prefix %q", prefix)
	}
	if local == "*" {
		return xstep{any: true, name: QName{Namespace: ns}}, nil
	}
	return xstep{name: QName{Namespace: ns, Local: local}}, nil
}

// node is an element captured while an identity constraint scope is open.
type node struct {
	name     QName
	attrs    map[QName]string
	text     strings.Builder
	children []*node
	pos      Position
}

func (p xpath) selectNodes(ctx *node) []*node {
	var start []*node
	if p.descendant {
		start = append(start, ctx)
		start = appendDescendants(start, ctx)
	} else {
		start = []*node{ctx}
	}
	cur := start
	for i, st := range p.steps {
		var next []*node
		for _, n := range cur {
			if st.self {
				next = append(next, n)
				continue
			}
			if p.descendant && i == 0 {
				// the first step after .// may match ctx's descendants
				// themselves, so test the node rather than its children
				if n != ctx && st.matches(n.name) {
					next = append(next, n)
				}
				continue
			}
			for _, c := range n.children {
				if st.matches(c.name) {
					next = append(next, c)
				}
			}
		}
		cur = next
	}
	return cur
}

func appendDescendants(dst []*node, n *node) []*node {
	for _, c := range n.children {
		dst = append(dst, c)
		dst = appendDescendants(dst, c)
	}
	return dst
}

// fieldValue evaluates one field against a selected node. It reports the
// number of nodes the field matched.
func fieldValue(alts []xpath, n *node) (string, int) {
	var values []string
	for _, p := range alts {
		for _, target := range p.selectNodes(n) {
			if p.attr == nil {
				values = append(values, strings.Join(strings.Fields(target.text.String()), " "))
				continue
			}
			for name, v := range target.attrs {
				if p.attr.any && (p.attr.name.Namespace == "" || p.attr.name.Namespace == name.Namespace) || !p.attr.any && p.attr.name == name {
					values = append(values, strings.Join(strings.Fields(v), " "))
				}
			}
		}
	}
	if len(values) == 0 {
		return "", 0
	}
	return values[0], len(values)
}

// keySequence renders field values the way they appear in messages.
func keySequence(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

type pendingKeyref struct {
	ic   *IdentityConstraint
	key  string
	seq  string
	elem QName
	pos  Position
}

// identityTables collects key and unique values across a document and the
// keyrefs to resolve against them once the document ends.
type identityTables struct {
	keys    map[QName]map[string]bool
	keyrefs []pendingKeyref
}

func newIdentityTables() *identityTables {
	return &identityTables{keys: make(map[QName]map[string]bool)}
}

// evaluate checks the constraints declared on decl against its captured
// element and reports violations.
func (t *identityTables) evaluate(decl *ElementDecl, scope *node, report func(Violation)) {
	for _, ic := range decl.Constraints {
		if ic.Kind == KeyRefConstraint {
			continue
		}
		t.collect(ic, scope, report)
	}
	for _, ic := range decl.Constraints {
		if ic.Kind == KeyRefConstraint {
			t.collect(ic, scope, report)
		}
	}
}

func (t *identityTables) collect(ic *IdentityConstraint, scope *node, report func(Violation)) {
	table := t.keys[ic.Name]
	if table == nil && ic.Kind != KeyRefConstraint {
		table = make(map[string]bool)
		t.keys[ic.Name] = table
	}
	seen := make(map[string]bool)
	for _, alt := range ic.selector {
		for _, target := range alt.selectNodes(scope) {
			values := make([]string, 0, len(ic.fields))
			complete, missing := true, false
			for _, f := range ic.fields {
				v, n := fieldValue(f, target)
				if n > 1 {
					report(Violation{
						Code:     CodeIdentity,
						Element:  target.name,
						Position: target.pos,
						Message: elementPrefix(target.name) + fmt.Sprintf("The XPath '%s' of a field of %s identity-constraint '%s' evaluates to a node-set with more than one member.",
							ic.Fields[len(values)], ic.Kind, ic.Name.Local),
					})
					complete = false
					break
				}
				if n == 0 {
					complete = false
					missing = true
					break
				}
				values = append(values, v)
			}
			if !complete {
				if ic.Kind == KeyConstraint && missing {
					report(Violation{
						Code:     CodeIdentity,
						Element:  target.name,
						Position: target.pos,
						Message:  elementPrefix(target.name) + fmt.Sprintf("Not all fields of key identity-constraint '%s' evaluate to a node.", ic.Name.Local),
					})
				}
				continue
			}
			key := strings.Join(values, "\x00")
			seq := keySequence(values)
			if ic.Kind == KeyRefConstraint {
				t.keyrefs = append(t.keyrefs, pendingKeyref{ic: ic, key: key, seq: seq, elem: target.name, pos: target.pos})
				continue
			}
			if seen[key] {
				report(Violation{
					Code:     CodeIdentity,
					Element:  target.name,
					Position: target.pos,
					Actual:   seq,
					Message:  elementPrefix(target.name) + fmt.Sprintf("Duplicate key-sequence %s in %s identity-constraint '%s'.", seq, ic.Kind, ic.Name.Local),
				})
				continue
			}
			seen[key] = true
			table[key] = true
		}
	}
}

// resolveKeyrefs reports every keyref value with no matching key.
func (t *identityTables) resolveKeyrefs(report func(Violation)) {
	for _, kr := range t.keyrefs {
		if t.keys[kr.ic.Refer][kr.key] {
			continue
		}
		report(Violation{
			Code:     CodeIdentity,
			Element:  kr.elem,
			Position: kr.pos,
			Actual:   kr.seq,
			Message:  elementPrefix(kr.elem) + fmt.Sprintf("No match found for key-sequence %s of keyref '%s'.", kr.seq, kr.ic.Name.Local),
		})
	}
	t.keyrefs = nil
}
