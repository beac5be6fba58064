package xsd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// rawComplex holds a complex type as written, before its base is applied.
type rawComplex struct {
	particle   Particle
	attrs      []attrRef
	attrGroups []QName
	anyAttr    *Wildcard
	mixed      bool
	simple     bool
	derivation Derivation
	base       QName
	facets     []Facet
	inlineBase *SimpleType
}

// attrRef is a local attribute declaration or an attribute ref as it
// appears inside a complex type or attribute group.
type attrRef struct {
	decl  *AttributeDecl
	ref   QName
	use   Use
	def   *string
	fixed *string
}

// docParser reads the components of one schema document into a Schema.
// Included and imported documents each get their own docParser so that
// targetNamespace and form defaults stay per document.
type docParser struct {
	s             *Schema
	location      string
	tns           string
	elemQualified bool
	attrQualified bool
	ns            map[string]string

	imports  []*Import
	includes []string
}

// LoadSchema reads and compiles a single schema file. Imports and includes
// are not followed; use a Loader for that.
func LoadSchema(filename string) (*Schema, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema: %w", err)
	}
	defer f.Close()
	s, err := ParseReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	s.Location = filename
	return s, nil
}

// ParseReader decodes and compiles a schema document.
func ParseReader(r io.Reader) (*Schema, error) {
	doc, err := xmldom.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema XML: %w", err)
	}
	return Parse(doc)
}

// Parse compiles a schema document that has no imports or includes to
// follow.
func Parse(doc xmldom.Document) (*Schema, error) {
	s := newSchema()
	p, err := parseDocument(s, doc, "", "")
	if err != nil {
		return nil, err
	}
	s.TargetNamespace = p.tns
	if err := s.resolve(); err != nil {
		return nil, err
	}
	return s, nil
}

// parseDocument adds the components of doc to s. chameleonNS, when set,
// is the including document's namespace, adopted by a no-namespace include.
func parseDocument(s *Schema, doc xmldom.Document, location, chameleonNS string) (*docParser, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}
	root := doc.DocumentElement()
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	if string(root.NamespaceURI()) != XSDNamespace || string(root.LocalName()) != "schema" {
		return nil, fmt.Errorf("not an XSD schema document: root is {%s}%s", root.NamespaceURI(), root.LocalName())
	}
	p := &docParser{
		s:             s,
		location:      location,
		tns:           string(root.GetAttribute("targetNamespace")),
		elemQualified: string(root.GetAttribute("elementFormDefault")) == "qualified",
		attrQualified: string(root.GetAttribute("attributeFormDefault")) == "qualified",
		ns:            declaredPrefixes(root),
	}
	if p.tns == "" && chameleonNS != "" {
		p.tns = chameleonNS
	}
	if err := p.parseRoot(root); err != nil {
		return nil, err
	}
	return p, nil
}

// declaredPrefixes returns the xmlns declarations made on e.
func declaredPrefixes(e xmldom.Element) map[string]string {
	out := make(map[string]string)
	attrs := e.Attributes()
	if attrs == nil {
		return out
	}
	for i := uint(0); i < attrs.Length(); i++ {
		a := attrs.Item(i)
		if a == nil {
			continue
		}
		// xmldom keeps xmlns:p="..." as attribute p in namespace "xmlns".
		name := string(a.NodeName())
		switch ns := string(a.NamespaceURI()); {
		case ns == "xmlns" || ns == xmlnsNamespace:
			out[string(a.LocalName())] = string(a.NodeValue())
		case name == "xmlns":
			out[""] = string(a.NodeValue())
		case strings.HasPrefix(name, "xmlns:"):
			out[strings.TrimPrefix(name, "xmlns:")] = string(a.NodeValue())
		}
	}
	return out
}

func (p *docParser) lookupPrefix(e xmldom.Element, prefix string) (string, bool) {
	if prefix == "xml" {
		return XMLNamespace, true
	}
	for cur := e; cur != nil; {
		if ns, ok := declaredPrefixes(cur)[prefix]; ok {
			return ns, true
		}
		parent, _ := cur.ParentNode().(xmldom.Element)
		cur = parent
	}
	if ns, ok := p.ns[prefix]; ok {
		return ns, true
	}
	switch prefix {
	case "":
		return "", true
	case "xs", "xsd":
		return XSDNamespace, true
	}
	return "", false
}

// qname resolves a QName-valued attribute in the scope of e.
func (p *docParser) qname(e xmldom.Element, value string) (QName, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return QName{}, nil
	}
	prefix, local, found := strings.Cut(value, ":")
	if !found {
		prefix, local = "", value
	}
	ns, ok := p.lookupPrefix(e, prefix)
	if !ok {
		return QName{}, fmt.Errorf("%s: undeclared namespace prefix %q", p.where(e), prefix)
	}
	return QName{Namespace: ns, Local: local}, nil
}

func (p *docParser) where(e xmldom.Element) string {
	loc := p.location
	if loc == "" {
		loc = "schema"
	}
	if e == nil {
		return loc
	}
	line, col, _ := e.Position()
	return fmt.Sprintf("%s:%d:%d", loc, line, col)
}

func attr(e xmldom.Element, name string) string {
	return string(e.GetAttribute(xmldom.DOMString(name)))
}

func optAttr(e xmldom.Element, name string) *string {
	if !e.HasAttribute(xmldom.DOMString(name)) {
		return nil
	}
	v := attr(e, name)
	return &v
}

func boolAttr(e xmldom.Element, name string) bool {
	switch strings.TrimSpace(attr(e, name)) {
	case "true", "1":
		return true
	}
	return false
}

// xsChildren returns the schema-namespace children of e, skipping
// annotations.
func xsChildren(e xmldom.Element) []xmldom.Element {
	var out []xmldom.Element
	children := e.Children()
	for i := uint(0); i < children.Length(); i++ {
		c := children.Item(i)
		if c == nil || string(c.NamespaceURI()) != XSDNamespace || string(c.LocalName()) == "annotation" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (p *docParser) parseRoot(root xmldom.Element) error {
	for _, c := range xsChildren(root) {
		switch string(c.LocalName()) {
		case "element":
			decl, err := p.element(c, true)
			if err != nil {
				return err
			}
			if _, dup := p.s.Elements[decl.Name]; dup {
				return fmt.Errorf("%s: element %s is declared more than once", p.where(c), decl.Name)
			}
			p.s.Elements[decl.Name] = decl
		case "simpleType":
			name := QName{p.tns, attr(c, "name")}
			st, err := p.simpleType(c, name)
			if err != nil {
				return err
			}
			if err := p.defineType(c, name, st); err != nil {
				return err
			}
		case "complexType":
			name := QName{p.tns, attr(c, "name")}
			ct, err := p.complexType(c, name)
			if err != nil {
				return err
			}
			if err := p.defineType(c, name, ct); err != nil {
				return err
			}
		case "attribute":
			ref, err := p.attribute(c, true)
			if err != nil {
				return err
			}
			p.s.Attributes[ref.decl.Name] = ref.decl
		case "attributeGroup":
			g, err := p.attributeGroup(c)
			if err != nil {
				return err
			}
			p.s.AttributeGroups[g.Name] = g
		case "group":
			name := QName{p.tns, attr(c, "name")}
			var g *ModelGroup
			for _, gc := range xsChildren(c) {
				mg, err := p.modelGroup(gc)
				if err != nil {
					return err
				}
				g = mg
			}
			if g == nil {
				g = &ModelGroup{Kind: Sequence, MinOccur: 1, MaxOccur: 1}
			}
			g.Name = name
			p.s.Groups[name] = g
		case "import":
			imp := &Import{Namespace: attr(c, "namespace"), SchemaLocation: attr(c, "schemaLocation")}
			p.imports = append(p.imports, imp)
			p.s.Imports = append(p.s.Imports, imp)
		case "include", "redefine":
			if loc := attr(c, "schemaLocation"); loc != "" {
				p.includes = append(p.includes, loc)
				p.s.Includes = append(p.s.Includes, loc)
			}
		}
	}
	return nil
}

func (p *docParser) defineType(e xmldom.Element, name QName, t Type) error {
	if name.Local == "" {
		return fmt.Errorf("%s: global type without a name", p.where(e))
	}
	if _, dup := p.s.Types[name]; dup {
		return fmt.Errorf("%s: type %s is defined more than once", p.where(e), name)
	}
	p.s.Types[name] = t
	return nil
}

func (p *docParser) occurs(e xmldom.Element) (int, int, error) {
	min, max := 1, 1
	if v := strings.TrimSpace(attr(e, "minOccurs")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("%s: invalid minOccurs %q", p.where(e), v)
		}
		min = n
	}
	if v := strings.TrimSpace(attr(e, "maxOccurs")); v != "" {
		if v == "unbounded" {
			max = Unbounded
		} else {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return 0, 0, fmt.Errorf("%s: invalid maxOccurs %q", p.where(e), v)
			}
			max = n
		}
	}
	if max != Unbounded && min > max {
		return 0, 0, fmt.Errorf("%s: minOccurs %d is greater than maxOccurs %d", p.where(e), min, max)
	}
	return min, max, nil
}

func (p *docParser) element(e xmldom.Element, global bool) (*ElementDecl, error) {
	name := attr(e, "name")
	if name == "" {
		return nil, fmt.Errorf("%s: element declaration without a name", p.where(e))
	}
	decl := &ElementDecl{
		Name:     QName{Local: name},
		Global:   global,
		Nillable: boolAttr(e, "nillable"),
		Abstract: boolAttr(e, "abstract"),
		Default:  optAttr(e, "default"),
		Fixed:    optAttr(e, "fixed"),
	}
	switch form := attr(e, "form"); {
	case global, form == "qualified", form == "" && p.elemQualified:
		decl.Name.Namespace = p.tns
	}
	var err error
	if decl.TypeName, err = p.qname(e, attr(e, "type")); err != nil {
		return nil, err
	}
	if decl.SubstitutionGroup, err = p.qname(e, attr(e, "substitutionGroup")); err != nil {
		return nil, err
	}
	for _, c := range xsChildren(e) {
		switch string(c.LocalName()) {
		case "simpleType":
			if decl.Type, err = p.simpleType(c, QName{}); err != nil {
				return nil, err
			}
		case "complexType":
			if decl.Type, err = p.complexType(c, QName{}); err != nil {
				return nil, err
			}
		case "key", "keyref", "unique":
			ic, err := p.identityConstraint(c)
			if err != nil {
				return nil, err
			}
			decl.Constraints = append(decl.Constraints, ic)
		}
	}
	p.s.comps.elements = append(p.s.comps.elements, decl)
	return decl, nil
}

func (p *docParser) identityConstraint(e xmldom.Element) (*IdentityConstraint, error) {
	ic := &IdentityConstraint{
		Name: QName{p.tns, attr(e, "name")},
		Kind: IdentityKind(e.LocalName()),
	}
	var err error
	if ic.Refer, err = p.qname(e, attr(e, "refer")); err != nil {
		return nil, err
	}
	resolve := func(prefix string) (string, bool) { return p.lookupPrefix(e, prefix) }
	for _, c := range xsChildren(e) {
		xp := attr(c, "xpath")
		switch string(c.LocalName()) {
		case "selector":
			ic.Selector = xp
			if ic.selector, err = compileXPath(xp, false, resolve); err != nil {
				return nil, fmt.Errorf("%s: %w", p.where(c), err)
			}
		case "field":
			f, err := compileXPath(xp, true, resolve)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.where(c), err)
			}
			ic.Fields = append(ic.Fields, xp)
			ic.fields = append(ic.fields, f)
		}
	}
	if ic.selector == nil || len(ic.fields) == 0 {
		return nil, fmt.Errorf("%s: %s %q needs a selector and at least one field", p.where(e), ic.Kind, ic.Name.Local)
	}
	p.s.comps.constraints = append(p.s.comps.constraints, ic)
	return ic, nil
}

func (p *docParser) particle(e xmldom.Element) (Particle, error) {
	min, max, err := p.occurs(e)
	if err != nil {
		return nil, err
	}
	switch string(e.LocalName()) {
	case "element":
		if ref := attr(e, "ref"); ref != "" {
			q, err := p.qname(e, ref)
			if err != nil {
				return nil, err
			}
			ep := &ElementParticle{Ref: q, MinOccur: min, MaxOccur: max}
			p.s.comps.elementRefs = append(p.s.comps.elementRefs, ep)
			return ep, nil
		}
		decl, err := p.element(e, false)
		if err != nil {
			return nil, err
		}
		return &ElementParticle{Decl: decl, MinOccur: min, MaxOccur: max}, nil
	case "group":
		q, err := p.qname(e, attr(e, "ref"))
		if err != nil {
			return nil, err
		}
		gr := &GroupRef{Ref: q, MinOccur: min, MaxOccur: max}
		p.s.comps.groupRefs = append(p.s.comps.groupRefs, gr)
		return gr, nil
	case "any":
		w := newWildcard(attr(e, "namespace"), attr(e, "processContents"), p.tns)
		w.MinOccur, w.MaxOccur = min, max
		return w, nil
	case "sequence", "choice", "all":
		return p.modelGroup(e)
	}
	return nil, fmt.Errorf("%s: unexpected %s in content model", p.where(e), e.LocalName())
}

func (p *docParser) modelGroup(e xmldom.Element) (*ModelGroup, error) {
	min, max, err := p.occurs(e)
	if err != nil {
		return nil, err
	}
	g := &ModelGroup{MinOccur: min, MaxOccur: max}
	switch string(e.LocalName()) {
	case "sequence":
		g.Kind = Sequence
	case "choice":
		g.Kind = Choice
	case "all":
		g.Kind = All
	default:
		return nil, fmt.Errorf("%s: expected sequence, choice or all, got %s", p.where(e), e.LocalName())
	}
	for _, c := range xsChildren(e) {
		child, err := p.particle(c)
		if err != nil {
			return nil, err
		}
		g.Particles = append(g.Particles, child)
	}
	return g, nil
}

func (p *docParser) simpleType(e xmldom.Element, name QName) (*SimpleType, error) {
	st := &SimpleType{Name: name}
	for _, c := range xsChildren(e) {
		var err error
		switch string(c.LocalName()) {
		case "restriction":
			st.Variety = Atomic
			if st.BaseName, err = p.qname(c, attr(c, "base")); err != nil {
				return nil, err
			}
			for _, f := range xsChildren(c) {
				if string(f.LocalName()) == "simpleType" {
					if st.Base, err = p.simpleType(f, QName{}); err != nil {
						return nil, err
					}
					continue
				}
				if st.Facets, err = parseFacet(string(f.LocalName()), attr(f, "value"), st.Facets); err != nil {
					return nil, fmt.Errorf("%s: %w", p.where(f), err)
				}
			}
			if st.BaseName.IsZero() && st.Base == nil {
				return nil, fmt.Errorf("%s: restriction without a base type", p.where(c))
			}
		case "list":
			st.Variety = List
			if st.ItemTypeName, err = p.qname(c, attr(c, "itemType")); err != nil {
				return nil, err
			}
			for _, ic := range xsChildren(c) {
				if st.ItemType, err = p.simpleType(ic, QName{}); err != nil {
					return nil, err
				}
			}
		case "union":
			st.Variety = Union
			for _, m := range strings.Fields(attr(c, "memberTypes")) {
				q, err := p.qname(c, m)
				if err != nil {
					return nil, err
				}
				st.MemberNames = append(st.MemberNames, q)
			}
			for _, mc := range xsChildren(c) {
				member, err := p.simpleType(mc, QName{})
				if err != nil {
					return nil, err
				}
				st.Members = append(st.Members, member)
			}
		}
	}
	p.s.comps.simples = append(p.s.comps.simples, st)
	return st, nil
}

func (p *docParser) complexType(e xmldom.Element, name QName) (*ComplexType, error) {
	ct := &ComplexType{
		Name:     name,
		Abstract: boolAttr(e, "abstract"),
		raw:      &rawComplex{mixed: boolAttr(e, "mixed")},
	}
	raw := ct.raw
	for _, c := range xsChildren(e) {
		switch local := string(c.LocalName()); local {
		case "simpleContent", "complexContent":
			raw.simple = local == "simpleContent"
			if c.HasAttribute("mixed") {
				raw.mixed = boolAttr(c, "mixed")
			}
			for _, d := range xsChildren(c) {
				if err := p.derivation(d, raw); err != nil {
					return nil, err
				}
			}
		case "sequence", "choice", "all", "group":
			part, err := p.particle(c)
			if err != nil {
				return nil, err
			}
			raw.particle = part
		case "attribute", "attributeGroup", "anyAttribute":
			if err := p.attributeItem(c, &raw.attrs, &raw.attrGroups, &raw.anyAttr); err != nil {
				return nil, err
			}
		}
	}
	p.s.comps.complexes = append(p.s.comps.complexes, ct)
	return ct, nil
}

func (p *docParser) derivation(e xmldom.Element, raw *rawComplex) error {
	switch string(e.LocalName()) {
	case "extension":
		raw.derivation = ByExtension
	case "restriction":
		raw.derivation = ByRestriction
	default:
		return fmt.Errorf("%s: expected extension or restriction, got %s", p.where(e), e.LocalName())
	}
	var err error
	if raw.base, err = p.qname(e, attr(e, "base")); err != nil {
		return err
	}
	for _, c := range xsChildren(e) {
		switch local := string(c.LocalName()); local {
		case "sequence", "choice", "all", "group":
			if raw.particle, err = p.particle(c); err != nil {
				return err
			}
		case "attribute", "attributeGroup", "anyAttribute":
			if err := p.attributeItem(c, &raw.attrs, &raw.attrGroups, &raw.anyAttr); err != nil {
				return err
			}
		case "simpleType":
			if raw.inlineBase, err = p.simpleType(c, QName{}); err != nil {
				return err
			}
		default:
			if raw.facets, err = parseFacet(local, attr(c, "value"), raw.facets); err != nil {
				return fmt.Errorf("%s: %w", p.where(c), err)
			}
		}
	}
	return nil
}

func (p *docParser) attributeItem(e xmldom.Element, attrs *[]attrRef, groups *[]QName, wildcard **Wildcard) error {
	switch string(e.LocalName()) {
	case "attribute":
		ref, err := p.attribute(e, false)
		if err != nil {
			return err
		}
		*attrs = append(*attrs, ref)
	case "attributeGroup":
		q, err := p.qname(e, attr(e, "ref"))
		if err != nil {
			return err
		}
		*groups = append(*groups, q)
	case "anyAttribute":
		*wildcard = newWildcard(attr(e, "namespace"), attr(e, "processContents"), p.tns)
	}
	return nil
}

func (p *docParser) attribute(e xmldom.Element, global bool) (attrRef, error) {
	ref := attrRef{def: optAttr(e, "default"), fixed: optAttr(e, "fixed")}
	switch attr(e, "use") {
	case "required":
		ref.use = Required
	case "prohibited":
		ref.use = Prohibited
	}
	if r := attr(e, "ref"); r != "" && !global {
		q, err := p.qname(e, r)
		if err != nil {
			return ref, err
		}
		ref.ref = q
		return ref, nil
	}
	name := attr(e, "name")
	if name == "" {
		return ref, fmt.Errorf("%s: attribute declaration without a name", p.where(e))
	}
	decl := &AttributeDecl{Name: QName{Local: name}}
	switch form := attr(e, "form"); {
	case global, form == "qualified", form == "" && p.attrQualified:
		decl.Name.Namespace = p.tns
	}
	var err error
	if decl.TypeName, err = p.qname(e, attr(e, "type")); err != nil {
		return ref, err
	}
	for _, c := range xsChildren(e) {
		if string(c.LocalName()) == "simpleType" {
			if decl.Type, err = p.simpleType(c, QName{}); err != nil {
				return ref, err
			}
		}
	}
	if global {
		decl.Default, decl.Fixed = ref.def, ref.fixed
	}
	ref.decl = decl
	p.s.comps.attributes = append(p.s.comps.attributes, decl)
	return ref, nil
}

func (p *docParser) attributeGroup(e xmldom.Element) (*AttributeGroup, error) {
	g := &AttributeGroup{Name: QName{p.tns, attr(e, "name")}}
	for _, c := range xsChildren(e) {
		if err := p.attributeItem(c, &g.refs, &g.groups, &g.AnyAttribute); err != nil {
			return nil, err
		}
	}
	return g, nil
}
