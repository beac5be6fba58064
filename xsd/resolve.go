package xsd

import "fmt"

// AnyType is xs:anyType, the ur-type: mixed content with any children and
// any attributes, both laxly assessed.
var AnyType = &ComplexType{
	Name:         QName{XSDNamespace, "anyType"},
	Mixed:        true,
	Content:      MixedContent,
	AnyAttribute: &Wildcard{Mode: "##any", ProcessContents: Lax, MinOccur: 1, MaxOccur: 1},
}

func init() {
	AnyType.Particle = &Wildcard{Mode: "##any", ProcessContents: Lax, MinOccur: 0, MaxOccur: Unbounded}
	m, err := compileModel(AnyType.Particle)
	if err != nil {
		panic(err)
	}
	AnyType.model = m
}

// lookup finds name in m. Unprefixed references fall back to the target
// namespace so that schemas without a default namespace declaration still
// resolve their own components.
func lookup[T any](m map[QName]T, name QName, tns string) (T, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	if name.Namespace == "" && tns != "" {
		v, ok := m[QName{tns, name.Local}]
		return v, ok
	}
	var zero T
	return zero, false
}

// LookupType returns the named type, including built-ins and xs:anyType.
func (s *Schema) LookupType(name QName) Type {
	if name.Namespace == XSDNamespace {
		if name.Local == "anyType" {
			return AnyType
		}
		if st := builtinSimple[name.Local]; st != nil {
			return st
		}
		return nil
	}
	if t, ok := lookup(s.Types, name, s.TargetNamespace); ok {
		return t
	}
	return nil
}

type resolver struct {
	s         *Schema
	simples   map[*SimpleType]bool
	complexes map[*ComplexType]bool
	elements  map[*ElementDecl]bool
	groups    map[*AttributeGroup]bool
	xmlAttrs  map[string]*AttributeDecl
}

// resolve binds every reference collected during parsing and compiles the
// content models. It runs once, after all documents of a schema are parsed.
func (s *Schema) resolve() error {
	r := &resolver{
		s:         s,
		simples:   make(map[*SimpleType]bool),
		complexes: make(map[*ComplexType]bool),
		elements:  make(map[*ElementDecl]bool),
		groups:    make(map[*AttributeGroup]bool),
		xmlAttrs:  make(map[string]*AttributeDecl),
	}
	for _, st := range s.comps.simples {
		if err := r.simple(st); err != nil {
			return err
		}
	}
	for _, a := range s.comps.attributes {
		if err := r.attribute(a); err != nil {
			return err
		}
	}
	for _, g := range s.AttributeGroups {
		if err := r.attributeGroup(g); err != nil {
			return err
		}
	}
	for _, gr := range s.comps.groupRefs {
		g, ok := lookup(s.Groups, gr.Ref, s.TargetNamespace)
		if !ok {
			return fmt.Errorf("group %s not found", gr.Ref)
		}
		gr.Group = g
	}
	for _, ep := range s.comps.elementRefs {
		decl, ok := lookup(s.Elements, ep.Ref, s.TargetNamespace)
		if !ok {
			return fmt.Errorf("element %s not found", ep.Ref)
		}
		ep.Decl = decl
	}
	for _, ct := range s.comps.complexes {
		if err := r.complexType(ct); err != nil {
			return err
		}
	}
	for _, e := range s.comps.elements {
		if err := r.elementType(e); err != nil {
			return err
		}
	}
	for _, e := range s.comps.elements {
		if !e.Global || e.SubstitutionGroup.IsZero() {
			continue
		}
		head, _ := lookup(s.Elements, e.SubstitutionGroup, s.TargetNamespace)
		s.SubstitutionGroups[head.Name] = append(s.SubstitutionGroups[head.Name], e.Name)
	}
	if err := r.keyrefs(); err != nil {
		return err
	}
	for _, ct := range s.comps.complexes {
		if ct.Content == SimpleContent {
			continue
		}
		m, err := compileModel(ct.Particle)
		if err != nil {
			return fmt.Errorf("complex type %s: %w", typeLabel(ct), err)
		}
		ct.model = m
	}
	return nil
}

func typeLabel(ct *ComplexType) string {
	if ct.Name.IsZero() {
		return "(anonymous)"
	}
	return ct.Name.String()
}

func (r *resolver) simpleRef(name QName) (*SimpleType, error) {
	if name.IsZero() {
		return builtinSimple["anySimpleType"], nil
	}
	switch t := r.s.LookupType(name).(type) {
	case *SimpleType:
		return t, nil
	case *ComplexType:
		return nil, fmt.Errorf("type %s is not a simple type", name)
	}
	return nil, fmt.Errorf("type %s not found", name)
}

func (r *resolver) simple(st *SimpleType) error {
	if st == nil || st.builtin != nil {
		return nil
	}
	if done, seen := r.simples[st]; seen {
		if !done {
			return fmt.Errorf("simple type %s is derived from itself", st.Name)
		}
		return nil
	}
	r.simples[st] = false
	var err error
	switch st.Variety {
	case Atomic:
		if st.Base == nil {
			if st.Base, err = r.simpleRef(st.BaseName); err != nil {
				return err
			}
		}
		if err := r.simple(st.Base); err != nil {
			return err
		}
		// a restriction of a list or union keeps its base's variety
		if st.Base.Variety != Atomic {
			st.Variety = st.Base.Variety
		}
	case List:
		if st.ItemType == nil {
			if st.ItemType, err = r.simpleRef(st.ItemTypeName); err != nil {
				return err
			}
		}
		if err := r.simple(st.ItemType); err != nil {
			return err
		}
	case Union:
		named := make([]*SimpleType, 0, len(st.MemberNames)+len(st.Members))
		for _, name := range st.MemberNames {
			m, err := r.simpleRef(name)
			if err != nil {
				return err
			}
			named = append(named, m)
		}
		st.Members = append(named, st.Members...)
		for _, m := range st.Members {
			if err := r.simple(m); err != nil {
				return err
			}
		}
	}
	r.simples[st] = true
	return nil
}

func (r *resolver) attribute(a *AttributeDecl) error {
	if a.Type != nil {
		return r.simple(a.Type)
	}
	t, err := r.simpleRef(a.TypeName)
	if err != nil {
		return fmt.Errorf("attribute %s: %w", a.Name, err)
	}
	a.Type = t
	return r.simple(t)
}

// globalAttribute resolves an attribute ref. Attributes in the xml:
// namespace are predeclared.
func (r *resolver) globalAttribute(name QName) (*AttributeDecl, error) {
	if name.Namespace == XMLNamespace {
		if a := r.xmlAttrs[name.Local]; a != nil {
			return a, nil
		}
		types := map[string]string{"lang": "language", "space": "NCName", "base": "anyURI", "id": "ID"}
		t, ok := types[name.Local]
		if !ok {
			return nil, fmt.Errorf("attribute %s not found", name)
		}
		a := &AttributeDecl{Name: name, TypeName: QName{XSDNamespace, t}, Type: builtinSimple[t]}
		r.xmlAttrs[name.Local] = a
		return a, nil
	}
	a, ok := lookup(r.s.Attributes, name, r.s.TargetNamespace)
	if !ok {
		return nil, fmt.Errorf("attribute %s not found", name)
	}
	return a, nil
}

func (r *resolver) attributeUse(ref attrRef) (*AttributeUse, error) {
	au := &AttributeUse{Decl: ref.decl, Use: ref.use, Default: ref.def, Fixed: ref.fixed}
	if ref.decl != nil {
		return au, nil
	}
	decl, err := r.globalAttribute(ref.ref)
	if err != nil {
		return nil, err
	}
	au.Decl = decl
	if au.Default == nil {
		au.Default = decl.Default
	}
	if au.Fixed == nil {
		au.Fixed = decl.Fixed
	}
	return au, nil
}

func (r *resolver) attributeGroup(g *AttributeGroup) error {
	if g.resolved {
		return nil
	}
	if r.groups[g] {
		return fmt.Errorf("attribute group %s references itself", g.Name)
	}
	r.groups[g] = true
	defer delete(r.groups, g)
	uses, wildcard, err := r.attributeSet(g.refs, g.groups, g.AnyAttribute)
	if err != nil {
		return fmt.Errorf("attribute group %s: %w", g.Name, err)
	}
	g.Attributes, g.AnyAttribute = uses, wildcard
	g.resolved = true
	return nil
}

// attributeSet flattens local attributes and attribute group references
// into one list of uses.
func (r *resolver) attributeSet(refs []attrRef, groups []QName, wildcard *Wildcard) ([]*AttributeUse, *Wildcard, error) {
	var uses []*AttributeUse
	for _, ref := range refs {
		au, err := r.attributeUse(ref)
		if err != nil {
			return nil, nil, err
		}
		uses = append(uses, au)
	}
	for _, name := range groups {
		g, ok := lookup(r.s.AttributeGroups, name, r.s.TargetNamespace)
		if !ok {
			return nil, nil, fmt.Errorf("attribute group %s not found", name)
		}
		if err := r.attributeGroup(g); err != nil {
			return nil, nil, err
		}
		uses = append(uses, g.Attributes...)
		wildcard = wildcard.union(g.AnyAttribute)
	}
	return uses, wildcard, nil
}

func (r *resolver) complexType(ct *ComplexType) error {
	if ct.raw == nil {
		return nil
	}
	if r.complexes[ct] {
		return fmt.Errorf("complex type %s is derived from itself", typeLabel(ct))
	}
	r.complexes[ct] = true
	defer delete(r.complexes, ct)

	raw := ct.raw
	ct.Mixed = raw.mixed
	ct.Derivation = raw.derivation
	ct.BaseName = raw.base
	ct.Base = AnyType

	var base *ComplexType
	if raw.derivation != NoDerivation {
		t := r.s.LookupType(raw.base)
		if t == nil {
			return fmt.Errorf("complex type %s: base type %s not found", typeLabel(ct), raw.base)
		}
		ct.Base = t
		switch b := t.(type) {
		case *ComplexType:
			if err := r.complexType(b); err != nil {
				return err
			}
			base = b
		case *SimpleType:
			if err := r.simple(b); err != nil {
				return err
			}
		}
	}

	if raw.simple {
		ct.Content = SimpleContent
		switch b := ct.Base.(type) {
		case *SimpleType:
			ct.ValueType = b
		case *ComplexType:
			ct.ValueType = b.ValueType
		}
		if ct.ValueType == nil {
			ct.ValueType = builtinSimple["anySimpleType"]
		}
		if raw.derivation == ByRestriction && (len(raw.facets) > 0 || raw.inlineBase != nil) {
			vb := ct.ValueType
			if raw.inlineBase != nil {
				if err := r.simple(raw.inlineBase); err != nil {
					return err
				}
				vb = raw.inlineBase
			}
			ct.ValueType = &SimpleType{Variety: vb.Variety, BaseName: vb.Name, Base: vb, Facets: raw.facets}
		}
	} else {
		particle := raw.particle
		if raw.derivation == ByExtension && base != nil && !isEmptyParticle(base.Particle) {
			if isEmptyParticle(particle) {
				particle = base.Particle
			} else {
				particle = &ModelGroup{Kind: Sequence, Particles: []Particle{base.Particle, particle}, MinOccur: 1, MaxOccur: 1}
			}
			ct.Mixed = ct.Mixed || base.Mixed
		}
		ct.Particle = particle
		switch {
		case ct.Mixed:
			ct.Content = MixedContent
		case isEmptyParticle(particle):
			ct.Content = EmptyContent
		default:
			ct.Content = ElementOnly
		}
	}

	own, wildcard, err := r.attributeSet(raw.attrs, raw.attrGroups, raw.anyAttr)
	if err != nil {
		return fmt.Errorf("complex type %s: %w", typeLabel(ct), err)
	}
	var uses []*AttributeUse
	if base != nil && base != AnyType {
		uses = append(uses, base.Attributes...)
		if raw.derivation == ByExtension {
			wildcard = base.AnyAttribute.union(wildcard)
		}
	}
	for _, au := range own {
		replaced := false
		for i, prev := range uses {
			if prev.Decl.Name == au.Decl.Name {
				uses[i] = au
				replaced = true
				break
			}
		}
		if !replaced {
			uses = append(uses, au)
		}
	}
	for _, au := range uses {
		if au.Use != Prohibited {
			ct.Attributes = append(ct.Attributes, au)
		}
	}
	ct.AnyAttribute = wildcard
	ct.raw = nil
	return nil
}

// isEmptyParticle reports whether p can only match the empty sequence.
func isEmptyParticle(p Particle) bool {
	if p == nil {
		return true
	}
	if _, max := p.Occurs(); max == 0 {
		return true
	}
	switch t := p.(type) {
	case *ModelGroup:
		for _, c := range t.Particles {
			if !isEmptyParticle(c) {
				return false
			}
		}
		return true
	case *GroupRef:
		return t.Group == nil || isEmptyParticle(&ModelGroup{Particles: t.Group.Particles, MaxOccur: 1})
	}
	return false
}

func (r *resolver) elementType(e *ElementDecl) error {
	if done, seen := r.elements[e]; seen {
		if !done {
			return fmt.Errorf("element %s is in its own substitution group", e.Name)
		}
		return nil
	}
	r.elements[e] = false
	defer func() { r.elements[e] = true }()
	switch {
	case e.Type != nil:
	case !e.TypeName.IsZero():
		e.Type = r.s.LookupType(e.TypeName)
		if e.Type == nil {
			return fmt.Errorf("element %s: type %s not found", e.Name, e.TypeName)
		}
	case !e.SubstitutionGroup.IsZero():
		head, ok := lookup(r.s.Elements, e.SubstitutionGroup, r.s.TargetNamespace)
		if !ok {
			return fmt.Errorf("element %s: substitution group head %s not found", e.Name, e.SubstitutionGroup)
		}
		if err := r.elementType(head); err != nil {
			return err
		}
		e.Type = head.Type
	default:
		e.Type = AnyType
	}
	if !e.SubstitutionGroup.IsZero() {
		if _, ok := lookup(r.s.Elements, e.SubstitutionGroup, r.s.TargetNamespace); !ok {
			return fmt.Errorf("element %s: substitution group head %s not found", e.Name, e.SubstitutionGroup)
		}
	}
	return nil
}

// keyrefs checks that every keyref refers to a key or unique constraint
// and rewrites its Refer to the resolved name.
func (r *resolver) keyrefs() error {
	byName := make(map[QName]*IdentityConstraint)
	for _, ic := range r.s.comps.constraints {
		if ic.Kind != KeyRefConstraint {
			byName[ic.Name] = ic
		}
	}
	for _, ic := range r.s.comps.constraints {
		if ic.Kind != KeyRefConstraint {
			continue
		}
		target, ok := lookup(byName, ic.Refer, r.s.TargetNamespace)
		if !ok {
			return fmt.Errorf("keyref %s refers to unknown key %s", ic.Name, ic.Refer)
		}
		if len(target.fields) != len(ic.fields) {
			return fmt.Errorf("keyref %s has %d fields but %s has %d", ic.Name, len(ic.fields), target.Name, len(target.fields))
		}
		ic.Refer = target.Name
	}
	return nil
}
