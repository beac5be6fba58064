// Package xsd compiles W3C XML Schema 1.0 documents and validates XML
// instance documents against them as a stream of element events.
package xsd

import (
	"fmt"
	"sort"
)

const (
	// XSDNamespace is the XML Schema namespace.
	XSDNamespace = "http://www.w3.org/2001/XMLSchema"
	// XSINamespace is the XML Schema instance namespace (xsi:type, xsi:nil).
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"
	// XMLNamespace is bound to the reserved xml: prefix.
	XMLNamespace = "http://www.w3.org/XML/1998/namespace"

	xmlnsNamespace = "http://www.w3.org/2000/xmlns/"
)

// Unbounded is the MaxOccurs value of maxOccurs="unbounded".
const Unbounded = -1

// QName is a namespace qualified name.
type QName struct {
	Namespace string
	Local     string
}

// String returns {ns}local, or local when the namespace is empty.
func (q QName) String() string {
	if q.Namespace == "" {
		return q.Local
	}
	return fmt.Sprintf("{%s}%s", q.Namespace, q.Local)
}

// IsZero reports whether the name is unset.
func (q QName) IsZero() bool { return q.Local == "" }

// Schema is a compiled set of schema components. One Schema holds the main
// document plus everything reached through xs:include and xs:import.
type Schema struct {
	TargetNamespace string
	Location        string

	Elements        map[QName]*ElementDecl
	Types           map[QName]Type
	Attributes      map[QName]*AttributeDecl
	AttributeGroups map[QName]*AttributeGroup
	Groups          map[QName]*ModelGroup

	// SubstitutionGroups maps a head element to its direct members.
	SubstitutionGroups map[QName][]QName

	Imports  []*Import
	Includes []string

	comps components
}

// components tracks everything parsed, including anonymous definitions,
// so references can be resolved once all documents are loaded.
type components struct {
	elements    []*ElementDecl
	elementRefs []*ElementParticle
	groupRefs   []*GroupRef
	simples     []*SimpleType
	complexes   []*ComplexType
	attributes  []*AttributeDecl
	constraints []*IdentityConstraint
}

// Import is an xs:import directive.
type Import struct {
	Namespace      string
	SchemaLocation string
}

func newSchema() *Schema {
	return &Schema{
		Elements:           make(map[QName]*ElementDecl),
		Types:              make(map[QName]Type),
		Attributes:         make(map[QName]*AttributeDecl),
		AttributeGroups:    make(map[QName]*AttributeGroup),
		Groups:             make(map[QName]*ModelGroup),
		SubstitutionGroups: make(map[QName][]QName),
	}
}

// Type is implemented by *SimpleType and *ComplexType.
type Type interface {
	TypeName() QName
}

// ElementDecl is a global or local element declaration.
type ElementDecl struct {
	Name              QName
	TypeName          QName
	Type              Type
	Nillable          bool
	Abstract          bool
	Global            bool
	SubstitutionGroup QName
	Default           *string
	Fixed             *string
	Constraints       []*IdentityConstraint
}

// Variety distinguishes atomic, list and union simple types.
type Variety int

const (
	Atomic Variety = iota
	List
	Union
)

// SimpleType is a built-in or user defined simple type.
type SimpleType struct {
	Name    QName
	Variety Variety

	BaseName QName
	Base     *SimpleType
	Facets   []Facet

	ItemTypeName QName
	ItemType     *SimpleType

	MemberNames []QName
	Members     []*SimpleType

	builtin *builtinType
}

func (st *SimpleType) TypeName() QName { return st.Name }

// Builtin returns the built-in primitive or derived type this type is
// ultimately restricted from, or nil for list and union types.
func (st *SimpleType) Builtin() *SimpleType {
	for t := st; t != nil; t = t.Base {
		if t.builtin != nil {
			return t
		}
	}
	return nil
}

// DisplayName is the name used in messages: xs:float for built-ins,
// the local name for named types and the empty string for anonymous ones.
func (st *SimpleType) DisplayName() string {
	if st.Name.Namespace == XSDNamespace {
		return "xs:" + st.Name.Local
	}
	return st.Name.Local
}

// ContentKind is the {content type} variety of a complex type.
type ContentKind int

const (
	EmptyContent ContentKind = iota
	SimpleContent
	ElementOnly
	MixedContent
)

// Derivation records how a complex type was derived from its base.
type Derivation int

const (
	NoDerivation Derivation = iota
	ByExtension
	ByRestriction
)

// ComplexType is a complex type definition after derivation has been applied.
type ComplexType struct {
	Name       QName
	Abstract   bool
	Mixed      bool
	Content    ContentKind
	BaseName   QName
	Base       Type
	Derivation Derivation

	// Particle is the effective content model; nil means empty.
	Particle Particle
	// ValueType is the simple type of simple content.
	ValueType *SimpleType

	Attributes   []*AttributeUse
	AnyAttribute *Wildcard

	raw   *rawComplex
	model *contentModel
}

func (ct *ComplexType) TypeName() QName { return ct.Name }

// Attribute returns the attribute use for name, or nil.
func (ct *ComplexType) Attribute(name QName) *AttributeUse {
	for _, au := range ct.Attributes {
		if au.Decl.Name == name {
			return au
		}
	}
	return nil
}

// Use is the use="" value of an attribute.
type Use int

const (
	Optional Use = iota
	Required
	Prohibited
)

// AttributeDecl is a global or local attribute declaration.
type AttributeDecl struct {
	Name     QName
	TypeName QName
	Type     *SimpleType
	Default  *string
	Fixed    *string
}

// AttributeUse ties a declaration to a complex type.
type AttributeUse struct {
	Decl    *AttributeDecl
	Use     Use
	Default *string
	Fixed   *string
}

// AttributeGroup is a named xs:attributeGroup.
type AttributeGroup struct {
	Name         QName
	Attributes   []*AttributeUse
	AnyAttribute *Wildcard

	refs     []attrRef
	groups   []QName
	resolved bool
}

// Particle is a term in a content model with its occurrence bounds.
type Particle interface {
	Occurs() (min, max int)
}

// ElementParticle is a local element declaration or an element ref.
type ElementParticle struct {
	Decl     *ElementDecl
	Ref      QName
	MinOccur int
	MaxOccur int
}

func (p *ElementParticle) Occurs() (int, int) { return p.MinOccur, p.MaxOccur }

// GroupKind is the compositor of a model group.
type GroupKind int

const (
	Sequence GroupKind = iota
	Choice
	All
)

func (k GroupKind) String() string {
	switch k {
	case Choice:
		return "choice"
	case All:
		return "all"
	}
	return "sequence"
}

// ModelGroup is xs:sequence, xs:choice or xs:all.
type ModelGroup struct {
	Name      QName
	Kind      GroupKind
	Particles []Particle
	MinOccur  int
	MaxOccur  int
}

func (g *ModelGroup) Occurs() (int, int) { return g.MinOccur, g.MaxOccur }

// GroupRef is a reference to a named model group.
type GroupRef struct {
	Ref      QName
	Group    *ModelGroup
	MinOccur int
	MaxOccur int
}

func (g *GroupRef) Occurs() (int, int) { return g.MinOccur, g.MaxOccur }

// Global returns the global element declaration for name.
func (s *Schema) Global(name QName) *ElementDecl {
	return s.Elements[name]
}

// Substitutes returns the element declaration that may appear in place of
// head under name, following substitution groups transitively. It returns
// nil when name is not in head's substitution group.
func (s *Schema) Substitutes(head *ElementDecl, name QName) *ElementDecl {
	if head == nil || !head.Global {
		return nil
	}
	seen := map[QName]bool{}
	queue := []QName{head.Name}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if seen[h] {
			continue
		}
		seen[h] = true
		for _, m := range s.SubstitutionGroups[h] {
			if m == name {
				return s.Elements[m]
			}
			queue = append(queue, m)
		}
	}
	return nil
}

// Summary lists the global components, sorted by name.
type Summary struct {
	TargetNamespace string
	Elements        []string
	Types           []string
	Groups          []string
	AttributeGroups []string
	Imports         []string
}

// Summarize returns a sorted listing of the schema's global components.
func (s *Schema) Summarize() Summary {
	sum := Summary{TargetNamespace: s.TargetNamespace}
	for n := range s.Elements {
		sum.Elements = append(sum.Elements, n.String())
	}
	for n, t := range s.Types {
		if st, ok := t.(*SimpleType); ok && st.builtin != nil {
			continue
		}
		sum.Types = append(sum.Types, n.String())
	}
	for n := range s.Groups {
		sum.Groups = append(sum.Groups, n.String())
	}
	for n := range s.AttributeGroups {
		sum.AttributeGroups = append(sum.AttributeGroups, n.String())
	}
	for _, imp := range s.Imports {
		sum.Imports = append(sum.Imports, imp.Namespace)
	}
	sort.Strings(sum.Elements)
	sort.Strings(sum.Types)
	sort.Strings(sum.Groups)
	sort.Strings(sum.AttributeGroups)
	return sum
}
