package xsd

import (
	"fmt"
	"strings"
)

// Attr is an attribute of a start tag, with its namespace resolved.
type Attr struct {
	Name  QName
	Value string
}

// Resolver maps a namespace prefix in scope at the current element to its
// URI. It is used for xsi:type values.
type Resolver func(prefix string) (string, bool)

// Validator checks a stream of element events against a Schema. Events
// must be well nested: every StartElement is matched by an EndElement, and
// EndDocument is called once after the root element ends.
type Validator struct {
	schema *Schema
	report func(Violation)

	stack  []*frame
	count  int
	ids    map[string]bool
	idrefs []idref
	tables *identityTables
}

type frame struct {
	name QName
	pos  Position
	decl *ElementDecl
	typ  Type
	run  *modelRun
	text strings.Builder
	node *node

	children    bool
	nilled      bool
	skip        bool
	modelFailed bool
	charFailed  bool
}

type idref struct {
	value string
	elem  QName
	attr  QName
	pos   Position
}

// NewValidator returns a Validator that passes each violation to report.
func NewValidator(s *Schema, report func(Violation)) *Validator {
	return &Validator{
		schema: s,
		report: report,
		ids:    make(map[string]bool),
		tables: newIdentityTables(),
	}
}

// Errors returns the number of violations reported so far.
func (v *Validator) Errors() int { return v.count }

// Depth returns the number of open elements.
func (v *Validator) Depth() int { return len(v.stack) }

func (v *Validator) emit(vi Violation) {
	v.count++
	if v.report != nil {
		v.report(vi)
	}
}

func (v *Validator) elementError(code ErrorCode, name QName, pos Position, format string, args ...any) {
	v.emit(Violation{
		Code:     code,
		Element:  name,
		Position: pos,
		Message:  elementPrefix(name) + fmt.Sprintf(format, args...),
	})
}

func (v *Validator) top() *frame {
	if len(v.stack) == 0 {
		return nil
	}
	return v.stack[len(v.stack)-1]
}

// StartElement processes a start tag.
func (v *Validator) StartElement(name QName, attrs []Attr, pos Position, resolve Resolver) {
	parent := v.top()
	f := &frame{name: name, pos: pos}
	v.stack = append(v.stack, f)

	if parent != nil && parent.node != nil {
		f.node = captureNode(name, attrs, pos)
		parent.node.children = append(parent.node.children, f.node)
	}

	decl, typ, ok := v.childDecl(parent, f)
	if !ok {
		f.skip = true
		return
	}
	f.decl = decl
	if decl != nil {
		if decl.Abstract {
			v.elementError(CodeAbstractElement, name, pos, "The element declaration is abstract.")
		}
		typ = decl.Type
	}
	typ = v.xsiType(f, typ, attrs, resolve)
	if ct, isComplex := typ.(*ComplexType); isComplex && ct.Abstract {
		v.elementError(CodeAbstractType, name, pos, "The type definition is abstract.")
	}
	f.typ = typ
	if ct, isComplex := typ.(*ComplexType); isComplex && ct.model != nil {
		f.run = ct.model.run(v.schema)
	}
	v.xsiNil(f, attrs)
	v.checkAttributes(f, attrs)

	if decl != nil && len(decl.Constraints) > 0 && f.node == nil {
		f.node = captureNode(name, attrs, pos)
	}
}

func captureNode(name QName, attrs []Attr, pos Position) *node {
	n := &node{name: name, pos: pos, attrs: make(map[QName]string, len(attrs))}
	for _, a := range attrs {
		n.attrs[a.Name] = a.Value
	}
	return n
}

// childDecl finds the declaration governing f from its parent's content
// model. ok is false when the element's subtree is not assessed.
func (v *Validator) childDecl(parent, f *frame) (*ElementDecl, Type, bool) {
	if parent == nil {
		decl := v.schema.Global(f.name)
		if decl == nil {
			v.elementError(CodeNoDeclaration, f.name, f.pos, "No matching global declaration available for the validation root.")
			return nil, nil, false
		}
		return decl, nil, true
	}
	if parent.skip {
		return nil, nil, false
	}
	parent.children = true
	if parent.nilled {
		v.elementError(CodeNilledContent, parent.name, parent.pos, "Element content is not allowed, because the element is 'nilled'.")
		return nil, nil, false
	}
	switch t := parent.typ.(type) {
	case *SimpleType:
		if !parent.modelFailed {
			parent.modelFailed = true
			v.elementError(CodeSimpleContent, parent.name, parent.pos, "Element content is not allowed, because the type definition is simple.")
		}
		return nil, nil, false
	case *ComplexType:
		if t.Content == SimpleContent {
			if !parent.modelFailed {
				parent.modelFailed = true
				v.elementError(CodeSimpleContent, parent.name, parent.pos, "Element content is not allowed, because the content type is a simple type definition.")
			}
			return nil, nil, false
		}
	}
	if parent.modelFailed || parent.run == nil {
		// after a content model error the remaining siblings are
		// assessed laxly
		if decl := v.schema.Global(f.name); decl != nil {
			return decl, nil, true
		}
		return nil, nil, false
	}
	decl, wild, matched := parent.run.step(f.name)
	if !matched {
		parent.modelFailed = true
		expected := parent.run.expected()
		msg := "This element is not expected."
		if phrase := expectedPhrase(expected); phrase != "" {
			msg += " " + phrase
		}
		v.emit(Violation{
			Code:     CodeUnexpectedElement,
			Element:  f.name,
			Position: f.pos,
			Message:  elementPrefix(f.name) + msg,
			Expected: expected,
			Actual:   f.name.String(),
		})
		return nil, nil, false
	}
	if wild == nil {
		return decl, nil, true
	}
	switch wild.ProcessContents {
	case Skip:
		return nil, nil, false
	case Lax:
		if decl := v.schema.Global(f.name); decl != nil {
			return decl, nil, true
		}
		return nil, AnyType, true
	}
	if decl := v.schema.Global(f.name); decl != nil {
		return decl, nil, true
	}
	v.elementError(CodeWildcard, f.name, f.pos, "No matching global element declaration available, but demanded by the strict wildcard.")
	return nil, nil, false
}

func (v *Validator) xsiType(f *frame, declared Type, attrs []Attr, resolve Resolver) Type {
	value, ok := findAttr(attrs, QName{XSINamespace, "type"})
	if !ok {
		return declared
	}
	value = strings.TrimSpace(value)
	prefix, local, found := strings.Cut(value, ":")
	if !found {
		prefix, local = "", value
	}
	ns := ""
	if resolve != nil {
		var bound bool
		if ns, bound = resolve(prefix); !bound && prefix != "" {
			v.elementError(CodeXsiTypeInvalid, f.name, f.pos, "The value '%s' of the xsi:type attribute is not a valid QName.", value)
			return declared
		}
	}
	t := v.schema.LookupType(QName{ns, local})
	if t == nil {
		v.elementError(CodeXsiTypeUnknown, f.name, f.pos, "The QName value '%s' of the xsi:type attribute does not resolve to a type definition.", value)
		return declared
	}
	if declared != nil && !DerivesFrom(t, declared) {
		v.elementError(CodeXsiTypeNotDerived, f.name, f.pos, "The type definition '%s', specified by xsi:type, is blocked or not validly derived from the type definition of the element declaration.", value)
		return declared
	}
	return t
}

func (v *Validator) xsiNil(f *frame, attrs []Attr) {
	value, ok := findAttr(attrs, QName{XSINamespace, "nil"})
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	if value != "true" && value != "1" {
		return
	}
	if f.decl == nil || !f.decl.Nillable {
		v.elementError(CodeNotNillable, f.name, f.pos, "The element is not 'nillable'.")
		return
	}
	if f.decl.Fixed != nil {
		v.elementError(CodeNilledFixed, f.name, f.pos, "The element cannot be 'nilled', because there is a fixed value constraint defined for it.")
	}
	f.nilled = true
}

func findAttr(attrs []Attr, name QName) (string, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (v *Validator) checkAttributes(f *frame, attrs []Attr) {
	ct, _ := f.typ.(*ComplexType)
	seen := make(map[QName]bool, len(attrs))
	for _, a := range attrs {
		if a.Name.Namespace == XSINamespace {
			continue
		}
		seen[a.Name] = true
		var use *AttributeUse
		if ct != nil {
			use = ct.Attribute(a.Name)
		}
		if use != nil {
			v.checkAttrValue(f, a, use.Decl.Type, use.Fixed)
			continue
		}
		if ct != nil && ct.AnyAttribute != nil && ct.AnyAttribute.Allows(a.Name.Namespace) {
			if ct.AnyAttribute.ProcessContents == Skip {
				continue
			}
			if decl := v.schema.Attributes[a.Name]; decl != nil {
				v.checkAttrValue(f, a, decl.Type, decl.Fixed)
			} else if ct.AnyAttribute.ProcessContents == Strict {
				v.emit(Violation{
					Code:      CodeWildcard,
					Element:   f.name,
					Attribute: a.Name.String(),
					Position:  f.pos,
					Message:   attributePrefix(f.name, a.Name) + "No matching global attribute declaration available, but demanded by the strict wildcard.",
				})
			}
			continue
		}
		v.emit(Violation{
			Code:      CodeAttrNotAllowed,
			Element:   f.name,
			Attribute: a.Name.String(),
			Position:  f.pos,
			Message:   attributePrefix(f.name, a.Name) + "The attribute '" + a.Name.String() + "' is not allowed.",
		})
	}
	if ct == nil {
		return
	}
	for _, use := range ct.Attributes {
		if use.Use != Required || seen[use.Decl.Name] {
			continue
		}
		v.emit(Violation{
			Code:      CodeAttrMissing,
			Element:   f.name,
			Attribute: use.Decl.Name.String(),
			Position:  f.pos,
			Message:   elementPrefix(f.name) + "The attribute '" + use.Decl.Name.String() + "' is required but missing.",
		})
	}
}

func (v *Validator) checkAttrValue(f *frame, a Attr, t *SimpleType, fixed *string) {
	if t == nil {
		return
	}
	attrError := func(code ErrorCode, msg string) {
		v.emit(Violation{
			Code:      code,
			Element:   f.name,
			Attribute: a.Name.String(),
			Position:  f.pos,
			Message:   attributePrefix(f.name, a.Name) + msg,
			Actual:    a.Value,
		})
	}
	if err := t.validate(a.Value); err != nil {
		attrError(err.code, err.msg)
		return
	}
	if fixed != nil && t.Normalize(a.Value) != t.Normalize(*fixed) {
		attrError(CodeAttributeFixed, fmt.Sprintf("The value '%s' does not match the fixed value constraint '%s'.", a.Value, *fixed))
		return
	}
	v.trackIDs(f, a.Name, a.Value, t, attrError)
}

// trackIDs records ID values and queues IDREFs for EndDocument.
func (v *Validator) trackIDs(f *frame, attr QName, value string, t *SimpleType, fail func(ErrorCode, string)) {
	switch {
	case t.IsID():
		id := t.Normalize(value)
		if v.ids[id] {
			fail(CodeDuplicateID, fmt.Sprintf("'%s' is not a valid value of the atomic type 'xs:ID'.", id))
			return
		}
		v.ids[id] = true
	case t.IsIDREF():
		for _, ref := range strings.Fields(value) {
			v.idrefs = append(v.idrefs, idref{value: ref, elem: f.name, attr: attr, pos: f.pos})
		}
	}
}

// CharData processes text content of the current element.
func (v *Validator) CharData(text string) {
	f := v.top()
	if f == nil {
		return
	}
	if f.node != nil {
		f.node.text.WriteString(text)
	}
	if f.skip {
		return
	}
	f.text.WriteString(text)
	if f.charFailed || strings.TrimSpace(text) == "" {
		return
	}
	if f.nilled {
		f.charFailed = true
		v.elementError(CodeNilledContent, f.name, f.pos, "Character content is not allowed, because the element is 'nilled'.")
		return
	}
	ct, ok := f.typ.(*ComplexType)
	if !ok {
		return
	}
	switch ct.Content {
	case EmptyContent:
		f.charFailed = true
		v.elementError(CodeEmptyContent, f.name, f.pos, "Character content is not allowed, because the content type is empty.")
	case ElementOnly:
		f.charFailed = true
		v.elementError(CodeCharNotAllowed, f.name, f.pos, "Character content other than whitespace is not allowed because the content type is 'element-only'.")
	}
}

// EndElement closes the current element.
func (v *Validator) EndElement() {
	f := v.top()
	if f == nil {
		return
	}
	v.stack = v.stack[:len(v.stack)-1]
	defer func() {
		if f.decl != nil && len(f.decl.Constraints) > 0 && f.node != nil {
			v.tables.evaluate(f.decl, f.node, v.emit)
		}
	}()
	if f.skip || f.nilled {
		return
	}
	switch t := f.typ.(type) {
	case *SimpleType:
		v.checkElementValue(f, t)
	case *ComplexType:
		if t.Content == SimpleContent {
			v.checkElementValue(f, t.ValueType)
			return
		}
		if f.modelFailed || f.run == nil || f.run.accepting() {
			return
		}
		expected := f.run.expected()
		msg := "Missing child element(s)."
		if phrase := expectedPhrase(expected); phrase != "" {
			msg += " " + phrase
		}
		v.emit(Violation{
			Code:     CodeMissingChild,
			Element:  f.name,
			Position: f.pos,
			Message:  elementPrefix(f.name) + msg,
			Expected: expected,
		})
	}
}

func (v *Validator) checkElementValue(f *frame, t *SimpleType) {
	if t == nil || f.modelFailed {
		return
	}
	text := f.text.String()
	if f.decl != nil && text == "" && !f.children {
		switch {
		case f.decl.Fixed != nil:
			text = *f.decl.Fixed
		case f.decl.Default != nil:
			text = *f.decl.Default
		}
	}
	if err := t.validate(text); err != nil {
		v.emit(Violation{
			Code:     err.code,
			Element:  f.name,
			Position: f.pos,
			Message:  elementPrefix(f.name) + err.msg,
			Actual:   text,
		})
		return
	}
	if f.decl != nil && f.decl.Fixed != nil && t.Normalize(text) != t.Normalize(*f.decl.Fixed) {
		v.elementError(CodeElementFixed, f.name, f.pos, "The value '%s' does not match the fixed value constraint '%s'.", text, *f.decl.Fixed)
		return
	}
	v.trackIDs(f, QName{}, text, t, func(code ErrorCode, msg string) {
		v.emit(Violation{Code: code, Element: f.name, Position: f.pos, Message: elementPrefix(f.name) + msg, Actual: text})
	})
}

// EndDocument runs the checks that need the whole document: keyref
// resolution and IDREF targets.
func (v *Validator) EndDocument() {
	for len(v.stack) > 0 {
		v.EndElement()
	}
	v.tables.resolveKeyrefs(v.emit)
	for _, ref := range v.idrefs {
		if v.ids[ref.value] {
			continue
		}
		msg := elementPrefix(ref.elem)
		if !ref.attr.IsZero() {
			msg = attributePrefix(ref.elem, ref.attr)
		}
		v.emit(Violation{
			Code:      CodeDanglingIDREF,
			Element:   ref.elem,
			Attribute: ref.attr.String(),
			Position:  ref.pos,
			Message:   msg + fmt.Sprintf("References an unknown ID '%s'.", ref.value),
			Actual:    ref.value,
		})
	}
	v.idrefs = nil
}

// ValidateValue checks a lexical value against the named built-in or
// schema simple type.
func (s *Schema) ValidateValue(typeName QName, value string) error {
	st, ok := s.LookupType(typeName).(*SimpleType)
	if !ok {
		return fmt.Errorf("type %s is not a simple type", typeName)
	}
	return st.ValidateValue(value)
}
