package xsd

import (
	"fmt"
	"math/big"
	"strings"
)

// whitespace returns the effective whiteSpace facet of st.
func (st *SimpleType) whitespace() whitespace {
	if st.Variety != Atomic {
		return wsCollapse
	}
	for t := st; t != nil; t = t.Base {
		for _, f := range t.Facets {
			if ws, ok := f.(*whiteSpaceFacet); ok {
				return ws.ws
			}
		}
		if t.builtin != nil {
			return t.builtin.ws
		}
	}
	return wsPreserve
}

// Normalize applies the type's whiteSpace facet to a raw value.
func (st *SimpleType) Normalize(raw string) string {
	if st.Variety == Union {
		return raw
	}
	return normalize(raw, st.whitespace())
}

// ValidateValue checks a raw lexical value against the type. The returned
// error, when not nil, is a *valueError carrying the violated rule.
func (st *SimpleType) ValidateValue(raw string) error {
	if err := st.validate(raw); err != nil {
		return err
	}
	return nil
}

func (st *SimpleType) validate(raw string) *valueError {
	v := st.Normalize(raw)
	switch st.Variety {
	case List:
		item := st.listItemType()
		if item != nil {
			for _, tok := range strings.Fields(v) {
				if err := item.validate(tok); err != nil {
					return &valueError{code: CodeDatatypeList, msg: fmt.Sprintf("'%s' is not a valid value of the %s.", v, st.describe("list"))}
				}
			}
		}
	case Union:
		members := st.unionMembers()
		matched := len(members) == 0
		for _, m := range members {
			if m.validate(v) == nil {
				matched = true
				break
			}
		}
		if !matched {
			return &valueError{code: CodeDatatypeUnion, msg: fmt.Sprintf("'%s' is not a valid value of the %s.", v, st.describe("union"))}
		}
		v = normalize(v, wsCollapse)
	default:
		if b := st.Builtin(); b != nil && b.builtin.check != nil {
			if err := b.builtin.check(v); err != nil {
				return &valueError{code: CodeDatatype, msg: fmt.Sprintf("'%s' is not a valid value of the %s.", v, st.describe("atomic"))}
			}
			if err := checkIntegerBounds(v, b.builtin); err != nil {
				return &valueError{code: CodeDatatype, msg: fmt.Sprintf("'%s' is not a valid value of the %s.", v, st.describe("atomic"))}
			}
		}
	}
	return st.checkFacets(v)
}

// checkFacets applies the facets of every derivation step, most derived
// first, so the narrowest constraint is the one reported.
func (st *SimpleType) checkFacets(v string) *valueError {
	for t := st; t != nil; t = t.Base {
		for _, f := range t.Facets {
			if err := f.validate(v, st); err != nil {
				return err
			}
		}
		if t.builtin != nil {
			// built-in facets are covered by the lexical check
			break
		}
	}
	return nil
}

func (st *SimpleType) describe(variety string) string {
	if name := st.DisplayName(); name != "" {
		return fmt.Sprintf("%s type '%s'", variety, name)
	}
	return fmt.Sprintf("local %s type", variety)
}

func (st *SimpleType) listItemType() *SimpleType {
	for t := st; t != nil; t = t.Base {
		if t.ItemType != nil {
			return t.ItemType
		}
	}
	return nil
}

func (st *SimpleType) unionMembers() []*SimpleType {
	for t := st; t != nil; t = t.Base {
		if len(t.Members) > 0 {
			return t.Members
		}
	}
	return nil
}

func checkIntegerBounds(v string, b *builtinType) error {
	if b.min == nil && b.max == nil {
		return nil
	}
	n, ok := parseBigInt(v)
	if !ok {
		return fmt.Errorf("invalid integer")
	}
	if b.min != nil && n.Cmp(b.min) < 0 {
		return fmt.Errorf("below minimum")
	}
	if b.max != nil && n.Cmp(b.max) > 0 {
		return fmt.Errorf("above maximum")
	}
	return nil
}

// IsID reports whether values of the type are xs:ID values.
func (st *SimpleType) IsID() bool { return st.derivesFromBuiltin("ID") }

// IsIDREF reports whether values of the type are xs:IDREF or xs:IDREFS.
func (st *SimpleType) IsIDREF() bool {
	if st.derivesFromBuiltin("IDREF") {
		return true
	}
	if item := st.listItemType(); item != nil {
		return item.derivesFromBuiltin("IDREF")
	}
	return false
}

func (st *SimpleType) derivesFromBuiltin(name string) bool {
	for t := st; t != nil; t = t.Base {
		if t.Name.Namespace == XSDNamespace && t.Name.Local == name {
			return true
		}
	}
	return false
}

// DerivesFrom reports whether t is base or derived from it.
func DerivesFrom(t, base Type) bool {
	if base == nil {
		return false
	}
	if ct, ok := base.(*ComplexType); ok && ct == AnyType {
		return true
	}
	for cur := t; cur != nil; {
		if cur == base {
			return true
		}
		switch c := cur.(type) {
		case *ComplexType:
			if c.Base == nil {
				return false
			}
			cur = c.Base
		case *SimpleType:
			if c.Base == nil {
				return false
			}
			cur = c.Base
		default:
			return false
		}
	}
	return false
}

func parseBigInt(v string) (*big.Int, bool) {
	return new(big.Int).SetString(v, 10)
}
