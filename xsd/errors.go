package xsd

import "fmt"

// ErrorCode identifies the validation rule a Violation breaks. Values follow
// the constraint names of XML Schema Part 1 (cvc-*) where one exists.
type ErrorCode string

const (
	CodeDatatype          ErrorCode = "cvc-datatype-valid.1.2.1"
	CodeDatatypeList      ErrorCode = "cvc-datatype-valid.1.2.2"
	CodeDatatypeUnion     ErrorCode = "cvc-datatype-valid.1.2.3"
	CodeLength            ErrorCode = "cvc-length-valid"
	CodeMinLength         ErrorCode = "cvc-minLength-valid"
	CodeMaxLength         ErrorCode = "cvc-maxLength-valid"
	CodeMinInclusive      ErrorCode = "cvc-minInclusive-valid"
	CodeMaxInclusive      ErrorCode = "cvc-maxInclusive-valid"
	CodeMinExclusive      ErrorCode = "cvc-minExclusive-valid"
	CodeMaxExclusive      ErrorCode = "cvc-maxExclusive-valid"
	CodeTotalDigits       ErrorCode = "cvc-totalDigits-valid"
	CodeFractionDigits    ErrorCode = "cvc-fractionDigits-valid"
	CodePattern           ErrorCode = "cvc-pattern-valid"
	CodeEnumeration       ErrorCode = "cvc-enumeration-valid"
	CodeEmptyContent      ErrorCode = "cvc-complex-type.2.1"
	CodeSimpleContent     ErrorCode = "cvc-complex-type.2.2"
	CodeCharNotAllowed    ErrorCode = "cvc-complex-type.2.3"
	CodeUnexpectedElement ErrorCode = "cvc-complex-type.2.4"
	CodeNoDeclaration     ErrorCode = "cvc-elt.1"
	CodeAbstractElement   ErrorCode = "cvc-elt.2"
	CodeNotNillable       ErrorCode = "cvc-elt.3.1"
	CodeNilledContent     ErrorCode = "cvc-elt.3.2.1"
	CodeNilledFixed       ErrorCode = "cvc-elt.3.2.2"
	CodeXsiTypeInvalid    ErrorCode = "cvc-elt.4.1"
	CodeXsiTypeUnknown    ErrorCode = "cvc-elt.4.2"
	CodeXsiTypeNotDerived ErrorCode = "cvc-elt.4.3"
	CodeElementFixed      ErrorCode = "cvc-elt.5.2.2"
	CodeAbstractType      ErrorCode = "cvc-type.2"
	CodeAttributeFixed    ErrorCode = "cvc-attribute.4"
	CodeAttrNotAllowed    ErrorCode = "cvc-complex-type.3.2.2"
	CodeAttrMissing       ErrorCode = "cvc-complex-type.4"
	CodeAttrProhibited    ErrorCode = "cvc-complex-type.3.2.1"
	CodeMissingChild      ErrorCode = "cvc-complex-type.2.4.b"
	CodeWildcard          ErrorCode = "cvc-wildcard"
	CodeIdentity          ErrorCode = "cvc-identity-constraint"
	CodeDuplicateID       ErrorCode = "cvc-id.2"
	CodeDanglingIDREF     ErrorCode = "cvc-id.1"
	CodeSchemaLoad        ErrorCode = "schema-load"
)

// Numeric codes follow libxml2's xmlParserErrors numbering so that output
// stays comparable with xmllint.
var errorNumbers = map[ErrorCode]int{
	CodeDatatype:          1824,
	CodeDatatypeList:      1825,
	CodeDatatypeUnion:     1826,
	CodeLength:            1830,
	CodeMinLength:         1831,
	CodeMaxLength:         1832,
	CodeMinInclusive:      1833,
	CodeMaxInclusive:      1834,
	CodeMinExclusive:      1835,
	CodeMaxExclusive:      1836,
	CodeTotalDigits:       1837,
	CodeFractionDigits:    1838,
	CodePattern:           1839,
	CodeEnumeration:       1840,
	CodeEmptyContent:      1841,
	CodeSimpleContent:     1842,
	CodeCharNotAllowed:    1843,
	CodeNoDeclaration:     1845,
	CodeAbstractElement:   1846,
	CodeNotNillable:       1847,
	CodeNilledContent:     1848,
	CodeNilledFixed:       1849,
	CodeXsiTypeInvalid:    1850,
	CodeXsiTypeUnknown:    1851,
	CodeXsiTypeNotDerived: 1852,
	CodeElementFixed:      1858,
	CodeAttributeFixed:    1864,
	CodeAttrProhibited:    1865,
	CodeAttrNotAllowed:    1866,
	CodeAttrMissing:       1868,
	CodeUnexpectedElement: 1871,
	CodeMissingChild:      1871,
	CodeAbstractType:      1876,
	CodeIdentity:          1877,
	CodeDuplicateID:       1877,
	CodeDanglingIDREF:     1877,
	CodeWildcard:          1878,
	CodeSchemaLoad:        1757,
}

// Number returns the stable integer form of the code. Unknown codes map to
// 1879, libxml2's catch-all schema validity error.
func (c ErrorCode) Number() int {
	if n, ok := errorNumbers[c]; ok {
		return n
	}
	return 1879
}

// Position is a 1-based location in an instance document.
type Position struct {
	Line   int
	Column int
}

// Violation is a single validity error found in an instance document.
type Violation struct {
	Code      ErrorCode
	Element   QName
	Attribute string
	Position  Position
	Message   string
	Expected  []string
	Actual    string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%d:%d: %s", v.Position.Line, v.Position.Column, v.Message)
}

// elementPrefix renders the "Element 'x': " lead-in used by every element
// level message.
func elementPrefix(name QName) string {
	return fmt.Sprintf("Element '%s': ", name)
}

func attributePrefix(elem QName, attr QName) string {
	return fmt.Sprintf("Element '%s', attribute '%s': ", elem, attr)
}
