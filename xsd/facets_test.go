package xsd

import (
	"testing"
)

const facetSchema = xsHeader + ` targetNamespace="urn:shop" xmlns:s="urn:shop">
  <xs:simpleType name="sku">
    <xs:restriction base="xs:string">
      <xs:pattern value="\d{3}-[A-Z]{2}"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="genre">
    <xs:restriction base="xs:string">
      <xs:enumeration value="Computer"/>
      <xs:enumeration value="Fantasy"/>
      <xs:enumeration value="Romance"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="code">
    <xs:restriction base="xs:string">
      <xs:minLength value="2"/>
      <xs:maxLength value="4"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="isbn">
    <xs:restriction base="xs:string">
      <xs:length value="10"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="price">
    <xs:restriction base="xs:decimal">
      <xs:minInclusive value="0"/>
      <xs:maxExclusive value="1000"/>
      <xs:totalDigits value="5"/>
      <xs:fractionDigits value="2"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="rating">
    <xs:restriction base="xs:int">
      <xs:minExclusive value="0"/>
      <xs:maxInclusive value="5"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="smallRating">
    <xs:restriction base="s:rating">
      <xs:maxInclusive value="3"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="released">
    <xs:restriction base="xs:date">
      <xs:minInclusive value="2000-01-01"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="label">
    <xs:restriction base="xs:string">
      <xs:whiteSpace value="collapse"/>
      <xs:enumeration value="new arrival"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="anchored">
    <xs:restriction base="xs:string">
      <xs:pattern value="^a$"/>
    </xs:restriction>
  </xs:simpleType>
  <xs:simpleType name="ident">
    <xs:restriction base="xs:string">
      <xs:pattern value="\i\c*"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>`

func TestFacets(t *testing.T) {
	s := mustParse(t, facetSchema)

	tests := []struct {
		typ     string
		value   string
		wantErr string
	}{
		{"sku", "123-AB", ""},
		{"sku", "12-AB", "[facet 'pattern'] The value '12-AB' is not accepted by the pattern '\\d{3}-[A-Z]{2}'."},
		{"sku", "123-AB-extra", "[facet 'pattern'] The value '123-AB-extra' is not accepted by the pattern '\\d{3}-[A-Z]{2}'."},
		{"genre", "Fantasy", ""},
		{"genre", "Horror", "[facet 'enumeration'] The value 'Horror' is not an element of the set {'Computer', 'Fantasy', 'Romance'}."},
		{"code", "ab", ""},
		{"code", "a", "[facet 'minLength'] The value 'a' has a length of '1'; this underruns the allowed minimum length of '2'."},
		{"code", "abcde", "[facet 'maxLength'] The value 'abcde' has a length of '5'; this exceeds the allowed maximum length of '4'."},
		{"isbn", "0123456789", ""},
		{"isbn", "012345678", "[facet 'length'] The value '012345678' has a length of '9'; this differs from the allowed length of '10'."},
		{"price", "44.95", ""},
		{"price", "0", ""},
		{"price", "-1", "[facet 'minInclusive'] The value '-1' is less than the minimum value allowed ('0')."},
		{"price", "1000", "[facet 'maxExclusive'] The value '1000' must be less than '1000'."},
		{"price", "1.999", "[facet 'fractionDigits'] The value '1.999' has more fractional digits than are allowed ('2')."},
		{"price", "abc", "'abc' is not a valid value of the atomic type 'price'."},
		{"rating", "5", ""},
		{"rating", "0", "[facet 'minExclusive'] The value '0' must be greater than '0'."},
		{"rating", "6", "[facet 'maxInclusive'] The value '6' is greater than the maximum value allowed ('5')."},
		{"smallRating", "4", "[facet 'maxInclusive'] The value '4' is greater than the maximum value allowed ('3')."},
		{"smallRating", "0", "[facet 'minExclusive'] The value '0' must be greater than '0'."},
		{"released", "2000-10-01", ""},
		{"released", "1999-12-31", "[facet 'minInclusive'] The value '1999-12-31' is less than the minimum value allowed ('2000-01-01')."},
		{"label", "  new   arrival ", ""},
		{"anchored", "^a$", ""},
		{"anchored", "a", "[facet 'pattern'] The value 'a' is not accepted by the pattern '^a$'."},
		{"ident", "_x1", ""},
		{"ident", "1x", "[facet 'pattern'] The value '1x' is not accepted by the pattern '\\i\\c*'."},
	}

	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.value, func(t *testing.T) {
			err := s.ValidateValue(QName{"urn:shop", tt.typ}, tt.value)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %q", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("error = %q\nwant    %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseFacetMergesValues(t *testing.T) {
	facets, err := parseFacet("enumeration", "a", nil)
	if err != nil {
		t.Fatal(err)
	}
	facets, err = parseFacet("enumeration", "b", facets)
	if err != nil {
		t.Fatal(err)
	}
	if len(facets) != 1 {
		t.Fatalf("got %d facets, want 1", len(facets))
	}
	ef := facets[0].(*enumerationFacet)
	if len(ef.values) != 2 {
		t.Errorf("got values %v, want [a b]", ef.values)
	}

	if _, err := parseFacet("length", "-1", nil); err == nil {
		t.Error("expected error for negative length")
	}
	if _, err := parseFacet("pattern", "[", nil); err == nil {
		t.Error("expected error for invalid pattern")
	}
	if _, err := parseFacet("whiteSpace", "squash", nil); err == nil {
		t.Error("expected error for invalid whiteSpace")
	}
}

func TestCompareValues(t *testing.T) {
	dec := BuiltinType("decimal")
	if c, ok := compareValues("10", "9.5", dec); !ok || c <= 0 {
		t.Errorf("compareValues(10, 9.5) = %d, %v", c, ok)
	}
	dt := BuiltinType("dateTime")
	if c, ok := compareValues("2002-05-30T09:00:00Z", "2002-05-30T10:00:00+01:00", dt); !ok || c != 0 {
		t.Errorf("compareValues across zones = %d, %v, want 0, true", c, ok)
	}
	if !equalValues("1.0", "1", dec) {
		t.Error("equalValues(1.0, 1) = false")
	}
}
