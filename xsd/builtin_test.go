package xsd

import "testing"

func TestBuiltinTypes(t *testing.T) {
	tests := []struct {
		typ   string
		value string
		valid bool
	}{
		{"string", "  anything goes  ", true},
		{"boolean", "true", true},
		{"boolean", "0", true},
		{"boolean", "yes", false},
		{"decimal", "3.14", true},
		{"decimal", "-.5", true},
		{"decimal", "1e3", false},
		{"integer", "42", true},
		{"integer", " 42 ", true},
		{"integer", "4.2", false},
		{"int", "2147483647", true},
		{"int", "2147483648", false},
		{"byte", "-128", true},
		{"byte", "128", false},
		{"unsignedByte", "-1", false},
		{"positiveInteger", "0", false},
		{"nonPositiveInteger", "0", true},
		{"float", "44.95", true},
		{"float", "1.5E-3", true},
		{"float", "INF", true},
		{"float", "NaN", true},
		{"float", "abc", false},
		{"double", "-0", true},
		{"date", "2000-10-01", true},
		{"date", "2000-02-29", true},
		{"date", "2001-02-29", false},
		{"date", "2000-13-01", false},
		{"date", "0000-01-01", false},
		{"date", "2000-10-01Z", true},
		{"dateTime", "2002-05-30T09:30:10.5", true},
		{"dateTime", "2002-05-30T09:30:10+14:00", true},
		{"dateTime", "2002-05-30T09:30:10+15:00", false},
		{"dateTime", "2002-05-30 09:30:10", false},
		{"time", "24:00:00", true},
		{"time", "25:00:00", false},
		{"duration", "P1Y2M3DT10H30M", true},
		{"duration", "-PT1.5S", true},
		{"duration", "P", false},
		{"duration", "P1DT", false},
		{"gYear", "2024", true},
		{"gYearMonth", "2024-13", false},
		{"gMonthDay", "--02-29", true},
		{"gMonthDay", "--02-30", false},
		{"gDay", "---31", true},
		{"gMonth", "--12", true},
		{"hexBinary", "0FB7", true},
		{"hexBinary", "0FB", false},
		{"base64Binary", "SGVsbG8=", true},
		{"base64Binary", "SGVsbG8", false},
		{"anyURI", "http://example.com/feeds?id=1", true},
		{"QName", "xs:string", true},
		{"QName", "1abc", false},
		{"NCName", "a:b", false},
		{"Name", "a:b", true},
		{"ID", "bk101", true},
		{"ID", "101", false},
		{"language", "en-US", true},
		{"token", "  hello   world ", true},
		{"NMTOKEN", "a b", false},
		{"NMTOKENS", "a b c", true},
		{"NMTOKENS", "", false},
		{"IDREFS", "a b", true},
	}

	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.value, func(t *testing.T) {
			st := BuiltinType(tt.typ)
			if st == nil {
				t.Fatalf("BuiltinType(%q) = nil", tt.typ)
			}
			err := st.ValidateValue(tt.value)
			if tt.valid && err != nil {
				t.Errorf("ValidateValue(%q) unexpected error: %v", tt.value, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("ValidateValue(%q) expected an error", tt.value)
			}
		})
	}
}

func TestBuiltinTypeMessage(t *testing.T) {
	err := BuiltinType("float").ValidateValue("abc")
	if err == nil {
		t.Fatal("expected an error")
	}
	want := "'abc' is not a valid value of the atomic type 'xs:float'."
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestIsBuiltinType(t *testing.T) {
	for _, name := range []string{"string", "dateTime", "NMTOKENS", "unsignedShort"} {
		if !IsBuiltinType(name) {
			t.Errorf("IsBuiltinType(%q) = false", name)
		}
	}
	if IsBuiltinType("catalog") {
		t.Error("IsBuiltinType(catalog) = true")
	}
}

func TestBuiltinWhitespace(t *testing.T) {
	tests := []struct {
		typ  string
		in   string
		want string
	}{
		{"string", " a\tb ", " a\tb "},
		{"normalizedString", " a\tb\n", " a b "},
		{"token", "  a \t b  ", "a b"},
		{"integer", " 42\n", "42"},
	}
	for _, tt := range tests {
		if got := BuiltinType(tt.typ).Normalize(tt.in); got != tt.want {
			t.Errorf("%s.Normalize(%q) = %q, want %q", tt.typ, tt.in, got, tt.want)
		}
	}
}
