package xsd

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Facet is a constraining facet of a simple type restriction.
type Facet interface {
	Name() string
	validate(value string, t *SimpleType) *valueError
}

// valueError is a simple value failing its type. The message has no
// element or attribute prefix; the validator adds it.
type valueError struct {
	code ErrorCode
	msg  string
}

func (e *valueError) Error() string { return e.msg }

func facetErr(code ErrorCode, facet, format string, args ...any) *valueError {
	return &valueError{code: code, msg: fmt.Sprintf("[facet '%s'] ", facet) + fmt.Sprintf(format, args...)}
}

// patternFacet holds the xs:pattern values of one derivation step. They are
// ORed together.
type patternFacet struct {
	patterns []string
	res      []*regexp.Regexp
}

func (f *patternFacet) Name() string { return "pattern" }

func (f *patternFacet) add(pattern string) error {
	re, err := compileXSDPattern(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	f.patterns = append(f.patterns, pattern)
	f.res = append(f.res, re)
	return nil
}

func (f *patternFacet) validate(v string, _ *SimpleType) *valueError {
	for _, re := range f.res {
		if re.MatchString(v) {
			return nil
		}
	}
	return facetErr(CodePattern, "pattern", "The value '%s' is not accepted by the pattern '%s'.", v, strings.Join(f.patterns, "|"))
}

// compileXSDPattern translates an XML Schema regular expression to RE2.
// XSD patterns are implicitly anchored and treat ^ and $ as literals.
func compileXSDPattern(p string) (*regexp.Regexp, error) {
	var b strings.Builder
	inClass := 0
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '\\' && i+1 < len(p):
			i++
			b.WriteString(translateEscape(p[i], inClass > 0))
		case c == '[':
			inClass++
			b.WriteByte(c)
		case c == ']' && inClass > 0:
			inClass--
			b.WriteByte(c)
		case (c == '^' || c == '$') && inClass == 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return regexp.Compile("^(?:" + b.String() + ")$")
}

func translateEscape(c byte, inClass bool) string {
	var body string
	switch c {
	case 'd':
		return `\p{Nd}`
	case 'D':
		return `\P{Nd}`
	case 'i':
		body = `\p{L}_:`
	case 'c':
		body = `\p{L}\p{Nd}._:\-`
	case 's':
		body = ` \t\n\r`
	case 'w':
		body = `\p{L}\p{N}\p{M}\p{S}`
	case 'I':
		return `[^\p{L}_:]`
	case 'C':
		return `[^\p{L}\p{Nd}._:\-]`
	case 'S':
		return `[^ \t\n\r]`
	case 'W':
		return `[^\p{L}\p{N}\p{M}\p{S}]`
	default:
		return `\` + string(c)
	}
	if inClass {
		return body
	}
	return "[" + body + "]"
}

// enumerationFacet holds the xs:enumeration values of one derivation step.
type enumerationFacet struct {
	values []string
}

func (f *enumerationFacet) Name() string { return "enumeration" }

func (f *enumerationFacet) validate(v string, t *SimpleType) *valueError {
	for _, allowed := range f.values {
		if v == allowed || equalValues(v, allowed, t) {
			return nil
		}
	}
	quoted := make([]string, len(f.values))
	for i, a := range f.values {
		quoted[i] = "'" + a + "'"
	}
	return facetErr(CodeEnumeration, "enumeration", "The value '%s' is not an element of the set {%s}.", v, strings.Join(quoted, ", "))
}

// lengthFacet is length, minLength or maxLength.
type lengthFacet struct {
	kind  string
	value int
}

func (f *lengthFacet) Name() string { return f.kind }

func (f *lengthFacet) validate(v string, t *SimpleType) *valueError {
	n := valueLength(v, t)
	switch f.kind {
	case "length":
		if n != f.value {
			return facetErr(CodeLength, f.kind, "The value '%s' has a length of '%d'; this differs from the allowed length of '%d'.", v, n, f.value)
		}
	case "minLength":
		if n < f.value {
			return facetErr(CodeMinLength, f.kind, "The value '%s' has a length of '%d'; this underruns the allowed minimum length of '%d'.", v, n, f.value)
		}
	case "maxLength":
		if n > f.value {
			return facetErr(CodeMaxLength, f.kind, "The value '%s' has a length of '%d'; this exceeds the allowed maximum length of '%d'.", v, n, f.value)
		}
	}
	return nil
}

// valueLength measures items for lists, octets for binary types and
// characters otherwise.
func valueLength(v string, t *SimpleType) int {
	if t != nil && t.Variety == List {
		return len(strings.Fields(v))
	}
	switch primitiveOf(t) {
	case "hexBinary":
		return len(v) / 2
	case "base64Binary":
		compact := strings.ReplaceAll(v, " ", "")
		n := len(compact) * 3 / 4
		return n - strings.Count(compact, "=")
	}
	return len([]rune(v))
}

// boundFacet is minInclusive, maxInclusive, minExclusive or maxExclusive.
type boundFacet struct {
	kind  string
	value string
}

func (f *boundFacet) Name() string { return f.kind }

func (f *boundFacet) validate(v string, t *SimpleType) *valueError {
	cmp, ok := compareValues(v, f.value, t)
	if !ok {
		return nil
	}
	switch f.kind {
	case "minInclusive":
		if cmp < 0 {
			return facetErr(CodeMinInclusive, f.kind, "The value '%s' is less than the minimum value allowed ('%s').", v, f.value)
		}
	case "maxInclusive":
		if cmp > 0 {
			return facetErr(CodeMaxInclusive, f.kind, "The value '%s' is greater than the maximum value allowed ('%s').", v, f.value)
		}
	case "minExclusive":
		if cmp <= 0 {
			return facetErr(CodeMinExclusive, f.kind, "The value '%s' must be greater than '%s'.", v, f.value)
		}
	case "maxExclusive":
		if cmp >= 0 {
			return facetErr(CodeMaxExclusive, f.kind, "The value '%s' must be less than '%s'.", v, f.value)
		}
	}
	return nil
}

// digitsFacet is totalDigits or fractionDigits.
type digitsFacet struct {
	kind  string
	value int
}

func (f *digitsFacet) Name() string { return f.kind }

func (f *digitsFacet) validate(v string, _ *SimpleType) *valueError {
	intPart, frac, _ := strings.Cut(strings.TrimLeft(v, "+-"), ".")
	frac = strings.TrimRight(frac, "0")
	if f.kind == "fractionDigits" {
		if len(frac) > f.value {
			return facetErr(CodeFractionDigits, f.kind, "The value '%s' has more fractional digits than are allowed ('%d').", v, f.value)
		}
		return nil
	}
	digits := strings.TrimLeft(intPart, "0") + frac
	if len(digits) > f.value {
		return facetErr(CodeTotalDigits, f.kind, "The value '%s' has more digits than are allowed ('%d').", v, f.value)
	}
	return nil
}

// whiteSpaceFacet only changes normalization; it never rejects a value.
type whiteSpaceFacet struct {
	ws whitespace
}

func (f *whiteSpaceFacet) Name() string { return "whiteSpace" }

func (f *whiteSpaceFacet) validate(string, *SimpleType) *valueError { return nil }

// parseFacet builds a facet from an xs:restriction child. Enumeration and
// pattern values are merged into prev when it holds the same kind.
func parseFacet(name, value string, prev []Facet) ([]Facet, error) {
	atoiFacet := func() (int, error) {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("facet %s: invalid value %q", name, value)
		}
		return n, nil
	}
	switch name {
	case "pattern":
		for _, f := range prev {
			if pf, ok := f.(*patternFacet); ok {
				return prev, pf.add(value)
			}
		}
		pf := &patternFacet{}
		if err := pf.add(value); err != nil {
			return prev, err
		}
		return append(prev, pf), nil
	case "enumeration":
		for _, f := range prev {
			if ef, ok := f.(*enumerationFacet); ok {
				ef.values = append(ef.values, value)
				return prev, nil
			}
		}
		return append(prev, &enumerationFacet{values: []string{value}}), nil
	case "length", "minLength", "maxLength":
		n, err := atoiFacet()
		if err != nil {
			return prev, err
		}
		return append(prev, &lengthFacet{kind: name, value: n}), nil
	case "totalDigits", "fractionDigits":
		n, err := atoiFacet()
		if err != nil {
			return prev, err
		}
		return append(prev, &digitsFacet{kind: name, value: n}), nil
	case "minInclusive", "maxInclusive", "minExclusive", "maxExclusive":
		return append(prev, &boundFacet{kind: name, value: strings.TrimSpace(value)}), nil
	case "whiteSpace":
		switch strings.TrimSpace(value) {
		case "preserve":
			return append(prev, &whiteSpaceFacet{ws: wsPreserve}), nil
		case "replace":
			return append(prev, &whiteSpaceFacet{ws: wsReplace}), nil
		case "collapse":
			return append(prev, &whiteSpaceFacet{ws: wsCollapse}), nil
		}
		return prev, fmt.Errorf("facet whiteSpace: invalid value %q", value)
	}
	// xs:annotation and unknown facets are ignored
	return prev, nil
}

func primitiveOf(t *SimpleType) string {
	if b := t.Builtin(); b != nil {
		return b.builtin.primitive
	}
	return ""
}

// compareValues orders a and b in the value space of t. ok is false when
// the values are not comparable.
func compareValues(a, b string, t *SimpleType) (cmp int, ok bool) {
	switch primitiveOf(t) {
	case "decimal", "float", "double":
		fa, okA := parseNumber(a)
		fb, okB := parseNumber(b)
		if !okA || !okB {
			return 0, false
		}
		return fa.Cmp(fb), true
	case "dateTime", "date", "time":
		ta, okA := parseTemporal(a)
		tb, okB := parseTemporal(b)
		if !okA || !okB {
			return 0, false
		}
		return ta.Compare(tb), true
	case "gYear", "gYearMonth", "gMonth", "gMonthDay", "gDay":
		return strings.Compare(a, b), true
	}
	return strings.Compare(a, b), true
}

func equalValues(a, b string, t *SimpleType) bool {
	switch primitiveOf(t) {
	case "decimal", "float", "double", "dateTime", "date", "time":
		cmp, ok := compareValues(a, b, t)
		return ok && cmp == 0
	}
	return false
}

func parseNumber(s string) (*big.Float, bool) {
	switch strings.TrimPrefix(s, "+") {
	case "INF":
		return new(big.Float).SetInf(false), true
	case "-INF":
		return new(big.Float).SetInf(true), true
	case "NaN":
		return nil, false
	}
	f, _, err := new(big.Float).Parse(s, 10)
	if err != nil {
		return nil, false
	}
	return f, true
}

func parseTemporal(s string) (time.Time, bool) {
	var year, month, day, hour, minute, second int
	var frac, zone string
	switch {
	case reDateTime.MatchString(s):
		g := reDateTime.FindStringSubmatch(s)
		year, month, day = atoi(g[1]), atoi(g[2]), atoi(g[3])
		hour, minute, second, frac, zone = atoi(g[4]), atoi(g[5]), atoi(g[6]), g[7], g[8]
	case reDate.MatchString(s):
		g := reDate.FindStringSubmatch(s)
		year, month, day, zone = atoi(g[1]), atoi(g[2]), atoi(g[3]), g[4]
	case reTime.MatchString(s):
		g := reTime.FindStringSubmatch(s)
		year, month, day = 2000, 1, 1
		hour, minute, second, frac, zone = atoi(g[1]), atoi(g[2]), atoi(g[3]), g[4], g[5]
	default:
		return time.Time{}, false
	}
	loc := time.UTC
	if zone != "" && zone != "Z" {
		offset := (atoi(zone[1:3])*60 + atoi(zone[4:6])) * 60
		if zone[0] == '-' {
			offset = -offset
		}
		loc = time.FixedZone(zone, offset)
	}
	nanos := 0
	if frac != "" {
		digits := (frac[1:] + "000000000")[:9]
		nanos = atoi(digits)
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, nanos, loc), true
}
