package xsd

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

type whitespace int

const (
	wsPreserve whitespace = iota
	wsReplace
	wsCollapse
)

// builtinType describes one of the XML Schema built-in datatypes.
type builtinType struct {
	name      string
	base      string
	primitive string
	ws        whitespace
	check     func(string) error
	// bounds for the integer-derived types, nil when unbounded
	min, max *big.Int
}

var (
	reDecimal    = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	reInteger    = regexp.MustCompile(`^[+-]?\d+$`)
	reFloat      = regexp.MustCompile(`^([+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?|[+-]?INF|NaN)$`)
	reDuration   = regexp.MustCompile(`^-?P(\d+Y)?(\d+M)?(\d+D)?(T(\d+H)?(\d+M)?(\d+(\.\d+)?S)?)?$`)
	reDateTime   = regexp.MustCompile(`^(-?\d{4,})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
	reDate       = regexp.MustCompile(`^(-?\d{4,})-(\d{2})-(\d{2})(Z|[+-]\d{2}:\d{2})?$`)
	reTime       = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
	reGYearMonth = regexp.MustCompile(`^(-?\d{4,})-(\d{2})(Z|[+-]\d{2}:\d{2})?$`)
	reGYear      = regexp.MustCompile(`^(-?\d{4,})(Z|[+-]\d{2}:\d{2})?$`)
	reGMonthDay  = regexp.MustCompile(`^--(\d{2})-(\d{2})(Z|[+-]\d{2}:\d{2})?$`)
	reGDay       = regexp.MustCompile(`^---(\d{2})(Z|[+-]\d{2}:\d{2})?$`)
	reGMonth     = regexp.MustCompile(`^--(\d{2})(Z|[+-]\d{2}:\d{2})?$`)
	reHexBinary  = regexp.MustCompile(`^([0-9a-fA-F]{2})*$`)
	reLanguage   = regexp.MustCompile(`^[a-zA-Z]{1,8}(-[a-zA-Z0-9]{1,8})*$`)
)

var builtins = map[string]*builtinType{}

// builtinSimple holds the SimpleType form of every built-in, wired into a
// base chain so facets and primitives can be found by walking Base.
var builtinSimple = map[string]*SimpleType{}

func bound(s string) *big.Int {
	n, _ := new(big.Int).SetString(s, 10)
	return n
}

func init() {
	defs := []*builtinType{
		{name: "anySimpleType", ws: wsPreserve},
		{name: "string", base: "anySimpleType", ws: wsPreserve},
		{name: "boolean", base: "anySimpleType", check: checkBoolean},
		{name: "decimal", base: "anySimpleType", check: checkDecimal},
		{name: "float", base: "anySimpleType", check: checkFloat},
		{name: "double", base: "anySimpleType", check: checkFloat},
		{name: "duration", base: "anySimpleType", check: checkDuration},
		{name: "dateTime", base: "anySimpleType", check: checkDateTime},
		{name: "time", base: "anySimpleType", check: checkTime},
		{name: "date", base: "anySimpleType", check: checkDate},
		{name: "gYearMonth", base: "anySimpleType", check: checkGYearMonth},
		{name: "gYear", base: "anySimpleType", check: matcher(reGYear)},
		{name: "gMonthDay", base: "anySimpleType", check: checkGMonthDay},
		{name: "gDay", base: "anySimpleType", check: checkGDay},
		{name: "gMonth", base: "anySimpleType", check: checkGMonth},
		{name: "hexBinary", base: "anySimpleType", check: matcher(reHexBinary)},
		{name: "base64Binary", base: "anySimpleType", check: checkBase64},
		{name: "anyURI", base: "anySimpleType", check: checkAnyURI},
		{name: "QName", base: "anySimpleType", check: checkQName},
		{name: "NOTATION", base: "anySimpleType", check: checkQName},

		{name: "normalizedString", base: "string", ws: wsReplace},
		{name: "token", base: "normalizedString"},
		{name: "language", base: "token", check: matcher(reLanguage)},
		{name: "Name", base: "token", check: checkName},
		{name: "NMTOKEN", base: "token", check: checkNMTOKEN},
		{name: "NCName", base: "Name", check: checkNCName},
		{name: "ID", base: "NCName", check: checkNCName},
		{name: "IDREF", base: "NCName", check: checkNCName},
		{name: "ENTITY", base: "NCName", check: checkNCName},

		{name: "integer", base: "decimal", check: checkInteger},
		{name: "nonPositiveInteger", base: "integer", check: checkInteger, max: bound("0")},
		{name: "negativeInteger", base: "nonPositiveInteger", check: checkInteger, max: bound("-1")},
		{name: "long", base: "integer", check: checkInteger, min: bound("-9223372036854775808"), max: bound("9223372036854775807")},
		{name: "int", base: "long", check: checkInteger, min: bound("-2147483648"), max: bound("2147483647")},
		{name: "short", base: "int", check: checkInteger, min: bound("-32768"), max: bound("32767")},
		{name: "byte", base: "short", check: checkInteger, min: bound("-128"), max: bound("127")},
		{name: "nonNegativeInteger", base: "integer", check: checkInteger, min: bound("0")},
		{name: "unsignedLong", base: "nonNegativeInteger", check: checkInteger, min: bound("0"), max: bound("18446744073709551615")},
		{name: "unsignedInt", base: "unsignedLong", check: checkInteger, min: bound("0"), max: bound("4294967295")},
		{name: "unsignedShort", base: "unsignedInt", check: checkInteger, min: bound("0"), max: bound("65535")},
		{name: "unsignedByte", base: "unsignedShort", check: checkInteger, min: bound("0"), max: bound("255")},
		{name: "positiveInteger", base: "nonNegativeInteger", check: checkInteger, min: bound("1")},
	}
	for _, d := range defs {
		if d.base != "" {
			parent := builtins[d.base]
			if d.primitive = parent.primitive; d.primitive == "" || parent.name == "anySimpleType" {
				d.primitive = d.name
			}
			if d.ws == wsPreserve && d.name != "string" {
				d.ws = parent.ws
				if parent.name == "anySimpleType" {
					d.ws = wsCollapse
				}
			}
			if d.name == "token" {
				d.ws = wsCollapse
			}
		}
		builtins[d.name] = d
		st := &SimpleType{Name: QName{XSDNamespace, d.name}, Variety: Atomic, builtin: d}
		if d.base != "" {
			st.BaseName = QName{XSDNamespace, d.base}
			st.Base = builtinSimple[d.base]
		}
		builtinSimple[d.name] = st
	}

	// Built-in list types.
	for name, item := range map[string]string{"NMTOKENS": "NMTOKEN", "IDREFS": "IDREF", "ENTITIES": "ENTITY"} {
		builtinSimple[name] = &SimpleType{
			Name:         QName{XSDNamespace, name},
			Variety:      List,
			ItemTypeName: QName{XSDNamespace, item},
			ItemType:     builtinSimple[item],
			Facets:       []Facet{&lengthFacet{kind: "minLength", value: 1}},
		}
	}
}

// BuiltinType returns the built-in simple type with the given local name,
// or nil when there is none.
func BuiltinType(local string) *SimpleType {
	return builtinSimple[local]
}

// IsBuiltinType reports whether local names a built-in simple type.
func IsBuiltinType(local string) bool {
	return builtinSimple[local] != nil
}

func matcher(re *regexp.Regexp) func(string) error {
	return func(v string) error {
		if !re.MatchString(v) {
			return fmt.Errorf("does not match %s", re)
		}
		return nil
	}
}

func checkBoolean(v string) error {
	switch v {
	case "true", "false", "1", "0":
		return nil
	}
	return fmt.Errorf("invalid boolean")
}

func checkDecimal(v string) error {
	if !reDecimal.MatchString(v) {
		return fmt.Errorf("invalid decimal")
	}
	return nil
}

func checkInteger(v string) error {
	if !reInteger.MatchString(v) {
		return fmt.Errorf("invalid integer")
	}
	return nil
}

func checkFloat(v string) error {
	if !reFloat.MatchString(v) {
		return fmt.Errorf("invalid floating point number")
	}
	return nil
}

func checkDuration(v string) error {
	if !reDuration.MatchString(v) {
		return fmt.Errorf("invalid duration")
	}
	body := strings.TrimPrefix(v, "-")
	if body == "P" || strings.HasSuffix(body, "T") {
		return fmt.Errorf("duration has no components")
	}
	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func daysIn(year, month int) int {
	switch month {
	case 2:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}

func checkZone(z string) error {
	if z == "" || z == "Z" {
		return nil
	}
	h, m := atoi(z[1:3]), atoi(z[4:6])
	if h > 14 || m > 59 || (h == 14 && m != 0) {
		return fmt.Errorf("invalid timezone")
	}
	return nil
}

func checkYMD(y, m, d string) error {
	year, month, day := atoi(y), atoi(m), atoi(d)
	if strings.TrimLeft(strings.TrimPrefix(y, "-"), "0") == "" {
		return fmt.Errorf("year 0000 is not allowed")
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("invalid month")
	}
	if day < 1 || day > daysIn(year, month) {
		return fmt.Errorf("invalid day")
	}
	return nil
}

func checkHMS(h, m, s string) error {
	hour, minute, second := atoi(h), atoi(m), atoi(s)
	if hour == 24 && minute == 0 && second == 0 {
		return nil
	}
	if hour > 23 || minute > 59 || second > 59 {
		return fmt.Errorf("invalid time of day")
	}
	return nil
}

func checkDateTime(v string) error {
	g := reDateTime.FindStringSubmatch(v)
	if g == nil {
		return fmt.Errorf("invalid dateTime")
	}
	if err := checkYMD(g[1], g[2], g[3]); err != nil {
		return err
	}
	if err := checkHMS(g[4], g[5], g[6]); err != nil {
		return err
	}
	return checkZone(g[8])
}

func checkDate(v string) error {
	g := reDate.FindStringSubmatch(v)
	if g == nil {
		return fmt.Errorf("invalid date")
	}
	if err := checkYMD(g[1], g[2], g[3]); err != nil {
		return err
	}
	return checkZone(g[4])
}

func checkTime(v string) error {
	g := reTime.FindStringSubmatch(v)
	if g == nil {
		return fmt.Errorf("invalid time")
	}
	if err := checkHMS(g[1], g[2], g[3]); err != nil {
		return err
	}
	return checkZone(g[5])
}

func checkGYearMonth(v string) error {
	g := reGYearMonth.FindStringSubmatch(v)
	if g == nil {
		return fmt.Errorf("invalid gYearMonth")
	}
	if m := atoi(g[2]); m < 1 || m > 12 {
		return fmt.Errorf("invalid month")
	}
	return checkZone(g[3])
}

func checkGMonthDay(v string) error {
	g := reGMonthDay.FindStringSubmatch(v)
	if g == nil {
		return fmt.Errorf("invalid gMonthDay")
	}
	m, d := atoi(g[1]), atoi(g[2])
	if m < 1 || m > 12 || d < 1 || d > daysIn(2000, m) {
		return fmt.Errorf("invalid gMonthDay")
	}
	return checkZone(g[3])
}

func checkGDay(v string) error {
	g := reGDay.FindStringSubmatch(v)
	if g == nil {
		return fmt.Errorf("invalid gDay")
	}
	if d := atoi(g[1]); d < 1 || d > 31 {
		return fmt.Errorf("invalid day")
	}
	return checkZone(g[2])
}

func checkGMonth(v string) error {
	g := reGMonth.FindStringSubmatch(v)
	if g == nil {
		return fmt.Errorf("invalid gMonth")
	}
	if m := atoi(g[1]); m < 1 || m > 12 {
		return fmt.Errorf("invalid month")
	}
	return checkZone(g[2])
}

func checkBase64(v string) error {
	compact := strings.Map(func(r rune) rune {
		if r == ' ' {
			return -1
		}
		return r
	}, v)
	if _, err := base64.StdEncoding.DecodeString(compact); err != nil {
		return fmt.Errorf("invalid base64Binary")
	}
	return nil
}

func checkAnyURI(v string) error {
	for _, r := range v {
		if unicode.IsControl(r) {
			return fmt.Errorf("control character in URI")
		}
	}
	return nil
}

func checkQName(v string) error {
	prefix, local, found := strings.Cut(v, ":")
	if !found {
		return checkNCName(v)
	}
	if err := checkNCName(prefix); err != nil {
		return err
	}
	return checkNCName(local)
}

func isNameStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == ':'
}

func isNameChar(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r) || r == '.' || r == '-' ||
		unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) || r == '·'
}

func checkName(v string) error {
	if v == "" {
		return fmt.Errorf("empty name")
	}
	for i, r := range v {
		if (i == 0 && !isNameStart(r)) || !isNameChar(r) {
			return fmt.Errorf("invalid name character %q", r)
		}
	}
	return nil
}

func checkNCName(v string) error {
	if strings.Contains(v, ":") {
		return fmt.Errorf("colon in NCName")
	}
	return checkName(v)
}

func checkNMTOKEN(v string) error {
	if v == "" {
		return fmt.Errorf("empty NMTOKEN")
	}
	for _, r := range v {
		if !isNameChar(r) {
			return fmt.Errorf("invalid NMTOKEN character %q", r)
		}
	}
	return nil
}

// normalize applies the whitespace facet.
func normalize(v string, ws whitespace) string {
	switch ws {
	case wsReplace:
		return strings.Map(func(r rune) rune {
			if r == '\t' || r == '\n' || r == '\r' {
				return ' '
			}
			return r
		}, v)
	case wsCollapse:
		return strings.Join(strings.Fields(v), " ")
	}
	return v
}
