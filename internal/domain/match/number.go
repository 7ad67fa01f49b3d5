package match

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MissingValue is the spreadsheet sentinel for an empty numeric cell.
const MissingValue = "#N/D"

var floatPrefixRegex = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// ToNumber coerces a raw cell into a finite number. Missing cells, empty
// strings, the #N/D sentinel and anything unparseable resolve to def.
// Strings may use a comma as decimal separator.
func ToNumber(value any, def float64) float64 {
	switch v := value.(type) {
	case nil:
		return def
	case string:
		if v == "" || v == MissingValue {
			return def
		}
		parsed, ok := parseFloatPrefix(strings.Replace(v, ",", ".", 1))
		if !ok {
			return def
		}
		return parsed
	case json.Number:
		return ToNumber(v.String(), def)
	case float64:
		return finiteOr(v, def)
	case float32:
		return finiteOr(float64(v), def)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	default:
		return def
	}
}

// FormatNumber renders a stat for display: numbers get exactly two decimals,
// percentages and free text pass through, missing values render as "-".
func FormatNumber(value any) string {
	switch v := value.(type) {
	case nil:
		return PlaceholderDash
	case string:
		if strings.Contains(v, "%") {
			return v
		}
		parsed, ok := parseFloatPrefix(strings.Replace(v, ",", ".", 1))
		if !ok {
			return v
		}
		return toFixed2(parsed)
	case json.Number:
		return FormatNumber(v.String())
	case float64:
		if math.IsNaN(v) {
			return PlaceholderDash
		}
		return toFixed2(v)
	case float32:
		return FormatNumber(float64(v))
	case int:
		return toFixed2(float64(v))
	case int64:
		return toFixed2(float64(v))
	case int32:
		return toFixed2(float64(v))
	default:
		return PlaceholderDash
	}
}

// parseFloatPrefix reads the longest leading decimal literal the way
// browsers' parseFloat does. Trailing text is ignored. Non-finite results
// are reported as failures.
func parseFloatPrefix(raw string) (float64, bool) {
	s := strings.TrimLeftFunc(raw, isJSSpace)
	literal := floatPrefixRegex.FindString(s)
	if literal == "" {
		return 0, false
	}
	if strings.HasSuffix(literal, "Infinity") {
		return 0, false
	}

	parsed, err := strconv.ParseFloat(literal, 64)
	if err != nil || math.IsInf(parsed, 0) || math.IsNaN(parsed) {
		return 0, false
	}
	return parsed, true
}

// parseIntPrefix reads a leading base-10 integer the way parseInt(s, 10) does.
func parseIntPrefix(raw string) (int, bool) {
	s := strings.TrimLeftFunc(raw, isJSSpace)
	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	value, err := strconv.Atoi(s[:end])
	if err != nil {
		value = math.MaxInt
	}
	if negative {
		value = -value
	}
	return value, true
}

// toFixed2 matches Number.prototype.toFixed(2): exact binary ties round
// away from zero and negative zero prints without a sign.
func toFixed2(x float64) string {
	if x == 0 {
		return "0.00"
	}
	if math.IsInf(x, 0) {
		return jsNumberString(x)
	}

	abs := math.Abs(x)
	if abs >= 1e21 {
		return jsNumberString(x)
	}

	sign := ""
	if x < 0 {
		sign = "-"
	}

	eighths := abs * 8
	scaled := abs * 100
	if eighths == math.Trunc(eighths) && scaled-math.Floor(scaled) == 0.5 {
		digits := strconv.FormatFloat(math.Floor(scaled)+1, 'f', 0, 64)
		for len(digits) < 3 {
			digits = "0" + digits
		}
		return sign + digits[:len(digits)-2] + "." + digits[len(digits)-2:]
	}

	return sign + strconv.FormatFloat(abs, 'f', 2, 64)
}

func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// stringify mirrors String(value) for the scalar types a JSON row can hold.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case float64:
		return jsNumberString(v)
	case float32:
		return jsNumberString(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return PlaceholderNA
	}
}

func jsNumberString(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	out := strconv.FormatFloat(v, 'g', -1, 64)
	out = strings.Replace(out, "e-0", "e-", 1)
	return strings.Replace(out, "e+0", "e+", 1)
}

// truthy reports whether a raw cell would pass a JavaScript truthiness check.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		return ToNumber(v.String(), 0) != 0
	default:
		return true
	}
}

func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}
