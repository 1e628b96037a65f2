package nutrition

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValidationResult maps a field name to its error message. An empty result
// means the form can be submitted.
type ValidationResult map[string]string

// OK reports whether no field has an error.
func (v ValidationResult) OK() bool { return len(v) == 0 }

// Fields returns the names of failing fields in sorted order.
func (v ValidationResult) Fields() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every field of the schema against its rule. Missing,
// non-numeric and out-of-range values all produce the field's message.
func Validate(schema Schema, in FormInput) ValidationResult {
	result := ValidationResult{}
	for _, rule := range schema.Fields() {
		v, ok := parseMeasurement(in.Value(rule.Name))
		if !ok || !rule.Accepts(v) {
			result[rule.Name] = rule.Message
		}
	}
	return result
}

func parseMeasurement(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
