package nutrition

import (
	"fmt"
	"strings"
)

// Schema selects the fourth measurement the prediction service expects.
// The two variants carry different payload contracts and are never mixed.
type Schema string

const (
	SchemaHemoglobin       Schema = "hemoglobin"
	SchemaArmCircumference Schema = "arm_circumference"
)

// Form field names, shared by the HTML form, the JSON API and validation
// results.
const (
	FieldAge              = "age_months"
	FieldWeight           = "weight_kg"
	FieldHeight           = "height_cm"
	FieldHemoglobin       = "hemoglobin_g_dl"
	FieldArmCircumference = "arm_circumference_cm"
)

// FieldRule is the accepted range of one form field. Max is always
// inclusive; MinInclusive decides whether Min itself is accepted.
type FieldRule struct {
	Name         string  `json:"name"`
	Label        string  `json:"label"`
	Unit         string  `json:"unit"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	MinInclusive bool    `json:"min_inclusive"`
	Step         string  `json:"step"`
	Message      string  `json:"message"`
}

// Accepts reports whether v lies inside the rule's bounds.
func (r FieldRule) Accepts(v float64) bool {
	if v > r.Max {
		return false
	}
	if r.MinInclusive {
		return v >= r.Min
	}
	return v > r.Min
}

var baseRules = []FieldRule{
	{
		Name: FieldAge, Label: "Age", Unit: "months",
		Min: 0, Max: 60, MinInclusive: true, Step: "1",
		Message: "age must be between 0 and 60 months",
	},
	{
		Name: FieldWeight, Label: "Weight", Unit: "kg",
		Min: 0, Max: 30, Step: "0.1",
		Message: "weight must be between 0 and 30 kg",
	},
	{
		Name: FieldHeight, Label: "Height", Unit: "cm",
		Min: 0, Max: 120, Step: "0.1",
		Message: "height must be between 0 and 120 cm",
	},
}

var hemoglobinRule = FieldRule{
	Name: FieldHemoglobin, Label: "Hemoglobin", Unit: "g/dL",
	Min: 0, Max: 20, Step: "0.1",
	Message: "hemoglobin must be between 0 and 20 g/dL",
}

// Zero is a legal arm circumference: it means the measurement was not taken.
var armCircumferenceRule = FieldRule{
	Name: FieldArmCircumference, Label: "Mid-upper arm circumference", Unit: "cm",
	Min: 0, Max: 30, MinInclusive: true, Step: "0.1",
	Message: "arm circumference must be between 0 and 30 cm",
}

// ParseSchema resolves a configured schema name. Empty selects hemoglobin.
func ParseSchema(s string) (Schema, error) {
	switch Schema(strings.ToLower(strings.TrimSpace(s))) {
	case "", SchemaHemoglobin:
		return SchemaHemoglobin, nil
	case SchemaArmCircumference:
		return SchemaArmCircumference, nil
	default:
		return "", fmt.Errorf("unknown measurement schema %q (want %q or %q)", s, SchemaHemoglobin, SchemaArmCircumference)
	}
}

// Valid reports whether s is one of the known variants.
func (s Schema) Valid() bool {
	return s == SchemaHemoglobin || s == SchemaArmCircumference
}

// MarkerField returns the name of the variant-specific fourth field.
func (s Schema) MarkerField() string {
	switch s {
	case SchemaHemoglobin:
		return FieldHemoglobin
	case SchemaArmCircumference:
		return FieldArmCircumference
	default:
		return ""
	}
}

// Fields returns the validation table in form order. An unknown schema
// yields only the three common fields.
func (s Schema) Fields() []FieldRule {
	rules := make([]FieldRule, 0, len(baseRules)+1)
	rules = append(rules, baseRules...)
	switch s {
	case SchemaHemoglobin:
		rules = append(rules, hemoglobinRule)
	case SchemaArmCircumference:
		rules = append(rules, armCircumferenceRule)
	}
	return rules
}

// Rule looks up the rule for one field of this schema.
func (s Schema) Rule(field string) (FieldRule, bool) {
	for _, r := range s.Fields() {
		if r.Name == field {
			return r, true
		}
	}
	return FieldRule{}, false
}
