package nutrition

import (
	"encoding/json"
	"strings"
)

// FormInput is the raw, string-typed state of the data-entry form. Only the
// field matching the active schema's marker is read.
type FormInput struct {
	AgeMonths        string `json:"age_months" form:"age_months"`
	WeightKg         string `json:"weight_kg" form:"weight_kg"`
	HeightCm         string `json:"height_cm" form:"height_cm"`
	Hemoglobin       string `json:"hemoglobin_g_dl,omitempty" form:"hemoglobin_g_dl"`
	ArmCircumference string `json:"arm_circumference_cm,omitempty" form:"arm_circumference_cm"`
}

// Value returns the raw value of a named field.
func (f FormInput) Value(field string) string {
	switch field {
	case FieldAge:
		return f.AgeMonths
	case FieldWeight:
		return f.WeightKg
	case FieldHeight:
		return f.HeightCm
	case FieldHemoglobin:
		return f.Hemoglobin
	case FieldArmCircumference:
		return f.ArmCircumference
	default:
		return ""
	}
}

// Set assigns a named field and reports whether the name is known.
func (f *FormInput) Set(field, value string) bool {
	switch field {
	case FieldAge:
		f.AgeMonths = value
	case FieldWeight:
		f.WeightKg = value
	case FieldHeight:
		f.HeightCm = value
	case FieldHemoglobin:
		f.Hemoglobin = value
	case FieldArmCircumference:
		f.ArmCircumference = value
	default:
		return false
	}
	return true
}

// UnmarshalJSON accepts each field as either a JSON string or a bare JSON
// value (number, bool, ...), keeping the raw text so the validator sees
// exactly what the caller sent. Unknown keys are ignored.
func (f *FormInput) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FormInput{}
	for k, v := range raw {
		f.Set(k, RawFieldValue(v))
	}
	return nil
}

// RawFieldValue renders a JSON value as form text: strings are unquoted,
// null becomes empty, anything else keeps its literal JSON text.
func RawFieldValue(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(v))
	if text == "null" {
		return ""
	}
	return text
}

// PatientMeasurement is the request payload of the prediction service. JSON
// names follow the service contract. Exactly one of Hemoglobin and
// ArmCircumference is set, depending on the schema.
type PatientMeasurement struct {
	AgeMonths        int      `json:"edad_meses"`
	WeightKg         float64  `json:"peso_kg"`
	HeightCm         float64  `json:"talla_cm"`
	Hemoglobin       *float64 `json:"hemoglobina,omitempty"`
	ArmCircumference *float64 `json:"per_braqu_cm,omitempty"`
}

// PredictionResult is the service's classification, kept exactly as decoded.
type PredictionResult struct {
	Category        string   `json:"categoria"`
	Probability     float64  `json:"probabilidad"`
	RiskLevel       int      `json:"riesgo_nivel"`
	Recommendations []string `json:"recomendaciones"`
}

// ModelStats describes the model behind the prediction service.
type ModelStats struct {
	Model      string   `json:"modelo"`
	Features   []string `json:"caracteristicas"`
	Categories []string `json:"categorias"`
}

type HealthStatus struct {
	Status string `json:"status"`
}

// Evaluation is a successful prediction ready for display.
type Evaluation struct {
	Measurement PatientMeasurement `json:"measurement"`
	Prediction  PredictionResult   `json:"prediction"`
	Risk        RiskDescriptor     `json:"risk"`
	Insights    Insights           `json:"insights"`
}
