package nutrition

// ToMeasurement converts approved form state into the service payload.
// It must only be called after Validate returned an empty result: values are
// converted without checks, and age is truncated toward zero.
func ToMeasurement(schema Schema, in FormInput) PatientMeasurement {
	m := PatientMeasurement{
		AgeMonths: int(parseUnchecked(in.AgeMonths)),
		WeightKg:  parseUnchecked(in.WeightKg),
		HeightCm:  parseUnchecked(in.HeightCm),
	}
	switch schema {
	case SchemaHemoglobin:
		v := parseUnchecked(in.Hemoglobin)
		m.Hemoglobin = &v
	case SchemaArmCircumference:
		v := parseUnchecked(in.ArmCircumference)
		m.ArmCircumference = &v
	}
	return m
}

func parseUnchecked(raw string) float64 {
	v, _ := parseMeasurement(raw)
	return v
}
