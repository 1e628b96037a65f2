package nutrition

import "testing"

func TestParseSchema(t *testing.T) {
	tests := []struct {
		in      string
		want    Schema
		wantErr bool
	}{
		{"", SchemaHemoglobin, false},
		{"hemoglobin", SchemaHemoglobin, false},
		{" ARM_CIRCUMFERENCE ", SchemaArmCircumference, false},
		{"zinc", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSchema(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSchema(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseSchema(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestSchema_Fields(t *testing.T) {
	hb := SchemaHemoglobin.Fields()
	if len(hb) != 4 || hb[3].Name != FieldHemoglobin {
		t.Errorf("unexpected hemoglobin fields %+v", hb)
	}
	arm := SchemaArmCircumference.Fields()
	if len(arm) != 4 || arm[3].Name != FieldArmCircumference {
		t.Errorf("unexpected arm circumference fields %+v", arm)
	}
	if got := Schema("zinc").Fields(); len(got) != 3 {
		t.Errorf("expected only common fields for unknown schema, got %d", len(got))
	}

	if SchemaHemoglobin.MarkerField() != FieldHemoglobin || SchemaArmCircumference.MarkerField() != FieldArmCircumference {
		t.Error("unexpected marker fields")
	}
	if _, ok := SchemaHemoglobin.Rule(FieldArmCircumference); ok {
		t.Error("arm circumference must not belong to the hemoglobin schema")
	}
}

func TestFieldRule_Accepts(t *testing.T) {
	age, _ := SchemaHemoglobin.Rule(FieldAge)
	if !age.Accepts(0) || !age.Accepts(60) || age.Accepts(60.5) || age.Accepts(-0.1) {
		t.Error("unexpected age bounds")
	}
	weight, _ := SchemaHemoglobin.Rule(FieldWeight)
	if weight.Accepts(0) || !weight.Accepts(0.1) || !weight.Accepts(30) {
		t.Error("unexpected weight bounds")
	}
}
