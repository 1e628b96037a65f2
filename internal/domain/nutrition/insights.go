package nutrition

import "math"

// Insights are derived locally from the measurement and the prediction.
type Insights struct {
	BMI      float64   `json:"bmi"`
	Warnings []string  `json:"warnings,omitempty"`
	Chart    ChartData `json:"chart"`
}

// Palette holds the colors of one risk tier.
type Palette struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Light     string `json:"light"`
}

var palettes = map[RiskTier]Palette{
	TierGreen:  {Primary: "#10b981", Secondary: "#059669", Light: "#d1fae5"},
	TierOrange: {Primary: "#f59e0b", Secondary: "#d97706", Light: "#fef3c7"},
	TierRed:    {Primary: "#ef4444", Secondary: "#dc2626", Light: "#fee2e2"},
	TierGray:   {Primary: "#6b7280", Secondary: "#4b5563", Light: "#e5e7eb"},
}

// PaletteFor returns the colors of a tier, gray for unknown tiers.
func PaletteFor(tier RiskTier) Palette {
	if p, ok := palettes[tier]; ok {
		return p
	}
	return palettes[TierGray]
}

// ChartData feeds the confidence doughnut and the per-class bar chart.
type ChartData struct {
	ConfidencePct  float64    `json:"confidence_pct"`
	UncertaintyPct float64    `json:"uncertainty_pct"`
	Classes        []ChartBar `json:"classes"`
	Palette        Palette    `json:"palette"`
}

type ChartBar struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Color    string  `json:"color"`
	Selected bool    `json:"selected"`
}

const (
	selectedBarValue = 100
	otherBarValue    = 20
)

// Data quality thresholds.
const (
	exclusiveBreastfeedingMonths = 6
	anemiaHemoglobin             = 11.0
	lowBMI                       = 13.0
	highBMI                      = 20.0
)

// BMI returns weight / height² with height in meters, or 0 when height is
// not positive.
func BMI(weightKg, heightCm float64) float64 {
	if heightCm <= 0 {
		return 0
	}
	m := heightCm / 100
	return weightKg / (m * m)
}

// QualityWarnings flags measurements a clinician should double check.
func QualityWarnings(m PatientMeasurement) []string {
	var warnings []string
	if m.AgeMonths < exclusiveBreastfeedingMonths {
		warnings = append(warnings, "child under 6 months: consider exclusive breastfeeding")
	}
	if m.Hemoglobin != nil && *m.Hemoglobin < anemiaHemoglobin {
		warnings = append(warnings, "low hemoglobin: possible anemia")
	}
	switch bmi := BMI(m.WeightKg, m.HeightCm); {
	case bmi > 0 && bmi < lowBMI:
		warnings = append(warnings, "BMI very low for age")
	case bmi > highBMI:
		warnings = append(warnings, "BMI high: consider overweight")
	}
	return warnings
}

// BuildChart derives chart series from a prediction. Percentages are
// clamped for drawing; the prediction itself is left untouched.
func BuildChart(p PredictionResult) ChartData {
	confidence := math.Max(0, math.Min(1, p.Probability)) * 100
	risk := DescribeRisk(p.RiskLevel)
	chart := ChartData{
		ConfidencePct:  confidence,
		UncertaintyPct: 100 - confidence,
		Palette:        PaletteFor(risk.Tier),
	}
	for _, d := range RiskScale() {
		bar := ChartBar{Label: d.Label, Value: otherBarValue, Color: PaletteFor(d.Tier).Light}
		if d.Level == p.RiskLevel {
			bar.Value = selectedBarValue
			bar.Color = PaletteFor(d.Tier).Primary
			bar.Selected = true
		}
		chart.Classes = append(chart.Classes, bar)
	}
	return chart
}

// BuildInsights combines BMI, warnings and chart data.
func BuildInsights(m PatientMeasurement, p PredictionResult) Insights {
	return Insights{
		BMI:      math.Round(BMI(m.WeightKg, m.HeightCm)*10) / 10,
		Warnings: QualityWarnings(m),
		Chart:    BuildChart(p),
	}
}
