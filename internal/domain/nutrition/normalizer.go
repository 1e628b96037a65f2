package nutrition

// RiskTier is the color family used to render a risk level.
type RiskTier string

const (
	TierGreen  RiskTier = "green"
	TierOrange RiskTier = "orange"
	TierRed    RiskTier = "red"
	TierGray   RiskTier = "gray"
)

// RiskDescriptor is the presentation form of a risk level.
type RiskDescriptor struct {
	Level int      `json:"level"`
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Icon  string   `json:"icon"`
	Tier  RiskTier `json:"tier"`
}

// Known reports whether the level belongs to the model's taxonomy.
func (d RiskDescriptor) Known() bool { return d.Key != riskUnknown.Key }

var riskDescriptors = map[int]RiskDescriptor{
	0: {Level: 0, Key: "none", Label: "No risk", Icon: "check", Tier: TierGreen},
	1: {Level: 1, Key: "moderate", Label: "Moderate risk", Icon: "warning", Tier: TierOrange},
	2: {Level: 2, Key: "high", Label: "High risk", Icon: "alert", Tier: TierRed},
}

var riskUnknown = RiskDescriptor{Key: "unknown", Label: "Unknown", Icon: "question", Tier: TierGray}

// DescribeRisk maps any risk level to a descriptor. Levels outside the
// taxonomy get the unknown descriptor carrying the original level.
func DescribeRisk(level int) RiskDescriptor {
	if d, ok := riskDescriptors[level]; ok {
		return d
	}
	d := riskUnknown
	d.Level = level
	return d
}

// RiskScale lists the taxonomy in ascending order.
func RiskScale() []RiskDescriptor {
	return []RiskDescriptor{riskDescriptors[0], riskDescriptors[1], riskDescriptors[2]}
}
