package domain

import "time"

type RiskClass int

const (
	LowRisk  RiskClass = 0
	HighRisk RiskClass = 1
)

func (c RiskClass) String() string {
	if c == HighRisk {
		return "high"
	}
	return "low"
}

// Headline is the sentence shown above the result.
func (c RiskClass) Headline() string {
	if c == HighRisk {
		return "High Risk Client"
	}
	return "Low Risk Client"
}

// DisplayRow is one cell of the input table, in English.
type DisplayRow struct {
	Field string `json:"field"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// Contribution is one bar of the waterfall plot.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   string  `json:"value,omitempty"`
	Shap    float64 `json:"shap"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Explanation is a per-feature attribution of the raw model output.
type Explanation struct {
	BaseValue     float64        `json:"base_value"`
	OutputValue   float64        `json:"output_value"`
	Contributions []Contribution `json:"contributions"`
	// Values holds every feature's attribution, keyed by field name.
	Values map[string]float64 `json:"values"`
}

type Assessment struct {
	ID           string        `json:"id"`
	CreatedAt    time.Time     `json:"created_at"`
	ModelVersion string        `json:"model_version"`
	Profile      ClientProfile `json:"profile"`
	RiskClass    RiskClass     `json:"risk_class"`
	RiskLabel    string        `json:"risk_label"`
	// Probability is P(high risk).
	Probability float64 `json:"probability"`
	// Confidence is the probability of the predicted class, as displayed.
	Confidence  float64      `json:"confidence"`
	Summary     string       `json:"summary"`
	Inputs      []DisplayRow `json:"inputs"`
	Explanation Explanation  `json:"explanation"`
	Narrative   string       `json:"narrative,omitempty"`
	Cached      bool         `json:"cached"`
}
