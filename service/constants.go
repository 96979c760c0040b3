package service

const (
	MaxIncome      = 100_000_000.0 // monthly income ceiling
	MaxAssetsValue = 10_000_000_000.0
	MaxLoanCount   = 100 // active or other loans
	MaxYearsInJob  = 80

	// Waterfall: rows beyond this are folded into "N other features".
	MaxDisplayFeatures = 10

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 1000

	// Narrative requests
	NarrativeMaxTokens   = 250
	NarrativeTopFeatures = 3
)
