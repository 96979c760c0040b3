package service

import (
	"fmt"
	"math"
	"strconv"

	"credit-risk/domain"

	"github.com/shopspring/decimal"
)

// moneyFields are shown with two decimals.
var moneyFields = map[string]bool{
	domain.FieldIncome:      true,
	domain.FieldAssetsValue: true,
}

// fieldMax holds the upper bounds not carried by the form schema itself.
var fieldMax = map[string]float64{
	domain.FieldIncome:      MaxIncome,
	domain.FieldAssetsValue: MaxAssetsValue,
	domain.FieldActiveLoans: MaxLoanCount,
	domain.FieldOtherLoans:  MaxLoanCount,
	domain.FieldYearsInJob:  MaxYearsInJob,
}

func outOfRange(field, msg string) error {
	return &domain.ValidationError{Field: field, Message: msg, Err: domain.ErrOutOfRange}
}

// Validate checks every form value against the schema bounds and vocabularies.
func Validate(p domain.ClientProfile) error {
	for _, f := range domain.Schema {
		if f.Kind == domain.Categorical {
			v, _ := p.Option(f.Name)
			if _, err := f.Labels.ToModel(v); err != nil {
				return err
			}
			continue
		}

		v, _ := p.NumericValue(f.Name)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return outOfRange(f.Name, "must be a finite number")
		}
		if v < f.Min {
			return outOfRange(f.Name, fmt.Sprintf("must be at least %s", formatNumber(f.Min)))
		}
		if f.Max != nil && v > *f.Max {
			return outOfRange(f.Name, fmt.Sprintf("must be at most %s", formatNumber(*f.Max)))
		}
		if limit, ok := fieldMax[f.Name]; ok && v > limit {
			return outOfRange(f.Name, fmt.Sprintf("must be at most %s", formatNumber(limit)))
		}
	}
	return nil
}

// BuildRecord translates a validated profile into the model row. Categorical
// values are replaced by their model vocabulary; numbers pass through unchanged.
func BuildRecord(p domain.ClientProfile) (domain.Record, error) {
	record := make(domain.Record, 0, len(domain.Schema))
	for _, f := range domain.Schema {
		if f.Kind == domain.Numeric {
			v, _ := p.NumericValue(f.Name)
			record = append(record, domain.FieldValue{Name: f.Name, Kind: domain.Numeric, Number: v})
			continue
		}
		display, _ := p.Option(f.Name)
		model, err := f.Labels.ToModel(display)
		if err != nil {
			return nil, err
		}
		record = append(record, domain.FieldValue{Name: f.Name, Kind: domain.Categorical, Category: model})
	}
	return record, nil
}

// DisplayRows translates a model row back to English titles and labels.
func DisplayRows(record domain.Record) ([]domain.DisplayRow, error) {
	rows := make([]domain.DisplayRow, 0, len(record))
	for _, v := range record {
		spec, ok := domain.LookupField(v.Name)
		if !ok {
			return nil, fmt.Errorf("unknown field %s", v.Name)
		}
		row := domain.DisplayRow{Field: v.Name, Title: spec.Title}
		if v.Kind == domain.Categorical {
			label, err := spec.Labels.ToDisplay(v.Category)
			if err != nil {
				return nil, err
			}
			row.Value = label
		} else {
			row.Value = formatValue(v.Name, v.Number)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatValue(field string, v float64) string {
	if moneyFields[field] {
		return decimal.NewFromFloat(v).StringFixed(2)
	}
	return formatNumber(v)
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return decimal.NewFromFloat(v).String()
}

// FormatPercent renders a probability as "12.34%".
func FormatPercent(p float64) string {
	return decimal.NewFromFloat(p*100).StringFixed(2) + "%"
}

// Summary is the one-line result, e.g. "High Risk Client (Probability: 91.20%)".
func Summary(class domain.RiskClass, confidence float64) string {
	return fmt.Sprintf("%s (Probability: %s)", class.Headline(), FormatPercent(confidence))
}

// Confidence is the probability of the predicted class.
func Confidence(class domain.RiskClass, pRisk float64) float64 {
	if class == domain.HighRisk {
		return pRisk
	}
	return 1 - pRisk
}
