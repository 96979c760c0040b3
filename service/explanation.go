package service

import (
	"fmt"
	"math"
	"sort"

	"credit-risk/domain"
)

// BuildExplanation lays out a waterfall from the base value to the model
// output. names[i] is the field attributed by phi[i]; rows supply the English
// title and value of each field.
//
// Contributions are ordered top to bottom as drawn: the largest |phi| first,
// ending with the aggregate of the remaining features. Start/End are
// cumulative positions, so the first row ends at the output value and the
// last row starts at the base value.
func BuildExplanation(base, output float64, names []string, phi []float64, rows []domain.DisplayRow) domain.Explanation {
	byField := make(map[string]domain.DisplayRow, len(rows))
	for _, r := range rows {
		byField[r.Field] = r
	}

	values := make(map[string]float64, len(phi))
	order := make([]int, len(phi))
	for i := range phi {
		order[i] = i
		values[names[i]] = phi[i]
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(phi[order[a]]) > math.Abs(phi[order[b]])
	})

	shown := order
	var rest []int
	if len(order) > MaxDisplayFeatures {
		shown = order[:MaxDisplayFeatures-1]
		rest = order[MaxDisplayFeatures-1:]
	}

	contributions := make([]domain.Contribution, 0, len(shown)+1)
	for _, i := range shown {
		c := domain.Contribution{Feature: domain.FieldTitle(names[i]), Shap: phi[i]}
		if r, ok := byField[names[i]]; ok {
			c.Feature = r.Title
			c.Value = r.Value
		}
		contributions = append(contributions, c)
	}
	if len(rest) > 0 {
		var sum float64
		for _, i := range rest {
			sum += phi[i]
		}
		contributions = append(contributions, domain.Contribution{
			Feature: fmt.Sprintf("%d other features", len(rest)),
			Shap:    sum,
		})
	}

	// accumulate bottom-up from the base value
	pos := base
	for i := len(contributions) - 1; i >= 0; i-- {
		contributions[i].Start = pos
		pos += contributions[i].Shap
		contributions[i].End = pos
	}

	return domain.Explanation{
		BaseValue:     base,
		OutputValue:   output,
		Contributions: contributions,
		Values:        values,
	}
}
