package service

import (
	"time"

	"credit-risk/domain"

	"github.com/xuri/excelize/v2"
)

type exportColumn struct {
	Header string
	Value  func(a domain.Assessment) any
}

func assessmentColumns() []exportColumn {
	cols := []exportColumn{
		{"ID", func(a domain.Assessment) any { return a.ID }},
		{"Created At", func(a domain.Assessment) any { return a.CreatedAt.Format(time.RFC3339) }},
		{"Model Version", func(a domain.Assessment) any { return a.ModelVersion }},
		{"Result", func(a domain.Assessment) any { return a.RiskLabel }},
		{"Probability of Risk", func(a domain.Assessment) any { return a.Probability }},
		{"Displayed Probability", func(a domain.Assessment) any { return FormatPercent(a.Confidence) }},
	}
	for _, f := range domain.Schema {
		field := f.Name
		cols = append(cols, exportColumn{f.Title, func(a domain.Assessment) any {
			for _, r := range a.Inputs {
				if r.Field == field {
					return r.Value
				}
			}
			return ""
		}})
	}
	return cols
}

func contributionColumns() []exportColumn {
	cols := []exportColumn{
		{"ID", func(a domain.Assessment) any { return a.ID }},
		{"Base Value", func(a domain.Assessment) any { return a.Explanation.BaseValue }},
		{"Output Value", func(a domain.Assessment) any { return a.Explanation.OutputValue }},
	}
	for _, f := range domain.Schema {
		field := f.Name
		cols = append(cols, exportColumn{f.Title, func(a domain.Assessment) any {
			return a.Explanation.Values[field]
		}})
	}
	return cols
}

const (
	ExportSheetAssessments   = "Assessments"
	ExportSheetContributions = "Contributions"
)

// ExportService renders assessment history as an XLSX workbook.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// Workbook returns the XLSX bytes: one row per assessment on the first sheet,
// per-feature attributions on the second.
func (s *ExportService) Workbook(assessments []domain.Assessment) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), ExportSheetAssessments)
	if _, err := f.NewSheet(ExportSheetContributions); err != nil {
		return nil, err
	}
	_ = f.SetDocProps(&excelize.DocProperties{Creator: "credit-risk", Title: "Credit risk assessments"})

	if err := writeSheet(f, ExportSheetAssessments, assessmentColumns(), assessments); err != nil {
		return nil, err
	}
	if err := writeSheet(f, ExportSheetContributions, contributionColumns(), assessments); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, cols []exportColumn, assessments []domain.Assessment) error {
	for i, col := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col.Header); err != nil {
			return err
		}
	}
	rowIdx := 2
	for _, a := range assessments {
		for colIdx, col := range cols {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, col.Value(a)); err != nil {
				return err
			}
		}
		rowIdx++
	}
	return nil
}

// ExportFileName is the download name for a workbook generated at t.
func ExportFileName(t time.Time) string {
	return "assessments_" + t.Format("20060102_150405") + ".xlsx"
}
