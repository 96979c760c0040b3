package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"credit-risk/domain"

	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*"))

var sectionTitles = []struct {
	Key   string
	Title string
}{
	{domain.SectionPersonal, "Personal Information"},
	{domain.SectionFinancial, "Financial & Credit Information"},
}

type formOption struct {
	Value    string
	Selected bool
}

type formField struct {
	Name    string
	Title   string
	Value   string
	Min     string
	Max     string
	Step    string
	Options []formOption
	Invalid bool
}

type formSection struct {
	Title  string
	Fields []formField
}

type resultView struct {
	Assessment domain.Assessment
	HighRisk   bool
	Chart      waterfallChart
}

type pageData struct {
	Sections []formSection
	Error    string
	Result   *resultView
}

// FormHandler serves the single-page assessment form.
type FormHandler struct {
	service Assessor
	logger  *zap.Logger
}

func NewFormHandler(svc Assessor, logger *zap.Logger) *FormHandler {
	return &FormHandler{service: svc, logger: logger}
}

func (h *FormHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageData{Sections: formSections(domain.DefaultProfile(), "")})
}

// Submit scores the posted form and renders the result under it.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, pageData{
			Sections: formSections(domain.DefaultProfile(), ""),
			Error:    "invalid form submission",
		})
		return
	}

	profile, err := parseProfileForm(r)
	if err == nil {
		var assessment domain.Assessment
		assessment, err = h.service.Assess(r.Context(), profile)
		if err == nil {
			h.render(w, http.StatusOK, pageData{
				Sections: formSections(profile, ""),
				Result: &resultView{
					Assessment: assessment,
					HighRisk:   assessment.RiskClass == domain.HighRisk,
					Chart:      newWaterfallChart(assessment.Explanation),
				},
			})
			return
		}
	}

	status := errorStatus(err)
	data := pageData{Sections: formSections(profile, "")}
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		data.Sections = formSections(profile, verr.Field)
		data.Error = domain.FieldTitle(verr.Field) + ": " + verr.Message
	case status == http.StatusServiceUnavailable:
		data.Error = "The risk model is not available. Please try again later."
	default:
		h.logger.Error("form assessment failed", zap.Error(err))
		data.Error = "The assessment could not be completed."
	}
	h.render(w, status, data)
}

func (h *FormHandler) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "page.html", data); err != nil {
		h.logger.Error("render page", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write page", zap.Error(err))
	}
}

// parseProfileForm reads the posted values on top of the defaults. Numbers
// that do not parse are reported against their field.
func parseProfileForm(r *http.Request) (domain.ClientProfile, error) {
	profile := domain.DefaultProfile()
	for _, f := range domain.Schema {
		raw, present := r.PostForm[f.Name]
		if !present || len(raw) == 0 {
			continue
		}
		value := strings.TrimSpace(raw[0])

		if f.Kind == domain.Categorical {
			profile.SetOption(f.Name, value)
			continue
		}

		var v float64
		var err error
		if f.Integer {
			var n int
			n, err = strconv.Atoi(value)
			v = float64(n)
		} else {
			v, err = strconv.ParseFloat(value, 64)
		}
		if err != nil {
			msg := "must be a number"
			if f.Integer {
				msg = "must be a whole number"
			}
			return profile, &domain.ValidationError{Field: f.Name, Message: msg, Err: domain.ErrOutOfRange}
		}
		profile.SetNumber(f.Name, v)
	}
	return profile, nil
}

func formSections(profile domain.ClientProfile, invalid string) []formSection {
	sections := make([]formSection, 0, len(sectionTitles))
	for _, s := range sectionTitles {
		section := formSection{Title: s.Title}
		for _, f := range domain.Schema {
			if f.Section != s.Key {
				continue
			}
			section.Fields = append(section.Fields, formFieldFor(f, profile, f.Name == invalid))
		}
		sections = append(sections, section)
	}
	return sections
}

func formFieldFor(f domain.FieldSpec, profile domain.ClientProfile, invalid bool) formField {
	field := formField{Name: f.Name, Title: f.Title, Invalid: invalid}
	if f.Kind == domain.Categorical {
		current, _ := profile.Option(f.Name)
		for _, o := range f.Options() {
			field.Options = append(field.Options, formOption{Value: o, Selected: o == current})
		}
		return field
	}

	v, _ := profile.NumericValue(f.Name)
	field.Value = strconv.FormatFloat(v, 'f', -1, 64)
	field.Min = strconv.FormatFloat(f.Min, 'f', -1, 64)
	if f.Max != nil {
		field.Max = strconv.FormatFloat(*f.Max, 'f', -1, 64)
	}
	// money inputs accept any amount; the browser would reject values off the step grid
	field.Step = "any"
	if f.Integer {
		field.Step = strconv.FormatFloat(f.Step, 'f', -1, 64)
	}
	return field
}
