package domain

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// LabelPair links the label shown to the user with the value the model was trained on.
type LabelPair struct {
	Display string
	Model   string
}

// LabelMap is a closed, bijective vocabulary for one categorical field.
type LabelMap struct {
	field     string
	pairs     []LabelPair
	toModel   map[string]string
	toDisplay map[string]string
}

// NewLabelMap builds a LabelMap and rejects duplicate labels on either side.
func NewLabelMap(field string, pairs ...LabelPair) (*LabelMap, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("label map %s: no labels", field)
	}

	m := &LabelMap{
		field:     field,
		pairs:     make([]LabelPair, 0, len(pairs)),
		toModel:   make(map[string]string, len(pairs)),
		toDisplay: make(map[string]string, len(pairs)),
	}

	for _, p := range pairs {
		display := norm.NFC.String(p.Display)
		model := norm.NFC.String(p.Model)
		if display == "" || model == "" {
			return nil, fmt.Errorf("label map %s: empty label", field)
		}
		if _, dup := m.toModel[display]; dup {
			return nil, fmt.Errorf("label map %s: duplicate display label %q", field, display)
		}
		if _, dup := m.toDisplay[model]; dup {
			return nil, fmt.Errorf("label map %s: duplicate model label %q", field, model)
		}
		m.toModel[display] = model
		m.toDisplay[model] = display
		m.pairs = append(m.pairs, LabelPair{Display: display, Model: model})
	}

	return m, nil
}

// MustLabelMap is NewLabelMap for package-level vocabularies.
func MustLabelMap(field string, pairs ...LabelPair) *LabelMap {
	m, err := NewLabelMap(field, pairs...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *LabelMap) Field() string {
	return m.field
}

// ToModel translates a display label into the model vocabulary.
func (m *LabelMap) ToModel(display string) (string, error) {
	v, ok := m.toModel[norm.NFC.String(display)]
	if !ok {
		return "", &ValidationError{
			Field:   m.field,
			Message: fmt.Sprintf("unknown option %q", display),
			Err:     ErrUnknownLabel,
		}
	}
	return v, nil
}

// ToDisplay translates a model value back into its display label.
func (m *LabelMap) ToDisplay(model string) (string, error) {
	v, ok := m.toDisplay[norm.NFC.String(model)]
	if !ok {
		return "", fmt.Errorf("%s: model value %q: %w", m.field, model, ErrUnknownLabel)
	}
	return v, nil
}

// Displays returns the display labels in option order.
func (m *LabelMap) Displays() []string {
	out := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		out[i] = p.Display
	}
	return out
}

// Models returns the model vocabulary in option order.
func (m *LabelMap) Models() []string {
	out := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		out[i] = p.Model
	}
	return out
}

func (m *LabelMap) Pairs() []LabelPair {
	return append([]LabelPair(nil), m.pairs...)
}

func (m *LabelMap) Len() int {
	return len(m.pairs)
}

var (
	ChildrenLabels = MustLabelMap(FieldChildren,
		LabelPair{"0", "0"},
		LabelPair{"1", "1"},
		LabelPair{"2", "2"},
		LabelPair{"3", "3"},
		LabelPair{"4+", "4+"},
	)

	CreditHistoryLabels = MustLabelMap(FieldCreditHistory,
		LabelPair{"Good History", "dobra historia"},
		LabelPair{"No History", "brak historii"},
	)

	OverduePaymentsLabels = MustLabelMap(FieldOverduePayments,
		LabelPair{"No Delays", "brak opóźnień"},
		LabelPair{"1 Late Payment", "opóźnienia"},
		LabelPair{"2 Late Payments", "2"},
		LabelPair{"3 Late Payments", "3"},
		LabelPair{"4+ Late Payments", "4"},
	)

	EmploymentTypeLabels = MustLabelMap(FieldEmploymentType,
		LabelPair{"None", "brak"},
		LabelPair{"Permanent", "stała"},
		LabelPair{"Self-employed", "samozatrudnienie"},
		LabelPair{"Fixed-term", "określona"},
	)

	OwnsPropertyLabels = MustLabelMap(FieldOwnsProperty,
		LabelPair{"Yes", "tak"},
		LabelPair{"No", "nie"},
	)

	EducationLabels = MustLabelMap(FieldEducation,
		LabelPair{"Secondary", "średnie"},
		LabelPair{"Higher", "wyższe"},
		LabelPair{"Primary", "podstawowe"},
	)

	CityLabels = MustLabelMap(FieldCity,
		LabelPair{"Small", "małe"},
		LabelPair{"Medium", "średnie"},
		LabelPair{"Large", "duże"},
	)

	MaritalStatusLabels = MustLabelMap(FieldMaritalStatus,
		LabelPair{"Married", "żonaty/zamężna"},
		LabelPair{"Single", "kawaler/panna"},
		LabelPair{"Divorced", "rozwiedziony/rozwiedziona"},
	)
)
