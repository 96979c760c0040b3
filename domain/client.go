package domain

// ClientProfile holds the form values as the user entered them, with
// categorical fields carrying their English display labels.
type ClientProfile struct {
	Age             int     `json:"age"`
	Income          float64 `json:"income"`
	Children        string  `json:"children"`
	CreditHistory   string  `json:"credit_history"`
	OverduePayments string  `json:"overdue_payments"`
	ActiveLoans     int     `json:"active_loans"`
	YearsInJob      int     `json:"years_in_job"`
	EmploymentType  string  `json:"employment_type"`
	OwnsProperty    string  `json:"owns_property"`
	AssetsValue     float64 `json:"assets_value"`
	OtherLoans      int     `json:"other_loans"`
	Education       string  `json:"education"`
	City            string  `json:"city"`
	MaritalStatus   string  `json:"marital_status"`
}

// DefaultProfile returns the values the form starts with.
func DefaultProfile() ClientProfile {
	return ClientProfile{
		Age:             30,
		Income:          3000,
		Children:        ChildrenLabels.Displays()[0],
		CreditHistory:   CreditHistoryLabels.Displays()[0],
		OverduePayments: OverduePaymentsLabels.Displays()[0],
		ActiveLoans:     0,
		YearsInJob:      2,
		EmploymentType:  EmploymentTypeLabels.Displays()[0],
		OwnsProperty:    OwnsPropertyLabels.Displays()[0],
		AssetsValue:     0,
		OtherLoans:      0,
		Education:       EducationLabels.Displays()[0],
		City:            CityLabels.Displays()[0],
		MaritalStatus:   MaritalStatusLabels.Displays()[0],
	}
}

// NumericValue returns the numeric form value for a numeric field.
func (p ClientProfile) NumericValue(field string) (float64, bool) {
	switch field {
	case FieldAge:
		return float64(p.Age), true
	case FieldIncome:
		return p.Income, true
	case FieldActiveLoans:
		return float64(p.ActiveLoans), true
	case FieldYearsInJob:
		return float64(p.YearsInJob), true
	case FieldAssetsValue:
		return p.AssetsValue, true
	case FieldOtherLoans:
		return float64(p.OtherLoans), true
	}
	return 0, false
}

// Option returns the display label selected for a categorical field.
func (p ClientProfile) Option(field string) (string, bool) {
	switch field {
	case FieldChildren:
		return p.Children, true
	case FieldCreditHistory:
		return p.CreditHistory, true
	case FieldOverduePayments:
		return p.OverduePayments, true
	case FieldEmploymentType:
		return p.EmploymentType, true
	case FieldOwnsProperty:
		return p.OwnsProperty, true
	case FieldEducation:
		return p.Education, true
	case FieldCity:
		return p.City, true
	case FieldMaritalStatus:
		return p.MaritalStatus, true
	}
	return "", false
}

// FieldValue is one column of a model row.
type FieldValue struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Number   float64   `json:"number,omitempty"`
	Category string    `json:"category,omitempty"`
}

// Record is a single model row in Schema order, categorical values in the
// model vocabulary.
type Record []FieldValue

func (r Record) Get(name string) (FieldValue, bool) {
	for _, v := range r {
		if v.Name == name {
			return v, true
		}
	}
	return FieldValue{}, false
}

// SetNumber sets a numeric form value; integer fields are truncated.
func (p *ClientProfile) SetNumber(field string, v float64) bool {
	switch field {
	case FieldAge:
		p.Age = int(v)
	case FieldIncome:
		p.Income = v
	case FieldActiveLoans:
		p.ActiveLoans = int(v)
	case FieldYearsInJob:
		p.YearsInJob = int(v)
	case FieldAssetsValue:
		p.AssetsValue = v
	case FieldOtherLoans:
		p.OtherLoans = int(v)
	default:
		return false
	}
	return true
}

// SetOption sets the display label of a categorical field.
func (p *ClientProfile) SetOption(field, label string) bool {
	switch field {
	case FieldChildren:
		p.Children = label
	case FieldCreditHistory:
		p.CreditHistory = label
	case FieldOverduePayments:
		p.OverduePayments = label
	case FieldEmploymentType:
		p.EmploymentType = label
	case FieldOwnsProperty:
		p.OwnsProperty = label
	case FieldEducation:
		p.Education = label
	case FieldCity:
		p.City = label
	case FieldMaritalStatus:
		p.MaritalStatus = label
	default:
		return false
	}
	return true
}
