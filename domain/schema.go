package domain

const (
	FieldAge             = "age"
	FieldIncome          = "income"
	FieldChildren        = "children"
	FieldCreditHistory   = "credit_history"
	FieldOverduePayments = "overdue_payments"
	FieldActiveLoans     = "active_loans"
	FieldYearsInJob      = "years_in_job"
	FieldEmploymentType  = "employment_type"
	FieldOwnsProperty    = "owns_property"
	FieldAssetsValue     = "assets_value"
	FieldOtherLoans      = "other_loans"
	FieldEducation       = "education"
	FieldCity            = "city"
	FieldMaritalStatus   = "marital_status"
)

type FieldKind string

const (
	Numeric     FieldKind = "numeric"
	Categorical FieldKind = "categorical"
)

// Form sections, in render order.
const (
	SectionPersonal  = "personal"
	SectionFinancial = "financial"
)

// FieldSpec describes one input of the assessment form and one column of the model row.
type FieldSpec struct {
	Name    string    `json:"name"`
	Title   string    `json:"title"`
	Kind    FieldKind `json:"kind"`
	Section string    `json:"section"`

	// numeric only
	Integer bool     `json:"integer,omitempty"`
	Min     float64  `json:"min"`
	Max     *float64 `json:"max,omitempty"`
	Step    float64  `json:"step,omitempty"`
	Default float64  `json:"default"`

	// categorical only
	Labels *LabelMap `json:"-"`
}

func (f FieldSpec) Options() []string {
	if f.Labels == nil {
		return nil
	}
	return f.Labels.Displays()
}

func (f FieldSpec) DefaultOption() string {
	if f.Labels == nil || f.Labels.Len() == 0 {
		return ""
	}
	return f.Labels.Displays()[0]
}

func maxOf(v float64) *float64 { return &v }

// Schema is the fixed model row layout. Order matters: the model artifact
// must declare its features in exactly this order.
var Schema = []FieldSpec{
	{Name: FieldAge, Title: "Age", Kind: Numeric, Section: SectionPersonal, Integer: true, Min: 18, Max: maxOf(100), Step: 1, Default: 30},
	{Name: FieldIncome, Title: "Income", Kind: Numeric, Section: SectionPersonal, Min: 0, Step: 100, Default: 3000},
	{Name: FieldChildren, Title: "Number of Children", Kind: Categorical, Section: SectionPersonal, Labels: ChildrenLabels},
	{Name: FieldCreditHistory, Title: "Credit History", Kind: Categorical, Section: SectionFinancial, Labels: CreditHistoryLabels},
	{Name: FieldOverduePayments, Title: "Overdue Payments", Kind: Categorical, Section: SectionFinancial, Labels: OverduePaymentsLabels},
	{Name: FieldActiveLoans, Title: "Active Loans", Kind: Numeric, Section: SectionFinancial, Integer: true, Min: 0, Step: 1, Default: 0},
	{Name: FieldYearsInJob, Title: "Years in Job", Kind: Numeric, Section: SectionPersonal, Integer: true, Min: 0, Step: 1, Default: 2},
	{Name: FieldEmploymentType, Title: "Employment Type", Kind: Categorical, Section: SectionPersonal, Labels: EmploymentTypeLabels},
	{Name: FieldOwnsProperty, Title: "Owns Property", Kind: Categorical, Section: SectionPersonal, Labels: OwnsPropertyLabels},
	{Name: FieldAssetsValue, Title: "Assets Value", Kind: Numeric, Section: SectionFinancial, Min: 0, Step: 1000, Default: 0},
	{Name: FieldOtherLoans, Title: "Other Loans", Kind: Numeric, Section: SectionFinancial, Integer: true, Min: 0, Step: 1, Default: 0},
	{Name: FieldEducation, Title: "Education", Kind: Categorical, Section: SectionPersonal, Labels: EducationLabels},
	{Name: FieldCity, Title: "City Size", Kind: Categorical, Section: SectionPersonal, Labels: CityLabels},
	{Name: FieldMaritalStatus, Title: "Marital Status", Kind: Categorical, Section: SectionPersonal, Labels: MaritalStatusLabels},
}

// LookupField returns the spec for name.
func LookupField(name string) (FieldSpec, bool) {
	for _, f := range Schema {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldTitle returns the English column title for name, or name itself.
func FieldTitle(name string) string {
	if f, ok := LookupField(name); ok {
		return f.Title
	}
	return name
}
