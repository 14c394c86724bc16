package models

import "fmt"

// Form field names. They double as the JSON keys the prediction service expects.
const (
	FieldDependents        = "no_of_dependents"
	FieldEducation         = "education"
	FieldSelfEmployed      = "self_employed"
	FieldIncome            = "income_annum"
	FieldLoanAmount        = "loan_amount"
	FieldLoanTerm          = "loan_term"
	FieldCreditScore       = "cibil_score"
	FieldResidentialAssets = "residential_assets_value"
	FieldCommercialAssets  = "commercial_assets_value"
	FieldLuxuryAssets      = "luxury_assets_value"
	FieldBankAssets        = "bank_asset_value"
)

// FieldOrder is the order fields appear on the form and in validation output
var FieldOrder = []string{
	FieldDependents,
	FieldEducation,
	FieldSelfEmployed,
	FieldIncome,
	FieldLoanAmount,
	FieldLoanTerm,
	FieldCreditScore,
	FieldResidentialAssets,
	FieldCommercialAssets,
	FieldLuxuryAssets,
	FieldBankAssets,
}

// EducationLevel is the applicant's highest qualification
type EducationLevel int

const (
	NotGraduate EducationLevel = 0
	Graduate    EducationLevel = 1
)

func (e EducationLevel) String() string {
	if e == Graduate {
		return "Graduate"
	}
	return "Not Graduate"
}

// EmploymentType is the applicant's employment status
type EmploymentType int

const (
	Salaried     EmploymentType = 0
	SelfEmployed EmploymentType = 1
)

func (e EmploymentType) String() string {
	if e == SelfEmployed {
		return "Self Employed"
	}
	return "Salaried"
}

// LoanApplication is the validated payload sent to the prediction service.
// Build one with extractor.Extract; never send a hand-assembled value.
type LoanApplication struct {
	DependentsCount        int            `json:"no_of_dependents"`
	EducationLevel         EducationLevel `json:"education"`
	EmploymentType         EmploymentType `json:"self_employed"`
	AnnualIncome           float64        `json:"income_annum"`
	LoanAmount             float64        `json:"loan_amount"`
	LoanTermMonths         int            `json:"loan_term"`
	CreditScore            int            `json:"cibil_score"`
	ResidentialAssetsValue float64        `json:"residential_assets_value"`
	CommercialAssetsValue  float64        `json:"commercial_assets_value"`
	LuxuryAssetsValue      float64        `json:"luxury_assets_value"`
	BankAssetValue         float64        `json:"bank_asset_value"`
}

// FormSnapshot is the raw form state: field name to the string the user typed
type FormSnapshot map[string]string

// Get returns the raw value for a field, or "" when absent
func (f FormSnapshot) Get(field string) string {
	if f == nil {
		return ""
	}
	return f[field]
}

// Clone returns an independent copy of the snapshot
func (f FormSnapshot) Clone() FormSnapshot {
	if f == nil {
		return nil
	}
	out := make(FormSnapshot, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether no field has a value
func (f FormSnapshot) IsEmpty() bool {
	for _, v := range f {
		if v != "" {
			return false
		}
	}
	return true
}

// SampleSnapshot returns the demo applicant used by ?sample=true
func SampleSnapshot() FormSnapshot {
	return FormSnapshot{
		FieldDependents:        "2",
		FieldEducation:         "1",
		FieldSelfEmployed:      "0",
		FieldIncome:            "9600000",
		FieldLoanAmount:        "29900000",
		FieldLoanTerm:          "12",
		FieldCreditScore:       "778",
		FieldResidentialAssets: "2400000",
		FieldCommercialAssets:  "17600000",
		FieldLuxuryAssets:      "22700000",
		FieldBankAssets:        "8000000",
	}
}

// ValidationErrors maps a field name to its inline error message
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	for _, field := range FieldOrder {
		if msg, ok := v[field]; ok {
			return fmt.Sprintf("%s: %s", field, msg)
		}
	}
	for field, msg := range v {
		return fmt.Sprintf("%s: %s", field, msg)
	}
	return "validation failed"
}

// MalformedInputError reports a field that could not be coerced to its type
// even though it was expected to have passed validation.
type MalformedInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed input for %s (%q): %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("malformed input for %s: %q", e.Field, e.Value)
}
