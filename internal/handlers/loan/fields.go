package loan

import "loanpredictor/internal/models"

// Option is one choice of a select field
type Option struct {
	Value string
	Label string
}

// FieldSpec describes how one form field is presented
type FieldSpec struct {
	Name    string
	ID      string
	Label   string
	Help    string
	Select  bool
	Options []Option
	Min     string
	Max     string
	Step    string
}

// Section groups fields under a heading
type Section struct {
	Title  string
	Icon   string
	Fields []FieldSpec
}

func money(name, id, label, help string) FieldSpec {
	return FieldSpec{Name: name, ID: id, Label: label, Help: help, Min: "0", Step: "1000"}
}

var formSections = []Section{
	{
		Title: "Personal Information",
		Icon:  "user",
		Fields: []FieldSpec{
			{Name: models.FieldDependents, ID: "dependents", Label: "Number of Dependents",
				Help: "Number of family members dependent on you", Min: "0", Max: "10"},
			{Name: models.FieldEducation, ID: "education", Label: "Education Level",
				Help: "Your highest education qualification", Select: true,
				Options: []Option{
					{"", "Select Education Level"},
					{"0", models.NotGraduate.String()},
					{"1", models.Graduate.String()},
				}},
			{Name: models.FieldSelfEmployed, ID: "employment", Label: "Employment Type",
				Help: "Your current employment status", Select: true,
				Options: []Option{
					{"", "Select Employment Type"},
					{"0", models.Salaried.String()},
					{"1", models.SelfEmployed.String()},
				}},
		},
	},
	{
		Title: "Financial Information",
		Icon:  "rupee",
		Fields: []FieldSpec{
			money(models.FieldIncome, "income", "Annual Income (₹)", "Your total annual income in rupees"),
			money(models.FieldLoanAmount, "loanAmount", "Loan Amount (₹)", "The loan amount you are requesting"),
			{Name: models.FieldLoanTerm, ID: "loanTerm", Label: "Loan Term (months)",
				Help: "Duration for loan repayment in months", Min: "1", Max: "480"},
			{Name: models.FieldCreditScore, ID: "cibilScore", Label: "CIBIL Score",
				Help: "Your credit score (300-900)", Min: "300", Max: "900"},
		},
	},
	{
		Title: "Asset Information",
		Icon:  "home",
		Fields: []FieldSpec{
			money(models.FieldResidentialAssets, "residentialAssets", "Residential Assets Value (₹)", "Total value of your residential properties"),
			money(models.FieldCommercialAssets, "commercialAssets", "Commercial Assets Value (₹)", "Total value of your commercial properties"),
			money(models.FieldLuxuryAssets, "luxuryAssets", "Luxury Assets Value (₹)", "Value of luxury items (cars, jewelry, etc.)"),
			money(models.FieldBankAssets, "bankAssets", "Bank Assets Value (₹)", "Total value of your bank deposits and investments"),
		},
	},
}
