// Package extractor converts a raw form snapshot into a typed LoanApplication.
package extractor

import (
	"strings"

	"github.com/shopspring/decimal"

	"loanpredictor/internal/models"
	"loanpredictor/internal/services/validator"
)

// Extract builds a LoanApplication from an already validated snapshot.
// It fails with *models.MalformedInputError when a value cannot be coerced.
func Extract(form models.FormSnapshot) (*models.LoanApplication, error) {
	p := parser{form: form}

	app := &models.LoanApplication{
		DependentsCount:        p.integer(models.FieldDependents),
		EducationLevel:         models.EducationLevel(p.flag(models.FieldEducation)),
		EmploymentType:         models.EmploymentType(p.flag(models.FieldSelfEmployed)),
		AnnualIncome:           p.money(models.FieldIncome),
		LoanAmount:             p.money(models.FieldLoanAmount),
		LoanTermMonths:         p.integer(models.FieldLoanTerm),
		CreditScore:            p.integer(models.FieldCreditScore),
		ResidentialAssetsValue: p.money(models.FieldResidentialAssets),
		CommercialAssetsValue:  p.money(models.FieldCommercialAssets),
		LuxuryAssetsValue:      p.money(models.FieldLuxuryAssets),
		BankAssetValue:         p.money(models.FieldBankAssets),
	}

	if p.err != nil {
		return nil, p.err
	}
	return app, nil
}

// parser records the first coercion failure and turns later calls into no-ops
type parser struct {
	form models.FormSnapshot
	err  *models.MalformedInputError
}

func (p *parser) number(field string) (decimal.Decimal, bool) {
	if p.err != nil {
		return decimal.Zero, false
	}
	raw := strings.TrimSpace(p.form.Get(field))
	d, err := validator.ParseNumber(raw)
	if err != nil {
		p.err = &models.MalformedInputError{Field: field, Value: raw, Reason: "not a number"}
		return decimal.Zero, false
	}
	return d, true
}

// integer truncates toward zero, so "2.7" becomes 2
func (p *parser) integer(field string) int {
	d, ok := p.number(field)
	if !ok {
		return 0
	}
	return int(d.IntPart())
}

func (p *parser) flag(field string) int {
	v := p.integer(field)
	if p.err == nil && v != 0 && v != 1 {
		p.err = &models.MalformedInputError{Field: field, Value: p.form.Get(field), Reason: "must be 0 or 1"}
	}
	return v
}

func (p *parser) money(field string) float64 {
	d, ok := p.number(field)
	if !ok {
		return 0
	}
	if d.IsNegative() {
		p.err = &models.MalformedInputError{Field: field, Value: p.form.Get(field), Reason: "must not be negative"}
		return 0
	}
	return d.InexactFloat64()
}
