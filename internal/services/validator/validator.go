// Package validator checks raw form values against declarative field rules.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"loanpredictor/internal/models"
)

const (
	msgRequired      = "This field is required"
	msgInvalidNumber = "Please enter a valid number"
	msgInvalidOption = "Please select a valid option"
)

// plainNumber accepts at most 18 integer digits and 4 decimals, no exponent.
// decimal comparisons rescale to a common exponent, so "1e100000000" must
// never reach them.
var plainNumber = regexp.MustCompile(`^-?\d{1,18}(\.\d{1,4})?$`)

// ErrNotNumber is returned by ParseNumber for anything but a plain decimal literal
var ErrNotNumber = errors.New("not a plain decimal number")

// ParseNumber parses a trimmed form value as a bounded decimal literal
func ParseNumber(s string) (decimal.Decimal, error) {
	if !plainNumber.MatchString(s) {
		return decimal.Zero, ErrNotNumber
	}
	return decimal.NewFromString(s)
}

// Rule describes the constraints on one form field
type Rule struct {
	Required bool
	Numeric  bool // range checks apply only to numeric fields
	Min      *float64
	Max      *float64
	Options  []string // allowed raw values, when set
}

// Rules maps a field name to its rule
type Rules map[string]Rule

// Result is the outcome of validating a single field
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func bound(v float64) *float64 {
	return &v
}

// DefaultRules returns the rule table for the loan application form
func DefaultRules() Rules {
	return Rules{
		models.FieldDependents:        {Required: true, Numeric: true, Min: bound(0), Max: bound(10)},
		models.FieldEducation:         {Required: true, Options: []string{"0", "1"}},
		models.FieldSelfEmployed:      {Required: true, Options: []string{"0", "1"}},
		models.FieldIncome:            {Required: true, Numeric: true, Min: bound(0)},
		models.FieldLoanAmount:        {Required: true, Numeric: true, Min: bound(0)},
		models.FieldLoanTerm:          {Required: true, Numeric: true, Min: bound(1), Max: bound(480)},
		models.FieldCreditScore:       {Required: true, Numeric: true, Min: bound(300), Max: bound(900)},
		models.FieldResidentialAssets: {Required: true, Numeric: true, Min: bound(0)},
		models.FieldCommercialAssets:  {Required: true, Numeric: true, Min: bound(0)},
		models.FieldLuxuryAssets:      {Required: true, Numeric: true, Min: bound(0)},
		models.FieldBankAssets:        {Required: true, Numeric: true, Min: bound(0)},
	}
}

// ValidateField checks one raw value. Fields without a rule are always valid.
func ValidateField(rules Rules, field, value string) Result {
	rule, ok := rules[field]
	if !ok {
		return Result{Valid: true}
	}

	value = strings.TrimSpace(value)
	if value == "" {
		if rule.Required {
			return Result{Valid: false, Message: msgRequired}
		}
		return Result{Valid: true}
	}

	if len(rule.Options) > 0 && !contains(rule.Options, value) {
		return Result{Valid: false, Message: msgInvalidOption}
	}

	if !rule.Numeric {
		return Result{Valid: true}
	}

	n, err := ParseNumber(value)
	if err != nil {
		return Result{Valid: false, Message: msgInvalidNumber}
	}
	if rule.Min != nil && n.LessThan(decimal.NewFromFloat(*rule.Min)) {
		return Result{Valid: false, Message: fmt.Sprintf("Minimum value is %s", formatBound(*rule.Min))}
	}
	if rule.Max != nil && n.GreaterThan(decimal.NewFromFloat(*rule.Max)) {
		return Result{Valid: false, Message: fmt.Sprintf("Maximum value is %s", formatBound(*rule.Max))}
	}

	return Result{Valid: true}
}

// ValidateForm checks every ruled field of the snapshot and returns the
// failures keyed by field name. A nil result means the form is valid.
func ValidateForm(rules Rules, form models.FormSnapshot) models.ValidationErrors {
	var errs models.ValidationErrors
	for field := range rules {
		res := ValidateField(rules, field, form.Get(field))
		if res.Valid {
			continue
		}
		if errs == nil {
			errs = make(models.ValidationErrors)
		}
		errs[field] = res.Message
	}
	return errs
}

func formatBound(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
