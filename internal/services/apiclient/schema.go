package apiclient

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"loanpredictor/internal/models"
)

// applicationSchema mirrors the field rules of the application form. It is the
// last check before a payload leaves the process.
const applicationSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": [
    "no_of_dependents", "education", "self_employed", "income_annum",
    "loan_amount", "loan_term", "cibil_score", "residential_assets_value",
    "commercial_assets_value", "luxury_assets_value", "bank_asset_value"
  ],
  "properties": {
    "no_of_dependents":         {"type": "integer", "minimum": 0, "maximum": 10},
    "education":                {"type": "integer", "enum": [0, 1]},
    "self_employed":            {"type": "integer", "enum": [0, 1]},
    "income_annum":             {"type": "number", "minimum": 0},
    "loan_amount":              {"type": "number", "minimum": 0},
    "loan_term":                {"type": "integer", "minimum": 1, "maximum": 480},
    "cibil_score":              {"type": "integer", "minimum": 300, "maximum": 900},
    "residential_assets_value": {"type": "number", "minimum": 0},
    "commercial_assets_value":  {"type": "number", "minimum": 0},
    "luxury_assets_value":      {"type": "number", "minimum": 0},
    "bank_asset_value":         {"type": "number", "minimum": 0}
  }
}`

var applicationSchemaLoader = gojsonschema.NewStringLoader(applicationSchema)

// checkPayload validates the encoded application against applicationSchema
func checkPayload(body []byte) error {
	result, err := gojsonschema.Validate(applicationSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &models.MalformedInputError{Field: "payload", Reason: err.Error()}
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	field := first.Field()
	if field == "(root)" {
		field = "payload"
	}
	var details []string
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}
	return &models.MalformedInputError{
		Field:  field,
		Value:  fmt.Sprint(first.Value()),
		Reason: strings.Join(details, "; "),
	}
}
