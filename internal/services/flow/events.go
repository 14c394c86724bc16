package flow

import "loanpredictor/internal/models"

// Event is a user action or network outcome consumed by Transition
type Event interface {
	eventName() string
}

// Submit is the user submitting the form
type Submit struct {
	Form models.FormSnapshot
}

// Prefill replaces the form contents (sample data, restored draft)
type Prefill struct {
	Form models.FormSnapshot
}

// PredictionSucceeded carries the predict endpoint's answer
type PredictionSucceeded struct {
	Result *models.PredictionResult
}

// PredictionFailed carries a predict failure
type PredictionFailed struct {
	Err error
}

// ExploreRequested is the user asking for loan offers
type ExploreRequested struct{}

// OffersLoaded carries the explore endpoint's offers
type OffersLoaded struct {
	Offers []models.LoanOffer
}

// OffersFailed carries an explore failure
type OffersFailed struct {
	Err error
}

// NewApplication returns from a result to the form, keeping the typed values
type NewApplication struct{}

// Reset clears the form and everything derived from it
type Reset struct{}

// Back returns from recommendations to the result
type Back struct{}

// Dismiss leaves the error view
type Dismiss struct{}

func (Submit) eventName() string              { return "submit" }
func (Prefill) eventName() string             { return "prefill" }
func (PredictionSucceeded) eventName() string { return "prediction_succeeded" }
func (PredictionFailed) eventName() string    { return "prediction_failed" }
func (ExploreRequested) eventName() string    { return "explore_requested" }
func (OffersLoaded) eventName() string        { return "offers_loaded" }
func (OffersFailed) eventName() string        { return "offers_failed" }
func (NewApplication) eventName() string      { return "new_application" }
func (Reset) eventName() string               { return "reset" }
func (Back) eventName() string                { return "back" }
func (Dismiss) eventName() string             { return "dismiss" }

// EventName returns a stable name for logs and metrics
func EventName(e Event) string {
	if e == nil {
		return "nil"
	}
	return e.eventName()
}
