// Package flow implements the per-session view state machine of the loan
// application UI: form, loading, result, error and recommendations.
package flow

import (
	"loanpredictor/internal/models"
)

// State is the single active view
type State int

const (
	StateForm State = iota
	StateLoading
	StateResult
	StateError
	StateRecommendations
)

var stateNames = map[State]string{
	StateForm:            "form",
	StateLoading:         "loading",
	StateResult:          "result",
	StateError:           "error",
	StateRecommendations: "recommendations",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Action is the network call a Loading view is waiting on
type Action int

const (
	ActionNone Action = iota
	ActionPredict
	ActionExplore
)

func (a Action) String() string {
	switch a {
	case ActionPredict:
		return "predict"
	case ActionExplore:
		return "explore"
	}
	return "none"
}

// View is the complete UI state of one session. Views are never mutated
// after Transition returns them; every transition builds a fresh value.
type View struct {
	State State

	// Form is the raw form as last entered; FieldErrors holds inline messages.
	Form        models.FormSnapshot
	FieldErrors models.ValidationErrors

	Application *models.LoanApplication
	Prediction  *models.PredictionResult
	Offers      []models.LoanOffer

	// ErrorMessage is the one user-facing message of the Error view; Err is
	// the underlying cause, kept for logging only.
	ErrorMessage string
	Err          error

	Pending Action
}

// Initial returns the starting view
func Initial() View {
	return View{State: StateForm}
}

// CanExplore reports whether the explore-offers action is offered
func (v View) CanExplore() bool {
	return v.State == StateResult && v.Prediction.IsApproved()
}

// HasFieldErrors reports whether the form view carries inline errors
func (v View) HasFieldErrors() bool {
	return len(v.FieldErrors) > 0
}
