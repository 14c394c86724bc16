package flow

import (
	"errors"
	"fmt"

	"loanpredictor/internal/models"
	"loanpredictor/internal/services/apiclient"
	"loanpredictor/internal/services/extractor"
	"loanpredictor/internal/services/validator"
)

var (
	// ErrInvalidTransition is returned for an event the current state does not accept
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrBusy is returned for user actions while a request is outstanding
	ErrBusy = errors.New("a request is already in progress")
)

var formRules = validator.DefaultRules()

// Transition computes the view that follows v when e occurs. It is pure: on error
// the returned view is v unchanged.
func Transition(v View, e Event) (View, error) {
	switch v.State {
	case StateForm:
		return fromForm(v, e)
	case StateLoading:
		return fromLoading(v, e)
	case StateResult:
		return fromResult(v, e)
	case StateError:
		return fromError(v, e)
	case StateRecommendations:
		return fromRecommendations(v, e)
	}
	return v, invalid(v, e)
}

func fromForm(v View, e Event) (View, error) {
	switch ev := e.(type) {
	case Submit:
		form := ev.Form.Clone()
		if errs := validator.ValidateForm(formRules, form); errs != nil {
			return View{State: StateForm, Form: form, FieldErrors: errs}, nil
		}
		app, err := extractor.Extract(form)
		if err != nil {
			return errorView(form, err), nil
		}
		return View{State: StateLoading, Form: form, Application: app, Pending: ActionPredict}, nil
	case Prefill:
		return View{State: StateForm, Form: ev.Form.Clone()}, nil
	case Reset:
		return Initial(), nil
	}
	return v, invalid(v, e)
}

func fromLoading(v View, e Event) (View, error) {
	switch ev := e.(type) {
	case PredictionSucceeded:
		if v.Pending != ActionPredict {
			break
		}
		if ev.Result == nil {
			return errorView(v.Form, &apiclient.RequestError{Message: apiclient.MsgUnexpected}), nil
		}
		return View{State: StateResult, Form: v.Form, Application: v.Application, Prediction: ev.Result}, nil
	case PredictionFailed:
		if v.Pending != ActionPredict {
			break
		}
		return errorView(v.Form, ev.Err), nil
	case OffersLoaded:
		if v.Pending != ActionExplore {
			break
		}
		list := ev.Offers
		if list == nil {
			list = []models.LoanOffer{}
		}
		return View{
			State:       StateRecommendations,
			Form:        v.Form,
			Application: v.Application,
			Prediction:  v.Prediction,
			Offers:      list,
		}, nil
	case OffersFailed:
		if v.Pending != ActionExplore {
			break
		}
		return errorView(v.Form, ev.Err), nil
	default:
		return v, fmt.Errorf("%w: %s while %s", ErrBusy, EventName(e), v.Pending)
	}
	return v, invalid(v, e)
}

func fromResult(v View, e Event) (View, error) {
	switch e.(type) {
	case NewApplication:
		return View{State: StateForm, Form: v.Form}, nil
	case Reset:
		return Initial(), nil
	case ExploreRequested:
		if !v.Prediction.IsApproved() {
			break
		}
		if v.Application == nil {
			return errorView(v.Form, &apiclient.RequestError{Message: apiclient.MsgNoSubmission}), nil
		}
		return View{
			State:       StateLoading,
			Form:        v.Form,
			Application: v.Application,
			Prediction:  v.Prediction,
			Pending:     ActionExplore,
		}, nil
	}
	return v, invalid(v, e)
}

func fromError(v View, e Event) (View, error) {
	switch e.(type) {
	case Dismiss:
		return View{State: StateForm, Form: v.Form}, nil
	case Reset:
		return Initial(), nil
	}
	return v, invalid(v, e)
}

func fromRecommendations(v View, e Event) (View, error) {
	if _, ok := e.(Back); ok {
		return View{State: StateResult, Form: v.Form, Application: v.Application, Prediction: v.Prediction}, nil
	}
	return v, invalid(v, e)
}

func errorView(form models.FormSnapshot, err error) View {
	msg := apiclient.DisplayMessage(err)
	if msg == "" {
		msg = apiclient.MsgGeneric
	}
	return View{State: StateError, Form: form, ErrorMessage: msg, Err: err}
}

func invalid(v View, e Event) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, EventName(e), v.State)
}
