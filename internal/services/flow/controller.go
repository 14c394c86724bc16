package flow

import (
	"context"

	"loanpredictor/internal/models"
)

// Service is the remote prediction service
type Service interface {
	Predict(ctx context.Context, app *models.LoanApplication) (*models.PredictionResult, error)
	ExploreLoans(ctx context.Context, app *models.LoanApplication) ([]models.LoanOffer, error)
}

// Controller performs the network effects of user actions on a Machine
type Controller struct {
	machine *Machine
	svc     Service
}

// NewController binds a machine to the service it calls
func NewController(m *Machine, svc Service) *Controller {
	return &Controller{machine: m, svc: svc}
}

// Machine returns the controlled machine
func (c *Controller) Machine() *Machine {
	return c.machine
}

// Submit validates the form and, when valid, asks for a prediction
func (c *Controller) Submit(ctx context.Context, form models.FormSnapshot) (View, error) {
	v, err := c.machine.Dispatch(ctx, Submit{Form: form})
	if err != nil || v.State != StateLoading {
		return v, err
	}

	result, err := c.svc.Predict(ctx, v.Application)
	if err != nil {
		return c.machine.Dispatch(ctx, PredictionFailed{Err: err})
	}
	return c.machine.Dispatch(ctx, PredictionSucceeded{Result: result})
}

// Explore fetches loan offers for an approved application
func (c *Controller) Explore(ctx context.Context) (View, error) {
	v, err := c.machine.Dispatch(ctx, ExploreRequested{})
	if err != nil || v.State != StateLoading {
		return v, err
	}

	list, err := c.svc.ExploreLoans(ctx, v.Application)
	if err != nil {
		return c.machine.Dispatch(ctx, OffersFailed{Err: err})
	}
	return c.machine.Dispatch(ctx, OffersLoaded{Offers: list})
}

func (c *Controller) Prefill(ctx context.Context, form models.FormSnapshot) (View, error) {
	return c.machine.Dispatch(ctx, Prefill{Form: form})
}

func (c *Controller) Back(ctx context.Context) (View, error) {
	return c.machine.Dispatch(ctx, Back{})
}

func (c *Controller) NewApplication(ctx context.Context) (View, error) {
	return c.machine.Dispatch(ctx, NewApplication{})
}

func (c *Controller) Reset(ctx context.Context) (View, error) {
	return c.machine.Dispatch(ctx, Reset{})
}

func (c *Controller) Dismiss(ctx context.Context) (View, error) {
	return c.machine.Dispatch(ctx, Dismiss{})
}
