// Package loan serves the loan application pages and form actions.
package loan

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"loanpredictor/internal/config"
	apphttp "loanpredictor/internal/http"
	"loanpredictor/internal/logger"
	"loanpredictor/internal/models"
	"loanpredictor/internal/services/drafts"
	"loanpredictor/internal/services/flow"
	"loanpredictor/internal/services/offers"
	"loanpredictor/internal/services/sessions"
	"loanpredictor/internal/services/validator"
	"loanpredictor/internal/templates"
	"loanpredictor/internal/version"
)

const (
	pageTemplate  = "apply"
	viewTemplate  = "view"
	fieldTemplate = "field_status"

	maxFormBytes = 64 << 10
)

// Handler owns the per-session flow for the browser UI
type Handler struct {
	sessions *sessions.Manager
	drafts   drafts.Store
	renderer *templates.Renderer
	rules    validator.Rules
	features config.FeatureFlags
	secure   bool
	log      logger.Logger
}

// NewHandler wires the UI handlers. A nil draft store disables restore and autosave.
func NewHandler(mgr *sessions.Manager, store drafts.Store, renderer *templates.Renderer, cfg *config.Config, log logger.Logger) *Handler {
	if store == nil {
		store = drafts.NopStore{}
	}
	return &Handler{
		sessions: mgr,
		drafts:   store,
		renderer: renderer,
		rules:    validator.DefaultRules(),
		features: cfg.Features,
		secure:   cfg.App.Environment == config.EnvProduction,
		log:      log,
	}
}

// RegisterRoutes mounts the UI. Form actions go through limiter when it is set.
func (h *Handler) RegisterRoutes(r chi.Router, limiter *apphttp.RateLimiter) {
	r.Get("/", h.Index)
	r.Get("/validate/{field}", h.ValidateField)

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(apphttp.RateLimit(limiter))
		}
		r.Post("/apply", h.Apply)
		r.Post("/explore", h.action((*flow.Controller).Explore))
		r.Post("/back", h.action((*flow.Controller).Back))
		r.Post("/new", h.action((*flow.Controller).NewApplication))
		r.Post("/reset", h.Reset)
		r.Post("/dismiss", h.action((*flow.Controller).Dismiss))
		r.Post("/draft", h.SaveDraft)
	})
}

// Index renders the session's current view
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := h.session(w, r)
	v := ctrl.Machine().View()

	if h.features.SampleData && r.URL.Query().Get("sample") == "true" && v.State == flow.StateForm {
		if next, err := ctrl.Prefill(r.Context(), models.SampleSnapshot()); err == nil {
			v = next
		}
	}

	h.render(w, r, http.StatusOK, v, "")
}

// Apply submits the form for a prediction
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	ctrl, _ := h.session(w, r)

	form, err := readForm(w, r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, "invalid form submission", http.StatusBadRequest)
		return
	}

	v, err := ctrl.Submit(r.Context(), form)
	h.respond(w, r, v, err)
}

func (h *Handler) action(fn func(*flow.Controller, context.Context) (flow.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, _ := h.session(w, r)
		v, err := fn(ctrl, r.Context())
		h.respond(w, r, v, err)
	}
}

// Reset clears the form and forgets the session. The next request for the
// same cookie starts from a fresh controller.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	ctrl, id := h.session(w, r)
	v, err := ctrl.Reset(r.Context())
	if err == nil {
		h.sessions.Remove(id)
	}
	h.respond(w, r, v, err)
}

// respond renders the outcome of a form action. Browsers posting plain forms
// are redirected to / so a reload never repeats the action.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, v flow.View, err error) {
	notice := ""
	status := http.StatusOK

	switch {
	case errors.Is(err, flow.ErrBusy):
		status = http.StatusConflict
		notice = "Your previous request is still being processed."
	case errors.Is(err, flow.ErrInvalidTransition):
		status = http.StatusConflict
		h.log.Debug("Ignored action", map[string]interface{}{"error": err.Error(), "path": r.URL.Path})
	case err != nil:
		h.log.WithError(err).Error("Action failed", map[string]interface{}{"path": r.URL.Path})
		status = http.StatusInternalServerError
	case v.HasFieldErrors():
		status = http.StatusUnprocessableEntity
	}

	if !apphttp.IsPartial(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, status, v, notice)
}

// SaveDraft stores the raw form for later restore
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	if !h.features.AutoSave {
		http.NotFound(w, r)
		return
	}

	_, id := h.session(w, r)
	form, err := readForm(w, r)
	if err != nil {
		apphttp.ErrorResponse(w, h.log, "invalid form submission", http.StatusBadRequest)
		return
	}

	if !form.IsEmpty() {
		if err := h.drafts.Save(r.Context(), id, form); err != nil {
			h.log.WithError(err).Warn("Draft autosave failed", map[string]interface{}{"session": id})
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValidateField renders the inline status of one field
func (h *Handler) ValidateField(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	q := r.URL.Query()
	value := q.Get("value")
	if !q.Has("value") {
		value = q.Get(field) // htmx sends the input under its own name
	}
	res := validator.ValidateField(h.rules, field, value)

	apphttp.Render(w, r, h.renderer, http.StatusOK, fieldTemplate, "", map[string]interface{}{
		"Field":  field,
		"Result": res,
	})
}

// session returns the caller's controller, issuing a cookie and restoring a
// saved draft for sessions this process has not seen yet.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*flow.Controller, string) {
	id := ""
	if c, err := r.Cookie(sessions.CookieName); err == nil && sessions.ValidID(c.Value) {
		id = c.Value
	}
	if id == "" {
		id = sessions.NewID()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessions.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	ctrl, created := h.sessions.Get(id)
	if created && h.features.AutoSave {
		h.restoreDraft(r.Context(), ctrl, id)
	}
	return ctrl, id
}

func (h *Handler) restoreDraft(ctx context.Context, ctrl *flow.Controller, id string) {
	form, err := h.drafts.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, drafts.ErrNotFound) {
			h.log.WithError(err).Warn("Draft restore failed", map[string]interface{}{"session": id})
		}
		return
	}
	if _, err := ctrl.Prefill(ctx, form); err != nil {
		h.log.WithError(err).Debug("Draft not applied", map[string]interface{}{"session": id})
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, v flow.View, notice string) {
	data := map[string]interface{}{
		"View":     v,
		"State":    v.State.String(),
		"Sections": formSections,
		"Notice":   notice,
		"Features": h.features,
		"Version":  version.Get().Short(),
	}
	if v.State == flow.StateRecommendations {
		data["Cards"] = offers.Render(v.Offers)
	}
	apphttp.Render(w, r, h.renderer, status, pageTemplate, viewTemplate, data)
}

// readForm extracts the known loan fields from a posted form
func readForm(w http.ResponseWriter, r *http.Request) (models.FormSnapshot, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	form := make(models.FormSnapshot, len(models.FieldOrder))
	for _, field := range models.FieldOrder {
		form[field] = strings.TrimSpace(r.PostForm.Get(field))
	}
	return form, nil
}
