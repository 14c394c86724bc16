// Package drafts persists the raw loan form per session so an interrupted
// application can be restored. Persistence is best-effort: callers log
// failures and carry on.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"loanpredictor/internal/logger"
	"loanpredictor/internal/models"
	"loanpredictor/internal/services/flow"
)

// ErrNotFound is returned by Load when no live draft exists
var ErrNotFound = errors.New("draft not found")

// Store saves and restores raw form snapshots keyed by session id
type Store interface {
	Save(ctx context.Context, id string, form models.FormSnapshot) error
	Load(ctx context.Context, id string) (models.FormSnapshot, error)
	Delete(ctx context.Context, id string) error
}

// Draft is the stored record
type Draft struct {
	Form    models.FormSnapshot `json:"form"`
	SavedAt time.Time           `json:"saved_at"`
}

func encode(form models.FormSnapshot, now time.Time) ([]byte, error) {
	data, err := json.Marshal(Draft{Form: form, SavedAt: now.UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	if d.Form == nil {
		d.Form = models.FormSnapshot{}
	}
	return &d, nil
}

// NopStore discards drafts
type NopStore struct{}

func (NopStore) Save(context.Context, string, models.FormSnapshot) error { return nil }

func (NopStore) Load(context.Context, string) (models.FormSnapshot, error) {
	return nil, ErrNotFound
}

func (NopStore) Delete(context.Context, string) error { return nil }

// SaveHook keeps the session's draft in step with the form: submitted and
// prefilled forms are saved, a reset deletes the draft.
func SaveHook(store Store, id string, log logger.Logger) flow.Hook {
	return func(ctx context.Context, c flow.Change) {
		var err error
		switch c.Event.(type) {
		case flow.Submit, flow.Prefill:
			if c.To.Form.IsEmpty() {
				return
			}
			err = store.Save(ctx, id, c.To.Form)
		case flow.Reset:
			err = store.Delete(ctx, id)
		default:
			return
		}
		if err != nil {
			log.WithError(err).Warn("Draft update failed", map[string]interface{}{
				"session": id,
				"event":   flow.EventName(c.Event),
			})
		}
	}
}
