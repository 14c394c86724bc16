package drafts

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"loanpredictor/internal/models"
	"loanpredictor/internal/services/storage"
)

// FileStore keeps one document per session in a storage directory
type FileStore struct {
	storage *storage.Storage
	ttl     time.Duration
	now     func() time.Time
}

// NewFileStore wraps s; drafts older than ttl are treated as absent (ttl <= 0 keeps them forever)
func NewFileStore(s *storage.Storage, ttl time.Duration) *FileStore {
	return &FileStore{storage: s, ttl: ttl, now: time.Now}
}

func (f *FileStore) Save(_ context.Context, id string, form models.FormSnapshot) error {
	data, err := encode(form, f.now())
	if err != nil {
		return err
	}
	return f.storage.Write(id, data)
}

func (f *FileStore) Load(_ context.Context, id string) (models.FormSnapshot, error) {
	data, err := f.storage.Read(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	d, err := decode(data)
	if err != nil {
		return nil, err
	}
	if f.expired(d.SavedAt) {
		_ = f.storage.Delete(id)
		return nil, ErrNotFound
	}
	return d.Form, nil
}

func (f *FileStore) Delete(_ context.Context, id string) error {
	return f.storage.Delete(id)
}

// Prune deletes every expired draft and returns how many were removed
func (f *FileStore) Prune(ctx context.Context) (int, error) {
	if f.ttl <= 0 {
		return 0, nil
	}

	names, err := f.storage.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		modified, err := f.storage.ModTime(name)
		if err != nil || !f.expired(modified) {
			continue
		}
		if err := f.storage.Delete(name); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (f *FileStore) expired(saved time.Time) bool {
	return f.ttl > 0 && f.now().Sub(saved) > f.ttl
}
