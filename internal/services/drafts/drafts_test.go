package drafts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanpredictor/internal/logger"
	"loanpredictor/internal/models"
	"loanpredictor/internal/services/flow"
	"loanpredictor/internal/services/storage"
)

func newFileStore(t *testing.T, ttl time.Duration) *FileStore {
	t.Helper()
	s, err := storage.New(t.TempDir())
	require.NoError(t, err)
	return NewFileStore(s, ttl)
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := NewRedisStore(NewRedisClient(mr.Addr(), "", 0), ttl)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestStoresRoundTrip(t *testing.T) {
	redisStore, _ := newRedisStore(t, time.Hour)
	stores := map[string]Store{
		"file":  newFileStore(t, time.Hour),
		"redis": redisStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := "0b7a1c9e-7d59-4a4e-9c41-5b0d0f1d8a11"

			_, err := store.Load(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)

			form := models.SampleSnapshot()
			form[models.FieldLoanAmount] = "12,000"
			require.NoError(t, store.Save(ctx, id, form))

			got, err := store.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, form, got)

			require.NoError(t, store.Delete(ctx, id))
			_, err = store.Load(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileStoreExpiry(t *testing.T) {
	store := newFileStore(t, time.Hour)
	clock := time.Now()
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "old", models.SampleSnapshot()))
	clock = clock.Add(2 * time.Hour)

	_, err := store.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := store.storage.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFileStorePrune(t *testing.T) {
	store := newFileStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", models.SampleSnapshot()))
	require.NoError(t, store.Save(ctx, "b", models.SampleSnapshot()))

	removed, err := store.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	store.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	removed, err = store.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestFileStoreEncrypted(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.New(dir)
	require.NoError(t, err)
	require.NoError(t, s.EnableEncryption("draft-passphrase"))

	store := NewFileStore(s, 0)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "enc", models.SampleSnapshot()))

	s.Lock()
	err = store.Save(ctx, "enc", models.SampleSnapshot())
	assert.True(t, errors.Is(err, storage.ErrLocked))

	require.NoError(t, s.Unlock("draft-passphrase"))
	got, err := store.Load(ctx, "enc")
	require.NoError(t, err)
	assert.Equal(t, models.SampleSnapshot(), got)
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", models.SampleSnapshot()))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"s1"))
	require.NoError(t, store.Ping(ctx))

	mr.FastForward(2 * time.Minute)
	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreCorruptDraft(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	require.NoError(t, mr.Set(keyPrefix+"bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNopStore(t *testing.T) {
	var store Store = NopStore{}
	ctx := context.Background()
	assert.NoError(t, store.Save(ctx, "x", models.SampleSnapshot()))
	_, err := store.Load(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "x"))
}

func TestSaveHook(t *testing.T) {
	store := newFileStore(t, time.Hour)
	ctx := context.Background()
	m := flow.New(SaveHook(store, "sess", logger.NewTestLogger(t)))

	invalid := models.SampleSnapshot()
	invalid[models.FieldCreditScore] = "100"
	_, err := m.Dispatch(ctx, flow.Submit{Form: invalid})
	require.NoError(t, err)

	got, err := store.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, "100", got.Get(models.FieldCreditScore))

	_, err = m.Dispatch(ctx, flow.Reset{})
	require.NoError(t, err)
	_, err = store.Load(ctx, "sess")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingStore struct{ NopStore }

func (failingStore) Save(context.Context, string, models.FormSnapshot) error {
	return errors.New("disk full")
}

func TestSaveHookFailureIsNotFatal(t *testing.T) {
	m := flow.New(SaveHook(failingStore{}, "sess", logger.NewTestLogger(t)))

	v, err := m.Dispatch(context.Background(), flow.Prefill{Form: models.SampleSnapshot()})
	require.NoError(t, err)
	assert.Equal(t, flow.StateForm, v.State)
}
