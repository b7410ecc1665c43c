package usecase_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/logmirror/slacksheet/pkg/repository/memory"
	"github.com/logmirror/slacksheet/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type stubUserSource struct {
	mu      sync.Mutex
	fetches int32
	users   map[types.UserID]*model.SlackUser
	err     error
}

func (s *stubUserSource) FetchUser(ctx context.Context, id types.UserID) (*model.SlackUser, error) {
	atomic.AddInt32(&s.fetches, 1)
	if s.err != nil {
		return nil, s.err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, goerr.Wrap(types.ErrUserLookupFailed, "no such user", goerr.V(types.UserIDKey, id))
	}
	userCopy := *u
	return &userCopy, nil
}

func TestDirectoryResolveCachesByTTL(t *testing.T) {
	now := time.Date(2021, 1, 14, 0, 0, 0, 0, time.UTC)
	source := &stubUserSource{users: map[types.UserID]*model.SlackUser{
		"U1": {ID: "U1", RealName: "Alice", LastRefreshed: now},
	}}
	store := memory.New()

	d := usecase.NewUserDirectory(source, store,
		usecase.WithDirectoryClock(func() time.Time { return now }))
	ctx := t.Context()

	// First resolution fetches
	name, err := d.ResolveDisplayName(ctx, "U1")
	gt.NoError(t, err).Required()
	gt.Value(t, name).Equal("Alice")
	gt.Value(t, atomic.LoadInt32(&source.fetches)).Equal(int32(1))

	// Fresh entry: no second fetch
	name, err = d.ResolveDisplayName(ctx, "U1")
	gt.NoError(t, err).Required()
	gt.Value(t, name).Equal("Alice")
	gt.Value(t, atomic.LoadInt32(&source.fetches)).Equal(int32(1))
}

func TestDirectoryRefreshesExpiredEntry(t *testing.T) {
	now := time.Date(2021, 1, 14, 0, 0, 0, 0, time.UTC)
	source := &stubUserSource{users: map[types.UserID]*model.SlackUser{
		"U1": {ID: "U1", RealName: "Alice Renamed", LastRefreshed: now},
	}}

	// Persisted entry is eight days old
	store := memory.New()
	gt.NoError(t, store.Save(t.Context(), map[types.UserID]*model.SlackUser{
		"U1": {ID: "U1", RealName: "Alice", LastRefreshed: now.Add(-8 * 24 * time.Hour)},
	}))

	d := usecase.NewUserDirectory(source, store,
		usecase.WithDirectoryClock(func() time.Time { return now }))

	name, err := d.ResolveDisplayName(t.Context(), "U1")
	gt.NoError(t, err).Required()
	gt.Value(t, name).Equal("Alice Renamed")
	gt.Value(t, atomic.LoadInt32(&source.fetches)).Equal(int32(1))
}

func TestDirectoryUsesPersistedFreshEntry(t *testing.T) {
	now := time.Date(2021, 1, 14, 0, 0, 0, 0, time.UTC)
	source := &stubUserSource{}

	store := memory.New()
	gt.NoError(t, store.Save(t.Context(), map[types.UserID]*model.SlackUser{
		"U1": {ID: "U1", RealName: "Alice", LastRefreshed: now.Add(-time.Hour)},
	}))

	d := usecase.NewUserDirectory(source, store,
		usecase.WithDirectoryClock(func() time.Time { return now }))

	name, err := d.ResolveDisplayName(t.Context(), "U1")
	gt.NoError(t, err).Required()
	gt.Value(t, name).Equal("Alice")
	gt.Value(t, atomic.LoadInt32(&source.fetches)).Equal(int32(0))
}

func TestDirectoryResolveFailure(t *testing.T) {
	source := &stubUserSource{err: goerr.Wrap(types.ErrUserLookupFailed, "boom")}
	d := usecase.NewUserDirectory(source, memory.New())

	_, err := d.ResolveDisplayName(t.Context(), "U1")
	if err == nil {
		t.Fatal("expected lookup error")
	}
}

func TestDirectoryPersist(t *testing.T) {
	now := time.Date(2021, 1, 14, 0, 0, 0, 0, time.UTC)
	source := &stubUserSource{users: map[types.UserID]*model.SlackUser{
		"U1": {ID: "U1", RealName: "Alice", LastRefreshed: now},
		"U2": {ID: "U2", RealName: "Bob", LastRefreshed: now},
	}}
	store := memory.New()

	d := usecase.NewUserDirectory(source, store,
		usecase.WithDirectoryClock(func() time.Time { return now }))
	ctx := t.Context()

	_, err := d.ResolveDisplayName(ctx, "U1")
	gt.NoError(t, err).Required()
	_, err = d.ResolveDisplayName(ctx, "U2")
	gt.NoError(t, err).Required()

	gt.NoError(t, d.Persist(ctx))

	saved, err := store.Load(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, len(saved)).Equal(2)
	gt.Value(t, saved["U1"].RealName).Equal("Alice")
}
