package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/logmirror/slacksheet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/singleflight"
)

// UserDirectory resolves Slack user IDs to display names through a TTL
// cache backed by a persisted store. Entries older than model.UserCacheTTL
// are refreshed from the remote user-info service; concurrent misses for
// the same ID share one remote fetch.
type UserDirectory struct {
	source interfaces.UserSource
	store  interfaces.CacheStore
	now    func() time.Time

	mu     sync.Mutex
	users  map[types.UserID]*model.SlackUser
	loaded bool
	group  singleflight.Group
}

type DirectoryOption func(*UserDirectory)

// WithDirectoryClock overrides the time source (tests)
func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(d *UserDirectory) {
		d.now = now
	}
}

func NewUserDirectory(source interfaces.UserSource, store interfaces.CacheStore, opts ...DirectoryOption) *UserDirectory {
	d := &UserDirectory{
		source: source,
		store:  store,
		now:    time.Now,
		users:  make(map[types.UserID]*model.SlackUser),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ResolveDisplayName returns the display name for the given user ID,
// fetching from the remote service on a cache miss or expired entry. The
// remote call runs outside the directory lock.
func (d *UserDirectory) ResolveDisplayName(ctx context.Context, id types.UserID) (string, error) {
	d.ensureLoaded(ctx)

	d.mu.Lock()
	if u, ok := d.users[id]; ok && !u.Expired(d.now()) {
		name := u.DisplayName()
		d.mu.Unlock()
		return name, nil
	}
	d.mu.Unlock()

	v, err, _ := d.group.Do(string(id), func() (interface{}, error) {
		u, err := d.source.FetchUser(ctx, id)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to refresh user entry", goerr.V(types.UserIDKey, id))
		}

		d.mu.Lock()
		d.users[id] = u
		d.mu.Unlock()
		return u, nil
	})
	if err != nil {
		return "", err
	}

	return v.(*model.SlackUser).DisplayName(), nil
}

// ensureLoaded reads the persisted cache once, on first access after
// process start. A broken store degrades to an empty cache; name
// resolution must not depend on cache infrastructure.
func (d *UserDirectory) ensureLoaded(ctx context.Context) {
	d.mu.Lock()
	if d.loaded {
		d.mu.Unlock()
		return
	}
	d.loaded = true
	d.mu.Unlock()

	users, err := d.store.Load(ctx)
	if err != nil {
		logging.From(ctx).Warn("failed to load persisted user cache, starting empty",
			"error", err.Error())
		return
	}

	d.mu.Lock()
	for id, u := range users {
		d.users[id] = u
	}
	d.mu.Unlock()

	logging.From(ctx).Info("user cache loaded", "entries", len(users))
}

// Persist writes the full cache to the durable store. Called at teardown;
// entries refreshed between flush points are at risk on crash, accepted
// because upstream redelivers events at least once.
func (d *UserDirectory) Persist(ctx context.Context) error {
	d.mu.Lock()
	users := make(map[types.UserID]*model.SlackUser, len(d.users))
	for id, u := range d.users {
		userCopy := *u
		users[id] = &userCopy
	}
	d.mu.Unlock()

	if err := d.store.Save(ctx, users); err != nil {
		return goerr.Wrap(err, "failed to persist user cache", goerr.V("entries", len(users)))
	}

	logging.From(ctx).Info("user cache persisted", "entries", len(users))
	return nil
}

// Len returns the number of cached entries
func (d *UserDirectory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.users)
}
