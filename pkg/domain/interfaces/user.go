package interfaces

import (
	"context"

	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
)

// UserSource fetches user profiles from the backing user-info service.
// A throttled response is types.ErrRateLimited with a retry-after value;
// any other failure is types.ErrUserLookupFailed.
type UserSource interface {
	FetchUser(ctx context.Context, id types.UserID) (*model.SlackUser, error)
}

// CacheStore persists the user directory cache. Load reads the full cache
// on first access; Save rewrites it whole at flush points (teardown).
type CacheStore interface {
	Load(ctx context.Context) (map[types.UserID]*model.SlackUser, error)
	Save(ctx context.Context, users map[types.UserID]*model.SlackUser) error
	Close() error
}
