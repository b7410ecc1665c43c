package slack

import (
	"context"
	"errors"
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

// client implements interfaces.UserSource backed by the Slack Web API
type client struct {
	api *slack.Client
}

var _ interfaces.UserSource = &client{}

// New creates a Slack user-info service with the provided bot token
func New(token string) (interfaces.UserSource, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	return &client{
		api: slack.New(token),
	}, nil
}

// FetchUser retrieves the user profile for the given user ID. A throttled
// response maps to types.ErrRateLimited carrying the retry-after duration.
func (c *client) FetchUser(ctx context.Context, id types.UserID) (*model.SlackUser, error) {
	user, err := c.api.GetUserInfoContext(ctx, string(id))
	if err != nil {
		var rle *slack.RateLimitedError
		if errors.As(err, &rle) {
			return nil, goerr.Wrap(types.ErrRateLimited, "users.info throttled",
				goerr.V(types.UserIDKey, id),
				goerr.V(types.RetryAfterKey, rle.RetryAfter))
		}
		return nil, goerr.Wrap(types.ErrUserLookupFailed, "users.info failed",
			goerr.V(types.UserIDKey, id), goerr.V("cause", err.Error()))
	}

	return &model.SlackUser{
		ID:       types.UserID(user.ID),
		Name:     user.Name,
		RealName: user.RealName,
		Extra: map[string]string{
			"email":    user.Profile.Email,
			"image_48": user.Profile.Image48,
		},
		LastRefreshed: time.Now(),
	}, nil
}
