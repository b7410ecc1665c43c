package model

import (
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/types"
)

// UserCacheTTL is the maximum age of a cached user entry before a remote
// refresh is required.
const UserCacheTTL = 7 * 24 * time.Hour

// SlackUser is a cached Slack workspace user. Entries are replaced whole on
// refresh, never partially updated.
type SlackUser struct {
	ID       types.UserID
	Name     string // Slack username (e.g. "john.doe")
	RealName string // Display name (e.g. "John Doe")

	// Extra carries profile fields the cache persists but does not
	// consume, so a reload round-trips the remote payload.
	Extra map[string]string

	LastRefreshed time.Time
}

// Expired reports whether the entry is older than the cache TTL.
func (u *SlackUser) Expired(now time.Time) bool {
	return now.Sub(u.LastRefreshed) > UserCacheTTL
}

// DisplayName returns the name shown in the sheet's Username column.
// TODO: prefer Profile.DisplayName over RealName once the fetcher caches it.
func (u *SlackUser) DisplayName() string {
	return u.RealName
}
