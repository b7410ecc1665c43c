package model_test

import (
	"testing"
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/model"
)

func TestSlackUserExpired(t *testing.T) {
	now := time.Date(2021, 1, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		refreshed   time.Time
		wantExpired bool
	}{
		{"just refreshed", now, false},
		{"one day old", now.Add(-24 * time.Hour), false},
		{"exactly at the TTL", now.Add(-model.UserCacheTTL), false},
		{"just past the TTL", now.Add(-model.UserCacheTTL - time.Second), true},
		{"ancient", now.Add(-30 * 24 * time.Hour), true},
		{"zero value", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &model.SlackUser{ID: "U1", RealName: "Alice", LastRefreshed: tt.refreshed}
			if got := u.Expired(now); got != tt.wantExpired {
				t.Errorf("Expired() = %v, want %v", got, tt.wantExpired)
			}
		})
	}
}
