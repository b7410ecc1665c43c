package memory

import (
	"context"
	"sync"

	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
)

// Store is an in-memory CacheStore for development mode and tests
type Store struct {
	mu    sync.Mutex
	users map[types.UserID]*model.SlackUser
}

var _ interfaces.CacheStore = &Store{}

func New() *Store {
	return &Store{
		users: make(map[types.UserID]*model.SlackUser),
	}
}

func (s *Store) Load(ctx context.Context) (map[types.UserID]*model.SlackUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[types.UserID]*model.SlackUser, len(s.users))
	for id, u := range s.users {
		userCopy := *u
		users[id] = &userCopy
	}
	return users, nil
}

func (s *Store) Save(ctx context.Context, users map[types.UserID]*model.SlackUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[types.UserID]*model.SlackUser, len(users))
	for id, u := range users {
		userCopy := *u
		s.users[id] = &userCopy
	}
	return nil
}

func (s *Store) Close() error { return nil }
