package file

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Store persists the user directory cache as a single JSON file: a map of
// user ID to profile fields plus last_refreshed as epoch seconds. The file
// is rewritten whole on Save and read whole on Load.
type Store struct {
	path string
}

var _ interfaces.CacheStore = &Store{}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, goerr.New("cache file path is required")
	}
	return &Store{path: path}, nil
}

// userDoc is the file persistence model
type userDoc struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	RealName      string            `json:"real_name"`
	Extra         map[string]string `json:"extra,omitempty"`
	LastRefreshed float64           `json:"last_refreshed"`
}

func toDoc(u *model.SlackUser) *userDoc {
	return &userDoc{
		ID:            string(u.ID),
		Name:          u.Name,
		RealName:      u.RealName,
		Extra:         u.Extra,
		LastRefreshed: float64(u.LastRefreshed.UnixNano()) / float64(time.Second),
	}
}

func fromDoc(doc *userDoc) *model.SlackUser {
	sec, frac := math.Modf(doc.LastRefreshed)
	return &model.SlackUser{
		ID:            types.UserID(doc.ID),
		Name:          doc.Name,
		RealName:      doc.RealName,
		Extra:         doc.Extra,
		LastRefreshed: time.Unix(int64(sec), int64(frac*float64(time.Second))),
	}
}

// Load reads the full cache file. A missing file is an empty cache, not an
// error (first run).
func (s *Store) Load(ctx context.Context) (map[types.UserID]*model.SlackUser, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[types.UserID]*model.SlackUser{}, nil
		}
		return nil, goerr.Wrap(err, "failed to read user cache file", goerr.V("path", s.path))
	}

	var docs map[string]*userDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, goerr.Wrap(err, "failed to parse user cache file", goerr.V("path", s.path))
	}

	users := make(map[types.UserID]*model.SlackUser, len(docs))
	for id, doc := range docs {
		users[types.UserID(id)] = fromDoc(doc)
	}
	return users, nil
}

// Save rewrites the cache file with the full user set, truncating any
// previous contents.
func (s *Store) Save(ctx context.Context, users map[types.UserID]*model.SlackUser) error {
	docs := make(map[string]*userDoc, len(users))
	for id, u := range users {
		docs[string(id)] = toDoc(u)
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal user cache")
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write user cache file", goerr.V("path", s.path))
	}
	return nil
}

func (s *Store) Close() error { return nil }
