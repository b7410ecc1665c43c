package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/domain/model"
	"github.com/logmirror/slacksheet/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const slackUsersCollection = "slack_users"

// Store persists the user directory cache in a Firestore collection, one
// document per user. Save uses the replace strategy (delete all, then bulk
// write) to avoid orphaned records.
type Store struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.CacheStore = &Store{}

type Option func(*Store)

func WithCollectionPrefix(prefix string) Option {
	return func(s *Store) {
		s.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID string, opts ...Option) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("projectID", projectID))
	}

	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// userDoc is the Firestore persistence model
type userDoc struct {
	ID            string            `firestore:"id"`
	Name          string            `firestore:"name"`
	RealName      string            `firestore:"real_name"`
	Extra         map[string]string `firestore:"extra,omitempty"`
	LastRefreshed time.Time         `firestore:"last_refreshed"`
}

func toDoc(u *model.SlackUser) *userDoc {
	return &userDoc{
		ID:            string(u.ID),
		Name:          u.Name,
		RealName:      u.RealName,
		Extra:         u.Extra,
		LastRefreshed: u.LastRefreshed,
	}
}

func fromDoc(doc *userDoc) *model.SlackUser {
	return &model.SlackUser{
		ID:            types.UserID(doc.ID),
		Name:          doc.Name,
		RealName:      doc.RealName,
		Extra:         doc.Extra,
		LastRefreshed: doc.LastRefreshed,
	}
}

func (s *Store) collection() *firestore.CollectionRef {
	if s.collectionPrefix != "" {
		return s.client.Collection(s.collectionPrefix + "_" + slackUsersCollection)
	}
	return s.client.Collection(slackUsersCollection)
}

// Load retrieves all cached users from Firestore
func (s *Store) Load(ctx context.Context) (map[types.UserID]*model.SlackUser, error) {
	iter := s.collection().Documents(ctx)
	defer iter.Stop()

	users := make(map[types.UserID]*model.SlackUser)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if status.Code(err) == codes.NotFound {
			// Collection not provisioned yet: an empty cache, same as the
			// file store's missing-file case
			return users, nil
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate cached users")
		}

		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode cached user", goerr.V("doc", snap.Ref.ID))
		}

		u := fromDoc(&doc)
		users[u.ID] = u
	}

	return users, nil
}

// Save replaces the collection contents with the given user set
func (s *Store) Save(ctx context.Context, users map[types.UserID]*model.SlackUser) error {
	bw := s.client.BulkWriter(ctx)

	iter := s.collection().Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to iterate cached users for replace")
		}
		if _, ok := users[types.UserID(snap.Ref.ID)]; ok {
			continue // will be overwritten below
		}
		if _, err := bw.Delete(snap.Ref); err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to queue stale user delete", goerr.V("doc", snap.Ref.ID))
		}
	}

	for id, u := range users {
		if _, err := bw.Set(s.collection().Doc(string(id)), toDoc(u)); err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to queue user write", goerr.V(types.UserIDKey, id))
		}
	}

	bw.End()
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
