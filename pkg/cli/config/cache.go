package config

import (
	"context"
	"log/slog"

	"github.com/logmirror/slacksheet/pkg/domain/interfaces"
	"github.com/logmirror/slacksheet/pkg/repository/file"
	"github.com/logmirror/slacksheet/pkg/repository/firestore"
	"github.com/logmirror/slacksheet/pkg/repository/memory"
	"github.com/logmirror/slacksheet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Cache holds CLI flags for the user directory cache backend
type Cache struct {
	backend          string
	filePath         string
	projectID        string
	collectionPrefix string
}

func (x *Cache) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cache-backend",
			Usage:       "User cache backend type (file, firestore or memory)",
			Category:    "Cache",
			Value:       "file",
			Sources:     cli.EnvVars("SLACKSHEET_CACHE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "cache-file",
			Usage:       "Path to the user cache JSON file (file backend)",
			Category:    "Cache",
			Value:       "slack_users.json",
			Sources:     cli.EnvVars("SLACKSHEET_CACHE_FILE"),
			Destination: &x.filePath,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Cache",
			Sources:     cli.EnvVars("SLACKSHEET_FIRESTORE_PROJECT_ID"),
			Destination: &x.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix for Firestore collection names",
			Category:    "Cache",
			Sources:     cli.EnvVars("SLACKSHEET_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &x.collectionPrefix,
		},
	}
}

func (x Cache) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("file", x.filePath),
		slog.String("project-id", x.projectID),
	)
}

// Configure initializes the cache store based on the configured backend.
// The caller is responsible for calling Close() on the returned store.
func (x *Cache) Configure(ctx context.Context) (interfaces.CacheStore, error) {
	switch x.backend {
	case "file":
		store, err := file.New(x.filePath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize file cache store")
		}
		logging.Default().Info("Using file cache store", "path", x.filePath)
		return store, nil

	case "firestore":
		if x.projectID == "" {
			return nil, goerr.New("firestore-project-id is required when using firestore backend")
		}
		var opts []firestore.Option
		if x.collectionPrefix != "" {
			opts = append(opts, firestore.WithCollectionPrefix(x.collectionPrefix))
		}
		store, err := firestore.New(ctx, x.projectID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore cache store")
		}
		logging.Default().Info("Using Firestore cache store", "project_id", x.projectID)
		return store, nil

	case "memory":
		logging.Default().Info("Using in-memory cache store (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.New("invalid cache backend", goerr.V("backend", x.backend))
	}
}
