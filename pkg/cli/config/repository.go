package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/repository/firestore"
	"github.com/secmon-lab/huddle/pkg/repository/memory"
	"github.com/secmon-lab/huddle/pkg/repository/rdb"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend          string
	projectID        string
	databaseID       string
	collectionPrefix string
	dsn              string
	autoMigrate      bool
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (firestore, sqlite, postgres or memory)",
			Value:       BackendFirestore,
			Category:    "Repository",
			Sources:     cli.EnvVars("HUDDLE_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("HUDDLE_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("HUDDLE_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix of every Firestore collection name",
			Category:    "Repository",
			Sources:     cli.EnvVars("HUDDLE_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.StringFlag{
			Name:        "sql-dsn",
			Usage:       "SQL data source (file path for sqlite, connection string for postgres)",
			Category:    "Repository",
			Sources:     cli.EnvVars("HUDDLE_SQL_DSN"),
			Destination: &r.dsn,
		},
		&cli.BoolFlag{
			Name:        "sql-auto-migrate",
			Usage:       "Create or update SQL tables on startup",
			Category:    "Repository",
			Sources:     cli.EnvVars("HUDDLE_SQL_AUTO_MIGRATE"),
			Destination: &r.autoMigrate,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
		slog.String("collection_prefix", r.collectionPrefix),
		slog.Int("dsn.len", len(r.dsn)),
	)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// CollectionPrefix returns the Firestore collection prefix
func (r *Repository) CollectionPrefix() string {
	return r.collectionPrefix
}

// OpenSQL opens the relational backend without migrating it
func (r *Repository) OpenSQL() (*rdb.RDB, error) {
	var dialect string
	switch r.backend {
	case BackendSQLite:
		dialect = rdb.DialectSQLite
	case BackendPostgres:
		dialect = rdb.DialectPostgres
	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "backend is not an SQL backend", goerr.V(BackendKey, r.backend))
	}
	if r.dsn == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "sql-dsn is required when using an SQL backend", goerr.V(BackendKey, r.backend))
	}

	repo, err := rdb.New(dialect, r.dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open SQL repository", goerr.V(BackendKey, r.backend))
	}
	return repo, nil
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "firestore-project-id is required when using firestore backend")
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, firestore.WithCollectionPrefix(r.collectionPrefix))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case BackendSQLite, BackendPostgres:
		repo, err := r.OpenSQL()
		if err != nil {
			return nil, err
		}
		if r.autoMigrate {
			if err := repo.Migrate(); err != nil {
				_ = repo.Close()
				return nil, goerr.Wrap(err, "failed to migrate SQL schema")
			}
		}
		logging.Default().Info("Using SQL repository", "backend", r.backend, "auto_migrate", r.autoMigrate)
		return repo, nil

	case BackendMemory:
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid repository backend", goerr.V(BackendKey, r.backend))
	}
}
