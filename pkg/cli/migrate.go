package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/cli/config"
	"github.com/secmon-lab/huddle/pkg/repository/firestore"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview Firestore index changes without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes or the SQL schema",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, &repoCfg, dryRun)
			case config.BackendSQLite, config.BackendPostgres:
				return migrateSQL(&repoCfg, dryRun)
			default:
				return goerr.Wrap(config.ErrInvalidConfig, "backend has nothing to migrate", goerr.V(config.BackendKey, repoCfg.Backend()))
			}
		},
	}
}

func migrateSQL(repoCfg *config.Repository, dryRun bool) error {
	logger := logging.Default()
	if dryRun {
		logger.Info("Dry run is not supported for SQL backends, nothing applied")
		return nil
	}

	db, err := repoCfg.OpenSQL()
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close SQL repository", "error", err.Error())
		}
	}()

	if err := db.Migrate(); err != nil {
		return goerr.Wrap(err, "failed to migrate SQL schema")
	}
	logger.Info("SQL schema migrated", "backend", repoCfg.Backend())
	return nil
}

func migrateFirestore(ctx context.Context, repoCfg *config.Repository, dryRun bool) error {
	logger := logging.Default()
	if repoCfg.ProjectID() == "" {
		return goerr.Wrap(config.ErrInvalidConfig, "firestore-project-id is required when using firestore backend")
	}

	logger.Info("Migrate configuration",
		"projectID", repoCfg.ProjectID(),
		"databaseID", repoCfg.DatabaseID(),
		"collectionPrefix", repoCfg.CollectionPrefix(),
		"dryRun", dryRun)

	indexConfig := getIndexConfig(repoCfg.CollectionPrefix())

	client, err := fireconf.NewClient(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID())
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

// getIndexConfig returns the composite indexes the instance queries need
func getIndexConfig(prefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: firestore.InstancesCollection(prefix),
				Indexes: []fireconf.Index{
					// ListByState: state ==, created_at < ORDER BY created_at
					{
						Fields: []fireconf.IndexField{
							{Path: "state", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
