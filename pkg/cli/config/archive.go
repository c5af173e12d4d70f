package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/service/archive"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Archive holds the Cloud Storage destination of cleaned up instances
type Archive struct {
	bucket string
	prefix string
}

func (x *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket receiving instances before cleanup deletes them",
			Category:    "Archive",
			Sources:     cli.EnvVars("HUDDLE_ARCHIVE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix in the archive bucket",
			Value:       "standups",
			Category:    "Archive",
			Sources:     cli.EnvVars("HUDDLE_ARCHIVE_PREFIX"),
			Destination: &x.prefix,
		},
	}
}

func (x Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

// Configure returns nil without a bucket. The caller closes the returned GCS client.
func (x *Archive) Configure(ctx context.Context) (*archive.GCS, error) {
	if x.bucket == "" {
		logging.Default().Info("Archive bucket not configured, cleanup deletes without archiving")
		return nil, nil
	}

	svc, err := archive.NewGCS(ctx, x.bucket, x.prefix)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize archive")
	}
	logging.Default().Info("Archiving instances before cleanup", "bucket", x.bucket, "prefix", x.prefix)
	return svc, nil
}
