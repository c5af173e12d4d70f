package archive

import (
	"context"
	"encoding/json"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/utils/safe"
)

// Service stores cycles that are about to be deleted
type Service interface {
	Archive(ctx context.Context, record *model.ArchiveRecord) error
}

// GCS writes one JSON object per instance into a Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ Service = &GCS{}

func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("archive bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// ObjectName is the object path of an archived instance
func ObjectName(prefix string, inst *model.StandupInstance) string {
	return path.Join(prefix, inst.TeamID.String(), inst.TargetDate.String(), inst.ID.String()+".json")
}

func (g *GCS) Archive(ctx context.Context, record *model.ArchiveRecord) error {
	if record == nil || record.Instance == nil {
		return goerr.New("archive record has no instance")
	}

	name := ObjectName(g.prefix, record.Instance)
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if err := json.NewEncoder(w).Encode(record); err != nil {
		safe.Close(ctx, w, "bucket", g.bucket, "object", name)
		return goerr.Wrap(err, "failed to write archive",
			goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archive",
			goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	return nil
}

func (g *GCS) Close() error {
	if err := g.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage client")
	}
	return nil
}
