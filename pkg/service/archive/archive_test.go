package archive_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/service/archive"
)

func TestObjectName(t *testing.T) {
	inst := &model.StandupInstance{ID: "0b6b3c1e", TeamID: "core", TargetDate: "2026-03-02"}

	gt.Value(t, archive.ObjectName("huddle", inst)).Equal("huddle/core/2026-03-02/0b6b3c1e.json")
	gt.Value(t, archive.ObjectName("", inst)).Equal("core/2026-03-02/0b6b3c1e.json")
}

func TestGCSArchive(t *testing.T) {
	bucket := os.Getenv("TEST_ARCHIVE_BUCKET")
	if bucket == "" {
		t.Skip("TEST_ARCHIVE_BUCKET not set")
	}

	ctx := context.Background()
	svc, err := archive.NewGCS(ctx, bucket, "test")
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, svc.Close())
	})

	cfg := &model.StandupConfig{TeamID: "core", ChannelID: "C1", Questions: []string{"q"}}
	inst := model.NewStandupInstance(cfg, "2026-03-02", time.Now())
	gt.NoError(t, svc.Archive(ctx, &model.ArchiveRecord{Instance: inst}))
}

func TestNewGCSRequiresBucket(t *testing.T) {
	_, err := archive.NewGCS(context.Background(), "", "")
	gt.Value(t, err).NotNil()
}
