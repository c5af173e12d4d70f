package firestore

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type standupConfigRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func (r *standupConfigRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionConfigs))
}

func (r *standupConfigRepository) Put(ctx context.Context, cfg *model.StandupConfig) error {
	if cfg == nil {
		return goerr.New("config is nil")
	}
	if _, err := r.collection().Doc(cfg.TeamID.String()).Set(ctx, cfg); err != nil {
		return goerr.Wrap(err, "failed to put standup config", goerr.V(model.TeamIDKey, cfg.TeamID))
	}
	return nil
}

func (r *standupConfigRepository) Get(ctx context.Context, teamID types.TeamID) (*model.StandupConfig, error) {
	doc, err := r.collection().Doc(teamID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "standup config not found", goerr.V(model.TeamIDKey, teamID))
		}
		return nil, goerr.Wrap(err, "failed to get standup config", goerr.V(model.TeamIDKey, teamID))
	}

	var cfg model.StandupConfig
	if err := doc.DataTo(&cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode standup config", goerr.V(model.TeamIDKey, teamID))
	}
	return &cfg, nil
}

func (r *standupConfigRepository) ListActive(ctx context.Context) ([]*model.StandupConfig, error) {
	iter := r.collection().Where("active", "==", true).Documents(ctx)
	defer iter.Stop()

	var configs []*model.StandupConfig
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate standup configs")
		}

		var cfg model.StandupConfig
		if err := doc.DataTo(&cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to decode standup config", goerr.V("doc_id", doc.Ref.ID))
		}
		configs = append(configs, &cfg)
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].TeamID < configs[j].TeamID
	})
	return configs, nil
}
