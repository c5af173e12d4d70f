package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

type standupConfigRepository struct {
	mu      sync.RWMutex
	configs map[types.TeamID]*model.StandupConfig
}

func newStandupConfigRepository() *standupConfigRepository {
	return &standupConfigRepository{
		configs: make(map[types.TeamID]*model.StandupConfig),
	}
}

// copyConfig creates a deep copy keeping the stored version
func copyConfig(c *model.StandupConfig) *model.StandupConfig {
	copied := c.Snapshot()
	copied.Version = c.Version
	return &copied
}

func (r *standupConfigRepository) Put(ctx context.Context, cfg *model.StandupConfig) error {
	if cfg == nil {
		return goerr.New("config is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[cfg.TeamID] = copyConfig(cfg)
	return nil
}

func (r *standupConfigRepository) Get(ctx context.Context, teamID types.TeamID) (*model.StandupConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[teamID]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "standup config not found", goerr.V(model.TeamIDKey, teamID))
	}
	return copyConfig(cfg), nil
}

func (r *standupConfigRepository) ListActive(ctx context.Context) ([]*model.StandupConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	configs := make([]*model.StandupConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		if cfg.Active {
			configs = append(configs, copyConfig(cfg))
		}
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].TeamID < configs[j].TeamID
	})
	return configs, nil
}
