package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
	"github.com/secmon-lab/huddle/pkg/service/archive"
	"github.com/secmon-lab/huddle/pkg/utils/errutil"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
)

type CleanupResult struct {
	Scanned  int
	Archived int
	Deleted  int
	Errors   int
}

// CleanupUseCase removes instances older than the retention window
type CleanupUseCase struct {
	repo    interfaces.Repository
	archive archive.Service
}

// NewCleanupUseCase creates the use case. archiveSvc may be nil to delete
// without archiving.
func NewCleanupUseCase(repo interfaces.Repository, archiveSvc archive.Service) *CleanupUseCase {
	return &CleanupUseCase{
		repo:    repo,
		archive: archiveSvc,
	}
}

// RunOnce deletes every instance whose target date is before cutoff. An
// instance that fails to archive is kept for the next run.
func (uc *CleanupUseCase) RunOnce(ctx context.Context, cutoff types.Date) (CleanupResult, error) {
	old, err := uc.repo.Instance().ListBefore(ctx, cutoff)
	if err != nil {
		return CleanupResult{}, goerr.Wrap(err, "failed to list old instances", goerr.V("cutoff", cutoff))
	}

	var result CleanupResult
	for _, inst := range old {
		result.Scanned++

		if uc.archive != nil {
			record, err := uc.buildRecord(ctx, inst)
			if err == nil {
				err = uc.archive.Archive(ctx, record)
			}
			if err != nil {
				errutil.Handle(ctx, err, "failed to archive instance")
				result.Errors++
				continue
			}
			result.Archived++
		}

		if err := uc.repo.Instance().Delete(ctx, inst.ID); err != nil {
			errutil.Handle(ctx, goerr.Wrap(err, "failed to delete instance",
				goerr.V(model.InstanceIDKey, inst.ID)), "cleanup skipped instance")
			result.Errors++
			continue
		}
		result.Deleted++
	}

	logging.From(ctx).Info("cleanup finished",
		"cutoff", cutoff,
		"scanned", result.Scanned,
		"archived", result.Archived,
		"deleted", result.Deleted,
		"errors", result.Errors,
	)
	return result, nil
}

func (uc *CleanupUseCase) buildRecord(ctx context.Context, inst *model.StandupInstance) (*model.ArchiveRecord, error) {
	answers, err := uc.repo.Answer().List(ctx, inst.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list answers", goerr.V(model.InstanceIDKey, inst.ID))
	}
	digest, err := uc.repo.Digest().Get(ctx, inst.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get digest", goerr.V(model.InstanceIDKey, inst.ID))
	}
	snap, err := uc.repo.Participation().Get(ctx, inst.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get participation", goerr.V(model.InstanceIDKey, inst.ID))
	}

	return &model.ArchiveRecord{
		Instance:      inst,
		Answers:       answers,
		Digest:        digest,
		Participation: snap,
	}, nil
}
