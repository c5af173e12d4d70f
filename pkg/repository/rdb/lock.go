package rdb

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type lockRepository struct {
	db *gorm.DB
}

func (r *lockRepository) TryAcquire(ctx context.Context, key, owner string, now time.Time, ttl time.Duration) (bool, error) {
	expiresAt := now.Add(ttl).UTC()

	created := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&lockRow{Key: key, Owner: owner, ExpiresAt: expiresAt})
	if created.Error != nil {
		return false, goerr.Wrap(created.Error, "failed to acquire lock", goerr.V("key", key))
	}
	if created.RowsAffected == 1 {
		return true, nil
	}

	// Take over an expired lock or extend our own
	updated := r.db.WithContext(ctx).Model(&lockRow{}).
		Where("lock_key = ? AND (owner = ? OR expires_at <= ?)", key, owner, now.UTC()).
		Updates(map[string]any{"owner": owner, "expires_at": expiresAt})
	if updated.Error != nil {
		return false, goerr.Wrap(updated.Error, "failed to acquire lock", goerr.V("key", key))
	}
	return updated.RowsAffected == 1, nil
}

func (r *lockRepository) Release(ctx context.Context, key, owner string) error {
	err := r.db.WithContext(ctx).
		Where("lock_key = ? AND owner = ?", key, owner).
		Delete(&lockRow{}).Error
	if err != nil {
		return goerr.Wrap(err, "failed to release lock", goerr.V("key", key))
	}
	return nil
}
