package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
)

func TestLockRepository(t *testing.T) {
	runAllBackends(t, func(t *testing.T, newRepo repoFactory) {
		t.Run("second owner is rejected until expiry", func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			key := "complete:" + uuid.NewString()
			now := baseTime()

			ok, err := repo.Lock().TryAcquire(ctx, key, "owner-a", now, 5*time.Minute)
			gt.NoError(t, err).Required()
			gt.Bool(t, ok).True()

			ok, err = repo.Lock().TryAcquire(ctx, key, "owner-b", now.Add(time.Minute), 5*time.Minute)
			gt.NoError(t, err).Required()
			gt.Bool(t, ok).False()

			ok, err = repo.Lock().TryAcquire(ctx, key, "owner-b", now.Add(6*time.Minute), 5*time.Minute)
			gt.NoError(t, err).Required()
			gt.Bool(t, ok).True()
		})

		t.Run("Release frees the lock for its owner only", func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()
			key := "complete:" + uuid.NewString()
			now := baseTime()

			ok, err := repo.Lock().TryAcquire(ctx, key, "owner-a", now, 5*time.Minute)
			gt.NoError(t, err).Required()
			gt.Bool(t, ok).True()

			gt.NoError(t, repo.Lock().Release(ctx, key, "owner-b")).Required()
			ok, err = repo.Lock().TryAcquire(ctx, key, "owner-b", now, 5*time.Minute)
			gt.NoError(t, err).Required()
			gt.Bool(t, ok).False()

			gt.NoError(t, repo.Lock().Release(ctx, key, "owner-a")).Required()
			ok, err = repo.Lock().TryAcquire(ctx, key, "owner-b", now, 5*time.Minute)
			gt.NoError(t, err).Required()
			gt.Bool(t, ok).True()
		})
	})
}
