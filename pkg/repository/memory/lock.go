package memory

import (
	"context"
	"sync"
	"time"
)

type lockEntry struct {
	owner     string
	expiresAt time.Time
}

type lockRepository struct {
	mu    sync.Mutex
	locks map[string]lockEntry
}

func newLockRepository() *lockRepository {
	return &lockRepository{
		locks: make(map[string]lockEntry),
	}
}

func (r *lockRepository) TryAcquire(ctx context.Context, key, owner string, now time.Time, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.locks[key]; ok && current.owner != owner && now.Before(current.expiresAt) {
		return false, nil
	}

	r.locks[key] = lockEntry{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (r *lockRepository) Release(ctx context.Context, key, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.locks[key]; ok && current.owner == owner {
		delete(r.locks, key)
	}
	return nil
}
