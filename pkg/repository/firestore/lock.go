package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type lockRepository struct {
	client *firestore.Client
	names  *collectionNames
}

type lockDoc struct {
	Owner     string    `firestore:"owner"`
	ExpiresAt time.Time `firestore:"expires_at"`
}

var errLockHeld = errors.New("lock is held by another owner")

func (r *lockRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(collectionLocks))
}

func (r *lockRepository) TryAcquire(ctx context.Context, key, owner string, now time.Time, ttl time.Duration) (bool, error) {
	ref := r.collection().Doc(key)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to read lock")
		}
		if err == nil {
			var current lockDoc
			if err := doc.DataTo(&current); err != nil {
				return goerr.Wrap(err, "failed to decode lock")
			}
			if current.Owner != owner && now.Before(current.ExpiresAt) {
				return errLockHeld
			}
		}
		return tx.Set(ref, &lockDoc{Owner: owner, ExpiresAt: now.Add(ttl).UTC()})
	})

	if errors.Is(err, errLockHeld) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to acquire lock", goerr.V("key", key))
	}
	return true, nil
}

func (r *lockRepository) Release(ctx context.Context, key, owner string) error {
	ref := r.collection().Doc(key)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return goerr.Wrap(err, "failed to read lock")
		}

		var current lockDoc
		if err := doc.DataTo(&current); err != nil {
			return goerr.Wrap(err, "failed to decode lock")
		}
		if current.Owner != owner {
			return nil
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to release lock", goerr.V("key", key))
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, interfaces.ErrNotFound)
}
