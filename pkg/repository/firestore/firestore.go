package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
)

type Firestore struct {
	client        *firestore.Client
	config        *standupConfigRepository
	instance      *instanceRepository
	answer        *answerRepository
	digest        *digestRepository
	participation *participationRepository
	lock          *lockRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix isolates all collections under a prefix, mainly for tests
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.config.names.prefix = prefix
	}
}

// New connects to the Firestore database. An empty databaseID selects the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	names := &collectionNames{}
	f := &Firestore{
		client:        client,
		config:        &standupConfigRepository{client: client, names: names},
		instance:      &instanceRepository{client: client, names: names},
		answer:        &answerRepository{client: client, names: names},
		digest:        &digestRepository{client: client, names: names},
		participation: &participationRepository{client: client, names: names},
		lock:          &lockRepository{client: client, names: names},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) StandupConfig() interfaces.StandupConfigRepository {
	return f.config
}

func (f *Firestore) Instance() interfaces.InstanceRepository {
	return f.instance
}

func (f *Firestore) Answer() interfaces.AnswerRepository {
	return f.answer
}

func (f *Firestore) Digest() interfaces.DigestRepository {
	return f.digest
}

func (f *Firestore) Participation() interfaces.ParticipationRepository {
	return f.participation
}

func (f *Firestore) Lock() interfaces.LockRepository {
	return f.lock
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// collectionNames resolves collection names, shared by all sub repositories
type collectionNames struct {
	prefix string
}

func (n *collectionNames) name(base string) string {
	if n.prefix != "" {
		return n.prefix + "_" + base
	}
	return base
}

const (
	collectionConfigs        = "standup_configs"
	collectionInstances      = "standup_instances"
	collectionInstanceKeys   = "standup_instance_keys"
	collectionAnswers        = "answers"
	collectionDigests        = "digests"
	collectionParticipations = "participations"
	collectionLocks          = "locks"
)

// InstancesCollection is the collection of instances with the prefix
func InstancesCollection(prefix string) string {
	return (&collectionNames{prefix: prefix}).name(collectionInstances)
}
