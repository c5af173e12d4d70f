package rdb

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/interfaces"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// RDB stores standups in a relational database through gorm
type RDB struct {
	db            *gorm.DB
	config        *standupConfigRepository
	instance      *instanceRepository
	answer        *answerRepository
	digest        *digestRepository
	participation *participationRepository
	lock          *lockRepository
}

var _ interfaces.Repository = &RDB{}

// New opens the database. SQLite connections are serialized so that
// in-memory databases keep a single shared state.
func New(dialect, dsn string) (*RDB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	case DialectPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, goerr.New("unsupported database dialect", goerr.V("dialect", dialect))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("dialect", dialect))
	}

	if dialect == DialectSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get database handle")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &RDB{
		db:            db,
		config:        &standupConfigRepository{db: db},
		instance:      &instanceRepository{db: db},
		answer:        &answerRepository{db: db},
		digest:        &digestRepository{db: db},
		participation: &participationRepository{db: db},
		lock:          &lockRepository{db: db},
	}, nil
}

// Migrate creates or updates all tables
func (r *RDB) Migrate() error {
	if err := r.db.AutoMigrate(
		&configRow{},
		&instanceRow{},
		&answerRow{},
		&digestRow{},
		&participationRow{},
		&lockRow{},
	); err != nil {
		return goerr.Wrap(err, "failed to migrate database")
	}
	return nil
}

func (r *RDB) StandupConfig() interfaces.StandupConfigRepository {
	return r.config
}

func (r *RDB) Instance() interfaces.InstanceRepository {
	return r.instance
}

func (r *RDB) Answer() interfaces.AnswerRepository {
	return r.answer
}

func (r *RDB) Digest() interfaces.DigestRepository {
	return r.digest
}

func (r *RDB) Participation() interfaces.ParticipationRepository {
	return r.participation
}

func (r *RDB) Lock() interfaces.LockRepository {
	return r.lock
}

func (r *RDB) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return goerr.Wrap(err, "failed to get database handle")
	}
	if err := sqlDB.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	return nil
}
