// Package storage opens the progress repository of the configured driver.
package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/progress"
	"github.com/trezcool/pathways/storage/database"
	"github.com/trezcool/pathways/storage/database/inmem"
	boiledrepos "github.com/trezcool/pathways/storage/database/sqlboiler"
	"github.com/trezcool/pathways/storage/redis"
)

type Backend struct {
	Repo progress.Repository
	DB   *sql.DB // postgres driver only

	close func() error
}

// Open connects the storage driver of conf. With migrate, the postgres database is created & migrated first.
func Open(ctx context.Context, conf *core.Config, migrate bool) (*Backend, error) {
	switch conf.Storage.Driver {
	case core.StorageMemory, "":
		return &Backend{
			Repo:  inmemdb.NewProgressRepository(inmemdb.Open()),
			close: func() error { return nil },
		}, nil

	case core.StoragePostgres:
		db, err := openDB(ctx, conf, migrate)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Repo:  boiledrepos.NewProgressRepository(db),
			DB:    db,
			close: db.Close,
		}, nil

	case core.StorageRedis:
		client, err := redisrepo.Open(ctx, conf.Redis)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Repo:  redisrepo.NewProgressRepository(client, conf.Redis.TTL),
			close: client.Close,
		}, nil

	default:
		return nil, errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
}

func openDB(ctx context.Context, conf *core.Config, migrate bool) (*sql.DB, error) {
	if migrate {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if migrate {
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func (b *Backend) Close() error {
	return b.close()
}
