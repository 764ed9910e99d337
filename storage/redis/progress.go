// Package redisrepo stores progress blobs in redis, one key per learner.
package redisrepo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/progress"
)

const keyPrefix = "progress:"

// Open connects to redis and checks the connection.
func Open(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return client, nil
}

type progressRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ progress.Repository = (*progressRepository)(nil)

// NewProgressRepository returns a repository whose keys expire ttl after their last write; 0 never expires.
func NewProgressRepository(client redis.Cmdable, ttl time.Duration) progress.Repository {
	return &progressRepository{client: client, ttl: ttl}
}

func key(learnerID string) string {
	return keyPrefix + learnerID
}

func (repo *progressRepository) GetState(ctx context.Context, learnerID string) ([]byte, error) {
	blob, err := repo.client.Get(ctx, key(learnerID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, progress.ErrNotFound
		}
		return nil, errors.Wrap(err, "getting progress")
	}
	return blob, nil
}

func (repo *progressRepository) SetState(ctx context.Context, learnerID string, blob []byte) error {
	if err := repo.client.Set(ctx, key(learnerID), blob, repo.ttl).Err(); err != nil {
		return errors.Wrap(err, "setting progress")
	}
	return nil
}

func (repo *progressRepository) RemoveState(ctx context.Context, learnerID string) error {
	n, err := repo.client.Del(ctx, key(learnerID)).Result()
	if err != nil {
		return errors.Wrap(err, "removing progress")
	}
	if n == 0 {
		return progress.ErrNotFound
	}
	return nil
}
