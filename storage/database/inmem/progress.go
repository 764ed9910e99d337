package inmemdb

import (
	"context"

	"github.com/trezcool/pathways/core/progress"
)

type progressRepository struct {
	db *progressTable
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db.progress}
}

func copyBlob(blob []byte) []byte {
	out := make([]byte, len(blob))
	copy(out, blob)
	return out
}

func (repo *progressRepository) GetState(_ context.Context, learnerID string) ([]byte, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if blob, ok := repo.db.table[learnerID]; ok {
		return copyBlob(blob), nil
	}
	return nil, progress.ErrNotFound
}

func (repo *progressRepository) SetState(_ context.Context, learnerID string, blob []byte) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.table[learnerID] = copyBlob(blob)
	return nil
}

func (repo *progressRepository) RemoveState(_ context.Context, learnerID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[learnerID]; !ok {
		return progress.ErrNotFound
	}
	delete(repo.db.table, learnerID)
	return nil
}
