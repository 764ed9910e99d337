package boiledrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/progress"
)

const (
	selectProgressQuery = `SELECT learner_id, state, version, updated_at FROM learner_progress WHERE learner_id = $1`

	// version counts the writes of a learner's row
	upsertProgressQuery = `
INSERT INTO learner_progress (learner_id, state, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (learner_id) DO UPDATE
SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at, version = learner_progress.version + 1`

	deleteProgressQuery = `DELETE FROM learner_progress WHERE learner_id = $1`
)

type progressRow struct {
	LearnerID string    `boil:"learner_id"`
	State     null.JSON `boil:"state"`
	Version   int       `boil:"version"`
	UpdatedAt time.Time `boil:"updated_at"`
}

type progressRepository struct {
	exec    core.DBExecutor
	nowFunc func() time.Time
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(exec core.DBExecutor) *progressRepository {
	return &progressRepository{exec: exec, nowFunc: core.SystemClock}
}

// trapNoRowsErr maps psql "no rows" err to progress.ErrNotFound
func (repo progressRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return progress.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo progressRepository) GetState(ctx context.Context, learnerID string) ([]byte, error) {
	var row progressRow
	if err := queries.Raw(selectProgressQuery, learnerID).Bind(ctx, repo.exec, &row); err != nil {
		return nil, repo.trapNoRowsErr(err, "finding progress")
	}
	if !row.State.Valid {
		return nil, progress.ErrNotFound
	}
	return row.State.JSON, nil
}

func (repo progressRepository) SetState(ctx context.Context, learnerID string, blob []byte) error {
	_, err := queries.Raw(upsertProgressQuery, learnerID, null.JSONFrom(blob), repo.nowFunc()).ExecContext(ctx, repo.exec)
	if err != nil {
		return errors.Wrap(err, "saving progress")
	}
	return nil
}

func (repo progressRepository) RemoveState(ctx context.Context, learnerID string) error {
	res, err := queries.Raw(deleteProgressQuery, learnerID).ExecContext(ctx, repo.exec)
	if err != nil {
		return errors.Wrap(err, "deleting progress")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting progress")
	}
	if n == 0 {
		return progress.ErrNotFound
	}
	return nil
}
