package boiledrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/pathways/core/progress"
	"github.com/trezcool/pathways/tests"
)

func TestProgressRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	testutil.RepositoryContract(t, NewProgressRepository(db))
}

func TestProgressRepository_versionCountsWrites(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := NewProgressRepository(db)
	writtenAt := time.Date(2024, time.March, 13, 15, 0, 0, 0, time.UTC)
	repo.nowFunc = func() time.Time { return writtenAt }

	blob, err := progress.Encode(progress.NewState())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SetState(ctx, "learner-1", blob))
	}

	var row progressRow
	require.NoError(t, queries.Raw(selectProgressQuery, "learner-1").Bind(ctx, db, &row))
	assert.Equal(t, 3, row.Version)
	assert.True(t, row.UpdatedAt.Equal(writtenAt))
}
