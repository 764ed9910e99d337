package testutil

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/progress"
	"github.com/trezcool/pathways/storage/database"
)

// Backing services are only exercised when their env var is set:
//   PATHWAYS_TEST_POSTGRES=1 (uses the TEST_DATABASE_* config)
//   PATHWAYS_TEST_REDIS=localhost:6379
const (
	postgresEnv = "PATHWAYS_TEST_POSTGRES"
	redisEnv    = "PATHWAYS_TEST_REDIS"
)

// PrepareDB creates & migrates the test database, truncates the progress table and closes the DB after the test.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv(postgresEnv) == "" {
		t.Skipf("%s not set", postgresEnv)
	}
	if err := os.Setenv("ENV", "TEST"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	conf := core.NewConfig()
	ctx := context.Background()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Truncate(ctx, db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// RedisClient connects to the test redis and flushes its db after the test.
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv(redisEnv)
	if addr == "" {
		t.Skipf("%s not set", redisEnv)
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("RedisClient() failed: %v", err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

// RepositoryContract checks the behavior every progress.Repository must have.
func RepositoryContract(t *testing.T, repo progress.Repository) {
	ctx := context.Background()

	t.Run("missing learner", func(t *testing.T) {
		_, err := repo.GetState(ctx, "nobody")
		assert.Equal(t, progress.ErrNotFound, err)
		assert.Equal(t, progress.ErrNotFound, repo.RemoveState(ctx, "nobody"))
	})

	t.Run("set get remove", func(t *testing.T) {
		st := progress.NewState()
		st.EnrolledPathSlugs = []string{"go-basics"}
		blob, err := progress.Encode(st)
		require.NoError(t, err)

		require.NoError(t, repo.SetState(ctx, "learner-1", blob))
		got, err := repo.GetState(ctx, "learner-1")
		require.NoError(t, err)
		assert.JSONEq(t, string(blob), string(got))

		decoded, err := progress.Decode(got)
		require.NoError(t, err)
		assert.Equal(t, st, decoded)

		require.NoError(t, repo.RemoveState(ctx, "learner-1"))
		_, err = repo.GetState(ctx, "learner-1")
		assert.Equal(t, progress.ErrNotFound, err)
	})

	t.Run("overwrite", func(t *testing.T) {
		first, _ := progress.Encode(progress.NewState())
		st := progress.NewState()
		st.SkillsGained = []string{"go"}
		second, _ := progress.Encode(st)

		require.NoError(t, repo.SetState(ctx, "learner-2", first))
		require.NoError(t, repo.SetState(ctx, "learner-2", second))
		got, err := repo.GetState(ctx, "learner-2")
		require.NoError(t, err)
		assert.JSONEq(t, string(second), string(got))
	})

	t.Run("learners are isolated", func(t *testing.T) {
		blob, _ := progress.Encode(progress.NewState())
		require.NoError(t, repo.SetState(ctx, "learner-3", blob))
		require.NoError(t, repo.SetState(ctx, "learner-4", blob))
		require.NoError(t, repo.RemoveState(ctx, "learner-3"))
		_, err := repo.GetState(ctx, "learner-4")
		assert.NoError(t, err)
	})
}

// Logger is a core.Logger keeping what it is told.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, level+": "+msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }
