package progress

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populatedStore(t *testing.T) *Store {
	store := newTestStore(t, NewState())
	store.EnrollInPath("go-basics")
	store.RecordCourseAccess(CourseAccess{PathSlug: "go-basics", CourseID: "c1", CourseTitle: "Intro", ModuleIDs: []string{"m1", "m2"}})
	store.RecordCourseAccess(CourseAccess{PathSlug: "go-basics", CourseID: "c2", CourseTitle: "Next", TotalModules: 3})
	store.RecordModuleComplete("go-basics", "c1", "m1")
	store.RecordModuleComplete("go-basics", "c1", "m2")
	store.RecordModuleComplete("go-basics", "c2", "x")
	store.SetMandatoryCourses([]MandatoryCourse{{PathSlug: "go-basics", CourseID: "c2", CourseTitle: "Next", DueDate: daysFromNow(3)}})
	store.SetTasks([]Task{{ID: "t1", Title: "Quiz", Kind: TaskQuiz, DueDate: daysFromNow(1)}})
	store.SubmitTask("t1")
	store.AddSkill("go")
	return store
}

func TestEncodeDecode(t *testing.T) {
	st := populatedStore(t).Snapshot()

	blob, err := Encode(st)
	require.NoError(t, err)
	got, err := Decode(blob)
	require.NoError(t, err)

	assert.Equal(t, st, got)
	assert.Equal(t, CalculateReadiness(st, testNow), CalculateReadiness(got, testNow))
}

func TestDecode_corrupt(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{name: "not json", blob: "{oops"},
		{name: "wrong shape", blob: `{"version": 1, "state": []}`},
		{name: "missing version", blob: `{"state": {}}`},
		{name: "future version", blob: `{"version": 99, "state": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.blob))
			assert.Equal(t, ErrCorruptBlob, errors.Cause(err))
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing stored", func(t *testing.T) {
		st, err := Load(ctx, newMemRepo(), "learner-1", nil)
		require.NoError(t, err)
		assert.Equal(t, NewState(), st)
	})

	t.Run("corrupt blob falls back to an empty state", func(t *testing.T) {
		repo := newMemRepo()
		repo.blobs["learner-1"] = []byte("garbage")
		logger := &testLogger{}

		st, err := Load(ctx, repo, "learner-1", logger)
		require.NoError(t, err)
		assert.True(t, st.IsEmpty())
		assert.Equal(t, []string{"warn"}, logger.levels())
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := newMemRepo()
		repo.getErr = errors.New("connection refused")
		_, err := Load(ctx, repo, "learner-1", nil)
		assert.Error(t, err)
	})
}

func TestSave_mergesWithStored(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()

	first := newTestStore(t, stateWith(trackedCourse("go-basics", "c1", 3)))
	second := newTestStore(t, stateWith(trackedCourse("go-basics", "c1", 3)), func(o *Options) {
		o.NewID = func() string { return "other-session" }
	})
	first.RecordModuleComplete("go-basics", "c1", "m1")
	second.RecordModuleComplete("go-basics", "c1", "m2")

	require.NoError(t, Save(ctx, repo, "learner-1", first.Snapshot(), DefaultMaxActivity, nil))
	require.NoError(t, Save(ctx, repo, "learner-1", second.Snapshot(), DefaultMaxActivity, nil))

	st := repo.stored(t, "learner-1")
	assert.Equal(t, []string{"m1", "m2"}, st.CourseProgress["c1"].CompletedModuleIDs)
	assert.Len(t, st.ActivityLog, 2)
}

func TestSave_capsActivity(t *testing.T) {
	repo := newMemRepo()
	store := newTestStore(t, NewState())
	for i := 0; i < 5; i++ {
		store.RecordCourseAccess(CourseAccess{PathSlug: "go-basics", CourseID: "c1"})
	}

	require.NoError(t, Save(context.Background(), repo, "learner-1", store.Snapshot(), 2, nil))
	assert.Len(t, repo.stored(t, "learner-1").ActivityLog, 2)
}
