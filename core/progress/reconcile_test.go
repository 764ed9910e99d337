package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	remote := &DashboardSnapshot{
		ReadinessScore:   35,
		TotalEnrolled:    5,
		CompletedCourses: 2,
		MostRecentCourse: &RecentCourse{CourseID: "r1", Progress: 40},
	}
	local := stateWith(trackedCourse("go-basics", "c1", 2, "m1"))
	local.EnrolledPathSlugs = []string{"go-basics"}
	local.ActivityLog = []ActivityEntry{activityAt("e1", ActivityModuleCompleted, "c1", testNow, 0.5)}

	tests := []struct {
		name       string
		state      State
		remote     *DashboardSnapshot
		wantSource string
		wantScore  int
		wantCourse string
	}{
		{name: "no remote, empty local", state: NewState(), wantSource: SourceLocal, wantScore: 50},
		{name: "remote only", state: NewState(), remote: remote, wantSource: SourceRemote, wantScore: 35, wantCourse: "r1"},
		{name: "enrolled but no course yet", state: State{EnrolledPathSlugs: []string{"go-basics"}}, remote: remote, wantSource: SourceRemote, wantScore: 35, wantCourse: "r1"},
		{name: "local wins", state: local, remote: remote, wantSource: SourceLocal, wantScore: 50, wantCourse: "c1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.state, tt.remote, testNow)
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantScore, got.ReadinessScore)
			assert.Equal(t, StatusForScore(tt.wantScore), got.ReadinessStatus)
			if tt.wantCourse == "" {
				assert.Nil(t, got.MostRecentCourse)
			} else if assert.NotNil(t, got.MostRecentCourse) {
				assert.Equal(t, tt.wantCourse, got.MostRecentCourse.CourseID)
			}
		})
	}
}

func TestReconcile_doesNotAliasRemote(t *testing.T) {
	remote := &DashboardSnapshot{MostRecentCourse: &RecentCourse{CourseID: "r1"}}
	view := Reconcile(NewState(), remote, testNow)
	view.MostRecentCourse.CourseID = "changed"
	assert.Equal(t, "r1", remote.MostRecentCourse.CourseID)
}
