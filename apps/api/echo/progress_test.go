package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/pathways/apps/api/echo"
	"github.com/trezcool/pathways/core/progress"
)

func Test_home(t *testing.T) {
	app := setup(t)
	req, rec := newAuthRequest(http.MethodGet, "/", "")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Pathways API!", rec.Body.String())
}

func Test_progressApi_errors(t *testing.T) {
	app := setup(t)
	adaToken := app.getToken(t, ada)
	managerToken := app.getToken(t, manager)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/progress", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Invalid token", method: http.MethodGet, path: "/v1/progress", token: "not.a.token",
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "Manager required", method: http.MethodGet, path: "/v1/learners/learner-2/readiness", token: adaToken,
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "Bad path slug", method: http.MethodPost, path: "/v1/progress/paths/Go-Basics/enroll", token: adaToken,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"slug": "only lowercase letters, digits, hyphens and underscores are allowed"}),
		},
		{
			name: "Course id required", method: http.MethodPost, path: "/v1/progress/courses/access", token: adaToken,
			body:     []byte(`{"pathSlug": "go-basics"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"courseId": "this field is required"}),
		},
		{
			name: "Module id required", method: http.MethodPost, path: "/v1/progress/modules/complete", token: adaToken,
			body:     []byte(`{"courseId": "c1"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"moduleId": "this field is required"}),
		},
		{
			name: "Malformed body", method: http.MethodPost, path: "/v1/progress/courses/access", token: adaToken,
			body: []byte(`{"courseId": `), wantCode: http.StatusBadRequest,
		},
		{
			name: "Bad limit", method: http.MethodGet, path: "/v1/progress/activity?limit=abc", token: adaToken,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"limit": "must be a positive number"}),
		},
		{
			name: "No recent course", method: http.MethodGet, path: "/v1/progress/recent-course", token: adaToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Mandatory course id required", method: http.MethodPut, path: "/v1/learners/learner-2/mandatory-courses",
			token:    managerToken,
			body:     []byte(`{"courses": [{"pathSlug": "go-basics", "dueDate": "2024-03-10T00:00:00Z"}]}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"courses[0].courseId": "this field is required"}),
		},
		{
			name: "Task due date required", method: http.MethodPut, path: "/v1/learners/learner-2/tasks",
			token:    managerToken,
			body:     []byte(`{"tasks": [{"id": "t1", "title": "Essay"}]}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"tasks[0].dueDate": "this field is required"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_progressApi_learnerJourney(t *testing.T) {
	app := setup(t)
	token := app.getToken(t, ada)

	var st progress.State
	app.do(t, http.MethodPost, "/v1/progress/paths/go-basics/enroll", token, nil, http.StatusOK, &st)
	assert.Equal(t, []string{"go-basics"}, st.EnrolledPathSlugs)

	access := progress.CourseAccess{PathSlug: "go-basics", CourseID: "c1", CourseTitle: "Intro", ModuleIDs: []string{"m1", "m2"}}
	app.do(t, http.MethodPost, "/v1/progress/courses/access", token, access, http.StatusOK, &st)
	require.Contains(t, st.CourseProgress, "c1")
	assert.Equal(t, 2, st.CourseProgress["c1"].TotalModules)

	var course progress.RecentCourse
	app.do(t, http.MethodGet, "/v1/progress/recent-course", token, nil, http.StatusOK, &course)
	assert.Equal(t, "c1", course.CourseID)
	assert.Zero(t, course.Progress)

	for _, m := range []string{"m1", "m2"} {
		completion := progress.ModuleCompletion{CourseID: "c1", ModuleID: m}
		app.do(t, http.MethodPost, "/v1/progress/modules/complete", token, completion, http.StatusOK, &st)
	}
	assert.Equal(t, []string{"m1", "m2"}, st.CourseProgress["c1"].CompletedModuleIDs)

	var certs []progress.Certificate
	app.do(t, http.MethodGet, "/v1/progress/certificates", token, nil, http.StatusOK, &certs)
	require.Len(t, certs, 1)
	assert.Equal(t, "c1", certs[0].CourseID)

	// anyone can verify the certificate code
	code := progress.CertificateCode(app.conf.SecretKey, ada.ID, certs[0])
	var verified progress.Certificate
	app.do(t, http.MethodGet, "/v1/certificates/learner-1/c1?code="+code, "", nil, http.StatusOK, &verified)
	assert.Equal(t, certs[0].CourseID, verified.CourseID)
	app.do(t, http.MethodGet, "/v1/certificates/learner-2/c1?code="+code, "", nil, http.StatusNotFound, nil)

	var readiness progress.Readiness
	app.do(t, http.MethodGet, "/v1/progress/readiness", token, nil, http.StatusOK, &readiness)
	assert.Equal(t, 100, readiness.Score)
	assert.Equal(t, progress.OnTrack, readiness.Status)

	var stats progress.DashboardStats
	app.do(t, http.MethodGet, "/v1/progress/stats", token, nil, http.StatusOK, &stats)
	assert.Equal(t, progress.DashboardStats{Enrolled: 1, Completed: 1, TotalHours: 1, Streak: 1}, stats)

	var activity []progress.ActivityEntry
	app.do(t, http.MethodGet, "/v1/progress/activity?limit=2", token, nil, http.StatusOK, &activity)
	require.Len(t, activity, 2)
	assert.Equal(t, progress.ActivityCourseCompleted, activity[0].Type)
	assert.Equal(t, progress.ActivityModuleCompleted, activity[1].Type)

	var daily []progress.DailyActivity
	app.do(t, http.MethodGet, "/v1/progress/activity/daily", token, nil, http.StatusOK, &daily)
	require.Len(t, daily, 7)
	assert.Equal(t, "2024-03-13", daily[6].Date)
	assert.Equal(t, 1.0, daily[6].Hours)

	var skills []string
	app.do(t, http.MethodPost, "/v1/progress/skills", token, SkillRequest{Skill: " Go "}, http.StatusOK, &skills)
	assert.Equal(t, []string{"Go"}, skills)

	var view progress.DashboardView
	app.do(t, http.MethodGet, "/v1/progress/dashboard", token, nil, http.StatusOK, &view)
	assert.Equal(t, progress.SourceLocal, view.Source)
	assert.Equal(t, 1, view.CompletedCourses)

	assert.Equal(t, 1, app.svc.OpenSessions())
	app.do(t, http.MethodDelete, "/v1/progress/session", token, nil, http.StatusNoContent, nil)
	assert.Zero(t, app.svc.OpenSessions())

	// the next request reopens the session from storage
	app.do(t, http.MethodGet, "/v1/progress", token, nil, http.StatusOK, &st)
	assert.Len(t, st.Certificates, 1)
}

func Test_progressApi_managedLearner(t *testing.T) {
	app := setup(t)
	managerToken := app.getToken(t, manager)
	graceToken := app.getToken(t, grace)

	var readiness progress.Readiness
	courses := []byte(`{"courses": [{"pathSlug": "go-basics", "courseId": "c9", "dueDate": "2024-03-10T00:00:00Z"}]}`)
	req, rec := newAuthRequest(http.MethodPut, "/v1/learners/learner-2/mandatory-courses", managerToken, courses)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	app.do(t, http.MethodGet, "/v1/learners/learner-2/readiness", managerToken, nil, http.StatusOK, &readiness)
	assert.Equal(t, 1, readiness.MandatoryTotal)
	assert.Equal(t, 1, readiness.OverdueMandatory)
	assert.Equal(t, 40, readiness.Score)
	assert.Equal(t, progress.NeedsAttention, readiness.Status)

	tasks := progress.TasksRequest{Tasks: []progress.Task{{ID: "t1", Title: "Essay", DueDate: testNow.AddDate(0, 0, 2)}}}
	app.do(t, http.MethodPut, "/v1/learners/learner-2/tasks", managerToken, tasks, http.StatusOK, &readiness)
	assert.Equal(t, 1, readiness.PendingTasks)
	assert.Equal(t, 33, readiness.Score)
	assert.Equal(t, progress.AtRisk, readiness.Status)

	// the learner sees what was assigned
	var upcoming []progress.TaskView
	app.do(t, http.MethodGet, "/v1/progress/tasks/upcoming", graceToken, nil, http.StatusOK, &upcoming)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "2 days", upcoming[0].DueLabel)
	assert.Equal(t, progress.TaskPending, upcoming[0].Status)

	app.do(t, http.MethodPost, "/v1/progress/tasks/t1/submit", graceToken, nil, http.StatusOK, &upcoming)
	assert.Empty(t, upcoming)

	// ... and the manager sees the submission
	var st progress.State
	app.do(t, http.MethodGet, "/v1/learners/learner-2/progress", managerToken, nil, http.StatusOK, &st)
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, progress.TaskCompleted, st.Tasks[0].Status)
	assert.Len(t, st.MandatoryCourses, 1)

	app.do(t, http.MethodDelete, "/v1/learners/learner-2/progress", managerToken, nil, http.StatusNoContent, nil)
	app.do(t, http.MethodGet, "/v1/learners/learner-2/progress", managerToken, nil, http.StatusOK, &st)
	assert.True(t, st.IsEmpty())
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)

	var resp TokenResponse
	app.do(t, http.MethodPost, "/v1/auth/token-refresh", app.getToken(t, ada), nil, http.StatusOK, &resp)
	require.NotEmpty(t, resp.Token)

	// the refreshed token is accepted
	app.do(t, http.MethodGet, "/v1/progress/readiness", resp.Token, nil, http.StatusOK, nil)
}
