package progress

import "time"

const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// DashboardSnapshot is the server side dashboard aggregate of a learner. Read-only.
type DashboardSnapshot struct {
	ReadinessScore   int           `json:"readinessScore"`
	TotalEnrolled    int           `json:"totalEnrolled"`
	CompletedCourses int           `json:"completedCourses"`
	MostRecentCourse *RecentCourse `json:"mostRecentCourse"`
}

// DashboardView is what the learner dashboard shows.
// Stats & Readiness are always local; the headline numbers come from Source.
type DashboardView struct {
	Source           string          `json:"source"`
	ReadinessScore   int             `json:"readinessScore"`
	ReadinessStatus  ReadinessStatus `json:"readinessStatus"`
	TotalEnrolled    int             `json:"totalEnrolled"`
	CompletedCourses int             `json:"completedCourses"`
	MostRecentCourse *RecentCourse   `json:"mostRecentCourse"`
	Stats            DashboardStats  `json:"stats"`
	Readiness        Readiness       `json:"readiness"`
}

// Reconcile picks what to display: local values as soon as the learner tracked any course locally,
// the remote aggregate otherwise. Without a remote aggregate the local (possibly empty) values are shown.
func Reconcile(st State, remote *DashboardSnapshot, now time.Time) DashboardView {
	view := DashboardView{
		Source:    SourceLocal,
		Stats:     ComputeDashboardStats(st, now),
		Readiness: CalculateReadiness(st, now),
	}

	if len(st.CourseProgress) == 0 && remote != nil {
		view.Source = SourceRemote
		view.ReadinessScore = clamp(remote.ReadinessScore, 0, 100)
		view.ReadinessStatus = StatusForScore(view.ReadinessScore)
		view.TotalEnrolled = remote.TotalEnrolled
		view.CompletedCourses = remote.CompletedCourses
		if remote.MostRecentCourse != nil {
			rc := *remote.MostRecentCourse
			view.MostRecentCourse = &rc
		}
		return view
	}

	view.ReadinessScore = view.Readiness.Score
	view.ReadinessStatus = view.Readiness.Status
	view.TotalEnrolled = view.Stats.Enrolled
	view.CompletedCourses = view.Stats.Completed
	if rc, ok := MostRecentCourse(st); ok {
		view.MostRecentCourse = &rc
	}
	return view
}
