package progress

import (
	"time"

	"github.com/trezcool/pathways/core"
)

const dayKeyLayout = "2006-01-02"

type DashboardStats struct {
	Enrolled   int     `json:"enrolled"`
	InProgress int     `json:"inProgress"`
	Completed  int     `json:"completed"`
	TotalHours float64 `json:"totalHours"`
	Streak     int     `json:"streak"`
}

type DailyActivity struct {
	Day   string  `json:"day"`  // Mon, Tue, ...
	Date  string  `json:"date"` // 2006-01-02
	Hours float64 `json:"hours"`
}

// ComputeDashboardStats derives the dashboard counters.
// Enrolled counts the tracked courses of enrolled paths, plus one per enrolled path none of whose courses
// were opened yet.
func ComputeDashboardStats(st State, now time.Time) DashboardStats {
	var stats DashboardStats

	pathsWithCourses := make(map[string]bool)
	for _, cp := range st.CourseProgress {
		if st.IsEnrolled(cp.PathSlug) {
			stats.Enrolled++
			pathsWithCourses[cp.PathSlug] = true
		}
		switch p := cp.Progress(); {
		case cp.Completed():
			stats.Completed++
		case p > 0 && p < 100:
			stats.InProgress++
		}
	}
	for _, slug := range st.EnrolledPathSlugs {
		if !pathsWithCourses[slug] {
			stats.Enrolled++
		}
	}

	stats.TotalHours = core.RoundTo(st.TotalLearningHours, 1)
	stats.Streak = Streak(st.ActivityLog, now)
	return stats
}

// Streak counts the consecutive days, ending today, with at least one activity. 0 if nothing happened today.
func Streak(log []ActivityEntry, now time.Time) int {
	loc := now.Location()
	days := make(map[string]bool, len(log))
	for _, e := range log {
		days[e.Timestamp.In(loc).Format(dayKeyLayout)] = true
	}

	today := dayStart(now, loc)
	var streak int
	for days[today.AddDate(0, 0, -streak).Format(dayKeyLayout)] {
		streak++
	}
	return streak
}

// DailyActivityForChart sums credited learning hours per day over the trailing 7 days, oldest first.
func DailyActivityForChart(log []ActivityEntry, now time.Time) []DailyActivity {
	loc := now.Location()
	hours := make(map[string]float64)
	for _, e := range log {
		if e.Hours > 0 {
			hours[e.Timestamp.In(loc).Format(dayKeyLayout)] += e.Hours
		}
	}

	today := dayStart(now, loc)
	out := make([]DailyActivity, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := day.Format(dayKeyLayout)
		out = append(out, DailyActivity{
			Day:   day.Format("Mon"),
			Date:  key,
			Hours: core.RoundTo(hours[key], 1),
		})
	}
	return out
}

// MostRecentCourse is the tracked course of the newest access or module completion.
func MostRecentCourse(st State) (RecentCourse, bool) {
	for _, e := range st.ActivityLog { // newest first
		if e.Type != ActivityCourseAccessed && e.Type != ActivityModuleCompleted {
			continue
		}
		cp, ok := st.CourseProgress[e.CourseID]
		if !ok {
			continue
		}
		return RecentCourse{
			PathSlug:     cp.PathSlug,
			CourseID:     cp.CourseID,
			CourseTitle:  cp.CourseTitle,
			Progress:     cp.Progress(),
			LastActivity: e.Timestamp,
		}, true
	}
	return RecentCourse{}, false
}

// RecentActivity returns at most limit entries, newest first.
func RecentActivity(log []ActivityEntry, limit int) []ActivityEntry {
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}
	return append([]ActivityEntry{}, log[:limit]...)
}
