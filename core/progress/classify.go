package progress

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	LabelOverdue  = "Overdue"
	LabelToday    = "Today"
	LabelTomorrow = "Tomorrow"

	dueDateLayout = "Jan 2, 2006"
)

// TaskView is a task as shown in the upcoming tasks list.
type TaskView struct {
	Task
	Status   TaskStatus `json:"status"`
	DueLabel string     `json:"dueLabel"`
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysUntil is the number of calendar days from now's day to due's day, in now's location.
// Negative when due is in the past.
func DaysUntil(due, now time.Time) int {
	loc := now.Location()
	diff := dayStart(due, loc).Sub(dayStart(now, loc))
	return int(math.Round(diff.Hours() / 24)) // DST days are 23h or 25h long
}

// DueLabel formats due relative to now.
func DueLabel(due, now time.Time) string {
	n := DaysUntil(due, now)
	switch {
	case n < 0:
		return LabelOverdue
	case n == 0:
		return LabelToday
	case n == 1:
		return LabelTomorrow
	case n <= 7:
		return fmt.Sprintf("%d days", n)
	case n <= 30:
		return fmt.Sprintf("%d weeks", (n+6)/7)
	default:
		return due.In(now.Location()).Format(dueDateLayout)
	}
}

// UpcomingTasks lists the tasks not yet completed, soonest first.
// Tasks due the same instant keep their insertion order.
func UpcomingTasks(tasks []Task, now time.Time) []TaskView {
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		status := t.StatusAt(now)
		if status == TaskCompleted {
			continue
		}
		views = append(views, TaskView{Task: t, Status: status, DueLabel: DueLabel(t.DueDate, now)})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].DueDate.Before(views[j].DueDate)
	})
	return views
}

// countTasks returns the number of pending (not overdue) and overdue tasks at now.
func countTasks(tasks []Task, now time.Time) (pending, overdue int) {
	for _, t := range tasks {
		switch t.StatusAt(now) {
		case TaskPending:
			pending++
		case TaskOverdue:
			overdue++
		}
	}
	return pending, overdue
}

func countOverdueMandatory(courses []MandatoryCourse, now time.Time) int {
	var n int
	for _, mc := range courses {
		if mc.Overdue(now) {
			n++
		}
	}
	return n
}
