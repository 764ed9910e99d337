package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueLabel(t *testing.T) {
	startOfToday := time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		due  time.Time
		want string
	}{
		{name: "last night", due: startOfToday.Add(-time.Minute), want: LabelOverdue},
		{name: "last month", due: daysFromNow(-40), want: LabelOverdue},
		{name: "earlier today", due: startOfToday, want: LabelToday},
		{name: "tonight", due: startOfToday.Add(24*time.Hour - time.Minute), want: LabelToday},
		{name: "tomorrow", due: daysFromNow(1), want: LabelTomorrow},
		{name: "in 2 days", due: daysFromNow(2), want: "2 days"},
		{name: "in a week", due: daysFromNow(7), want: "7 days"},
		{name: "in 8 days", due: daysFromNow(8), want: "2 weeks"},
		{name: "in 2 weeks", due: daysFromNow(14), want: "2 weeks"},
		{name: "in 15 days", due: daysFromNow(15), want: "3 weeks"},
		{name: "in 30 days", due: daysFromNow(30), want: "5 weeks"},
		{name: "in 31 days", due: daysFromNow(31), want: "Apr 13, 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DueLabel(tt.due, testNow); got != tt.want {
				t.Errorf("DueLabel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDaysUntil_usesNowLocation(t *testing.T) {
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	now := time.Date(2024, time.March, 14, 1, 0, 0, 0, tokyo) // Mar 13, 16:00 UTC
	due := time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, -1, DaysUntil(due, now))
	assert.Equal(t, 0, DaysUntil(due, now.UTC()))
}

func TestTask_StatusAt(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want TaskStatus
	}{
		{name: "due tomorrow", task: Task{DueDate: daysFromNow(1), Status: TaskPending}, want: TaskPending},
		{name: "due tonight", task: Task{DueDate: daysFromNow(0).Add(8 * time.Hour), Status: TaskPending}, want: TaskPending},
		{name: "due this morning", task: Task{DueDate: daysFromNow(0).Add(-6 * time.Hour), Status: TaskPending}, want: TaskOverdue},
		{name: "due yesterday", task: Task{DueDate: daysFromNow(-1), Status: TaskPending}, want: TaskOverdue},
		{name: "submitted late", task: Task{DueDate: daysFromNow(-1), Status: TaskCompleted}, want: TaskCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.StatusAt(testNow); got != tt.want {
				t.Errorf("StatusAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpcomingTasks(t *testing.T) {
	due := daysFromNow(5)
	tasks := []Task{
		{ID: "t3", DueDate: due, Status: TaskPending},
		{ID: "t1", DueDate: daysFromNow(-1), Status: TaskPending},
		{ID: "t2", DueDate: daysFromNow(1), Status: TaskCompleted},
		{ID: "t4", DueDate: due, Status: TaskPending},
	}

	got := UpcomingTasks(tasks, testNow)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"t1", "t3", "t4"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, TaskOverdue, got[0].Status)
	assert.Equal(t, LabelOverdue, got[0].DueLabel)
	assert.Equal(t, TaskPending, got[1].Status)
	assert.Equal(t, "5 days", got[1].DueLabel)
	assert.Equal(t, TaskPending, tasks[1].Status, "classification is never stored")
}
