package progress

import (
	"math"
	"sort"
	"time"
)

type ActivityType string

const (
	ActivityCourseAccessed      ActivityType = "course_accessed"
	ActivityModuleCompleted     ActivityType = "module_completed"
	ActivityAssignmentSubmitted ActivityType = "assignment_submitted"
	ActivityQuizCompleted       ActivityType = "quiz_completed"
	ActivityCourseCompleted     ActivityType = "course_completed"
)

type TaskKind string

const (
	TaskAssignment TaskKind = "assignment"
	TaskQuiz       TaskKind = "quiz"
	TaskAssessment TaskKind = "assessment"
)

type TaskStatus string

// TaskOverdue is never stored: it only comes out of Task.StatusAt.
const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskOverdue   TaskStatus = "overdue"
)

// CourseProgress is the progress of one learner in one course.
// CompletedModuleIDs only ever grows; Progress & Completed are always derived from it.
type CourseProgress struct {
	PathSlug           string   `json:"pathSlug"`
	CourseID           string   `json:"courseId"`
	CourseTitle        string   `json:"courseTitle,omitempty"`
	TotalModules       int      `json:"totalModules"`
	ModuleIDs          []string `json:"moduleIds,omitempty"` // known module ids, when the catalog sent them
	CompletedModuleIDs []string `json:"completedModuleIds"`  // sorted set
}

// Progress is round(100 × completed / total), 0 when the module count is unknown.
func (cp CourseProgress) Progress() int {
	if cp.TotalModules <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(len(cp.CompletedModuleIDs)) / float64(cp.TotalModules)))
	if p > 100 {
		return 100
	}
	return p
}

func (cp CourseProgress) Completed() bool {
	return cp.TotalModules > 0 && len(cp.CompletedModuleIDs) >= cp.TotalModules
}

func (cp CourseProgress) HasCompleted(moduleID string) bool {
	return containsSorted(cp.CompletedModuleIDs, moduleID)
}

func (cp CourseProgress) knowsModule(moduleID string) bool {
	return containsSorted(cp.ModuleIDs, moduleID)
}

// accepts reports whether completing moduleID is legitimate bookkeeping for this course.
func (cp CourseProgress) accepts(moduleID string) bool {
	if moduleID == "" {
		return false
	}
	if len(cp.ModuleIDs) > 0 {
		return cp.knowsModule(moduleID)
	}
	if cp.HasCompleted(moduleID) {
		return true
	}
	return len(cp.CompletedModuleIDs) < cp.TotalModules
}

func (cp CourseProgress) clone() CourseProgress {
	cp.ModuleIDs = cloneStrings(cp.ModuleIDs)
	cp.CompletedModuleIDs = cloneStrings(cp.CompletedModuleIDs)
	if cp.CompletedModuleIDs == nil {
		cp.CompletedModuleIDs = []string{}
	}
	return cp
}

// MandatoryCourse is a course an administrator required, cached locally.
type MandatoryCourse struct {
	PathSlug    string    `json:"pathSlug" yaml:"pathSlug" validate:"required,slug"`
	PathTitle   string    `json:"pathTitle" yaml:"pathTitle"`
	CourseID    string    `json:"courseId" yaml:"courseId" validate:"required"`
	CourseTitle string    `json:"courseTitle" yaml:"courseTitle"`
	DueDate     time.Time `json:"dueDate" yaml:"dueDate" validate:"required"`
	Completed   bool      `json:"completed" yaml:"completed"`
}

// Overdue is derived at read time, never stored.
func (mc MandatoryCourse) Overdue(now time.Time) bool {
	return !mc.Completed && mc.DueDate.Before(now)
}

// Task is a pending assignment, quiz or assessment obligation.
type Task struct {
	ID          string     `json:"id" yaml:"id" validate:"required"`
	Title       string     `json:"title" yaml:"title" validate:"required"`
	Kind        TaskKind   `json:"kind,omitempty" yaml:"kind" validate:"omitempty,oneof=assignment quiz assessment"`
	CourseTitle string     `json:"courseTitle" yaml:"courseTitle"`
	PathSlug    string     `json:"pathSlug" yaml:"pathSlug" validate:"omitempty,slug"`
	CourseID    string     `json:"courseId" yaml:"courseId"`
	DueDate     time.Time  `json:"dueDate" yaml:"dueDate" validate:"required"`
	Status      TaskStatus `json:"status" yaml:"status" validate:"omitempty,oneof=pending completed"`
}

// StatusAt classifies the task at `now`: a pending task whose due date has passed is overdue.
func (t Task) StatusAt(now time.Time) TaskStatus {
	if t.Status == TaskCompleted {
		return TaskCompleted
	}
	if t.DueDate.Before(now) {
		return TaskOverdue
	}
	return TaskPending
}

type ActivityEntry struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	Title     string       `json:"title"`
	Subtitle  string       `json:"subtitle,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	PathSlug  string       `json:"pathSlug,omitempty"`
	CourseID  string       `json:"courseId,omitempty"`
	Hours     float64      `json:"hours,omitempty"` // learning hours credited by this entry
}

// Certificate marks the first completion of a course. Never mutated once created.
type Certificate struct {
	PathSlug    string    `json:"pathSlug"`
	CourseID    string    `json:"courseId"`
	CourseTitle string    `json:"courseTitle"`
	EarnedAt    time.Time `json:"earnedAt"`
}

// RecentCourse backs "Continue Learning".
type RecentCourse struct {
	PathSlug     string    `json:"pathSlug"`
	CourseID     string    `json:"courseId"`
	CourseTitle  string    `json:"courseTitle"`
	Progress     int       `json:"progress"`
	LastActivity time.Time `json:"lastActivity"`
}

func containsSorted(set []string, s string) bool {
	i := sort.SearchStrings(set, s)
	return i < len(set) && set[i] == s
}

// insertSorted adds s to the sorted set, reports whether it was added.
func insertSorted(set []string, s string) ([]string, bool) {
	i := sort.SearchStrings(set, s)
	if i < len(set) && set[i] == s {
		return set, false
	}
	set = append(set, "")
	copy(set[i+1:], set[i:])
	set[i] = s
	return set, true
}

func unionSorted(a, b []string) []string {
	out := cloneStrings(a)
	for _, s := range b {
		out, _ = insertSorted(out, s)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
