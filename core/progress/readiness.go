package progress

import (
	"math"
	"time"
)

type ReadinessStatus string

const (
	OnTrack        ReadinessStatus = "on_track"
	NeedsAttention ReadinessStatus = "needs_attention"
	AtRisk         ReadinessStatus = "at_risk"
)

// Readiness weights & penalty curve.
// Penalties are linear per item and saturate at 100 (4 pending tasks, 2 overdue mandatory courses).
const (
	WeightCourseCompletion = 0.5
	WeightPendingTasks     = 0.3
	WeightOverdueMandatory = 0.2

	PendingPenaltyPerTask   = 25
	OverduePenaltyPerCourse = 50
	onTrackThreshold        = 70
	needsAttentionThreshold = 40
	maxPenalty              = 100
	fullCredit              = 100
)

type Readiness struct {
	Score             int             `json:"score"`
	Status            ReadinessStatus `json:"status"`
	MandatoryComplete int             `json:"mandatoryComplete"`
	MandatoryTotal    int             `json:"mandatoryTotal"`
	MandatoryPct      int             `json:"mandatoryPct"`
	CourseCompletion  int             `json:"courseCompletion"`
	PendingTasks      int             `json:"pendingTasks"`
	OverdueMandatory  int             `json:"overdueMandatory"`
	PendingPenalty    int             `json:"pendingPenalty"`
	OverduePenalty    int             `json:"overduePenalty"`
}

// CalculateReadiness derives the readiness score of st at now. It never mutates st.
//
// score = 50% course completion + 30% (100 - pending penalty) + 20% (100 - overdue penalty),
// rounded half away from zero then clamped to [0, 100]. An empty state scores 50.
func CalculateReadiness(st State, now time.Time) Readiness {
	var r Readiness

	var completedCourses int
	for _, cp := range st.CourseProgress {
		if cp.Completed() {
			completedCourses++
		}
	}
	r.CourseCompletion = percent(completedCourses, len(st.CourseProgress), 0)

	r.MandatoryTotal = len(st.MandatoryCourses)
	for _, mc := range st.MandatoryCourses {
		if mc.Completed {
			r.MandatoryComplete++
		}
	}
	r.MandatoryPct = percent(r.MandatoryComplete, r.MandatoryTotal, fullCredit)

	r.PendingTasks, _ = countTasks(st.Tasks, now)
	r.OverdueMandatory = countOverdueMandatory(st.MandatoryCourses, now)
	r.PendingPenalty = penalty(r.PendingTasks, PendingPenaltyPerTask)
	r.OverduePenalty = penalty(r.OverdueMandatory, OverduePenaltyPerCourse)

	score := WeightCourseCompletion*float64(r.CourseCompletion) +
		WeightPendingTasks*float64(fullCredit-r.PendingPenalty) +
		WeightOverdueMandatory*float64(fullCredit-r.OverduePenalty)
	r.Score = clamp(int(math.Round(score)), 0, 100)
	r.Status = StatusForScore(r.Score)
	return r
}

// StatusForScore: [70, 100] on track, [40, 70) needs attention, [0, 40) at risk.
func StatusForScore(score int) ReadinessStatus {
	switch {
	case score >= onTrackThreshold:
		return OnTrack
	case score >= needsAttentionThreshold:
		return NeedsAttention
	default:
		return AtRisk
	}
}

func percent(n, total, whenEmpty int) int {
	if total <= 0 {
		return whenEmpty
	}
	return int(math.Round(100 * float64(n) / float64(total)))
}

func penalty(count, perItem int) int {
	return clamp(count*perItem, 0, maxPenalty)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
