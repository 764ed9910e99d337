package progress

import (
	"sort"
	"strings"
)

// State is everything we track about one learner. It only holds primary fields:
// percentages, overdue flags & readiness are always derived.
type State struct {
	CourseProgress     map[string]CourseProgress `json:"courseProgress"` // by course id
	MandatoryCourses   []MandatoryCourse         `json:"mandatoryCourses"`
	Tasks              []Task                    `json:"tasks"`
	ActivityLog        []ActivityEntry           `json:"activityLog"` // newest first
	Certificates       []Certificate             `json:"certificates"`
	EnrolledPathSlugs  []string                  `json:"enrolledPathSlugs"` // sorted set
	SkillsGained       []string                  `json:"skillsGained"`      // gain order
	TotalLearningHours float64                   `json:"totalLearningHours"`
}

func NewState() State {
	return State{
		CourseProgress:    make(map[string]CourseProgress),
		MandatoryCourses:  []MandatoryCourse{},
		Tasks:             []Task{},
		ActivityLog:       []ActivityEntry{},
		Certificates:      []Certificate{},
		EnrolledPathSlugs: []string{},
		SkillsGained:      []string{},
	}
}

// IsEmpty reports whether nothing was ever tracked for the learner.
func (st State) IsEmpty() bool {
	return len(st.CourseProgress) == 0 && len(st.EnrolledPathSlugs) == 0 && len(st.ActivityLog) == 0 &&
		len(st.MandatoryCourses) == 0 && len(st.Tasks) == 0
}

// Clone returns a deep copy of st, safe to hand out to subscribers.
func (st State) Clone() State {
	out := State{
		CourseProgress:     make(map[string]CourseProgress, len(st.CourseProgress)),
		MandatoryCourses:   append([]MandatoryCourse{}, st.MandatoryCourses...),
		Tasks:              append([]Task{}, st.Tasks...),
		ActivityLog:        append([]ActivityEntry{}, st.ActivityLog...),
		Certificates:       append([]Certificate{}, st.Certificates...),
		EnrolledPathSlugs:  append([]string{}, st.EnrolledPathSlugs...),
		SkillsGained:       append([]string{}, st.SkillsGained...),
		TotalLearningHours: st.TotalLearningHours,
	}
	for id, cp := range st.CourseProgress {
		out.CourseProgress[id] = cp.clone()
	}
	return out
}

func (st State) IsEnrolled(pathSlug string) bool {
	return containsSorted(st.EnrolledPathSlugs, pathSlug)
}

func (st State) HasCertificate(courseID string) bool {
	for _, c := range st.Certificates {
		if c.CourseID == courseID {
			return true
		}
	}
	return false
}

// normalize repairs what a decoded blob may carry but a Store never produces.
// Bad entries are dropped, never reported: local progress is bookkeeping, not a source of truth.
func (st *State) normalize() {
	if st.CourseProgress == nil {
		st.CourseProgress = make(map[string]CourseProgress)
	}
	for id, cp := range st.CourseProgress {
		if id == "" {
			delete(st.CourseProgress, id)
			continue
		}
		cp.CourseID = id
		if cp.TotalModules < 0 {
			cp.TotalModules = 0
		}
		cp.ModuleIDs = sortedSet(cp.ModuleIDs)
		if len(cp.ModuleIDs) == 0 {
			cp.ModuleIDs = nil
		}
		completed := sortedSet(cp.CompletedModuleIDs)
		if len(cp.ModuleIDs) > 0 {
			kept := completed[:0]
			for _, m := range completed {
				if cp.knowsModule(m) {
					kept = append(kept, m)
				}
			}
			completed = kept
		}
		cp.CompletedModuleIDs = completed
		if n := len(cp.ModuleIDs); n > cp.TotalModules {
			cp.TotalModules = n
		}
		if n := len(cp.CompletedModuleIDs); n > cp.TotalModules {
			cp.TotalModules = n
		}
		st.CourseProgress[id] = cp.clone()
	}

	if st.MandatoryCourses == nil {
		st.MandatoryCourses = []MandatoryCourse{}
	}
	for i := range st.MandatoryCourses {
		st.MandatoryCourses[i].DueDate = st.MandatoryCourses[i].DueDate.UTC()
	}

	tasks := make([]Task, 0, len(st.Tasks))
	for _, t := range st.Tasks {
		if t.ID == "" {
			continue
		}
		tasks = append(tasks, normalizeTask(t))
	}
	st.Tasks = tasks

	if st.ActivityLog == nil {
		st.ActivityLog = []ActivityEntry{}
	}
	sortActivity(st.ActivityLog)

	if st.Certificates == nil {
		st.Certificates = []Certificate{}
	}
	st.EnrolledPathSlugs = sortedSet(st.EnrolledPathSlugs)
	if st.SkillsGained == nil {
		st.SkillsGained = []string{}
	}
	if st.TotalLearningHours < 0 {
		st.TotalLearningHours = 0
	}
}

func normalizeTask(t Task) Task {
	if t.Status != TaskCompleted {
		t.Status = TaskPending
	}
	if t.Kind == "" {
		t.Kind = TaskAssignment
	}
	t.DueDate = t.DueDate.UTC()
	return t
}

// Merge combines two sessions of the same learner, other being the newer one. Nothing tracked on either
// side is lost: sets are unioned, completions are sticky, certificates keep the earliest award and
// the activity log is de-duplicated by id. Descriptive fields (titles, due dates) come from other.
func (st State) Merge(other State) State {
	out := st.Clone()
	other = other.Clone()

	for id, ocp := range other.CourseProgress {
		cp, ok := out.CourseProgress[id]
		if !ok {
			out.CourseProgress[id] = ocp
			continue
		}
		if ocp.PathSlug != "" {
			cp.PathSlug = ocp.PathSlug
		}
		if ocp.CourseTitle != "" {
			cp.CourseTitle = ocp.CourseTitle
		}
		cp.ModuleIDs = unionSorted(cp.ModuleIDs, ocp.ModuleIDs)
		cp.CompletedModuleIDs = unionSorted(cp.CompletedModuleIDs, ocp.CompletedModuleIDs)
		cp.TotalModules = maxInt(cp.TotalModules, ocp.TotalModules, len(cp.ModuleIDs), len(cp.CompletedModuleIDs))
		out.CourseProgress[id] = cp
	}

	for _, omc := range other.MandatoryCourses {
		found := false
		for i, mc := range out.MandatoryCourses {
			if mc.CourseID == omc.CourseID {
				omc.Completed = mc.Completed || omc.Completed
				out.MandatoryCourses[i] = omc
				found = true
				break
			}
		}
		if !found {
			out.MandatoryCourses = append(out.MandatoryCourses, omc)
		}
	}

	for _, ot := range other.Tasks {
		found := false
		for i, t := range out.Tasks {
			if t.ID == ot.ID {
				if t.Status == TaskCompleted {
					ot.Status = TaskCompleted
				}
				out.Tasks[i] = ot
				found = true
				break
			}
		}
		if !found {
			out.Tasks = append(out.Tasks, ot)
		}
	}

	// other's entries go first so that, among equal timestamps, the newer session's order is kept
	log := make([]ActivityEntry, 0, len(other.ActivityLog)+len(out.ActivityLog))
	seen := make(map[string]bool, cap(log))
	for _, side := range [][]ActivityEntry{other.ActivityLog, out.ActivityLog} {
		for _, e := range side {
			if !seen[e.ID] {
				log = append(log, e)
				seen[e.ID] = true
			}
		}
	}
	sortActivity(log)
	out.ActivityLog = log

	for _, oc := range other.Certificates {
		replaced := false
		for i, c := range out.Certificates {
			if c.CourseID == oc.CourseID {
				if oc.EarnedAt.Before(c.EarnedAt) {
					out.Certificates[i] = oc
				}
				replaced = true
				break
			}
		}
		if !replaced {
			out.Certificates = append(out.Certificates, oc)
		}
	}

	out.EnrolledPathSlugs = unionSorted(out.EnrolledPathSlugs, other.EnrolledPathSlugs)
	for _, skill := range other.SkillsGained {
		out.SkillsGained = appendUnique(out.SkillsGained, skill)
	}
	if other.TotalLearningHours > out.TotalLearningHours {
		out.TotalLearningHours = other.TotalLearningHours
	}
	return out
}

// capActivity keeps the `max` newest activity entries. max <= 0 keeps everything.
func (st *State) capActivity(max int) {
	if max > 0 && len(st.ActivityLog) > max {
		st.ActivityLog = st.ActivityLog[:max]
	}
}

// sortActivity orders newest first; entries of the same instant keep their order.
func sortActivity(log []ActivityEntry) {
	sort.SliceStable(log, func(i, j int) bool {
		return log[i].Timestamp.After(log[j].Timestamp)
	})
}

func sortedSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out, _ = insertSorted(out, s)
		}
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func maxInt(first int, rest ...int) int {
	m := first
	for _, v := range rest {
		if v > m {
			m = v
		}
	}
	return m
}
