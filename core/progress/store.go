package progress

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/pathways/core"
)

const (
	DefaultModuleHours    = 0.5
	DefaultMaxActivity    = 500
	DefaultRecentActivity = 8
)

type (
	// Subscriber receives a snapshot of the state after every mutation.
	// Subscribers may read the Store but must not mutate it.
	Subscriber func(State)

	Options struct {
		Clock          core.Clock
		ModuleHours    float64 // credited per newly completed module
		MaxActivity    int
		RecentActivity int
		NewID          func() string
		OnCertificate  func(Certificate) // called once per certificate, after subscribers
	}

	// CourseAccess is what the course player reports when a learner opens a course.
	CourseAccess struct {
		PathSlug     string   `json:"pathSlug" validate:"required,slug"`
		CourseID     string   `json:"courseId" validate:"required"`
		CourseTitle  string   `json:"courseTitle"`
		TotalModules int      `json:"totalModules" validate:"gte=0"`
		ModuleIDs    []string `json:"moduleIds" validate:"omitempty,dive,required"`
	}

	// Store is the single source of truth of one learner session.
	// Mutations are serialized; each one notifies subscribers exactly once, after it is fully applied.
	Store struct {
		learnerID string
		opts      Options

		writeMu sync.Mutex   // serializes mutation + notification
		mu      sync.RWMutex // guards state
		state   State

		subsMu  sync.Mutex
		subs    map[int]Subscriber
		nextSub int
	}
)

func (opts Options) withDefaults() Options {
	if opts.Clock == nil {
		opts.Clock = core.SystemClock
	}
	if opts.ModuleHours < 0 {
		opts.ModuleHours = 0
	}
	if opts.MaxActivity == 0 {
		opts.MaxActivity = DefaultMaxActivity
	}
	if opts.RecentActivity <= 0 {
		opts.RecentActivity = DefaultRecentActivity
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	return opts
}

// NewStore starts a session for learnerID over a copy of st.
func NewStore(learnerID string, st State, opts Options) *Store {
	state := st.Clone()
	state.normalize()
	return &Store{
		learnerID: learnerID,
		opts:      opts.withDefaults(),
		state:     state,
		subs:      make(map[int]Subscriber),
	}
}

func (s *Store) LearnerID() string { return s.learnerID }

// Subscribe registers fn and returns the func removing it.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) subscribers() []Subscriber {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]Subscriber, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	return subs
}

// update applies fn to the state and notifies subscribers once. fn returns the certificates it created.
func (s *Store) update(fn func(st *State, now time.Time) []Certificate) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	certs := fn(&s.state, s.opts.Clock())
	s.state.capActivity(s.opts.MaxActivity)
	snap := s.state.Clone()
	s.mu.Unlock()

	for _, sub := range s.subscribers() {
		sub(snap)
	}
	if s.opts.OnCertificate != nil {
		for _, c := range certs {
			s.opts.OnCertificate(c)
		}
	}
}

// absorb folds a freshly loaded state into the session without notifying. The session's own values win.
func (s *Store) absorb(st State) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	s.state = st.Merge(s.state)
	s.state.normalize()
	s.state.capActivity(s.opts.MaxActivity)
	s.mu.Unlock()
}

func (s *Store) newActivity(typ ActivityType, title, subtitle, pathSlug, courseID string, now time.Time) ActivityEntry {
	return ActivityEntry{
		ID:        s.opts.NewID(),
		Type:      typ,
		Title:     title,
		Subtitle:  subtitle,
		Timestamp: now.UTC(),
		PathSlug:  pathSlug,
		CourseID:  courseID,
	}
}

func prependActivity(st *State, e ActivityEntry) {
	st.ActivityLog = append([]ActivityEntry{e}, st.ActivityLog...)
}

// Mutations

// EnrollInPath adds pathSlug to the enrolled paths. Enrolling twice is a no-op.
func (s *Store) EnrollInPath(pathSlug string) {
	pathSlug = core.CleanString(pathSlug)
	s.update(func(st *State, _ time.Time) []Certificate {
		if pathSlug != "" {
			st.EnrolledPathSlugs, _ = insertSorted(st.EnrolledPathSlugs, pathSlug)
		}
		return nil
	})
}

// RecordCourseAccess tracks the course on first access and logs the access.
// The module count only ever grows so that a shrunk course never invalidates past completions.
func (s *Store) RecordCourseAccess(ca CourseAccess) {
	courseID := core.CleanString(ca.CourseID)
	s.update(func(st *State, now time.Time) []Certificate {
		if courseID == "" {
			return nil
		}
		cp, ok := st.CourseProgress[courseID]
		if !ok {
			cp = CourseProgress{CourseID: courseID, CompletedModuleIDs: []string{}}
		}
		if slug := core.CleanString(ca.PathSlug); slug != "" {
			cp.PathSlug = slug
		}
		if title := core.CleanString(ca.CourseTitle); title != "" {
			cp.CourseTitle = title
		}
		if known := sortedSet(ca.ModuleIDs); len(known) > 0 {
			cp.ModuleIDs = unionSorted(cp.ModuleIDs, known)
		}
		cp.TotalModules = maxInt(cp.TotalModules, ca.TotalModules, len(cp.ModuleIDs))
		st.CourseProgress[courseID] = cp

		prependActivity(st, s.newActivity(ActivityCourseAccessed, cp.CourseTitle, "", cp.PathSlug, courseID, now))
		return nil
	})
}

// RecordModuleComplete marks moduleID done. Completing a module twice leaves the completion set unchanged
// but is still logged. Unknown courses and modules are ignored.
// The completion that finishes the course also logs the course completion and awards its certificate
// unless the learner already holds one.
func (s *Store) RecordModuleComplete(pathSlug, courseID, moduleID string) {
	pathSlug = core.CleanString(pathSlug)
	courseID = core.CleanString(courseID)
	moduleID = core.CleanString(moduleID)
	s.update(func(st *State, now time.Time) []Certificate {
		cp, ok := st.CourseProgress[courseID]
		if !ok || (pathSlug != "" && cp.PathSlug != "" && pathSlug != cp.PathSlug) || !cp.accepts(moduleID) {
			return nil
		}

		wasCompleted := cp.Completed()
		var added bool
		cp.CompletedModuleIDs, added = insertSorted(cp.CompletedModuleIDs, moduleID)
		st.CourseProgress[courseID] = cp

		entry := s.newActivity(ActivityModuleCompleted, cp.CourseTitle, "Module "+moduleID, cp.PathSlug, courseID, now)
		if added && s.opts.ModuleHours > 0 {
			entry.Hours = s.opts.ModuleHours
			st.TotalLearningHours += s.opts.ModuleHours
		}
		prependActivity(st, entry)

		if wasCompleted || !cp.Completed() {
			return nil
		}
		prependActivity(st, s.newActivity(ActivityCourseCompleted, cp.CourseTitle, "", cp.PathSlug, courseID, now))
		for i := range st.MandatoryCourses {
			if st.MandatoryCourses[i].CourseID == courseID {
				st.MandatoryCourses[i].Completed = true
			}
		}
		if st.HasCertificate(courseID) {
			return nil
		}
		cert := Certificate{
			PathSlug:    cp.PathSlug,
			CourseID:    courseID,
			CourseTitle: cp.CourseTitle,
			EarnedAt:    now.UTC(),
		}
		st.Certificates = append(st.Certificates, cert)
		return []Certificate{cert}
	})
}

// SetMandatoryCourses upserts mandatory course assignments by course id.
// Courses the learner already completed stay completed.
func (s *Store) SetMandatoryCourses(courses []MandatoryCourse) {
	s.update(func(st *State, _ time.Time) []Certificate {
		incoming := State{MandatoryCourses: make([]MandatoryCourse, 0, len(courses))}
		for _, mc := range courses {
			if mc.CourseID == "" {
				continue
			}
			mc.DueDate = mc.DueDate.UTC()
			if cp, ok := st.CourseProgress[mc.CourseID]; ok && cp.Completed() {
				mc.Completed = true
			}
			incoming.MandatoryCourses = append(incoming.MandatoryCourses, mc)
		}
		st.MandatoryCourses = st.Merge(incoming).MandatoryCourses
		return nil
	})
}

// SetTasks upserts tasks by id. Tasks already submitted stay completed.
func (s *Store) SetTasks(tasks []Task) {
	s.update(func(st *State, _ time.Time) []Certificate {
		incoming := State{Tasks: make([]Task, 0, len(tasks))}
		for _, t := range tasks {
			if t.ID != "" {
				incoming.Tasks = append(incoming.Tasks, normalizeTask(t))
			}
		}
		st.Tasks = st.Merge(incoming).Tasks
		return nil
	})
}

// SubmitTask moves a pending task to completed and logs the submission. Unknown or completed tasks are ignored.
func (s *Store) SubmitTask(taskID string) {
	s.update(func(st *State, now time.Time) []Certificate {
		for i, t := range st.Tasks {
			if t.ID != taskID || t.Status == TaskCompleted {
				continue
			}
			st.Tasks[i].Status = TaskCompleted
			typ := ActivityAssignmentSubmitted
			if t.Kind == TaskQuiz {
				typ = ActivityQuizCompleted
			}
			prependActivity(st, s.newActivity(typ, t.Title, t.CourseTitle, t.PathSlug, t.CourseID, now))
			break
		}
		return nil
	})
}

// AddSkill records a newly gained skill, in gain order.
func (s *Store) AddSkill(skill string) {
	skill = core.CleanString(skill)
	s.update(func(st *State, _ time.Time) []Certificate {
		if skill != "" {
			st.SkillsGained = appendUnique(st.SkillsGained, skill)
		}
		return nil
	})
}

// Reads

func (s *Store) Now() time.Time { return s.opts.Clock() }

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) MostRecentCourse() (RecentCourse, bool) {
	return MostRecentCourse(s.Snapshot())
}

func (s *Store) ReadinessScore() Readiness {
	return CalculateReadiness(s.Snapshot(), s.opts.Clock())
}

func (s *Store) DashboardStats() DashboardStats {
	return ComputeDashboardStats(s.Snapshot(), s.opts.Clock())
}

func (s *Store) DailyActivityForChart() []DailyActivity {
	return DailyActivityForChart(s.Snapshot().ActivityLog, s.opts.Clock())
}

// RecentActivity returns the newest activity entries; limit <= 0 uses the configured default.
func (s *Store) RecentActivity(limit int) []ActivityEntry {
	if limit <= 0 {
		limit = s.opts.RecentActivity
	}
	return RecentActivity(s.Snapshot().ActivityLog, limit)
}

func (s *Store) UpcomingTasks() []TaskView {
	return UpcomingTasks(s.Snapshot().Tasks, s.opts.Clock())
}

func (s *Store) Certificates() []Certificate {
	return s.Snapshot().Certificates
}
