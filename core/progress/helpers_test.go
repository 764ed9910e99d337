package progress

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/pathways/core"
)

// Wednesday
var testNow = time.Date(2024, time.March, 13, 15, 0, 0, 0, time.UTC)

func daysFromNow(n int) time.Time {
	return testNow.AddDate(0, 0, n)
}

func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("act-%03d", n)
	}
}

func newTestStore(t *testing.T, st State, opts ...func(*Options)) *Store {
	t.Helper()
	o := Options{
		Clock:       core.FixedClock(testNow),
		ModuleHours: DefaultModuleHours,
		NewID:       sequentialIDs(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return NewStore("learner-1", st, o)
}

func trackedCourse(pathSlug, courseID string, total int, completed ...string) CourseProgress {
	return CourseProgress{
		PathSlug:           pathSlug,
		CourseID:           courseID,
		CourseTitle:        "Course " + courseID,
		TotalModules:       total,
		CompletedModuleIDs: sortedSet(completed),
	}
}

func stateWith(courses ...CourseProgress) State {
	st := NewState()
	for _, cp := range courses {
		st.CourseProgress[cp.CourseID] = cp
	}
	return st
}

type logEntry struct {
	level string
	msg   string
	args  []interface{}
}

type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

var _ core.Logger = (*testLogger)(nil)

func (l *testLogger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *testLogger) levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	levels := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		levels = append(levels, e.level)
	}
	return levels
}

func (l *testLogger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *testLogger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *testLogger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *testLogger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *testLogger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// memRepo is a Repository whose failures can be switched on.
type memRepo struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	getErr error
	setErr error
	sets   int
}

var _ Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{blobs: make(map[string][]byte)}
}

func (r *memRepo) GetState(_ context.Context, learnerID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	blob, ok := r.blobs[learnerID]
	if !ok {
		return nil, ErrNotFound
	}
	return blob, nil
}

func (r *memRepo) SetState(_ context.Context, learnerID string, blob []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.sets++
	r.blobs[learnerID] = blob
	return nil
}

func (r *memRepo) RemoveState(_ context.Context, learnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blobs[learnerID]; !ok {
		return ErrNotFound
	}
	delete(r.blobs, learnerID)
	return nil
}

func (r *memRepo) stored(t *testing.T, learnerID string) State {
	t.Helper()
	r.mu.Lock()
	blob, ok := r.blobs[learnerID]
	r.mu.Unlock()
	if !ok {
		t.Fatalf("stored(): nothing stored for %s", learnerID)
	}
	st, err := Decode(blob)
	if err != nil {
		t.Fatalf("stored(): %v", err)
	}
	return st
}

type mailSpy struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *mailSpy) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

type fakePoller struct {
	mu      sync.Mutex
	latest  *DashboardSnapshot
	started bool
	stopped bool
}

func (p *fakePoller) Start() {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
}

func (p *fakePoller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func (p *fakePoller) Latest() *DashboardSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}
