package progress

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/learner"
)

const (
	certificateTemplate = "certificate_earned"
	persistTimeout      = 5 * time.Second
)

type (
	// Poller keeps the latest server side dashboard aggregate of one learner.
	Poller interface {
		Start()
		Stop()
		Latest() *DashboardSnapshot
	}

	PollerFactory func(learnerID string) Poller

	ServiceDeps struct {
		Repo            Repository
		MailSvc         core.EmailService
		Logger          core.Logger
		Clock           core.Clock
		ModuleHours     float64
		MaxActivity     int
		RecentActivity  int
		FrontendBaseURL string
		SecretKey       string        // signs certificate codes
		NewPoller       PollerFactory // optional
		SessionIdle     time.Duration // 0: sessions stay open until closed
	}

	session struct {
		store       *Store
		poller      Poller
		unsubscribe func()
		lastSeen    time.Time // guarded by Service.mu
	}

	// Service owns the open learner sessions: one Store per learner, persisted on every change.
	Service struct {
		deps ServiceDeps

		mu       sync.Mutex
		sessions map[string]*session
		sweeper  *cron.Cron
	}

	certificateEmailData struct {
		LearnerName string
		CourseTitle string
		PathSlug    string
		CourseID    string
		EarnedAt    string
		LearnerID   string
		VerifyCode  string
	}
)

func NewService(deps ServiceDeps) *Service {
	if deps.Clock == nil {
		deps.Clock = core.SystemClock
	}
	if deps.MaxActivity == 0 {
		deps.MaxActivity = DefaultMaxActivity
	}
	svc := &Service{deps: deps, sessions: make(map[string]*session)}
	if deps.SessionIdle > 0 {
		svc.sweeper = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		_, _ = svc.sweeper.AddFunc(fmt.Sprintf("@every %s", sweepInterval(deps.SessionIdle)), svc.sweep)
		svc.sweeper.Start()
	}
	return svc
}

// sweepInterval checks for idle sessions a few times per idle period, at most once a second.
func sweepInterval(idle time.Duration) time.Duration {
	every := (idle / 4).Truncate(time.Second)
	if every < time.Second {
		return time.Second
	}
	return every
}

func (svc *Service) sweep() {
	if n := svc.EvictIdle(svc.deps.SessionIdle); n > 0 && svc.deps.Logger != nil {
		svc.deps.Logger.Debug(fmt.Sprintf("closed %d idle progress session(s)", n))
	}
}

// EvictIdle closes the sessions nobody opened for longer than maxIdle and returns how many were closed.
// Their progress is already persisted: the next Open starts over from storage.
func (svc *Service) EvictIdle(maxIdle time.Duration) int {
	now := svc.deps.Clock()
	var idle []*session
	svc.mu.Lock()
	for id, sess := range svc.sessions {
		if now.Sub(sess.lastSeen) > maxIdle {
			idle = append(idle, sess)
			delete(svc.sessions, id)
		}
	}
	svc.mu.Unlock()

	for _, sess := range idle {
		sess.close()
	}
	return len(idle)
}

func (svc *Service) storeOptions(lnr learner.Learner) Options {
	return Options{
		Clock:          svc.deps.Clock,
		ModuleHours:    svc.deps.ModuleHours,
		MaxActivity:    svc.deps.MaxActivity,
		RecentActivity: svc.deps.RecentActivity,
		OnCertificate:  svc.certificateEarned(lnr),
	}
}

func (svc *Service) lookup(learnerID string) (*session, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	sess, ok := svc.sessions[learnerID]
	return sess, ok
}

// Open returns the session Store of lnr, starting the session on first use.
// Reopening an open session folds in whatever other instances persisted meanwhile.
func (svc *Service) Open(ctx context.Context, lnr learner.Learner) (*Store, error) {
	if lnr.ID == "" {
		return nil, errors.New("opening progress session: missing learner id")
	}
	st, err := Load(ctx, svc.deps.Repo, lnr.ID, svc.deps.Logger)
	if err != nil {
		return nil, err
	}

	now := svc.deps.Clock()
	svc.mu.Lock()
	if sess, ok := svc.sessions[lnr.ID]; ok {
		sess.lastSeen = now
		svc.mu.Unlock()
		sess.store.absorb(st)
		return sess.store, nil
	}
	defer svc.mu.Unlock()

	store := NewStore(lnr.ID, st, svc.storeOptions(lnr))
	sess := &session{store: store, lastSeen: now}
	sess.unsubscribe = store.Subscribe(svc.persist(lnr))
	if svc.deps.NewPoller != nil {
		sess.poller = svc.deps.NewPoller(lnr.ID)
		sess.poller.Start()
	}
	svc.sessions[lnr.ID] = sess
	return store, nil
}

// persist writes every snapshot of lnr's session. Failures are logged only: the session keeps serving
// from memory and the next change retries the write.
func (svc *Service) persist(lnr learner.Learner) Subscriber {
	return func(snap State) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := Save(ctx, svc.deps.Repo, lnr.ID, snap, svc.deps.MaxActivity, svc.deps.Logger); err != nil {
			svc.logError("persisting progress", err, lnr)
		}
	}
}

func (svc *Service) certificateEarned(lnr learner.Learner) func(Certificate) {
	return func(cert Certificate) {
		addr, ok := lnr.Address()
		if !ok || svc.deps.MailSvc == nil {
			return
		}
		msg := &core.EmailMessage{
			To:           []mail.Address{addr},
			Subject:      "Certificate earned: " + cert.CourseTitle,
			TemplateName: certificateTemplate,
			TemplateData: certificateEmailData{
				LearnerName: lnr.Name,
				CourseTitle: cert.CourseTitle,
				PathSlug:    cert.PathSlug,
				CourseID:    cert.CourseID,
				EarnedAt:    cert.EarnedAt.Format(dueDateLayout),
				LearnerID:   lnr.ID,
				VerifyCode:  CertificateCode(svc.deps.SecretKey, lnr.ID, cert),
			},
		}
		msg.SetFrontendBaseURL(svc.deps.FrontendBaseURL)
		svc.deps.MailSvc.SendMessages(msg)
	}
}

func (svc *Service) logError(msg string, err error, args ...interface{}) {
	if svc.deps.Logger != nil {
		svc.deps.Logger.Error(msg, append([]interface{}{err}, args...)...)
	}
}

// Close ends the learner's session: the poller stops & the store stops persisting. Closing twice is a no-op.
func (svc *Service) Close(learnerID string) {
	svc.mu.Lock()
	sess, ok := svc.sessions[learnerID]
	delete(svc.sessions, learnerID)
	svc.mu.Unlock()
	if ok {
		sess.close()
	}
}

func (sess *session) close() {
	if sess.poller != nil {
		sess.poller.Stop()
	}
	sess.unsubscribe()
}

// Shutdown stops the idle sweeper and closes every open session.
func (svc *Service) Shutdown() {
	if svc.sweeper != nil {
		<-svc.sweeper.Stop().Done()
	}
	svc.mu.Lock()
	sessions := svc.sessions
	svc.sessions = make(map[string]*session)
	svc.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}

// OpenSessions returns the number of open sessions.
func (svc *Service) OpenSessions() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.sessions)
}

// Reset closes the learner's session and erases their persisted progress.
func (svc *Service) Reset(ctx context.Context, learnerID string) error {
	svc.Close(learnerID)
	if err := svc.deps.Repo.RemoveState(ctx, learnerID); err != nil && errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "removing progress")
	}
	return nil
}

// Dashboard reconciles lnr's local progress with the latest server aggregate.
func (svc *Service) Dashboard(ctx context.Context, lnr learner.Learner) (DashboardView, error) {
	store, err := svc.Open(ctx, lnr)
	if err != nil {
		return DashboardView{}, err
	}
	var remote *DashboardSnapshot
	if sess, ok := svc.lookup(lnr.ID); ok && sess.poller != nil {
		remote = sess.poller.Latest()
	}
	return Reconcile(store.Snapshot(), remote, store.Now()), nil
}

// Peek returns the learner's progress without opening a session: the live one if open, the persisted one otherwise.
func (svc *Service) Peek(ctx context.Context, learnerID string) (State, error) {
	if sess, ok := svc.lookup(learnerID); ok {
		return sess.store.Snapshot(), nil
	}
	return Load(ctx, svc.deps.Repo, learnerID, svc.deps.Logger)
}

// Readiness is the readiness of any learner, open session or not.
func (svc *Service) Readiness(ctx context.Context, learnerID string) (Readiness, error) {
	st, err := svc.Peek(ctx, learnerID)
	if err != nil {
		return Readiness{}, err
	}
	return CalculateReadiness(st, svc.deps.Clock()), nil
}

// Assign hands mandatory courses and tasks down to a learner, whether or not they are online.
func (svc *Service) Assign(ctx context.Context, learnerID string, a Assignment) error {
	return svc.withStore(ctx, learnerID, func(store *Store) {
		if len(a.MandatoryCourses) > 0 {
			store.SetMandatoryCourses(a.MandatoryCourses)
		}
		if len(a.Tasks) > 0 {
			store.SetTasks(a.Tasks)
		}
	})
}

// withStore runs fn against the learner's open session, or against a throwaway store saved right after.
func (svc *Service) withStore(ctx context.Context, learnerID string, fn func(*Store)) error {
	if sess, ok := svc.lookup(learnerID); ok {
		fn(sess.store)
		return nil
	}

	st, err := Load(ctx, svc.deps.Repo, learnerID, svc.deps.Logger)
	if err != nil {
		return err
	}
	store := NewStore(learnerID, st, svc.storeOptions(learner.Learner{ID: learnerID}))
	fn(store)
	return Save(ctx, svc.deps.Repo, learnerID, store.Snapshot(), svc.deps.MaxActivity, svc.deps.Logger)
}

// VerifyCertificate returns the learner's certificate of courseID when code was issued for it.
func (svc *Service) VerifyCertificate(ctx context.Context, learnerID, courseID, code string) (Certificate, error) {
	st, err := svc.Peek(ctx, learnerID)
	if err != nil {
		return Certificate{}, err
	}
	for _, cert := range st.Certificates {
		if cert.CourseID != courseID {
			continue
		}
		if err = verifyCertificateCode(svc.deps.SecretKey, learnerID, cert, code); err != nil {
			return Certificate{}, err
		}
		return cert, nil
	}
	return Certificate{}, ErrInvalidCertificateCode
}
