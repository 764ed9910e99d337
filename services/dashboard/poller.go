package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/progress"
)

// Poller refreshes the dashboard aggregate of one learner on a fixed interval.
// Failed fetches are logged at debug level and keep the previous snapshot.
type Poller struct {
	fetcher   Fetcher
	learnerID string
	timeout   time.Duration
	logger    core.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.RWMutex
	latest *progress.DashboardSnapshot
}

var _ progress.Poller = (*Poller)(nil)

func NewPoller(fetcher Fetcher, learnerID string, interval, timeout time.Duration, logger core.Logger) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		fetcher:   fetcher,
		learnerID: learnerID,
		timeout:   timeout,
		logger:    logger,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:       ctx,
		cancel:    cancel,
	}
	_, _ = p.cron.AddFunc(fmt.Sprintf("@every %s", interval), p.poll)
	return p
}

// PollerFactory builds the per-learner pollers of a progress.Service.
func PollerFactory(fetcher Fetcher, conf core.DashboardConfig, logger core.Logger) progress.PollerFactory {
	return func(learnerID string) progress.Poller {
		return NewPoller(fetcher, learnerID, conf.PollInterval, conf.Timeout, logger)
	}
}

// Start fetches right away, then on every tick.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.poll()
	}()
	p.cron.Start()
}

// Stop cancels the running fetch and waits for it to return. Safe to call more than once.
func (p *Poller) Stop() {
	p.once.Do(func() {
		p.cancel()
		<-p.cron.Stop().Done()
		p.wg.Wait()
	})
}

func (p *Poller) Latest() *progress.DashboardSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return nil
	}
	snap := *p.latest
	return &snap
}

func (p *Poller) poll() {
	if p.ctx.Err() != nil {
		return
	}
	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.timeout)
		defer cancel()
	}

	snap, err := p.fetcher.Fetch(ctx, p.learnerID)
	if err != nil {
		if p.logger != nil {
			p.logger.Debug("polling dashboard of learner "+p.learnerID, err)
		}
		return
	}
	p.mu.Lock()
	p.latest = snap
	p.mu.Unlock()
}
