/*
scheduler.go - Automated division-order audit scheduler

PURPOSE:
  Periodically validates every well's division order and logs the wells
  whose interests do not sum to 1. Distributions for those wells are
  refused at creation, so an imbalance found here is one that will block
  the next payment run.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Audits as of the time of each run
  - Keeps the outcome of the last run for admin display

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAuditScheduler(engine, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: AuditDivisionOrders endpoint (manual audit)
  - revenue/engine.go: AuditDivisionOrders
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/revenue-engine/revenue"
	"go.uber.org/zap"
)

// Auditor validates every well's division order as of a date.
type Auditor interface {
	AuditDivisionOrders(ctx context.Context, asOf time.Time) ([]revenue.DivisionOrderValidation, error)
}

// AuditRun is the outcome of one scheduled audit.
type AuditRun struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	FailingWells int
	Err          error
}

// AuditScheduler runs division-order audits on a ticker.
type AuditScheduler struct {
	Auditor       Auditor
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	now     func() time.Time
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun *AuditRun
}

// NewAuditScheduler creates a new scheduler.
func NewAuditScheduler(auditor Auditor, log *zap.Logger) *AuditScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditScheduler{
		Auditor:       auditor,
		Logger:        log.Named("audit_scheduler"),
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		now:           time.Now,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler. The first audit runs immediately.
func (s *AuditScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.CheckInterval <= 0 {
		s.Logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.Logger.Info("started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight audit to finish.
func (s *AuditScheduler) Stop() {
	s.mu.Lock()
	ticker := s.ticker
	s.ticker = nil
	s.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.Logger.Info("stopped")
}

func (s *AuditScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	s.audit(ctx)

	for {
		select {
		case <-ticker.C:
			s.audit(ctx)
		case <-stop:
			return
		}
	}
}

func (s *AuditScheduler) audit(ctx context.Context) AuditRun {
	run := AuditRun{StartedAt: s.now()}

	failing, err := s.Auditor.AuditDivisionOrders(ctx, run.StartedAt)
	run.CompletedAt = s.now()
	run.FailingWells = len(failing)
	run.Err = err

	switch {
	case err != nil:
		s.Logger.Error("division order audit failed", zap.Error(err))
	case len(failing) > 0:
		for _, v := range failing {
			s.Logger.Warn("well division order imbalanced",
				zap.String("well_id", string(v.WellID)),
				zap.String("sum", v.Sum.String()),
				zap.String("deviation", v.Deviation.String()),
			)
		}
		s.Logger.Warn("division order audit completed", zap.Int("failing_wells", len(failing)))
	default:
		s.Logger.Debug("division order audit completed", zap.Int("failing_wells", 0))
	}

	s.mu.Lock()
	s.lastRun = &run
	s.mu.Unlock()
	return run
}

// RunNow triggers an immediate audit (for testing/admin).
func (s *AuditScheduler) RunNow(ctx context.Context) AuditRun {
	return s.audit(ctx)
}

// LastRun returns the most recent audit, or nil before the first one.
func (s *AuditScheduler) LastRun() *AuditRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	run := *s.lastRun
	return &run
}

// GetNextRunTime returns when the next scheduled check will occur.
func (s *AuditScheduler) GetNextRunTime() time.Time {
	return s.now().Add(s.CheckInterval)
}
