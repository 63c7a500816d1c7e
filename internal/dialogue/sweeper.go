package dialogue

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically reverts confirmations nobody answered.
type Sweeper struct {
	cron     *cron.Cron
	engine   *Engine
	schedule string
	timeout  time.Duration
	logger   *zap.Logger

	// OnExpire, if set, is called for every session the sweep reverted.
	OnExpire func(sessionID string)

	mu      sync.RWMutex
	entryID cron.EntryID
	lastRun time.Time
}

// NewSweeper creates a sweeper that runs on schedule (a cron expression or
// descriptor such as "@every 1m") and reverts confirmations older than timeout.
func NewSweeper(engine *Engine, schedule string, timeout time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &Sweeper{
		cron:     cron.New(cron.WithSeconds()),
		engine:   engine,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start schedules the sweep and starts the cron runner.
func (s *Sweeper) Start() error {
	entryID, err := s.cron.AddFunc(s.schedule, s.Sweep)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entryID = entryID
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("confirmation sweeper started",
		zap.String("schedule", s.schedule),
		zap.Duration("timeout", s.timeout),
	)
	return nil
}

// Stop waits for a running sweep to finish and stops the runner.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("confirmation sweeper stopped")
}

// Sweep runs one expiry pass.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := s.engine.ExpireStale(ctx, s.timeout)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("confirmation sweep failed", zap.Error(err))
	}
	if len(expired) > 0 {
		s.logger.Info("confirmation sweep completed", zap.Int("expired", len(expired)))
	}

	if s.OnExpire != nil {
		for _, id := range expired {
			s.OnExpire(id)
		}
	}
}

// NextRun returns the next scheduled sweep, or nil before Start.
func (s *Sweeper) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entryID == 0 {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	return &entry.Next
}

// LastRun returns when the last sweep finished, or the zero time.
func (s *Sweeper) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}
