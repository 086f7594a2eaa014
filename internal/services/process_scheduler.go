package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/database/models"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
	"github.com/robfig/cron/v3"
)

// scheduledRunTimeout bounds a single scheduled run
const scheduledRunTimeout = 30 * time.Minute

// ProcessScheduler runs the full process on a cron schedule
type ProcessScheduler struct {
	process *ProcessService
	spec    string
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewProcessScheduler creates a scheduler for the given cron spec, for
// example "@every 30m" or "0 */2 * * *"
func NewProcessScheduler(process *ProcessService, spec string) *ProcessScheduler {
	return &ProcessScheduler{
		process: process,
		spec:    spec,
		cron:    cron.New(cron.WithLocation(time.Local)),
	}
}

// Start registers the job and starts the cron engine
func (s *ProcessScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		cancel()
		return err
	}
	s.cron.Start()
	s.running = true
	s.cancel = cancel

	logger.WithModule("schedule").Infof("Scheduled full process: %s", s.spec)
	return nil
}

// Stop cancels an active run and waits for it to write back and return
func (s *ProcessScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
	logger.WithModule("schedule").Info("Scheduler stopped")
}

// tick runs the full process unless a run is already active
func (s *ProcessScheduler) tick(parent context.Context) {
	log := logger.WithModule("schedule")

	ctx, cancel := context.WithTimeout(parent, scheduledRunTimeout)
	defer cancel()

	summary, err := s.process.Run(ctx, RunOptions{Action: ActionFullProcess, Trigger: models.TriggerSchedule})
	if errors.Is(err, ErrProcessBusy) {
		log.Info("Previous run still active, skipping this tick")
		return
	}
	if errors.Is(err, context.Canceled) {
		log.Info("Scheduled run cancelled by shutdown")
		return
	}
	if err != nil {
		log.Errorf("Scheduled run failed: %v", err)
		return
	}
	log.Infof("Scheduled run %s finished: sent=%d replies=%d reminders=%d",
		summary.RunID, summary.InitialSent, summary.RepliesProcessed.Total(), summary.RemindersSent)
}
