package scheduler

import (
	"context"
	"fmt"
	"time"

	"adeptly/internal/logger"
	"adeptly/internal/services"

	"github.com/go-co-op/gocron"
)

// Auditor runs one ledger audit.
type Auditor interface {
	Run(ctx context.Context) (*services.AuditReport, error)
}

// Scheduler runs the periodic ledger audit.
type Scheduler struct {
	scheduler *gocron.Scheduler
	auditor   Auditor
	interval  time.Duration
	log       *logger.Logger
}

// New creates a scheduler that audits every interval.
func New(auditor Auditor, interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		auditor:   auditor,
		interval:  interval,
		log:       logger.OrNop(log).With("component", "scheduler"),
	}
}

// Start registers the audit job and runs it in the background.
func (s *Scheduler) Start() error {
	s.scheduler.SingletonModeAll()
	if _, err := s.scheduler.Every(s.interval).Do(s.runAudit); err != nil {
		return fmt.Errorf("schedule ledger audit: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("ledger audit scheduled", "interval", s.interval.String())
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) runAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.auditor.Run(ctx); err != nil {
		s.log.Error("ledger audit failed", "error", err)
	}
}
