package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"MarketPulse/internal/ingest"
	"MarketPulse/internal/model"
	"MarketPulse/internal/notifier"
	"MarketPulse/internal/runstate"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron-driven ingestion runs and remembers the last report.
type Scheduler struct {
	Cron      *cron.Cron
	Runner    *ingest.Runner
	Notifier  *notifier.TelegramNotifier
	StateFile string
	Ctx       context.Context

	mu   sync.RWMutex
	last *model.Report
}

// NewScheduler creates a new Scheduler. tn may be nil to disable notifications.
func NewScheduler(ctx context.Context, runner *ingest.Runner, tn *notifier.TelegramNotifier, stateFile string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Runner:    runner,
		Notifier:  tn,
		StateFile: stateFile,
		Ctx:       ctx,
	}
}

// RegisterIngest registers the periodic ingestion task.
func (s *Scheduler) RegisterIngest(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.scheduledRun); err != nil {
		return fmt.Errorf("register ingest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// Restore loads the last report from the state file.
func (s *Scheduler) Restore() error {
	if s.StateFile == "" {
		return nil
	}
	report, err := runstate.LoadReport(s.StateFile)
	if err != nil {
		return fmt.Errorf("load last run: %w", err)
	}
	if report != nil {
		s.mu.Lock()
		s.last = report
		s.mu.Unlock()
		log.Printf("[INFO] restored last run %s from %s", report.RunID, s.StateFile)
	}
	return nil
}

// LastReport returns the most recent successful run report, or nil.
func (s *Scheduler) LastReport() *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// RunNow executes one ingestion immediately (manual trigger, HTTP, RUN_ON_START).
func (s *Scheduler) RunNow(ctx context.Context, p ingest.Params) (*model.Report, error) {
	report, err := s.Runner.Run(ctx, p)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if s.StateFile != "" {
		if err := runstate.SaveReport(s.StateFile, report); err != nil {
			log.Printf("[ERROR] save last run: %v", err)
		}
	}
	return report, nil
}

func (s *Scheduler) scheduledRun() {
	log.Println("[INFO] running scheduled ingest")
	report, err := s.RunNow(s.Ctx, ingest.Params{})
	if err != nil {
		log.Printf("[ERROR] scheduled ingest: %v", err)
		s.trySend(notifier.FormatRunFailure(err))
		return
	}
	s.trySend(notifier.FormatRunReport(report))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/run":
		report, err := s.RunNow(s.Ctx, ingest.Params{})
		if err != nil {
			return notifier.FormatRunFailure(err)
		}
		return notifier.FormatRunReport(report)
	case "/status":
		return notifier.FormatStatus(s.LastReport())
	default:
		return "Available commands:\n• /run\n• /status"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
