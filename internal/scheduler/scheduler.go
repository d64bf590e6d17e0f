package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hostelhub/feeledger/internal/config"
)

const jobTimeout = 2 * time.Minute

// OverdueSweeper flips past-due Pending fees to Overdue.
type OverdueSweeper interface {
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
}

// WeeklyReporter sends the collection digest for a set of hostels.
type WeeklyReporter interface {
	SendWeeklyReports(ctx context.Context, hostelIDs []int64, now time.Time) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  OverdueSweeper
	reporter WeeklyReporter
	cfg      config.ReportingConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance. Jobs run in the configured
// timezone so "20:00 on Friday" means the hostel's Friday evening.
func NewScheduler(cfg config.ReportingConfig, sweeper OverdueSweeper, reporter WeeklyReporter, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc := cfg.Location()
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		sweeper:  sweeper,
		reporter: reporter,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().In(loc) },
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("overdue_schedule", s.cfg.OverdueSchedule),
		zap.String("report_schedule", s.cfg.ReportSchedule),
		zap.String("timezone", s.cfg.Timezone),
	)

	if _, err := s.cron.AddFunc(s.cfg.OverdueSchedule, s.sweepOverdue); err != nil {
		return fmt.Errorf("schedule overdue sweep: %w", err)
	}

	if len(s.cfg.HostelIDs) == 0 {
		s.logger.Warn("no REPORT_HOSTEL_IDS configured, weekly report disabled")
	} else if _, err := s.cron.AddFunc(s.cfg.ReportSchedule, s.sendWeeklyReport); err != nil {
		return fmt.Errorf("schedule weekly report: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepOverdue() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.sweeper.MarkOverdue(ctx, s.now())
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("overdue sweep done", zap.Int64("marked", n))
}

func (s *Scheduler) sendWeeklyReport() {
	s.logger.Info("generating weekly report")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.reporter.SendWeeklyReports(ctx, s.cfg.HostelIDs, s.now()); err != nil {
		s.logger.Error("failed to send weekly report", zap.Error(err))
		return
	}
	s.logger.Info("weekly report sent successfully")
}
