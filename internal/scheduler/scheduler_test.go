package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/feeledger/internal/config"
)

type fakeSweeper struct {
	today time.Time
	err   error
}

func (f *fakeSweeper) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	f.today = today
	return 3, f.err
}

type fakeReporter struct {
	ids []int64
	now time.Time
}

func (f *fakeReporter) SendWeeklyReports(ctx context.Context, hostelIDs []int64, now time.Time) error {
	f.ids = hostelIDs
	f.now = now
	return nil
}

func testConfig() config.ReportingConfig {
	return config.ReportingConfig{
		OverdueSchedule: "5 0 * * *",
		ReportSchedule:  "0 20 * * 5",
		Timezone:        "UTC",
		HostelIDs:       []int64{12, 14},
	}
}

func TestStart_RegistersJobs(t *testing.T) {
	s := NewScheduler(testConfig(), &fakeSweeper{}, &fakeReporter{}, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 2)
}

func TestStart_SkipsReportWithoutHostels(t *testing.T) {
	cfg := testConfig()
	cfg.HostelIDs = nil

	s := NewScheduler(cfg, &fakeSweeper{}, &fakeReporter{}, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 1)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.OverdueSchedule = "every night"

	s := NewScheduler(cfg, &fakeSweeper{}, &fakeReporter{}, nil)
	assert.Error(t, s.Start())
}

func TestJobs(t *testing.T) {
	fixed := time.Date(2026, 2, 13, 20, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{}
	reporter := &fakeReporter{}

	s := NewScheduler(testConfig(), sweeper, reporter, nil)
	s.now = func() time.Time { return fixed }

	s.sweepOverdue()
	assert.Equal(t, fixed, sweeper.today)

	s.sendWeeklyReport()
	assert.Equal(t, []int64{12, 14}, reporter.ids)
	assert.Equal(t, fixed, reporter.now)

	sweeper.err = errors.New("mongo down")
	assert.NotPanics(t, s.sweepOverdue)
}
