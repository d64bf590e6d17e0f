package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hostelhub/feeledger/internal/domain/models"
)

const reportWindow = 7 * 24 * time.Hour

// Store is the slice of the ledger repository the reports read and write.
type Store interface {
	ListFees(ctx context.Context, hostelID int64, filter models.FeeFilter) ([]models.FeeRecord, error)
	ListPayments(ctx context.Context, hostelID int64, start, end time.Time) ([]models.Payment, error)
	SaveCollectionReport(ctx context.Context, report models.CollectionReport) error
}

// Sender delivers a finished report to the warden.
type Sender interface {
	WardenReport(ctx context.Context, report models.CollectionReport) error
}

// Service builds periodic fee-collection digests.
type Service struct {
	store  Store
	sender Sender
	logger *zap.Logger
}

// NewService wires a new reporting service instance. sender may be nil.
func NewService(store Store, sender Sender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, sender: sender, logger: logger}
}

// GenerateWeeklyReport summarises the seven days ending with now's calendar day.
func (s *Service) GenerateWeeklyReport(ctx context.Context, hostelID int64, now time.Time) (models.CollectionReport, error) {
	y, m, d := now.Date()
	end := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	start := end.Add(-reportWindow)

	payments, err := s.store.ListPayments(ctx, hostelID, start.UTC(), end.UTC())
	if err != nil {
		return models.CollectionReport{}, fmt.Errorf("load payments: %w", err)
	}
	fees, err := s.store.ListFees(ctx, hostelID, models.FeeFilter{})
	if err != nil {
		return models.CollectionReport{}, fmt.Errorf("load fees: %w", err)
	}

	report := models.CollectionReport{
		HostelID:      hostelID,
		PeriodStart:   start,
		PeriodEnd:     end,
		Collected:     decimal.Zero,
		PaymentsCount: len(payments),
		Outstanding:   decimal.Zero,
		CreatedAt:     now,
	}

	for _, p := range payments {
		report.Collected = report.Collected.Add(p.Amount)
	}

	for _, fee := range fees {
		switch fee.FeeStatus {
		case models.StatusFullyPaid:
			report.PaidCount++
		case models.StatusPartiallyPaid:
			report.PartialCount++
		case models.StatusPending:
			report.PendingCount++
		case models.StatusOverdue:
			report.OverdueCount++
		default:
			s.logger.Debug("skip fee with unknown status", zap.Int64("student_id", fee.StudentID), zap.String("status", string(fee.FeeStatus)))
			continue
		}
		if fee.Balance.IsPositive() {
			report.Outstanding = report.Outstanding.Add(fee.Balance)
		}
	}

	return report, nil
}

// SendWeeklyReports generates, stores and sends a report for every hostel. One
// hostel failing does not stop the others.
func (s *Service) SendWeeklyReports(ctx context.Context, hostelIDs []int64, now time.Time) error {
	var errs []error
	for _, id := range hostelIDs {
		if err := s.sendOne(ctx, id, now); err != nil {
			s.logger.Error("weekly report failed", zap.Int64("hostel_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("hostel %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) sendOne(ctx context.Context, hostelID int64, now time.Time) error {
	report, err := s.GenerateWeeklyReport(ctx, hostelID, now)
	if err != nil {
		return err
	}

	if err := s.store.SaveCollectionReport(ctx, report); err != nil {
		return err
	}

	if s.sender != nil {
		if err := s.sender.WardenReport(ctx, report); err != nil {
			return fmt.Errorf("send report: %w", err)
		}
	}

	s.logger.Info("weekly report sent",
		zap.Int64("hostel_id", hostelID),
		zap.String("collected", report.Collected.String()),
		zap.Int("payments", report.PaymentsCount),
	)
	return nil
}
