package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hostelhub/feeledger/internal/domain/models"
	"github.com/hostelhub/feeledger/internal/repository/mongodb"
	"github.com/hostelhub/feeledger/internal/repository/redis"
)

var (
	ErrValidation         = errors.New("invalid request")
	ErrHostelMismatch     = errors.New("hostel_id does not match the session hostel")
	ErrUnknownPaymentMode = errors.New("unknown payment mode")
	ErrFeeNotFound        = errors.New("fee record not found")
	ErrAlreadyPaid        = errors.New("fee is already fully paid")
	ErrOverpayment        = errors.New("amount exceeds the outstanding balance")
	ErrDuplicatePayment   = errors.New("payment already recorded")
	ErrConcurrentUpdate   = errors.New("fee was updated by another payment, refresh and retry")
)

// DefaultPaymentModes seeds the payment_modes collection on first start.
var DefaultPaymentModes = []models.PaymentMode{
	{ID: 1, Name: "Cash"},
	{ID: 2, Name: "UPI"},
	{ID: 3, Name: "Bank Transfer"},
	{ID: 4, Name: "Card"},
}

// defaultDueDay is used when a billing cycle is generated without a due date.
const defaultDueDay = 5

// PaymentJournal mirrors recorded payments into an external ledger.
type PaymentJournal interface {
	AppendPayment(ctx context.Context, payment models.Payment, fee models.FeeRecord) error
}

// ReceiptNotifier tells the student that a payment was recorded.
type ReceiptNotifier interface {
	PaymentReceipt(ctx context.Context, payment models.Payment, fee models.FeeRecord) error
}

// Service owns fee records and their status transitions.
type Service struct {
	repo     mongodb.Repository
	idem     redis.IdempotencyStore
	journal  PaymentJournal
	notifier ReceiptNotifier
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the ledger. idem, journal and notifier may be nil.
func NewService(repository mongodb.Repository, idem redis.IdempotencyStore, journal PaymentJournal, notifier ReceiptNotifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repository,
		idem:     idem,
		journal:  journal,
		notifier: notifier,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// Snapshot returns a hostel's fees and the summary computed over them.
func (s *Service) Snapshot(ctx context.Context, hostelID int64, month string) (models.Snapshot, error) {
	if month != "" {
		if _, err := time.Parse(models.MonthLayout, month); err != nil {
			return models.Snapshot{}, fmt.Errorf("%w: month must be YYYY-MM", ErrValidation)
		}
	}

	fees, err := s.repo.ListFees(ctx, hostelID, models.FeeFilter{Month: month})
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load fee snapshot: %w", err)
	}

	summary := models.Summary{TotalPaid: decimal.Zero, TotalPending: decimal.Zero}
	for _, fee := range fees {
		summary.TotalPaid = summary.TotalPaid.Add(fee.Paid())
		summary.TotalPending = summary.TotalPending.Add(fee.Balance)
	}

	return models.Snapshot{Summary: summary, Fees: fees}, nil
}

// ListFees returns fees narrowed by status and month.
func (s *Service) ListFees(ctx context.Context, hostelID int64, filter models.FeeFilter) ([]models.FeeRecord, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
	}
	if filter.Month != "" {
		if _, err := time.Parse(models.MonthLayout, filter.Month); err != nil {
			return nil, fmt.Errorf("%w: month must be YYYY-MM", ErrValidation)
		}
	}

	fees, err := s.repo.ListFees(ctx, hostelID, filter)
	if err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	return fees, nil
}

// PaymentModes returns the payment mode lookup.
func (s *Service) PaymentModes(ctx context.Context) ([]models.PaymentMode, error) {
	modes, err := s.repo.ListPaymentModes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payment modes: %w", err)
	}
	return modes, nil
}

// RecordPayment applies one payment to a fee record. key is the client's
// Idempotency-Key and may be empty.
func (s *Service) RecordPayment(ctx context.Context, hostelID int64, key string, req models.CollectionRequest) (models.PaymentReceipt, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.PaymentReceipt{}, validationError(err)
	}
	if !req.Amount.IsPositive() {
		return models.PaymentReceipt{}, fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	if req.HostelID != hostelID {
		return models.PaymentReceipt{}, ErrHostelMismatch
	}

	if err := s.checkPaymentMode(ctx, req.PaymentModeID); err != nil {
		return models.PaymentReceipt{}, err
	}

	if err := s.claimKey(ctx, key); err != nil {
		return models.PaymentReceipt{}, err
	}
	receipt, err := s.applyPayment(ctx, hostelID, key, req)
	if err != nil {
		s.releaseKey(ctx, key)
		return models.PaymentReceipt{}, err
	}

	s.logger.Info("payment recorded",
		zap.Int64("hostel_id", hostelID),
		zap.Int64("student_id", req.StudentID),
		zap.String("fee_month", req.FeeMonth),
		zap.String("amount", req.Amount.String()),
		zap.String("fee_status", string(receipt.Fee.FeeStatus)),
	)

	s.afterPayment(ctx, receipt.Payment, receipt.Fee)
	return receipt, nil
}

// claimKey rejects a replayed Idempotency-Key before any balance check, so a
// retry of a settled payment reports a duplicate rather than a paid fee.
func (s *Service) claimKey(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if s.idem != nil {
		ok, err := s.idem.Reserve(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDuplicatePayment
		}
	}

	exists, err := s.repo.PaymentExists(ctx, key)
	if err != nil {
		s.releaseKey(ctx, key)
		return fmt.Errorf("check idempotency key: %w", err)
	}
	if exists {
		return ErrDuplicatePayment
	}
	return nil
}

func (s *Service) applyPayment(ctx context.Context, hostelID int64, key string, req models.CollectionRequest) (models.PaymentReceipt, error) {
	fee, err := s.repo.GetFee(ctx, hostelID, req.StudentID, req.FeeMonth)
	if errors.Is(err, mongodb.ErrNotFound) {
		return models.PaymentReceipt{}, ErrFeeNotFound
	}
	if err != nil {
		return models.PaymentReceipt{}, fmt.Errorf("load fee: %w", err)
	}

	if fee.IsPaid() || !fee.Balance.IsPositive() {
		return models.PaymentReceipt{}, ErrAlreadyPaid
	}
	if req.Amount.GreaterThan(fee.Balance) {
		return models.PaymentReceipt{}, fmt.Errorf("%w: balance is %s", ErrOverpayment, fee.Balance.StringFixed(2))
	}

	newBalance := fee.Balance.Sub(req.Amount)
	update := mongodb.BalanceUpdate{
		HostelID:    hostelID,
		StudentID:   req.StudentID,
		FeeMonth:    req.FeeMonth,
		PrevBalance: fee.Balance,
		PrevStatus:  fee.FeeStatus,
		NewBalance:  newBalance,
		NewStatus:   DeriveStatus(fee.Amount, newBalance, fee.DueDate, s.now()),
	}

	payment, err := s.repo.ApplyPayment(ctx, update, models.Payment{
		HostelID:       hostelID,
		StudentID:      req.StudentID,
		FeeMonth:       req.FeeMonth,
		Amount:         req.Amount,
		PaymentDate:    req.PaymentDate,
		PaymentModeID:  req.PaymentModeID,
		TransactionID:  req.TransactionID,
		Notes:          req.Notes,
		IdempotencyKey: key,
	})
	if err != nil {
		switch {
		case errors.Is(err, mongodb.ErrBalanceChanged):
			s.logUndo(err)
			return models.PaymentReceipt{}, ErrConcurrentUpdate
		case errors.Is(err, mongodb.ErrDuplicatePayment):
			return models.PaymentReceipt{}, ErrDuplicatePayment
		}
		return models.PaymentReceipt{}, fmt.Errorf("apply payment: %w", err)
	}

	fee.Balance = update.NewBalance
	fee.FeeStatus = update.NewStatus
	return models.PaymentReceipt{Payment: payment, Fee: fee}, nil
}

// logUndo records a failed payment removal that came back joined with the
// balance conflict. The conflict itself is the caller's answer.
func (s *Service) logUndo(err error) {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return
	}
	for _, e := range joined.Unwrap() {
		if !errors.Is(e, mongodb.ErrBalanceChanged) {
			s.logger.Error("payment left without balance move", zap.Error(e))
		}
	}
}

// GenerateCycle creates the month's fee records for the listed students. Records
// that already exist are left untouched.
func (s *Service) GenerateCycle(ctx context.Context, hostelID int64, req models.GenerateCycleRequest) (int, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, validationError(err)
	}

	dueDate := req.DueDate
	if dueDate == "" {
		month, _ := time.Parse(models.MonthLayout, req.FeeMonth)
		dueDate = month.AddDate(0, 0, defaultDueDay-1).Format(models.DateLayout)
	}

	today := s.now()
	fees := make([]models.FeeRecord, 0, len(req.Students))
	for _, st := range req.Students {
		if !st.Amount.IsPositive() {
			return 0, fmt.Errorf("%w: amount for student %d must be greater than zero", ErrValidation, st.StudentID)
		}
		fees = append(fees, models.FeeRecord{
			StudentID:  st.StudentID,
			HostelID:   hostelID,
			FeeMonth:   req.FeeMonth,
			Amount:     st.Amount,
			Balance:    st.Amount,
			FeeStatus:  DeriveStatus(st.Amount, st.Amount, dueDate, today),
			DueDate:    dueDate,
			FirstName:  st.FirstName,
			LastName:   st.LastName,
			RoomNumber: st.RoomNumber,
			Phone:      st.Phone,
		})
	}

	created, err := s.repo.InsertFees(ctx, fees)
	if err != nil {
		return 0, fmt.Errorf("generate fee cycle: %w", err)
	}

	s.logger.Info("fee cycle generated",
		zap.Int64("hostel_id", hostelID),
		zap.String("fee_month", req.FeeMonth),
		zap.Int("requested", len(fees)),
		zap.Int("created", created),
	)
	return created, nil
}

// MarkOverdue flips every Pending fee whose due date is before today.
func (s *Service) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, startOfDay(today))
	if err != nil {
		return 0, err
	}
	s.logger.Info("overdue sweep finished", zap.Int64("updated", n))
	return n, nil
}

// DeriveStatus computes a fee status from its balance and due date. A fee with
// nothing paid is Overdue once its due date is before today.
func DeriveStatus(amount, balance decimal.Decimal, dueDate string, today time.Time) models.FeeStatus {
	switch {
	case !balance.IsPositive():
		return models.StatusFullyPaid
	case balance.LessThan(amount):
		return models.StatusPartiallyPaid
	}

	due, err := time.Parse(models.DateLayout, dueDate)
	if err == nil && due.Before(startOfDay(today)) {
		return models.StatusOverdue
	}
	return models.StatusPending
}

func (s *Service) checkPaymentMode(ctx context.Context, id int64) error {
	modes, err := s.repo.ListPaymentModes(ctx)
	if err != nil {
		return fmt.Errorf("list payment modes: %w", err)
	}
	for _, m := range modes {
		if m.ID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownPaymentMode, id)
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if s.idem == nil || key == "" {
		return
	}
	if err := s.idem.Release(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) afterPayment(ctx context.Context, payment models.Payment, fee models.FeeRecord) {
	if s.journal != nil {
		if err := s.journal.AppendPayment(ctx, payment, fee); err != nil {
			s.logger.Warn("failed to journal payment", zap.String("payment_id", payment.ID), zap.Error(err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.PaymentReceipt(ctx, payment, fee); err != nil {
			s.logger.Warn("failed to send payment receipt", zap.String("payment_id", payment.ID), zap.Error(err))
		}
	}
}

// startOfDay returns midnight UTC of t's calendar date in t's location. Due dates
// are stored as UTC midnights.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
