// Package reconciler keeps a client-side view of one hostel's fee ledger and
// mediates payment collection against it.
//
// The view is only ever replaced by a full snapshot fetched from the ledger.
// Balances and statuses are never patched locally, not even after a payment the
// ledger has just confirmed.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hostelhub/feeledger/internal/domain/models"
	"github.com/hostelhub/feeledger/pkg/clients/ledger"
)

var (
	// ErrInvalidAmount means the entered amount is not a positive number.
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrPaymentModeRequired means no payment mode was chosen.
	ErrPaymentModeRequired = errors.New("payment mode is required")
	// ErrRefreshInFlight rejects a visible refresh while another one runs.
	ErrRefreshInFlight = errors.New("refresh already in progress")
	// ErrPaymentInFlight rejects a submission while another one runs.
	ErrPaymentInFlight = errors.New("payment already being recorded")
)

const genericPaymentFailure = "Failed to record payment. Please try again."

// Collection is the state of the payment form for one fee.
type Collection struct {
	Fee           models.FeeRecord
	AmountInput   string
	PaymentModeID int64
	TransactionID string
	Notes         string
}

// Outcome describes a recorded payment. Fee is taken from the snapshot fetched
// after the payment, so its status is the ledger's.
type Outcome struct {
	Receipt   models.PaymentReceipt
	Fee       models.FeeRecord
	Refreshed bool
}

// View is everything the collection screen renders, derived from one snapshot.
type View struct {
	Tab        Bucket
	Search     string
	Fees       []models.FeeRecord
	Aggregates Aggregates
	Loading    bool
	Paying     bool
}

// Reconciler holds the fee snapshot of one hostel session.
type Reconciler struct {
	client  ledger.Client
	session models.Session
	logger  *zap.Logger
	now     func() time.Time
	newKey  func() string

	mu       sync.RWMutex
	month    string
	snapshot models.Snapshot
	modes    []models.PaymentMode
	draft    *Collection
	seq      uint64
	applied  uint64

	loading    atomic.Bool
	payLoading atomic.Bool
}

// New wires a reconciler for the given session.
func New(client ledger.Client, session models.Session, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		client:  client,
		session: session,
		logger:  logger.With(zap.Int64("hostel_id", session.HostelID)),
		now:     time.Now,
		newKey:  uuid.NewString,
	}
}

// SetMonth restricts subsequent refreshes to one billing month. Empty means all.
func (r *Reconciler) SetMonth(month string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.month = month
}

// Refresh replaces the fee list and summary with a freshly fetched snapshot.
// On failure the previous state is kept. showLoader raises the Loading flag; the
// silent variant is used after payments.
func (r *Reconciler) Refresh(ctx context.Context, showLoader bool) error {
	if showLoader {
		if !r.loading.CompareAndSwap(false, true) {
			return ErrRefreshInFlight
		}
		defer r.loading.Store(false)
	}

	r.mu.Lock()
	r.seq++
	seq := r.seq
	month := r.month
	r.mu.Unlock()

	snap, err := r.client.FetchSummary(ctx, month)
	if err != nil {
		r.logger.Error("fee summary refresh failed", zap.Error(err), zap.Bool("silent", !showLoader))
		return fmt.Errorf("refresh fees: %w", err)
	}

	fees := make([]models.FeeRecord, len(snap.Fees))
	copy(fees, snap.Fees)

	r.mu.Lock()
	defer r.mu.Unlock()

	// A slower, older fetch must not overwrite a newer snapshot.
	if seq <= r.applied {
		r.logger.Debug("discarding stale snapshot", zap.Uint64("seq", seq), zap.Uint64("applied", r.applied))
		return nil
	}
	r.applied = seq
	r.snapshot = models.Snapshot{Summary: snap.Summary, Fees: fees}

	r.logger.Debug("fee snapshot replaced", zap.Int("fees", len(fees)))
	return nil
}

// LoadPaymentModes fetches the payment mode lookup list.
func (r *Reconciler) LoadPaymentModes(ctx context.Context) error {
	modes, err := r.client.PaymentModes(ctx)
	if err != nil {
		r.logger.Error("payment modes fetch failed", zap.Error(err))
		return fmt.Errorf("load payment modes: %w", err)
	}

	r.mu.Lock()
	r.modes = append([]models.PaymentMode(nil), modes...)
	r.mu.Unlock()
	return nil
}

// PaymentModes returns the loaded lookup list.
func (r *Reconciler) PaymentModes() []models.PaymentMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.PaymentMode(nil), r.modes...)
}

// Snapshot returns a copy of the current snapshot.
func (r *Reconciler) Snapshot() models.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.Snapshot{
		Summary: r.snapshot.Summary,
		Fees:    append([]models.FeeRecord(nil), r.snapshot.Fees...),
	}
}

// View derives the screen state for a tab and search term.
func (r *Reconciler) View(tab Bucket, search string) View {
	snap := r.Snapshot()
	return View{
		Tab:        tab,
		Search:     search,
		Fees:       Filter(snap.Fees, tab, search),
		Aggregates: Stats(snap),
		Loading:    r.loading.Load(),
		Paying:     r.payLoading.Load(),
	}
}

// Loading reports whether a visible refresh is running.
func (r *Reconciler) Loading() bool { return r.loading.Load() }

// Paying reports whether a payment submission is running.
func (r *Reconciler) Paying() bool { return r.payLoading.Load() }

// Find looks a fee up by student and month in the current snapshot.
func (r *Reconciler) Find(studentID int64, feeMonth string) (models.FeeRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fee := range r.snapshot.Fees {
		if fee.StudentID == studentID && fee.FeeMonth == feeMonth {
			return fee, true
		}
	}
	return models.FeeRecord{}, false
}

// Begin opens the payment form for fee with the outstanding balance suggested.
func (r *Reconciler) Begin(fee models.FeeRecord) Collection {
	c := Collection{Fee: fee, AmountInput: fee.Balance.String()}
	if modes := r.PaymentModes(); len(modes) > 0 {
		c.PaymentModeID = modes[0].ID
	}

	r.mu.Lock()
	r.draft = &c
	r.mu.Unlock()
	return c
}

// Draft returns the open payment form, if any. After a failed submission it
// holds the values the user entered.
func (r *Reconciler) Draft() (Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.draft == nil {
		return Collection{}, false
	}
	return *r.draft, true
}

// Cancel closes the payment form.
func (r *Reconciler) Cancel() {
	r.mu.Lock()
	r.draft = nil
	r.mu.Unlock()
}

// CollectPayment validates the form, records the payment with the ledger and then
// refreshes silently. Nothing is changed locally until that refresh lands.
func (r *Reconciler) CollectPayment(ctx context.Context, c Collection) (Outcome, error) {
	amount, err := ParseAmount(c.AmountInput)
	if err != nil {
		r.keepDraft(c)
		return Outcome{}, err
	}
	if c.PaymentModeID <= 0 {
		r.keepDraft(c)
		return Outcome{}, ErrPaymentModeRequired
	}

	if !r.payLoading.CompareAndSwap(false, true) {
		return Outcome{}, ErrPaymentInFlight
	}
	defer r.payLoading.Store(false)

	req := r.buildRequest(c, amount)
	key := r.newKey()

	receipt, err := r.client.RecordPayment(ctx, req, key)
	if err != nil {
		r.keepDraft(c)
		r.logger.Warn("payment not recorded",
			zap.Int64("student_id", req.StudentID),
			zap.String("fee_month", req.FeeMonth),
			zap.Error(err))
		return Outcome{}, fmt.Errorf("collect payment: %w", err)
	}

	r.mu.Lock()
	r.draft = nil
	r.mu.Unlock()

	r.logger.Info("payment recorded",
		zap.Int64("student_id", req.StudentID),
		zap.String("fee_month", req.FeeMonth),
		zap.String("amount", amount.String()),
		zap.String("idempotency_key", key))

	outcome := Outcome{Receipt: *receipt}
	if err := r.Refresh(ctx, false); err != nil {
		// The payment stands; the view simply shows the previous snapshot.
		r.logger.Warn("post-payment refresh failed", zap.Error(err))
		return outcome, nil
	}

	outcome.Refreshed = true
	if fee, ok := r.Find(req.StudentID, req.FeeMonth); ok {
		outcome.Fee = fee
	}
	return outcome, nil
}

func (r *Reconciler) buildRequest(c Collection, amount decimal.Decimal) models.CollectionRequest {
	today := r.now().Format(models.DateLayout)

	dueDate := c.Fee.DueDate
	if dueDate == "" {
		// TODO: surface missing due dates instead of substituting today once the
		// ledger's rule for undated fees is settled.
		r.logger.Warn("fee has no due date, using today",
			zap.Int64("student_id", c.Fee.StudentID),
			zap.String("fee_month", c.Fee.FeeMonth))
		dueDate = today
	}

	var txn *string
	if id := strings.TrimSpace(c.TransactionID); id != "" {
		txn = &id
	}

	return models.CollectionRequest{
		StudentID:     c.Fee.StudentID,
		HostelID:      r.session.HostelID,
		Amount:        amount,
		PaymentDate:   today,
		DueDate:       dueDate,
		PaymentModeID: c.PaymentModeID,
		TransactionID: txn,
		Notes:         c.Notes,
		FeeMonth:      c.Fee.FeeMonth,
	}
}

func (r *Reconciler) keepDraft(c Collection) {
	r.mu.Lock()
	r.draft = &c
	r.mu.Unlock()
}

// ParseAmount accepts a finite, strictly positive decimal.
func ParseAmount(input string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(input))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// UserMessage turns a CollectPayment error into the text shown to the user. The
// ledger's own error text is passed through unchanged.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "Please enter a valid amount."
	case errors.Is(err, ErrPaymentModeRequired):
		return "Please select a payment mode."
	case errors.Is(err, ErrPaymentInFlight):
		return "A payment is already being recorded."
	}

	var apiErr *ledger.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	return genericPaymentFailure
}
