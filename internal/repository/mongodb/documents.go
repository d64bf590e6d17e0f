package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hostelhub/feeledger/internal/domain/models"
)

type feeDocument struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty"`
	HostelID   int64                `bson:"hostel_id"`
	StudentID  int64                `bson:"student_id"`
	FeeMonth   string               `bson:"fee_month"`
	Amount     primitive.Decimal128 `bson:"amount"`
	Balance    primitive.Decimal128 `bson:"balance"`
	FeeStatus  string               `bson:"fee_status"`
	DueDate    *time.Time           `bson:"due_date,omitempty"`
	FirstName  string               `bson:"first_name"`
	LastName   string               `bson:"last_name"`
	RoomNumber string               `bson:"room_number"`
	Phone      string               `bson:"phone,omitempty"`
	CreatedAt  time.Time            `bson:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}

type paymentDocument struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	HostelID       int64                `bson:"hostel_id"`
	StudentID      int64                `bson:"student_id"`
	FeeMonth       string               `bson:"fee_month"`
	Amount         primitive.Decimal128 `bson:"amount"`
	PaymentDate    time.Time            `bson:"payment_date"`
	PaymentModeID  int64                `bson:"payment_mode_id"`
	TransactionID  *string              `bson:"transaction_id,omitempty"`
	Notes          string               `bson:"notes,omitempty"`
	IdempotencyKey string               `bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time            `bson:"created_at"`
}

type reportDocument struct {
	HostelID      int64                `bson:"hostel_id"`
	PeriodStart   time.Time            `bson:"period_start"`
	PeriodEnd     time.Time            `bson:"period_end"`
	Collected     primitive.Decimal128 `bson:"collected"`
	PaymentsCount int                  `bson:"payments_count"`
	Outstanding   primitive.Decimal128 `bson:"outstanding"`
	PaidCount     int                  `bson:"paid_count"`
	PartialCount  int                  `bson:"partial_count"`
	PendingCount  int                  `bson:"pending_count"`
	OverdueCount  int                  `bson:"overdue_count"`
	CreatedAt     time.Time            `bson:"created_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode decimal %s: %w", v.String(), err)
	}
	return d, nil
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", value, err)
	}
	return &t, nil
}

func newFeeDocument(fee models.FeeRecord, now time.Time) (feeDocument, error) {
	amount, err := toDecimal128(fee.Amount)
	if err != nil {
		return feeDocument{}, err
	}
	balance, err := toDecimal128(fee.Balance)
	if err != nil {
		return feeDocument{}, err
	}
	due, err := parseDate(fee.DueDate)
	if err != nil {
		return feeDocument{}, err
	}

	return feeDocument{
		HostelID:   fee.HostelID,
		StudentID:  fee.StudentID,
		FeeMonth:   fee.FeeMonth,
		Amount:     amount,
		Balance:    balance,
		FeeStatus:  string(fee.FeeStatus),
		DueDate:    due,
		FirstName:  fee.FirstName,
		LastName:   fee.LastName,
		RoomNumber: fee.RoomNumber,
		Phone:      fee.Phone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (d feeDocument) toModel() (models.FeeRecord, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return models.FeeRecord{}, err
	}
	balance, err := fromDecimal128(d.Balance)
	if err != nil {
		return models.FeeRecord{}, err
	}

	fee := models.FeeRecord{
		StudentID:  d.StudentID,
		HostelID:   d.HostelID,
		FeeMonth:   d.FeeMonth,
		Amount:     amount,
		Balance:    balance,
		FeeStatus:  models.FeeStatus(d.FeeStatus),
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		RoomNumber: d.RoomNumber,
		Phone:      d.Phone,
	}
	if d.DueDate != nil {
		fee.DueDate = d.DueDate.UTC().Format(models.DateLayout)
	}
	return fee, nil
}

func newPaymentDocument(p models.Payment) (paymentDocument, error) {
	amount, err := toDecimal128(p.Amount)
	if err != nil {
		return paymentDocument{}, err
	}
	paid, err := parseDate(p.PaymentDate)
	if err != nil {
		return paymentDocument{}, err
	}
	if paid == nil {
		return paymentDocument{}, fmt.Errorf("payment date is required")
	}

	return paymentDocument{
		HostelID:       p.HostelID,
		StudentID:      p.StudentID,
		FeeMonth:       p.FeeMonth,
		Amount:         amount,
		PaymentDate:    *paid,
		PaymentModeID:  p.PaymentModeID,
		TransactionID:  p.TransactionID,
		Notes:          p.Notes,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      p.CreatedAt,
	}, nil
}

func (d paymentDocument) toModel() (models.Payment, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return models.Payment{}, err
	}
	return models.Payment{
		ID:             d.ID.Hex(),
		HostelID:       d.HostelID,
		StudentID:      d.StudentID,
		FeeMonth:       d.FeeMonth,
		Amount:         amount,
		PaymentDate:    d.PaymentDate.UTC().Format(models.DateLayout),
		PaymentModeID:  d.PaymentModeID,
		TransactionID:  d.TransactionID,
		Notes:          d.Notes,
		IdempotencyKey: d.IdempotencyKey,
		CreatedAt:      d.CreatedAt,
	}, nil
}
