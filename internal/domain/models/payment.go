package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionRequest is the body posted to record a payment. It lives only for the
// duration of one submission.
type CollectionRequest struct {
	StudentID     int64           `json:"student_id" validate:"required,gt=0"`
	HostelID      int64           `json:"hostel_id" validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	DueDate       string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	PaymentModeID int64           `json:"payment_mode_id" validate:"required,gt=0"`
	TransactionID *string         `json:"transaction_id" validate:"omitempty,max=100"`
	Notes         string          `json:"notes" validate:"max=500"`
	FeeMonth      string          `json:"fee_month" validate:"required,datetime=2006-01"`
}

// Payment is a persisted payment against a fee record.
type Payment struct {
	ID             string          `json:"id"`
	HostelID       int64           `json:"hostel_id"`
	StudentID      int64           `json:"student_id"`
	FeeMonth       string          `json:"fee_month"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    string          `json:"payment_date"`
	PaymentModeID  int64           `json:"payment_mode_id"`
	TransactionID  *string         `json:"transaction_id,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PaymentReceipt is returned by the ledger after a payment is recorded.
type PaymentReceipt struct {
	Payment Payment   `json:"payment"`
	Fee     FeeRecord `json:"fee"`
}

// CycleStudent is one student entry of a billing-cycle generation request.
type CycleStudent struct {
	StudentID  int64           `json:"student_id" validate:"required,gt=0"`
	FirstName  string          `json:"first_name" validate:"required"`
	LastName   string          `json:"last_name"`
	RoomNumber string          `json:"room_number"`
	Phone      string          `json:"phone"`
	Amount     decimal.Decimal `json:"amount"`
}

// GenerateCycleRequest creates fee records for every listed student in one month.
type GenerateCycleRequest struct {
	FeeMonth string         `json:"fee_month" validate:"required,datetime=2006-01"`
	DueDate  string         `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Students []CycleStudent `json:"students" validate:"required,min=1,dive"`
}
