package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MonthLayout is the billing-period key format used for fee_month.
	MonthLayout = "2006-01"
	// DateLayout is the calendar date format used on the wire.
	DateLayout = "2006-01-02"
)

// FeeStatus is the server-owned payment status of a fee record.
type FeeStatus string

const (
	StatusFullyPaid     FeeStatus = "Fully Paid"
	StatusPending       FeeStatus = "Pending"
	StatusOverdue       FeeStatus = "Overdue"
	StatusPartiallyPaid FeeStatus = "Partially Paid"
)

// Valid reports whether s is one of the known statuses.
func (s FeeStatus) Valid() bool {
	switch s {
	case StatusFullyPaid, StatusPending, StatusOverdue, StatusPartiallyPaid:
		return true
	}
	return false
}

// ParseFeeStatus matches a status name case-insensitively.
func ParseFeeStatus(value string) (FeeStatus, bool) {
	for _, s := range []FeeStatus{StatusFullyPaid, StatusPending, StatusOverdue, StatusPartiallyPaid} {
		if strings.EqualFold(strings.TrimSpace(value), string(s)) {
			return s, true
		}
	}
	return "", false
}

// FeeRecord is one student's obligation for one billing month. The natural key is
// (hostel_id, student_id, fee_month).
type FeeRecord struct {
	StudentID  int64           `json:"student_id"`
	HostelID   int64           `json:"hostel_id"`
	FeeMonth   string          `json:"fee_month"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
	FeeStatus  FeeStatus       `json:"fee_status"`
	DueDate    string          `json:"due_date"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	RoomNumber string          `json:"room_number"`
	Phone      string          `json:"phone,omitempty"`
}

// IsPaid follows fee_status only, never the balance.
func (f FeeRecord) IsPaid() bool {
	return f.FeeStatus == StatusFullyPaid
}

// FullName is the "first last" string searched by the collection screen.
func (f FeeRecord) FullName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// Paid is the amount already collected against the record.
func (f FeeRecord) Paid() decimal.Decimal {
	return f.Amount.Sub(f.Balance)
}

// Summary aggregates the fee set of one hostel. It is computed by the ledger on
// every fetch.
type Summary struct {
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalPending decimal.Decimal `json:"total_pending"`
}

// Snapshot is the fee list and summary returned by a single summary fetch.
type Snapshot struct {
	Summary Summary     `json:"summary"`
	Fees    []FeeRecord `json:"fees"`
}

// PaymentMode is a read-only lookup value such as Cash or UPI.
type PaymentMode struct {
	ID   int64  `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// FeeFilter narrows a fee listing. Zero values match everything.
type FeeFilter struct {
	Status FeeStatus
	Month  string
}

// FormatMoney renders an amount for people, e.g. "₹5000.00".
func FormatMoney(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

// MonthLabel turns "2026-02" into "Feb 2026". Unparseable keys are returned as is.
func MonthLabel(feeMonth string) string {
	t, err := time.Parse(MonthLayout, feeMonth)
	if err != nil {
		return feeMonth
	}
	return t.Format("Jan 2006")
}
