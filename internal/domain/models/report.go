package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionReport is the periodic fee-collection digest stored in MongoDB.
type CollectionReport struct {
	HostelID      int64           `json:"hostel_id"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
	Collected     decimal.Decimal `json:"collected"`
	PaymentsCount int             `json:"payments_count"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	PaidCount     int             `json:"paid_count"`
	PartialCount  int             `json:"partial_count"`
	PendingCount  int             `json:"pending_count"`
	OverdueCount  int             `json:"overdue_count"`
	CreatedAt     time.Time       `json:"created_at"`
}
