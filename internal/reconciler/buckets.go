package reconciler

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hostelhub/feeledger/internal/domain/models"
)

// Bucket is a display-only partition of fee statuses.
type Bucket string

const (
	BucketAll     Bucket = "All"
	BucketUnpaid  Bucket = "Unpaid"
	BucketPartial Bucket = "Partial"
	BucketPaid    Bucket = "Paid"
)

// Buckets lists the tabs in display order.
var Buckets = []Bucket{BucketAll, BucketUnpaid, BucketPartial, BucketPaid}

// ParseBucket matches a tab name case-insensitively.
func ParseBucket(value string) (Bucket, bool) {
	for _, b := range Buckets {
		if strings.EqualFold(strings.TrimSpace(value), string(b)) {
			return b, true
		}
	}
	return "", false
}

// Classify maps a fee to its tab. Pending and Overdue share the Unpaid tab; the
// distinction stays on fee_status. Unknown statuses only show under All.
func Classify(fee models.FeeRecord) Bucket {
	switch fee.FeeStatus {
	case models.StatusFullyPaid:
		return BucketPaid
	case models.StatusPartiallyPaid:
		return BucketPartial
	case models.StatusPending, models.StatusOverdue:
		return BucketUnpaid
	default:
		return BucketAll
	}
}

// Filter keeps the fees belonging to tab whose "first last" name contains search,
// ignoring case. Input order is preserved.
func Filter(fees []models.FeeRecord, tab Bucket, search string) []models.FeeRecord {
	term := strings.ToLower(search)

	out := make([]models.FeeRecord, 0, len(fees))
	for _, fee := range fees {
		if tab != BucketAll && tab != "" && Classify(fee) != tab {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(fee.FirstName+" "+fee.LastName), term) {
			continue
		}
		out = append(out, fee)
	}
	return out
}

// Aggregates are the counters and progress figures shown above the fee list.
type Aggregates struct {
	PaidCount     int
	UnpaidCount   int
	PartialCount  int
	TotalPaid     decimal.Decimal
	TotalPending  decimal.Decimal
	TotalAmt      decimal.Decimal
	CollectionPct int64
}

var hundred = decimal.NewFromInt(100)

// Stats derives the aggregates of a snapshot.
func Stats(snap models.Snapshot) Aggregates {
	agg := Aggregates{
		TotalPaid:    snap.Summary.TotalPaid,
		TotalPending: snap.Summary.TotalPending,
		TotalAmt:     snap.Summary.TotalPaid.Add(snap.Summary.TotalPending),
	}

	for _, fee := range snap.Fees {
		switch Classify(fee) {
		case BucketPaid:
			agg.PaidCount++
		case BucketUnpaid:
			agg.UnpaidCount++
		case BucketPartial:
			agg.PartialCount++
		}
	}

	agg.CollectionPct = CollectionPct(agg.TotalPaid, agg.TotalPending)
	return agg
}

// CollectionPct is round(collected / (collected+pending) × 100), or 0 when nothing
// is due at all.
func CollectionPct(collected, pending decimal.Decimal) int64 {
	total := collected.Add(pending)
	if !total.IsPositive() {
		return 0
	}
	return collected.Mul(hundred).Div(total).Round(0).IntPart()
}
