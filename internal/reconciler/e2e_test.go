package reconciler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/feeledger/internal/config"
	"github.com/hostelhub/feeledger/internal/domain/models"
	"github.com/hostelhub/feeledger/pkg/clients/ledger"
)

// fakeLedgerServer answers the three ledger endpoints. The fee flips to Fully Paid
// once a payment has been posted, the way the real ledger would report it.
type fakeLedgerServer struct {
	mu           sync.Mutex
	paid         bool
	summaryCalls int
	postedBody   string
	postedKey    string
}

func (s *fakeLedgerServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/monthly-fees/summary":
		s.summaryCalls++
		if s.paid {
			_, _ = io.WriteString(w, `{"success":true,"data":{"summary":{"total_paid":5000,"total_pending":0},
				"fees":[{"student_id":1,"hostel_id":12,"fee_month":"2026-02","amount":5000,"balance":0,"fee_status":"Fully Paid","due_date":"2026-02-05","first_name":"Jane","last_name":"Doe","room_number":"B-12"}]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"summary":{"total_paid":0,"total_pending":5000},
			"fees":[{"student_id":1,"hostel_id":12,"fee_month":"2026-02","amount":5000,"balance":5000,"fee_status":"Pending","due_date":"2026-02-05","first_name":"Jane","last_name":"Doe","room_number":"B-12"}]}}`)
	case "/monthly-fees/payment-modes":
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id":1,"name":"Cash"},{"id":2,"name":"UPI"}]}`)
	case "/monthly-fees/record-payment":
		body, _ := io.ReadAll(r.Body)
		s.postedBody = string(body)
		s.postedKey = r.Header.Get(ledger.IdempotencyHeader)
		s.paid = true
		_, _ = io.WriteString(w, `{"success":true,"data":{"payment":{"id":"65f0c0ffee","amount":5000},"fee":{"fee_status":"Fully Paid"}}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"error":"not found"}`)
	}
}

func TestEndToEnd_CollectFullMonthlyFee(t *testing.T) {
	backend := &fakeLedgerServer{}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	session := models.Session{HostelID: 12, Token: "t0k"}
	client := ledger.NewClient(config.LedgerClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, session)
	r := New(client, session, nil)
	r.now = func() time.Time { return fixedNow }

	ctx := context.Background()
	require.NoError(t, r.LoadPaymentModes(ctx))
	require.NoError(t, r.Refresh(ctx, true))

	view := r.View(BucketUnpaid, "jane")
	require.Len(t, view.Fees, 1)
	assert.Equal(t, int64(0), view.Aggregates.CollectionPct)

	c := r.Begin(view.Fees[0])
	assert.Equal(t, "5000", c.AmountInput)

	outcome, err := r.CollectPayment(ctx, c)
	require.NoError(t, err)

	backend.mu.Lock()
	defer backend.mu.Unlock()

	assert.JSONEq(t, `{
		"student_id": 1,
		"hostel_id": 12,
		"amount": 5000,
		"payment_date": "2026-02-10",
		"due_date": "2026-02-05",
		"payment_mode_id": 1,
		"transaction_id": null,
		"notes": "",
		"fee_month": "2026-02"
	}`, backend.postedBody)
	assert.NotEmpty(t, backend.postedKey)
	assert.Equal(t, 2, backend.summaryCalls)

	assert.Equal(t, models.StatusFullyPaid, outcome.Fee.FeeStatus)
	assert.True(t, outcome.Fee.IsPaid())

	after := r.View(BucketPaid, "")
	require.Len(t, after.Fees, 1)
	assert.Equal(t, int64(100), after.Aggregates.CollectionPct)

	var payment map[string]any
	raw, _ := json.Marshal(outcome.Receipt.Payment)
	require.NoError(t, json.Unmarshal(raw, &payment))
	assert.Equal(t, "65f0c0ffee", payment["id"])
}
