package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/feeledger/internal/config"
	"github.com/hostelhub/feeledger/internal/domain/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.LedgerClientConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, models.Session{HostelID: 12, Token: "secret"})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestFetchSummary_SendsSessionHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, summaryPath, r.URL.Path)
		assert.Equal(t, "12", r.Header.Get(HostelHeader))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-02", r.URL.Query().Get("month"))

		writeJSON(w, http.StatusOK, `{"success":true,"data":{
			"summary":{"total_paid":2500,"total_pending":7500},
			"fees":[{"student_id":1,"hostel_id":12,"fee_month":"2026-02","amount":5000,"balance":2500,"fee_status":"Partially Paid","first_name":"Jane","last_name":"Doe"}]
		}}`)
	})

	snap, err := client.FetchSummary(context.Background(), "2026-02")
	require.NoError(t, err)

	require.Len(t, snap.Fees, 1)
	assert.True(t, decimal.NewFromInt(2500).Equal(snap.Summary.TotalPaid))
	assert.True(t, decimal.NewFromInt(7500).Equal(snap.Summary.TotalPending))
	assert.Equal(t, models.StatusPartiallyPaid, snap.Fees[0].FeeStatus)
	assert.True(t, decimal.NewFromInt(2500).Equal(snap.Fees[0].Balance))
}

func TestPaymentModes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, paymentModesPath, r.URL.Path)
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":1,"name":"Cash"},{"id":2,"name":"UPI"}]}`)
	})

	modes, err := client.PaymentModes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.PaymentMode{{ID: 1, Name: "Cash"}, {ID: 2, Name: "UPI"}}, modes)
}

func TestRecordPayment_PostsBodyAndKey(t *testing.T) {
	var posted map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "attempt-1", r.Header.Get(IdempotencyHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"payment":{"id":"p1","amount":5000},"fee":{"fee_status":"Fully Paid"}}}`)
	})

	receipt, err := client.RecordPayment(context.Background(), models.CollectionRequest{
		StudentID:     1,
		HostelID:      12,
		Amount:        decimal.NewFromInt(5000),
		PaymentDate:   "2026-02-10",
		DueDate:       "2026-02-05",
		PaymentModeID: 1,
		FeeMonth:      "2026-02",
	}, "attempt-1")
	require.NoError(t, err)

	assert.Equal(t, "p1", receipt.Payment.ID)
	assert.Equal(t, float64(5000), posted["amount"])
	assert.Nil(t, posted["transaction_id"])
	assert.Equal(t, "", posted["notes"])
}

func TestRecordPayment_ServerErrorIsVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"success":false,"error":"Amount exceeds outstanding balance of 2500"}`)
	})

	_, err := client.RecordPayment(context.Background(), models.CollectionRequest{}, "")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Amount exceeds outstanding balance of 2500", apiErr.Message)
}

func TestFetchSummary_UnsuccessfulEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":false,"error":"hostel not provisioned"}`)
	})

	_, err := client.FetchSummary(context.Background(), "")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "hostel not provisioned", apiErr.Message)
}

func TestFetchSummary_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(config.LedgerClientConfig{BaseURL: srv.URL, Timeout: time.Second}, models.Session{HostelID: 1})
	_, err := client.FetchSummary(context.Background(), "")
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.ErrorContains(t, err, "fetch fee summary")
}
