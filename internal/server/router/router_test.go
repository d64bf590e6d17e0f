package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/feeledger/internal/domain/models"
	"github.com/hostelhub/feeledger/internal/server/handlers"
	"github.com/hostelhub/feeledger/internal/service/ledger"
)

type fakeFees struct {
	hostel    int64
	key       string
	filter    models.FeeFilter
	month     string
	recordReq models.CollectionRequest
	recordErr error
	cycle     models.GenerateCycleRequest
}

func (f *fakeFees) Snapshot(ctx context.Context, hostelID int64, month string) (models.Snapshot, error) {
	f.hostel, f.month = hostelID, month
	return models.Snapshot{
		Summary: models.Summary{TotalPaid: decimal.NewFromInt(3000), TotalPending: decimal.NewFromInt(2000)},
		Fees: []models.FeeRecord{{
			StudentID: 1, HostelID: hostelID, FeeMonth: "2026-02",
			Amount: decimal.NewFromInt(5000), Balance: decimal.NewFromInt(2000),
			FeeStatus: models.StatusPartiallyPaid, FirstName: "Jane", LastName: "Doe",
		}},
	}, nil
}

func (f *fakeFees) ListFees(ctx context.Context, hostelID int64, filter models.FeeFilter) ([]models.FeeRecord, error) {
	f.hostel, f.filter = hostelID, filter
	return nil, nil
}

func (f *fakeFees) PaymentModes(ctx context.Context) ([]models.PaymentMode, error) {
	return ledger.DefaultPaymentModes, nil
}

func (f *fakeFees) RecordPayment(ctx context.Context, hostelID int64, key string, req models.CollectionRequest) (models.PaymentReceipt, error) {
	f.hostel, f.key, f.recordReq = hostelID, key, req
	if f.recordErr != nil {
		return models.PaymentReceipt{}, f.recordErr
	}
	return models.PaymentReceipt{
		Payment: models.Payment{ID: "p1", Amount: req.Amount},
		Fee:     models.FeeRecord{StudentID: req.StudentID, FeeStatus: models.StatusFullyPaid},
	}, nil
}

func (f *fakeFees) GenerateCycle(ctx context.Context, hostelID int64, req models.GenerateCycleRequest) (int, error) {
	f.hostel, f.cycle = hostelID, req
	return len(req.Students), nil
}

func serve(t *testing.T, svc *fakeFees, token string, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	engine := New(handlers.NewFeeHandler(svc, nil), token, nil)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var hostel12 = map[string]string{models.HostelHeader: "12"}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeFees{}, "secret", http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSummary(t *testing.T) {
	svc := &fakeFees{}
	rec := serve(t, svc, "", http.MethodGet, "/monthly-fees/summary?month=2026-02", "", hostel12)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 12, svc.hostel)
	assert.Equal(t, "2026-02", svc.month)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	summary := data["summary"].(map[string]any)
	assert.Equal(t, 3000.0, summary["total_paid"])
	assert.Equal(t, 2000.0, summary["total_pending"])
	fees := data["fees"].([]any)
	require.Len(t, fees, 1)
	assert.Equal(t, "Partially Paid", fees[0].(map[string]any)["fee_status"])
}

func TestMissingHostelHeader(t *testing.T) {
	rec := serve(t, &fakeFees{}, "", http.MethodGet, "/monthly-fees/summary", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "X-Hostel-ID")
}

func TestBearerAuth(t *testing.T) {
	rec := serve(t, &fakeFees{}, "secret", http.MethodGet, "/monthly-fees/payment-modes", "", hostel12)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, &fakeFees{}, "secret", http.MethodGet, "/monthly-fees/payment-modes", "", map[string]string{
		models.HostelHeader: "12",
		"Authorization":     "Bearer secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	modes := decode(t, rec)["data"].([]any)
	assert.Len(t, modes, len(ledger.DefaultPaymentModes))
	assert.Equal(t, "Cash", modes[0].(map[string]any)["name"])
}

func TestListFees(t *testing.T) {
	svc := &fakeFees{}
	rec := serve(t, svc, "", http.MethodGet, "/monthly-fees?status=overdue&month=2026-02", "", hostel12)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusOverdue, svc.filter.Status)
	assert.Equal(t, "2026-02", svc.filter.Month)
	assert.Equal(t, []any{}, decode(t, rec)["data"])

	rec = serve(t, svc, "", http.MethodGet, "/monthly-fees?status=waived", "", hostel12)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordPayment(t *testing.T) {
	svc := &fakeFees{}
	body := `{"student_id":1,"hostel_id":12,"amount":5000,"payment_date":"2026-02-10","due_date":"2026-02-28","payment_mode_id":2,"transaction_id":null,"notes":"","fee_month":"2026-02"}`
	rec := serve(t, svc, "", http.MethodPost, "/monthly-fees/record-payment", body, map[string]string{
		models.HostelHeader:      "12",
		models.IdempotencyHeader: "k-1",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "k-1", svc.key)
	assert.True(t, decimal.NewFromInt(5000).Equal(svc.recordReq.Amount))
	assert.Nil(t, svc.recordReq.TransactionID)

	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "Fully Paid", data["fee"].(map[string]any)["fee_status"])
}

func TestRecordPayment_ErrorStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ledger.ErrValidation, http.StatusBadRequest},
		{ledger.ErrHostelMismatch, http.StatusBadRequest},
		{ledger.ErrUnknownPaymentMode, http.StatusBadRequest},
		{ledger.ErrFeeNotFound, http.StatusNotFound},
		{ledger.ErrDuplicatePayment, http.StatusConflict},
		{ledger.ErrConcurrentUpdate, http.StatusConflict},
		{ledger.ErrOverpayment, http.StatusUnprocessableEntity},
		{ledger.ErrAlreadyPaid, http.StatusUnprocessableEntity},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := &fakeFees{recordErr: tt.err}
			rec := serve(t, svc, "", http.MethodPost, "/monthly-fees/record-payment", `{"student_id":1}`, hostel12)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			if tt.status < http.StatusInternalServerError {
				assert.Equal(t, tt.err.Error(), body["error"])
			} else {
				assert.Equal(t, "internal server error", body["error"])
			}
		})
	}
}

func TestRecordPayment_MalformedBody(t *testing.T) {
	rec := serve(t, &fakeFees{}, "", http.MethodPost, "/monthly-fees/record-payment", `{"amount":`, hostel12)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate(t *testing.T) {
	svc := &fakeFees{}
	body := `{"fee_month":"2026-03","students":[{"student_id":1,"first_name":"Jane","amount":5000},{"student_id":2,"first_name":"John","amount":4500}]}`
	rec := serve(t, svc, "", http.MethodPost, "/monthly-fees/generate", body, hostel12)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-03", svc.cycle.FeeMonth)
	assert.Equal(t, 2.0, decode(t, rec)["data"].(map[string]any)["created"])
}
