package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/feeledger/internal/domain/models"
	client "github.com/hostelhub/feeledger/pkg/clients/whatsapp"
)

type fakeWhatsApp struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (f *fakeWhatsApp) SendTextMessage(ctx context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, req)
	return &client.SendTextMessageResponse{}, nil
}

func samplePayment() models.Payment {
	return models.Payment{
		StudentID:   1,
		FeeMonth:    "2026-02",
		Amount:      decimal.NewFromInt(3000),
		PaymentDate: "2026-02-10",
	}
}

func TestPaymentReceipt(t *testing.T) {
	wa := &fakeWhatsApp{}
	n := NewNotifier(wa, "", nil)

	fee := models.FeeRecord{
		StudentID: 1,
		FirstName: "Jane",
		Phone:     "+919876543210",
		Balance:   decimal.NewFromInt(2000),
		FeeStatus: models.StatusPartiallyPaid,
	}
	require.NoError(t, n.PaymentReceipt(context.Background(), samplePayment(), fee))

	require.Len(t, wa.sent, 1)
	assert.Equal(t, "+919876543210", wa.sent[0].To)
	assert.Equal(t, "Hi Jane, we received ₹3000.00 towards your Feb 2026 hostel fee on 2026-02-10. Remaining balance: ₹2000.00.", wa.sent[0].Body)
}

func TestPaymentReceipt_FullyPaid(t *testing.T) {
	fee := models.FeeRecord{FirstName: "Jane", FeeStatus: models.StatusFullyPaid}
	assert.Contains(t, ReceiptText(samplePayment(), fee), "fully paid")
}

func TestPaymentReceipt_NoPhone(t *testing.T) {
	wa := &fakeWhatsApp{}
	n := NewNotifier(wa, "", nil)

	require.NoError(t, n.PaymentReceipt(context.Background(), samplePayment(), models.FeeRecord{FirstName: "Jane"}))
	assert.Empty(t, wa.sent)
}

func TestDisabledNotifierDropsMessages(t *testing.T) {
	n := NewNotifier(nil, "919800000000", nil)
	assert.False(t, n.Enabled())

	err := n.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "x"})
	assert.NoError(t, err)
}

func TestSendOutbound_WrapsClientError(t *testing.T) {
	n := NewNotifier(&fakeWhatsApp{err: errors.New("boom")}, "", nil)

	err := n.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send outbound message")
}

func TestWardenReport(t *testing.T) {
	wa := &fakeWhatsApp{}
	n := NewNotifier(wa, "919800000000", nil)

	report := models.CollectionReport{
		HostelID:      12,
		PeriodStart:   time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
		Collected:     decimal.NewFromInt(8000),
		PaymentsCount: 3,
		Outstanding:   decimal.NewFromInt(12000),
		PaidCount:     1,
		PartialCount:  2,
		PendingCount:  3,
		OverdueCount:  1,
	}
	require.NoError(t, n.WardenReport(context.Background(), report))

	require.Len(t, wa.sent, 1)
	assert.Equal(t, "919800000000", wa.sent[0].To)
	assert.Equal(t, "Fee collection, hostel 12 (2026-02-06 to 2026-02-12)\n"+
		"Collected: ₹8000.00 across 3 payments\n"+
		"Outstanding: ₹12000.00\n"+
		"Paid 1 | Partial 2 | Pending 3 | Overdue 1", wa.sent[0].Body)
}
