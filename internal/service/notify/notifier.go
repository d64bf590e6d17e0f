package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hostelhub/feeledger/internal/domain/models"
	client "github.com/hostelhub/feeledger/pkg/clients/whatsapp"
)

// Notifier sends WhatsApp messages to students and the warden. A Notifier built
// without a client drops every message.
type Notifier struct {
	client      client.Client
	wardenPhone string
	logger      *zap.Logger
}

// NewNotifier wires a notifier. wa may be nil when WhatsApp is not configured.
func NewNotifier(wa client.Client, wardenPhone string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: wa, wardenPhone: wardenPhone, logger: logger}
}

// Enabled reports whether messages actually leave the process.
func (n *Notifier) Enabled() bool {
	return n.client != nil
}

// SendOutbound delivers a plain text message.
func (n *Notifier) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	if !n.Enabled() {
		n.logger.Debug("whatsapp disabled, message dropped", zap.String("to", req.To))
		return nil
	}

	resp, err := n.client.SendTextMessage(ctx, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	if err != nil {
		return fmt.Errorf("send outbound message: %w", err)
	}

	if len(resp.Messages) > 0 {
		n.logger.Debug("message sent", zap.String("to", req.To), zap.String("message_id", resp.Messages[0].ID))
	}
	return nil
}

// PaymentReceipt confirms a recorded payment to the student. Students without a
// phone number are skipped.
func (n *Notifier) PaymentReceipt(ctx context.Context, payment models.Payment, fee models.FeeRecord) error {
	if fee.Phone == "" {
		n.logger.Debug("no phone on file, receipt skipped", zap.Int64("student_id", fee.StudentID))
		return nil
	}
	return n.SendOutbound(ctx, models.OutboundMessageRequest{
		To:      fee.Phone,
		Message: ReceiptText(payment, fee),
	})
}

// WardenReport sends a collection report to the configured warden.
func (n *Notifier) WardenReport(ctx context.Context, report models.CollectionReport) error {
	if n.wardenPhone == "" {
		n.logger.Debug("no warden phone configured, report not sent")
		return nil
	}
	return n.SendOutbound(ctx, models.OutboundMessageRequest{
		To:      n.wardenPhone,
		Message: ReportText(report),
	})
}

// ReceiptText is the student-facing payment confirmation.
func ReceiptText(payment models.Payment, fee models.FeeRecord) string {
	msg := fmt.Sprintf("Hi %s, we received %s towards your %s hostel fee on %s.",
		fee.FirstName,
		models.FormatMoney(payment.Amount),
		models.MonthLabel(payment.FeeMonth),
		payment.PaymentDate,
	)
	if fee.IsPaid() {
		return msg + " Your fee for the month is fully paid. Thank you!"
	}
	return msg + fmt.Sprintf(" Remaining balance: %s.", models.FormatMoney(fee.Balance))
}

// ReportText renders a collection report for WhatsApp.
func ReportText(r models.CollectionReport) string {
	return fmt.Sprintf("Fee collection, hostel %d (%s to %s)\n"+
		"Collected: %s across %d payments\n"+
		"Outstanding: %s\n"+
		"Paid %d | Partial %d | Pending %d | Overdue %d",
		r.HostelID,
		r.PeriodStart.Format(models.DateLayout),
		r.PeriodEnd.AddDate(0, 0, -1).Format(models.DateLayout),
		models.FormatMoney(r.Collected),
		r.PaymentsCount,
		models.FormatMoney(r.Outstanding),
		r.PaidCount, r.PartialCount, r.PendingCount, r.OverdueCount,
	)
}
