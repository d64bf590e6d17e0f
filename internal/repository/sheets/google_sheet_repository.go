package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/hostelhub/feeledger/internal/config"
	"github.com/hostelhub/feeledger/internal/domain/models"
)

const journalRange = "Payments!A:K"

// RowWriter appends rows to a spreadsheet range.
type RowWriter interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
}

// GoogleSheetRepository implements RowWriter using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// WriteRow appends the provided values to the supplied sheet range.
func (r *GoogleSheetRepository) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// Journal mirrors every recorded payment into the accounts spreadsheet.
type Journal struct {
	writer RowWriter
}

// NewJournal wraps a row writer.
func NewJournal(writer RowWriter) *Journal {
	return &Journal{writer: writer}
}

// AppendPayment writes one journal row for a payment and the fee state it left.
func (j *Journal) AppendPayment(ctx context.Context, payment models.Payment, fee models.FeeRecord) error {
	txn := ""
	if payment.TransactionID != nil {
		txn = *payment.TransactionID
	}

	values := []interface{}{
		payment.PaymentDate,
		payment.HostelID,
		payment.StudentID,
		fee.FullName(),
		fee.RoomNumber,
		payment.FeeMonth,
		payment.Amount.StringFixed(2),
		payment.PaymentModeID,
		txn,
		fee.Balance.StringFixed(2),
		string(fee.FeeStatus),
	}
	return j.writer.WriteRow(ctx, journalRange, values)
}
