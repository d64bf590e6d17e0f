package ledger

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/hostelhub/feeledger/internal/config"
	"github.com/hostelhub/feeledger/internal/domain/models"
)

const (
	HostelHeader      = models.HostelHeader
	IdempotencyHeader = models.IdempotencyHeader

	summaryPath       = "/monthly-fees/summary"
	paymentModesPath  = "/monthly-fees/payment-modes"
	recordPaymentPath = "/monthly-fees/record-payment"
)

// Client exposes the ledger operations used by the fee collection screen.
type Client interface {
	FetchSummary(ctx context.Context, month string) (*models.Snapshot, error)
	PaymentModes(ctx context.Context) ([]models.PaymentMode, error)
	RecordPayment(ctx context.Context, req models.CollectionRequest, idempotencyKey string) (*models.PaymentReceipt, error)
}

// APIError is a failure reported by the ledger itself. Message is the server's
// error text, kept verbatim for display.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger api error: status=%d", e.Status)
	}
	return fmt.Sprintf("ledger api error: status=%d, message=%s", e.Status, e.Message)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

var _ Client = (*APIClient)(nil)

// NewClient builds a ledger API client bound to one hostel session.
func NewClient(cfg config.LedgerClientConfig, session models.Session) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader(HostelHeader, strconv.FormatInt(session.HostelID, 10)).
		SetTimeout(cfg.Timeout)

	if session.Token != "" {
		restyClient.SetAuthToken(session.Token)
	}

	return &APIClient{httpClient: restyClient}
}

// FetchSummary loads the fee snapshot. An empty month returns every month.
func (c *APIClient) FetchSummary(ctx context.Context, month string) (*models.Snapshot, error) {
	result := new(models.Envelope[models.Snapshot])
	apiErr := new(models.Envelope[any])

	req := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr)
	if month != "" {
		req.SetQueryParam("month", month)
	}

	resp, err := req.Get(summaryPath)
	if err != nil {
		return nil, fmt.Errorf("fetch fee summary: %w", err)
	}
	if err := checkResponse(resp, result.Success, result.Error, apiErr); err != nil {
		return nil, err
	}

	return &result.Data, nil
}

// PaymentModes loads the payment mode lookup list.
func (c *APIClient) PaymentModes(ctx context.Context) ([]models.PaymentMode, error) {
	result := new(models.Envelope[[]models.PaymentMode])
	apiErr := new(models.Envelope[any])

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr).
		Get(paymentModesPath)
	if err != nil {
		return nil, fmt.Errorf("fetch payment modes: %w", err)
	}
	if err := checkResponse(resp, result.Success, result.Error, apiErr); err != nil {
		return nil, err
	}

	return result.Data, nil
}

// RecordPayment posts a collection request. The idempotency key is sent as a
// header so the posted body stays exactly the collection request.
func (c *APIClient) RecordPayment(ctx context.Context, body models.CollectionRequest, idempotencyKey string) (*models.PaymentReceipt, error) {
	result := new(models.Envelope[models.PaymentReceipt])
	apiErr := new(models.Envelope[any])

	req := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(apiErr)
	if idempotencyKey != "" {
		req.SetHeader(IdempotencyHeader, idempotencyKey)
	}

	resp, err := req.Post(recordPaymentPath)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	if err := checkResponse(resp, result.Success, result.Error, apiErr); err != nil {
		return nil, err
	}

	return &result.Data, nil
}

func checkResponse(resp *resty.Response, success bool, message string, apiErr *models.Envelope[any]) error {
	if resp.StatusCode() >= http.StatusBadRequest {
		msg := ""
		if apiErr != nil {
			msg = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}

	if !success {
		return &APIError{Status: resp.StatusCode(), Message: message}
	}

	return nil
}
