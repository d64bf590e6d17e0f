package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hostelhub/feeledger/internal/domain/models"
	"github.com/hostelhub/feeledger/internal/service/ledger"
)

// FeeService describes the ledger operations the HTTP layer can perform.
type FeeService interface {
	Snapshot(ctx context.Context, hostelID int64, month string) (models.Snapshot, error)
	ListFees(ctx context.Context, hostelID int64, filter models.FeeFilter) ([]models.FeeRecord, error)
	PaymentModes(ctx context.Context) ([]models.PaymentMode, error)
	RecordPayment(ctx context.Context, hostelID int64, key string, req models.CollectionRequest) (models.PaymentReceipt, error)
	GenerateCycle(ctx context.Context, hostelID int64, req models.GenerateCycleRequest) (int, error)
}

// FeeHandler exposes the monthly fee endpoints.
type FeeHandler struct {
	svc    FeeService
	logger *zap.Logger
}

// NewFeeHandler constructs the HTTP handler adapter.
func NewFeeHandler(svc FeeService, logger *zap.Logger) *FeeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeHandler{svc: svc, logger: logger}
}

// Summary returns the fee list with the paid and pending totals.
func (h *FeeHandler) Summary(c *gin.Context) {
	snap, err := h.svc.Snapshot(c.Request.Context(), hostelID(c), c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

// List returns fees filtered by status and month.
func (h *FeeHandler) List(c *gin.Context) {
	filter := models.FeeFilter{Month: c.Query("month")}
	if raw := c.Query("status"); raw != "" {
		status, valid := models.ParseFeeStatus(raw)
		if !valid {
			abort(c, http.StatusBadRequest, "unknown status "+raw)
			return
		}
		filter.Status = status
	}

	fees, err := h.svc.ListFees(c.Request.Context(), hostelID(c), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if fees == nil {
		fees = []models.FeeRecord{}
	}
	ok(c, http.StatusOK, fees)
}

// PaymentModes returns the payment mode lookup.
func (h *FeeHandler) PaymentModes(c *gin.Context) {
	modes, err := h.svc.PaymentModes(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, modes)
}

// RecordPayment applies one payment and returns it with the updated fee.
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	var req models.CollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid payment payload", zap.Error(err))
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.svc.RecordPayment(c.Request.Context(), hostelID(c), c.GetHeader(models.IdempotencyHeader), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, receipt)
}

// Generate creates the fee records of a billing month.
func (h *FeeHandler) Generate(c *gin.Context) {
	var req models.GenerateCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid cycle payload", zap.Error(err))
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.svc.GenerateCycle(c.Request.Context(), hostelID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"created": created})
}

func (h *FeeHandler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		abort(c, status, "internal server error")
		return
	}
	h.logger.Info("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	abort(c, status, err.Error())
}

// StatusFor maps ledger errors to HTTP statuses.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, ledger.ErrHostelMismatch),
		errors.Is(err, ledger.ErrUnknownPaymentMode):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrFeeNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicatePayment),
		errors.Is(err, ledger.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrOverpayment),
		errors.Is(err, ledger.ErrAlreadyPaid):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func ok[T any](c *gin.Context, status int, data T) {
	c.JSON(status, models.Envelope[T]{Success: true, Data: data})
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.Envelope[any]{Success: false, Error: message})
}
