package domain

import (
	"context"
	"errors"

	invoicedomain "github.com/ledgerly/ledgerly/internal/invoice/domain"
)

type RecordPaymentRequest struct {
	InvoiceID string `json:"invoice_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Note      string `json:"note"`
}

// RecordPaymentResponse returns the new ledger entry together with the
// reconciled invoice snapshot.
type RecordPaymentResponse struct {
	Payment Payment                   `json:"payment"`
	Invoice invoicedomain.InvoiceView `json:"invoice"`
}

type DeletePaymentRequest struct {
	ID string
}

type ListByInvoiceRequest struct {
	InvoiceID string
}

type ListByInvoiceResponse struct {
	Payments []Payment `json:"payments"`
}

type RecomputeRequest struct {
	InvoiceID string
}

// Service is the ledger reconciler: every mutation keeps the invoice's
// paid amount and status consistent with the payment rows, inside one
// transaction.
type Service interface {
	Record(ctx context.Context, req RecordPaymentRequest) (RecordPaymentResponse, error)
	Delete(ctx context.Context, req DeletePaymentRequest) (invoicedomain.InvoiceView, error)
	ListByInvoice(ctx context.Context, req ListByInvoiceRequest) (ListByInvoiceResponse, error)
	// Recompute re-derives the stored ledger fields from the payment rows.
	// It is idempotent and used as the explicit drift repair.
	Recompute(ctx context.Context, req RecomputeRequest) (invoicedomain.InvoiceView, error)
}

var (
	ErrInvalidInvoice  = errors.New("invalid_invoice")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidMethod   = errors.New("invalid_method")
	ErrBalanceExceeded = errors.New("balance_exceeded")
	ErrNotFound        = errors.New("not_found")
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrForbidden       = errors.New("forbidden")
)
