package domain

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerly/ledgerly/pkg/db/pagination"
)

type LineItemInput struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

type CreateInvoiceRequest struct {
	ClientID  string     `json:"client_id"`
	InvoiceNo string     `json:"invoice_no"`
	IssueDate *time.Time `json:"issue_date"`
	DueDate   time.Time  `json:"due_date"`
	Currency  string     `json:"currency"`
	Notes     string     `json:"notes"`

	IsRecurring     bool       `json:"is_recurring"`
	RecurringPeriod string     `json:"recurring_period"`
	RecurringEnd    *time.Time `json:"recurring_end"`

	LineItems []LineItemInput `json:"line_items"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	ClientID string
	Status   string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []InvoiceView `json:"invoices"`
}

// InvoiceView decorates the stored invoice with its display status.
type InvoiceView struct {
	Invoice
	DisplayStatus string `json:"display_status"`
	Balance       int64  `json:"balance"`
}

type GetInvoiceRequest struct {
	ID string
}

type OverrideStatusRequest struct {
	ID     string
	Status string `json:"status"`
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (InvoiceView, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(context.Context, GetInvoiceRequest) (InvoiceView, error)
	// OverrideStatus is the admin escape hatch; the reconciler may later
	// overwrite the value on the next payment event.
	OverrideStatus(context.Context, OverrideStatusRequest) (InvoiceView, error)
	ListOverdue(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
}

var (
	ErrInvalidClient          = errors.New("invalid_client")
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidDueDate         = errors.New("invalid_due_date")
	ErrInvalidLineItems       = errors.New("invalid_line_items")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidRecurringPeriod = errors.New("invalid_recurring_period")
	ErrInvalidPageToken       = errors.New("invalid_page_token")
	ErrDuplicateInvoiceNo     = errors.New("duplicate_invoice_no")
	ErrNotFound               = errors.New("not_found")
	ErrForbidden              = errors.New("forbidden")
)
