// Package domain holds the invoice ledger types. Amounts are integer minor
// units (cents) throughout.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/ledgerly/ledgerly/internal/client/domain"
	"gorm.io/datatypes"
)

// Status is the stored payment state of an invoice. It is derived from the
// paid amount and never set directly outside the reconciler, except through
// the explicit admin override.
type Status string

const (
	StatusUnpaid        Status = "unpaid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
)

// DisplayStatusOverdue is a derived read-time label. It is never stored.
const DisplayStatusOverdue = "overdue"

// ValidStatus reports whether raw names one of the stored states.
func ValidStatus(raw string) bool {
	switch Status(raw) {
	case StatusUnpaid, StatusPartiallyPaid, StatusPaid:
		return true
	default:
		return false
	}
}

// DeriveStatus maps a paid amount onto the stored status.
// An over-collected invoice still reads as paid.
func DeriveStatus(paidAmount, total int64) Status {
	switch {
	case paidAmount <= 0:
		return StatusUnpaid
	case paidAmount < total:
		return StatusPartiallyPaid
	default:
		return StatusPaid
	}
}

// RecurringPeriod enumerates supported recurrence cadences.
type RecurringPeriod string

const (
	RecurringWeekly    RecurringPeriod = "weekly"
	RecurringMonthly   RecurringPeriod = "monthly"
	RecurringQuarterly RecurringPeriod = "quarterly"
	RecurringYearly    RecurringPeriod = "yearly"
)

func ValidRecurringPeriod(raw string) bool {
	switch RecurringPeriod(raw) {
	case RecurringWeekly, RecurringMonthly, RecurringQuarterly, RecurringYearly:
		return true
	default:
		return false
	}
}

// Invoice is the aggregate root of the payment ledger.
type Invoice struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceNo    string       `gorm:"column:invoice_no;not null;uniqueIndex" json:"invoice_no"`
	ClientID     snowflake.ID `gorm:"column:client_id;not null;index" json:"client_id"`
	IssueDate    time.Time    `gorm:"column:issue_date;not null" json:"issue_date"`
	DueDate      time.Time    `gorm:"column:due_date;not null;index" json:"due_date"`
	Currency     string       `gorm:"not null;default:USD" json:"currency"`
	ExchangeRate *float64     `gorm:"column:exchange_rate" json:"exchange_rate,omitempty"`

	// Total is fixed at creation from the line items. PaidAmount and Status
	// are owned by the payment reconciler.
	Total      int64  `gorm:"not null" json:"total"`
	PaidAmount int64  `gorm:"column:paid_amount;not null;default:0" json:"paid_amount"`
	Status     Status `gorm:"not null;default:unpaid;index" json:"status"`

	Notes string `gorm:"column:notes" json:"notes,omitempty"`

	IsRecurring     bool             `gorm:"column:is_recurring;not null;default:false" json:"is_recurring"`
	RecurringPeriod *RecurringPeriod `gorm:"column:recurring_period" json:"recurring_period,omitempty"`
	NextDueDate     *time.Time       `gorm:"column:next_due_date" json:"next_due_date,omitempty"`
	RecurringEnd    *time.Time       `gorm:"column:recurring_end" json:"recurring_end,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;index;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Client    *clientdomain.Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	LineItems []LineItem           `gorm:"foreignKey:InvoiceID" json:"line_items,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

// DisplayStatus returns the status shown to users: stored status, except that
// unpaid or partially paid invoices past their due date read as overdue.
func (i Invoice) DisplayStatus(now time.Time) string {
	if i.Status != StatusPaid && now.After(i.DueDate) {
		return DisplayStatusOverdue
	}
	return string(i.Status)
}

// Balance is the amount still owed.
func (i Invoice) Balance() int64 {
	balance := i.Total - i.PaidAmount
	if balance < 0 {
		return 0
	}
	return balance
}

// LineItem is a fixed invoice line. Line items never change after creation.
type LineItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID `gorm:"column:invoice_id;not null;index" json:"invoice_id"`
	Description string       `gorm:"not null" json:"description"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
	UnitPrice   int64        `gorm:"column:unit_price;not null" json:"unit_price"`
	Amount      int64        `gorm:"not null" json:"amount"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (LineItem) TableName() string { return "invoice_line_items" }
