package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Method enumerates accepted payment methods.
type Method string

const (
	MethodCash         Method = "cash"
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
	MethodCheck        Method = "check"
)

func ValidMethod(raw string) bool {
	switch Method(raw) {
	case MethodCash, MethodCard, MethodBankTransfer, MethodCheck:
		return true
	default:
		return false
	}
}

// Payment is an immutable ledger entry against an invoice. Corrections are
// made by deleting the entry, never by editing it.
type Payment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID `gorm:"column:invoice_id;not null;index" json:"invoice_id"`
	Amount    int64        `gorm:"not null" json:"amount"`
	Method    Method       `gorm:"not null" json:"method"`
	Note      string       `gorm:"column:note" json:"note,omitempty"`
	PaidAt    time.Time    `gorm:"column:paid_at;not null;index" json:"paid_at"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
