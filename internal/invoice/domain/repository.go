package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ledgerly/ledgerly/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	ClientID *snowflake.ID
	Status   string
	DueAfter *time.Time
	// OverdueAt restricts to unpaid or partially paid invoices due before the
	// given instant.
	OverdueAt *time.Time
	Cursor    *pagination.Cursor
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice, items []LineItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	// FindByIDForUpdate locks the invoice row for the duration of the
	// surrounding transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)
	UpdateLedgerFields(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAmount int64, status Status) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
	Count(ctx context.Context, db *gorm.DB, filter ListFilter) (int64, error)
}
