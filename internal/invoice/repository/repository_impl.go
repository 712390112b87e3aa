package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ledgerly/ledgerly/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice, items []domain.LineItem) error {
	conn := db.WithContext(ctx)
	if err := conn.Omit("Client", "LineItems").Create(invoice).Error; err != nil {
		return err
	}
	if len(items) > 0 {
		if err := conn.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Preload("Client").
		Preload("LineItems").
		Where("id = ?", id).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	stmt := db.WithContext(ctx)
	// sqlite serializes writers on its own and rejects FOR UPDATE.
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var invoice domain.Invoice
	err := stmt.
		Where("id = ?", id).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := r.applyFilter(db.WithContext(ctx).Model(&domain.Invoice{}).Preload("Client"), filter)

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, filter domain.ListFilter) (int64, error) {
	var count int64
	stmt := r.applyFilter(db.WithContext(ctx).Model(&domain.Invoice{}), filter)
	err := stmt.Count(&count).Error
	return count, err
}

func (r *repo) applyFilter(stmt *gorm.DB, filter domain.ListFilter) *gorm.DB {
	if filter.ClientID != nil {
		stmt = stmt.Where("client_id = ?", *filter.ClientID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if filter.DueAfter != nil {
		stmt = stmt.Where("due_date >= ?", filter.DueAfter.UTC())
	}
	if filter.OverdueAt != nil {
		stmt = stmt.Where("status IN ? AND due_date < ?",
			[]domain.Status{domain.StatusUnpaid, domain.StatusPartiallyPaid},
			filter.OverdueAt.UTC(),
		)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}
	return stmt
}

func (r *repo) UpdateLedgerFields(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAmount int64, status domain.Status) error {
	tx := db.WithContext(ctx).Model(&domain.Invoice{}).Where("id = ?", id).Updates(map[string]any{
		"paid_amount": paidAmount,
		"status":      status,
		"updated_at":  time.Now().UTC(),
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) error {
	tx := db.WithContext(ctx).Model(&domain.Invoice{}).Where("id = ?", id).Updates(map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
