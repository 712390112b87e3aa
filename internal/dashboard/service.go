// Package dashboard aggregates ledger figures for the overview screens.
package dashboard

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/ledgerly/ledgerly/internal/authcontext"
	invoicedomain "github.com/ledgerly/ledgerly/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stats is the headline figure block. Amounts are minor units.
type Stats struct {
	TotalClients    int64 `json:"total_clients"`
	TotalInvoices   int64 `json:"total_invoices"`
	UnpaidInvoices  int64 `json:"unpaid_invoices"`
	OverdueInvoices int64 `json:"overdue_invoices"`

	OutstandingAmount int64 `json:"outstanding_amount"`

	MonthlyRevenue  int64   `json:"monthly_revenue"`
	PreviousRevenue int64   `json:"previous_revenue"`
	GrowthRate      float64 `json:"growth_rate"`
}

// Activity is one recent ledger event.
type Activity struct {
	Type      string    `json:"type"`
	InvoiceID string    `json:"invoice_id"`
	InvoiceNo string    `json:"invoice_no"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status,omitempty"`
	At        time.Time `json:"at"`
}

type Service interface {
	Stats(ctx context.Context) (Stats, error)
	RecentActivity(ctx context.Context, limit int) ([]Activity, error)
}

type service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) Service {
	return &service{
		db:  db,
		log: log.Named("dashboard.service"),
	}
}

// clientScope narrows queries to the caller's client when the caller is not
// an admin. Unlinked client users see an empty dashboard.
func clientScope(ctx context.Context) (scoped bool, clientID int64, empty bool) {
	caller, ok := authcontext.CallerFromContext(ctx)
	if !ok || caller.IsAdmin() {
		return false, 0, false
	}
	if caller.ClientID == nil {
		return true, 0, true
	}
	return true, int64(*caller.ClientID), false
}

func (s *service) Stats(ctx context.Context) (Stats, error) {
	scoped, clientID, empty := clientScope(ctx)
	if empty {
		return Stats{}, nil
	}

	var stats Stats
	conn := s.db.WithContext(ctx)
	now := time.Now().UTC()

	clientCount := conn.Table("clients")
	invoiceBase := func() *gorm.DB {
		stmt := conn.Table("invoices")
		if scoped {
			stmt = stmt.Where("client_id = ?", clientID)
		}
		return stmt
	}
	if scoped {
		clientCount = clientCount.Where("id = ?", clientID)
	}

	if err := clientCount.Count(&stats.TotalClients).Error; err != nil {
		return Stats{}, err
	}
	if err := invoiceBase().Count(&stats.TotalInvoices).Error; err != nil {
		return Stats{}, err
	}
	if err := invoiceBase().Where("status = ?", invoicedomain.StatusUnpaid).Count(&stats.UnpaidInvoices).Error; err != nil {
		return Stats{}, err
	}
	if err := invoiceBase().
		Where("status IN ? AND due_date < ?",
			[]invoicedomain.Status{invoicedomain.StatusUnpaid, invoicedomain.StatusPartiallyPaid}, now).
		Count(&stats.OverdueInvoices).Error; err != nil {
		return Stats{}, err
	}

	var outstanding struct {
		Total int64 `gorm:"column:total"`
	}
	if err := invoiceBase().
		Select("COALESCE(SUM(total - paid_amount), 0) AS total").
		Where("status != ?", invoicedomain.StatusPaid).
		Scan(&outstanding).Error; err != nil {
		return Stats{}, err
	}
	stats.OutstandingAmount = outstanding.Total

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	previousStart := monthStart.AddDate(0, -1, 0)

	current, err := s.revenueBetween(ctx, scoped, clientID, monthStart, now)
	if err != nil {
		return Stats{}, err
	}
	previous, err := s.revenueBetween(ctx, scoped, clientID, previousStart, monthStart)
	if err != nil {
		return Stats{}, err
	}

	stats.MonthlyRevenue = current
	stats.PreviousRevenue = previous
	if previous > 0 {
		stats.GrowthRate = (float64(current) - float64(previous)) / float64(previous) * 100
	} else if current > 0 {
		stats.GrowthRate = 100
	}

	return stats, nil
}

func (s *service) revenueBetween(ctx context.Context, scoped bool, clientID int64, from, to time.Time) (int64, error) {
	var row struct {
		Total int64 `gorm:"column:total"`
	}
	stmt := s.db.WithContext(ctx).
		Table("payments").
		Select("COALESCE(SUM(payments.amount), 0) AS total").
		Where("payments.paid_at >= ? AND payments.paid_at < ?", from, to)
	if scoped {
		stmt = stmt.
			Joins("JOIN invoices ON invoices.id = payments.invoice_id").
			Where("invoices.client_id = ?", clientID)
	}
	if err := stmt.Scan(&row).Error; err != nil {
		return 0, err
	}
	return row.Total, nil
}

func (s *service) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	scoped, clientID, empty := clientScope(ctx)
	if empty {
		return []Activity{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	conn := s.db.WithContext(ctx)

	var invoices []invoicedomain.Invoice
	stmt := conn.Model(&invoicedomain.Invoice{}).Order("created_at desc").Limit(limit)
	if scoped {
		stmt = stmt.Where("client_id = ?", clientID)
	}
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}

	type paymentRow struct {
		InvoiceID int64     `gorm:"column:invoice_id"`
		InvoiceNo string    `gorm:"column:invoice_no"`
		Amount    int64     `gorm:"column:amount"`
		PaidAt    time.Time `gorm:"column:paid_at"`
	}
	var payments []paymentRow
	payStmt := conn.Table("payments").
		Select("payments.invoice_id, invoices.invoice_no, payments.amount, payments.paid_at").
		Joins("JOIN invoices ON invoices.id = payments.invoice_id").
		Order("payments.paid_at desc").
		Limit(limit)
	if scoped {
		payStmt = payStmt.Where("invoices.client_id = ?", clientID)
	}
	if err := payStmt.Scan(&payments).Error; err != nil {
		return nil, err
	}

	activity := make([]Activity, 0, len(invoices)+len(payments))
	for _, invoice := range invoices {
		activity = append(activity, Activity{
			Type:      "invoice_created",
			InvoiceID: invoice.ID.String(),
			InvoiceNo: invoice.InvoiceNo,
			Amount:    invoice.Total,
			Status:    invoice.DisplayStatus(time.Now().UTC()),
			At:        invoice.CreatedAt,
		})
	}
	for _, payment := range payments {
		activity = append(activity, Activity{
			Type:      "payment_received",
			InvoiceID: strconv.FormatInt(payment.InvoiceID, 10),
			InvoiceNo: payment.InvoiceNo,
			Amount:    payment.Amount,
			At:        payment.PaidAt,
		})
	}

	sort.Slice(activity, func(i, j int) bool {
		return activity[i].At.After(activity[j].At)
	})
	if len(activity) > limit {
		activity = activity[:limit]
	}
	return activity, nil
}
