package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ledgerly/ledgerly/internal/authcontext"
	clientdomain "github.com/ledgerly/ledgerly/internal/client/domain"
	currencydomain "github.com/ledgerly/ledgerly/internal/currency/domain"
	"github.com/ledgerly/ledgerly/internal/invoice/domain"
	pkgdb "github.com/ledgerly/ledgerly/pkg/db"
	"github.com/ledgerly/ledgerly/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	ClientRepo  clientdomain.Repository
	CurrencySvc currencydomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	clientRepo  clientdomain.Repository
	currencySvc currencydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		clientRepo:  p.ClientRepo,
		currencySvc: p.CurrencySvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.InvoiceView, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return domain.InvoiceView{}, domain.ErrInvalidClient
	}
	client, err := s.clientRepo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return domain.InvoiceView{}, err
	}
	if client == nil {
		return domain.InvoiceView{}, domain.ErrInvalidClient
	}

	if req.DueDate.IsZero() {
		return domain.InvoiceView{}, domain.ErrInvalidDueDate
	}
	if len(req.LineItems) == 0 {
		return domain.InvoiceView{}, domain.ErrInvalidLineItems
	}

	now := time.Now().UTC()
	issueDate := now
	if req.IssueDate != nil && !req.IssueDate.IsZero() {
		issueDate = req.IssueDate.UTC()
	}

	invoiceID := s.genID.Generate()
	var total int64
	items := make([]domain.LineItem, 0, len(req.LineItems))
	for _, input := range req.LineItems {
		description := strings.TrimSpace(input.Description)
		if description == "" || input.Quantity <= 0 || input.UnitPrice < 0 {
			return domain.InvoiceView{}, domain.ErrInvalidLineItems
		}
		amount := input.Quantity * input.UnitPrice
		total += amount
		items = append(items, domain.LineItem{
			ID:          s.genID.Generate(),
			InvoiceID:   invoiceID,
			Description: description,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			Amount:      amount,
			CreatedAt:   now,
		})
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	invoiceNo := strings.TrimSpace(req.InvoiceNo)
	if invoiceNo == "" {
		invoiceNo = fmt.Sprintf("INV-%d", now.UnixMilli())
	}

	invoice := domain.Invoice{
		ID:         invoiceID,
		InvoiceNo:  invoiceNo,
		ClientID:   clientID,
		IssueDate:  issueDate,
		DueDate:    req.DueDate.UTC(),
		Currency:   currency,
		Total:      total,
		PaidAmount: 0,
		Status:     domain.StatusUnpaid,
		Notes:      strings.TrimSpace(req.Notes),
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if s.currencySvc != nil && currency != "USD" {
		if rate, err := s.currencySvc.Rate(ctx, "USD", currency); err == nil {
			invoice.ExchangeRate = &rate
		}
	}

	if req.IsRecurring {
		period := domain.RecurringPeriod(strings.ToLower(strings.TrimSpace(req.RecurringPeriod)))
		if !domain.ValidRecurringPeriod(string(period)) {
			return domain.InvoiceView{}, domain.ErrInvalidRecurringPeriod
		}
		next := nextDueDate(invoice.DueDate, period)
		invoice.IsRecurring = true
		invoice.RecurringPeriod = &period
		invoice.NextDueDate = &next
		if req.RecurringEnd != nil {
			end := req.RecurringEnd.UTC()
			invoice.RecurringEnd = &end
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &invoice, items)
	})
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.InvoiceView{}, domain.ErrDuplicateInvoiceNo
		}
		return domain.InvoiceView{}, err
	}

	invoice.Client = client
	invoice.LineItems = items

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_no", invoice.InvoiceNo),
		zap.Int64("total", invoice.Total),
	)
	return s.view(invoice), nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	return s.list(ctx, req, nil)
}

func (s *Service) ListOverdue(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	now := time.Now().UTC()
	return s.list(ctx, req, &now)
}

func (s *Service) list(ctx context.Context, req domain.ListInvoiceRequest, overdueAt *time.Time) (domain.ListInvoiceResponse, error) {
	filter := domain.ListFilter{OverdueAt: overdueAt}

	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidClient
		}
		filter.ClientID = &id
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !domain.ValidStatus(status) {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	// Client callers are pinned to their own client id regardless of filters.
	if caller, ok := authcontext.CallerFromContext(ctx); ok && !caller.IsAdmin() {
		if caller.ClientID == nil {
			return domain.ListInvoiceResponse{Invoices: []domain.InvoiceView{}}, nil
		}
		filter.ClientID = caller.ClientID
	}

	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidPageToken
		}
		filter.Cursor = decoded
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}
	filter.Limit = pageSize

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(invoice *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        invoice.ID.String(),
			CreatedAt: invoice.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	views := make([]domain.InvoiceView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, s.view(*item))
	}

	resp := domain.ListInvoiceResponse{Invoices: views}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetInvoiceRequest) (domain.InvoiceView, error) {
	invoice, err := s.load(ctx, req.ID)
	if err != nil {
		return domain.InvoiceView{}, err
	}
	return s.view(*invoice), nil
}

func (s *Service) OverrideStatus(ctx context.Context, req domain.OverrideStatusRequest) (domain.InvoiceView, error) {
	status := strings.TrimSpace(req.Status)
	if !domain.ValidStatus(status) {
		return domain.InvoiceView{}, domain.ErrInvalidStatus
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.InvoiceView{}, err
	}

	if err := s.repo.UpdateStatus(ctx, s.db, id, domain.Status(status)); err != nil {
		return domain.InvoiceView{}, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.InvoiceView{}, err
	}
	if invoice == nil {
		return domain.InvoiceView{}, domain.ErrNotFound
	}

	s.log.Info("invoice status overridden",
		zap.String("invoice_id", id.String()),
		zap.String("status", status),
	)
	return s.view(*invoice), nil
}

// load fetches an invoice and applies the caller's visibility predicate.
func (s *Service) load(ctx context.Context, rawID string) (*domain.Invoice, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}

	if caller, ok := authcontext.CallerFromContext(ctx); ok && !caller.CanViewClient(invoice.ClientID) {
		return nil, domain.ErrForbidden
	}
	return invoice, nil
}

func (s *Service) view(invoice domain.Invoice) domain.InvoiceView {
	return domain.InvoiceView{
		Invoice:       invoice,
		DisplayStatus: invoice.DisplayStatus(time.Now().UTC()),
		Balance:       invoice.Balance(),
	}
}

func nextDueDate(due time.Time, period domain.RecurringPeriod) time.Time {
	switch period {
	case domain.RecurringWeekly:
		return due.AddDate(0, 0, 7)
	case domain.RecurringMonthly:
		return due.AddDate(0, 1, 0)
	case domain.RecurringQuarterly:
		return due.AddDate(0, 3, 0)
	case domain.RecurringYearly:
		return due.AddDate(1, 0, 0)
	default:
		return due
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
