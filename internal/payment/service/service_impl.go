// Package service implements the payment ledger reconciler. Every mutation
// re-derives the invoice's paid amount and status from the payment rows and
// persists both inside a single transaction.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ledgerly/ledgerly/internal/authcontext"
	invoicedomain "github.com/ledgerly/ledgerly/internal/invoice/domain"
	"github.com/ledgerly/ledgerly/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	InvoiceRepo invoicedomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	invoiceRepo invoicedomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordPaymentRequest) (domain.RecordPaymentResponse, error) {
	invoiceID, err := parseID(req.InvoiceID, domain.ErrInvalidInvoice)
	if err != nil {
		return domain.RecordPaymentResponse{}, err
	}
	if req.Amount <= 0 {
		return domain.RecordPaymentResponse{}, domain.ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if !domain.ValidMethod(method) {
		return domain.RecordPaymentResponse{}, domain.ErrInvalidMethod
	}

	var (
		payment domain.Payment
		invoice *invoicedomain.Invoice
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.invoiceRepo.FindByIDForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrInvoiceNotFound
		}

		// The stored paid amount may have drifted; the sum of the rows is
		// the source of truth.
		currentPaid, err := s.repo.SumByInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if currentPaid+req.Amount > locked.Total {
			return domain.ErrBalanceExceeded
		}

		now := time.Now().UTC()
		payment = domain.Payment{
			ID:        s.genID.Generate(),
			InvoiceID: invoiceID,
			Amount:    req.Amount,
			Method:    domain.Method(method),
			Note:      strings.TrimSpace(req.Note),
			PaidAt:    now,
			CreatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, &payment); err != nil {
			return err
		}

		newPaid := currentPaid + req.Amount
		status := invoicedomain.DeriveStatus(newPaid, locked.Total)
		if err := s.invoiceRepo.UpdateLedgerFields(ctx, tx, invoiceID, newPaid, status); err != nil {
			return err
		}

		locked.PaidAmount = newPaid
		locked.Status = status
		invoice = locked
		return nil
	})
	if err != nil {
		return domain.RecordPaymentResponse{}, err
	}

	s.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.Int64("amount", payment.Amount),
		zap.String("status", string(invoice.Status)),
	)

	return domain.RecordPaymentResponse{
		Payment: payment,
		Invoice: view(*invoice),
	}, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeletePaymentRequest) (invoicedomain.InvoiceView, error) {
	paymentID, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return invoicedomain.InvoiceView{}, err
	}

	var invoice *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}

		locked, err := s.invoiceRepo.FindByIDForUpdate(ctx, tx, payment.InvoiceID)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrInvoiceNotFound
		}

		if err := s.repo.Delete(ctx, tx, paymentID); err != nil {
			return err
		}

		remaining, err := s.repo.SumByInvoice(ctx, tx, payment.InvoiceID)
		if err != nil {
			return err
		}
		status := invoicedomain.DeriveStatus(remaining, locked.Total)
		if err := s.invoiceRepo.UpdateLedgerFields(ctx, tx, payment.InvoiceID, remaining, status); err != nil {
			return err
		}

		locked.PaidAmount = remaining
		locked.Status = status
		invoice = locked
		return nil
	})
	if err != nil {
		return invoicedomain.InvoiceView{}, err
	}

	s.log.Info("payment deleted",
		zap.String("payment_id", paymentID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int64("paid_amount", invoice.PaidAmount),
	)
	return view(*invoice), nil
}

func (s *Service) ListByInvoice(ctx context.Context, req domain.ListByInvoiceRequest) (domain.ListByInvoiceResponse, error) {
	invoiceID, err := parseID(req.InvoiceID, domain.ErrInvalidInvoice)
	if err != nil {
		return domain.ListByInvoiceResponse{}, err
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return domain.ListByInvoiceResponse{}, err
	}
	if invoice == nil {
		return domain.ListByInvoiceResponse{}, domain.ErrInvoiceNotFound
	}
	if caller, ok := authcontext.CallerFromContext(ctx); ok && !caller.CanViewClient(invoice.ClientID) {
		return domain.ListByInvoiceResponse{}, domain.ErrForbidden
	}

	items, err := s.repo.ListByInvoice(ctx, s.db, invoiceID)
	if err != nil {
		return domain.ListByInvoiceResponse{}, err
	}

	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}
	return domain.ListByInvoiceResponse{Payments: payments}, nil
}

func (s *Service) Recompute(ctx context.Context, req domain.RecomputeRequest) (invoicedomain.InvoiceView, error) {
	invoiceID, err := parseID(req.InvoiceID, domain.ErrInvalidInvoice)
	if err != nil {
		return invoicedomain.InvoiceView{}, err
	}

	var invoice *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.invoiceRepo.FindByIDForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if locked == nil {
			return domain.ErrInvoiceNotFound
		}

		paid, err := s.repo.SumByInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		status := invoicedomain.DeriveStatus(paid, locked.Total)
		if err := s.invoiceRepo.UpdateLedgerFields(ctx, tx, invoiceID, paid, status); err != nil {
			return err
		}

		locked.PaidAmount = paid
		locked.Status = status
		invoice = locked
		return nil
	})
	if err != nil {
		return invoicedomain.InvoiceView{}, err
	}

	s.log.Info("invoice ledger recomputed",
		zap.String("invoice_id", invoiceID.String()),
		zap.Int64("paid_amount", invoice.PaidAmount),
		zap.String("status", string(invoice.Status)),
	)
	return view(*invoice), nil
}

func view(invoice invoicedomain.Invoice) invoicedomain.InvoiceView {
	return invoicedomain.InvoiceView{
		Invoice:       invoice,
		DisplayStatus: invoice.DisplayStatus(time.Now().UTC()),
		Balance:       invoice.Balance(),
	}
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
