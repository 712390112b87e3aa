package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/ledgerly/ledgerly/internal/client/domain"
	invoicedomain "github.com/ledgerly/ledgerly/internal/invoice/domain"
	invoicerepo "github.com/ledgerly/ledgerly/internal/invoice/repository"
	"github.com/ledgerly/ledgerly/internal/payment/domain"
	"github.com/ledgerly/ledgerly/internal/payment/repository"
	"github.com/ledgerly/ledgerly/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     domain.Service
	invRepo invoicedomain.Repository
	payRepo domain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&clientdomain.Client{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&domain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	invRepo := invoicerepo.Provide()
	payRepo := repository.Provide()
	svc := New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        payRepo,
		InvoiceRepo: invRepo,
	})

	return &fixture{db: conn, node: node, svc: svc, invRepo: invRepo, payRepo: payRepo}
}

func (f *fixture) createInvoice(t *testing.T, total int64) invoicedomain.Invoice {
	t.Helper()

	now := time.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:        f.node.Generate(),
		InvoiceNo: "INV-" + f.node.Generate().String(),
		ClientID:  f.node.Generate(),
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, 30),
		Currency:  "USD",
		Total:     total,
		Status:    invoicedomain.StatusUnpaid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.invRepo.Insert(context.Background(), f.db, &invoice, nil))
	return invoice
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) invoicedomain.Invoice {
	t.Helper()
	invoice, err := f.invRepo.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, invoice)
	return *invoice
}

func (f *fixture) assertLedgerConsistent(t *testing.T, invoiceID snowflake.ID) {
	t.Helper()
	sum, err := f.payRepo.SumByInvoice(context.Background(), f.db, invoiceID)
	require.NoError(t, err)
	invoice := f.reload(t, invoiceID)
	assert.Equal(t, sum, invoice.PaidAmount, "stored paid amount must equal the sum of payment rows")
	assert.Equal(t, invoicedomain.DeriveStatus(sum, invoice.Total), invoice.Status)
}

func TestRecordPartialThenFull(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 100000)

	resp, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    60000,
		Method:    "card",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60000), resp.Invoice.PaidAmount)
	assert.Equal(t, invoicedomain.StatusPartiallyPaid, resp.Invoice.Status)
	f.assertLedgerConsistent(t, invoice.ID)

	resp, err = f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    40000,
		Method:    "cash",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), resp.Invoice.PaidAmount)
	assert.Equal(t, invoicedomain.StatusPaid, resp.Invoice.Status)
	f.assertLedgerConsistent(t, invoice.ID)
}

func TestRecordRejectsBalanceExceeded(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 100000)

	_, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    100000,
		Method:    "card",
	})
	require.NoError(t, err)

	// One extra cent over the total is rejected without any state change.
	_, err = f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    1,
		Method:    "cash",
	})
	require.ErrorIs(t, err, domain.ErrBalanceExceeded)

	reloaded := f.reload(t, invoice.ID)
	assert.Equal(t, int64(100000), reloaded.PaidAmount)
	assert.Equal(t, invoicedomain.StatusPaid, reloaded.Status)

	list, err := f.svc.ListByInvoice(context.Background(), domain.ListByInvoiceRequest{InvoiceID: invoice.ID.String()})
	require.NoError(t, err)
	assert.Len(t, list.Payments, 1)
}

func TestRecordRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 50000)

	for _, amount := range []int64{0, -500} {
		_, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
			InvoiceID: invoice.ID.String(),
			Amount:    amount,
			Method:    "cash",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
	f.assertLedgerConsistent(t, invoice.ID)
}

func TestRecordRejectsUnknownMethod(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 50000)

	_, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    100,
		Method:    "barter",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)
}

func TestRecordUnknownInvoice(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: f.node.Generate().String(),
		Amount:    100,
		Method:    "cash",
	})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestDeleteRestoresPartiallyPaid(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 100000)

	first, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    60000,
		Method:    "card",
	})
	require.NoError(t, err)
	_, err = f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    40000,
		Method:    "cash",
	})
	require.NoError(t, err)

	view, err := f.svc.Delete(context.Background(), domain.DeletePaymentRequest{ID: first.Payment.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(40000), view.PaidAmount)
	assert.Equal(t, invoicedomain.StatusPartiallyPaid, view.Status)
	f.assertLedgerConsistent(t, invoice.ID)
}

func TestDeleteLastPaymentReturnsUnpaid(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 50000)

	resp, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    50000,
		Method:    "bank_transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPaid, resp.Invoice.Status)

	view, err := f.svc.Delete(context.Background(), domain.DeletePaymentRequest{ID: resp.Payment.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.PaidAmount)
	assert.Equal(t, invoicedomain.StatusUnpaid, view.Status)
	f.assertLedgerConsistent(t, invoice.ID)
}

func TestDeleteNeverIncreasesPaidAmount(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 90000)

	var ids []string
	for _, amount := range []int64{10000, 20000, 30000} {
		resp, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
			InvoiceID: invoice.ID.String(),
			Amount:    amount,
			Method:    "cash",
		})
		require.NoError(t, err)
		ids = append(ids, resp.Payment.ID.String())
	}

	before := f.reload(t, invoice.ID).PaidAmount
	for _, id := range ids {
		view, err := f.svc.Delete(context.Background(), domain.DeletePaymentRequest{ID: id})
		require.NoError(t, err)
		assert.LessOrEqual(t, view.PaidAmount, before)
		before = view.PaidAmount
		f.assertLedgerConsistent(t, invoice.ID)
	}
	assert.Equal(t, int64(0), before)
}

func TestDeleteUnknownPayment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Delete(context.Background(), domain.DeletePaymentRequest{ID: f.node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByInvoiceOrdersByPaidAtDescending(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 100000)

	now := time.Now().UTC()
	for i, amount := range []int64{100, 200, 300} {
		payment := domain.Payment{
			ID:        f.node.Generate(),
			InvoiceID: invoice.ID,
			Amount:    amount,
			Method:    domain.MethodCash,
			PaidAt:    now.Add(time.Duration(i) * time.Hour),
			CreatedAt: now,
		}
		require.NoError(t, f.payRepo.Insert(context.Background(), f.db, &payment))
	}

	list, err := f.svc.ListByInvoice(context.Background(), domain.ListByInvoiceRequest{InvoiceID: invoice.ID.String()})
	require.NoError(t, err)
	require.Len(t, list.Payments, 3)
	assert.Equal(t, int64(300), list.Payments[0].Amount)
	assert.Equal(t, int64(100), list.Payments[2].Amount)
}

func TestRecomputeRepairsDrift(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 100000)

	_, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    25000,
		Method:    "card",
	})
	require.NoError(t, err)

	// Corrupt the stored ledger fields behind the reconciler's back.
	require.NoError(t, f.db.Exec(
		`UPDATE invoices SET paid_amount = ?, status = ? WHERE id = ?`,
		99999, invoicedomain.StatusPaid, invoice.ID,
	).Error)

	view, err := f.svc.Recompute(context.Background(), domain.RecomputeRequest{InvoiceID: invoice.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(25000), view.PaidAmount)
	assert.Equal(t, invoicedomain.StatusPartiallyPaid, view.Status)
	f.assertLedgerConsistent(t, invoice.ID)
}

func TestRecomputeIdempotent(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 40000)

	_, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    15000,
		Method:    "check",
	})
	require.NoError(t, err)

	first, err := f.svc.Recompute(context.Background(), domain.RecomputeRequest{InvoiceID: invoice.ID.String()})
	require.NoError(t, err)
	second, err := f.svc.Recompute(context.Background(), domain.RecomputeRequest{InvoiceID: invoice.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, first.PaidAmount, second.PaidAmount)
	assert.Equal(t, first.Status, second.Status)
}

func TestStatusDerivation(t *testing.T) {
	cases := []struct {
		paid, total int64
		want        invoicedomain.Status
	}{
		{0, 1000, invoicedomain.StatusUnpaid},
		{-5, 1000, invoicedomain.StatusUnpaid},
		{1, 1000, invoicedomain.StatusPartiallyPaid},
		{999, 1000, invoicedomain.StatusPartiallyPaid},
		{1000, 1000, invoicedomain.StatusPaid},
		{1500, 1000, invoicedomain.StatusPaid},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, invoicedomain.DeriveStatus(tc.paid, tc.total))
	}
}

func TestBalanceExceededRollsBackPaymentRow(t *testing.T) {
	f := newFixture(t)
	invoice := f.createInvoice(t, 1000)

	_, err := f.svc.Record(context.Background(), domain.RecordPaymentRequest{
		InvoiceID: invoice.ID.String(),
		Amount:    2000,
		Method:    "cash",
	})
	require.True(t, errors.Is(err, domain.ErrBalanceExceeded))

	sum, err := f.payRepo.SumByInvoice(context.Background(), f.db, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}
