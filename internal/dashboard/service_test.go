package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ledgerly/ledgerly/internal/authcontext"
	clientdomain "github.com/ledgerly/ledgerly/internal/client/domain"
	invoicedomain "github.com/ledgerly/ledgerly/internal/invoice/domain"
	paymentdomain "github.com/ledgerly/ledgerly/internal/payment/domain"
	"github.com/ledgerly/ledgerly/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&clientdomain.Client{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &fixture{db: conn, node: node, svc: NewService(conn, zap.NewNop())}
}

func (f *fixture) createClient(t *testing.T, name string) clientdomain.Client {
	t.Helper()
	now := time.Now().UTC()
	client := clientdomain.Client{
		ID:        f.node.Generate(),
		Name:      name,
		Slug:      "slug-" + f.node.Generate().String(),
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&client).Error)
	return client
}

func (f *fixture) createInvoice(t *testing.T, clientID snowflake.ID, total, paid int64, status invoicedomain.Status, due time.Time) invoicedomain.Invoice {
	t.Helper()
	now := time.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:         f.node.Generate(),
		InvoiceNo:  "INV-" + f.node.Generate().String(),
		ClientID:   clientID,
		IssueDate:  now.AddDate(0, 0, -30),
		DueDate:    due,
		Currency:   "USD",
		Total:      total,
		PaidAmount: paid,
		Status:     status,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.db.Create(&invoice).Error)
	return invoice
}

func (f *fixture) createPayment(t *testing.T, invoiceID snowflake.ID, amount int64, paidAt time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&paymentdomain.Payment{
		ID:        f.node.Generate(),
		InvoiceID: invoiceID,
		Amount:    amount,
		Method:    paymentdomain.MethodCash,
		PaidAt:    paidAt,
		CreatedAt: time.Now().UTC(),
	}).Error)
}

func TestStatsCountsAndOutstanding(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	now := time.Now().UTC()
	f.createInvoice(t, client.ID, 100000, 0, invoicedomain.StatusUnpaid, now.AddDate(0, 0, 10))
	overdue := f.createInvoice(t, client.ID, 50000, 20000, invoicedomain.StatusPartiallyPaid, now.AddDate(0, 0, -5))
	f.createInvoice(t, client.ID, 30000, 30000, invoicedomain.StatusPaid, now.AddDate(0, 0, -5))

	f.createPayment(t, overdue.ID, 20000, now.Add(-time.Minute))

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.TotalClients)
	assert.Equal(t, int64(3), stats.TotalInvoices)
	assert.Equal(t, int64(1), stats.UnpaidInvoices)
	assert.Equal(t, int64(1), stats.OverdueInvoices)
	assert.Equal(t, int64(130000), stats.OutstandingAmount)
	// A payment minutes old lands in the current month except right at the
	// month boundary, where it counts as previous revenue instead.
	assert.Equal(t, int64(20000), stats.MonthlyRevenue+stats.PreviousRevenue)
}

func TestStatsScopedToClientCaller(t *testing.T) {
	f := newFixture(t)
	mine := f.createClient(t, "Mine")
	other := f.createClient(t, "Other")

	now := time.Now().UTC()
	f.createInvoice(t, mine.ID, 10000, 0, invoicedomain.StatusUnpaid, now.AddDate(0, 0, 5))
	f.createInvoice(t, other.ID, 99999, 0, invoicedomain.StatusUnpaid, now.AddDate(0, 0, 5))

	myID := mine.ID
	ctx := authcontext.WithCaller(context.Background(), authcontext.Caller{
		UserID:   f.node.Generate(),
		Role:     authcontext.RoleClient,
		ClientID: &myID,
	})

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalClients)
	assert.Equal(t, int64(1), stats.TotalInvoices)
	assert.Equal(t, int64(10000), stats.OutstandingAmount)
}

func TestStatsEmptyForUnlinkedClientUser(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")
	f.createInvoice(t, client.ID, 10000, 0, invoicedomain.StatusUnpaid, time.Now().UTC())

	ctx := authcontext.WithCaller(context.Background(), authcontext.Caller{
		UserID: f.node.Generate(),
		Role:   authcontext.RoleClient,
	})
	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestRecentActivityMergesInvoicesAndPayments(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	now := time.Now().UTC()
	invoice := f.createInvoice(t, client.ID, 40000, 15000, invoicedomain.StatusPartiallyPaid, now.AddDate(0, 0, 14))
	f.createPayment(t, invoice.ID, 15000, now.Add(time.Minute))

	activity, err := f.svc.RecentActivity(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, activity, 2)

	// The payment landed after the invoice was created, so it sorts first.
	assert.Equal(t, "payment_received", activity[0].Type)
	assert.Equal(t, int64(15000), activity[0].Amount)
	assert.Equal(t, "invoice_created", activity[1].Type)
	assert.Equal(t, invoice.InvoiceNo, activity[1].InvoiceNo)
}

func TestRecentActivityHonorsLimit(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		f.createInvoice(t, client.ID, 1000, 0, invoicedomain.StatusUnpaid, now.AddDate(0, 0, 7))
	}

	activity, err := f.svc.RecentActivity(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, activity, 3)
}
