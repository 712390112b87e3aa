package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ledgerly/ledgerly/internal/authcontext"
	clientdomain "github.com/ledgerly/ledgerly/internal/client/domain"
	clientrepo "github.com/ledgerly/ledgerly/internal/client/repository"
	"github.com/ledgerly/ledgerly/internal/invoice/domain"
	"github.com/ledgerly/ledgerly/internal/invoice/repository"
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
	svc  domain.Service
	repo domain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&clientdomain.Client{},
		&domain.Invoice{},
		&domain.LineItem{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.Provide()
	svc := New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repo,
		ClientRepo: clientrepo.Provide(),
	})

	return &fixture{db: conn, node: node, svc: svc, repo: repo}
}

func (f *fixture) createClient(t *testing.T, name string) clientdomain.Client {
	t.Helper()

	now := time.Now().UTC()
	client := clientdomain.Client{
		ID:        f.node.Generate(),
		Name:      name,
		Slug:      "slug-" + f.node.Generate().String(),
		Contact:   "billing@example.com",
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&client).Error)
	return client
}

func (f *fixture) createRequest(client clientdomain.Client) domain.CreateInvoiceRequest {
	return domain.CreateInvoiceRequest{
		ClientID:  client.ID.String(),
		InvoiceNo: "INV-" + f.node.Generate().String(),
		DueDate:   time.Now().UTC().AddDate(0, 0, 14),
		LineItems: []domain.LineItemInput{
			{Description: "Design work", Quantity: 10, UnitPrice: 15000},
			{Description: "Hosting", Quantity: 1, UnitPrice: 2500},
		},
	}
}

func TestCreateComputesTotalFromLineItems(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	view, err := f.svc.Create(context.Background(), f.createRequest(client))
	require.NoError(t, err)

	assert.Equal(t, int64(152500), view.Total)
	assert.Equal(t, int64(0), view.PaidAmount)
	assert.Equal(t, domain.StatusUnpaid, view.Status)
	assert.Equal(t, "USD", view.Currency)
	assert.NotEmpty(t, view.InvoiceNo)
	assert.Equal(t, int64(152500), view.Balance)
	require.Len(t, view.LineItems, 2)
	assert.Equal(t, int64(150000), view.LineItems[0].Amount)
}

func TestCreateRejectsUnknownClient(t *testing.T) {
	f := newFixture(t)

	req := domain.CreateInvoiceRequest{
		ClientID:  f.node.Generate().String(),
		DueDate:   time.Now().UTC().AddDate(0, 0, 7),
		LineItems: []domain.LineItemInput{{Description: "Work", Quantity: 1, UnitPrice: 100}},
	}
	_, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidClient)
}

func TestCreateRejectsBadLineItems(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	cases := []domain.LineItemInput{
		{Description: "", Quantity: 1, UnitPrice: 100},
		{Description: "Work", Quantity: 0, UnitPrice: 100},
		{Description: "Work", Quantity: -2, UnitPrice: 100},
		{Description: "Work", Quantity: 1, UnitPrice: -1},
	}
	for _, item := range cases {
		req := f.createRequest(client)
		req.LineItems = []domain.LineItemInput{item}
		_, err := f.svc.Create(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrInvalidLineItems)
	}

	req := f.createRequest(client)
	req.LineItems = nil
	_, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidLineItems)
}

func TestCreateRequiresDueDate(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	req := f.createRequest(client)
	req.DueDate = time.Time{}
	_, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidDueDate)
}

func TestCreateRejectsDuplicateInvoiceNo(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	req := f.createRequest(client)
	req.InvoiceNo = "INV-2026-0001"
	_, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrDuplicateInvoiceNo)
}

func TestCreateRecurringSetsNextDueDate(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	req := f.createRequest(client)
	req.IsRecurring = true
	req.RecurringPeriod = "monthly"
	view, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, view.NextDueDate)
	assert.Equal(t, req.DueDate.UTC().AddDate(0, 1, 0), *view.NextDueDate)

	req = f.createRequest(client)
	req.IsRecurring = true
	req.RecurringPeriod = "fortnightly"
	_, err = f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidRecurringPeriod)
}

func TestDisplayStatusMarksOverdue(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	req := f.createRequest(client)
	req.DueDate = time.Now().UTC().AddDate(0, 0, -3)
	view, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	// The stored status stays unpaid; only the display label changes.
	assert.Equal(t, domain.StatusUnpaid, view.Status)
	assert.Equal(t, domain.DisplayStatusOverdue, view.DisplayStatus)

	got, err := f.svc.GetByID(context.Background(), domain.GetInvoiceRequest{ID: view.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnpaid, got.Status)
	assert.Equal(t, domain.DisplayStatusOverdue, got.DisplayStatus)
}

func TestPaidInvoiceNeverReadsOverdue(t *testing.T) {
	invoice := domain.Invoice{
		Status:  domain.StatusPaid,
		DueDate: time.Now().UTC().AddDate(0, 0, -30),
	}
	assert.Equal(t, string(domain.StatusPaid), invoice.DisplayStatus(time.Now().UTC()))
}

func TestListOverdueFiltersByDueDateAndStatus(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	past := f.createRequest(client)
	past.DueDate = time.Now().UTC().AddDate(0, 0, -5)
	overdue, err := f.svc.Create(context.Background(), past)
	require.NoError(t, err)

	future := f.createRequest(client)
	_, err = f.svc.Create(context.Background(), future)
	require.NoError(t, err)

	paidPast := f.createRequest(client)
	paidPast.DueDate = time.Now().UTC().AddDate(0, 0, -5)
	settled, err := f.svc.Create(context.Background(), paidPast)
	require.NoError(t, err)
	_, err = f.svc.OverrideStatus(context.Background(), domain.OverrideStatusRequest{
		ID:     settled.ID.String(),
		Status: string(domain.StatusPaid),
	})
	require.NoError(t, err)

	resp, err := f.svc.ListOverdue(context.Background(), domain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Invoices, 1)
	assert.Equal(t, overdue.ID, resp.Invoices[0].ID)
	assert.Equal(t, domain.DisplayStatusOverdue, resp.Invoices[0].DisplayStatus)
}

func TestListScopesClientCallers(t *testing.T) {
	f := newFixture(t)
	mine := f.createClient(t, "Mine")
	other := f.createClient(t, "Other")

	_, err := f.svc.Create(context.Background(), f.createRequest(mine))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), f.createRequest(other))
	require.NoError(t, err)

	myID := mine.ID
	ctx := authcontext.WithCaller(context.Background(), authcontext.Caller{
		UserID:   f.node.Generate(),
		Role:     authcontext.RoleClient,
		ClientID: &myID,
	})

	resp, err := f.svc.List(ctx, domain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Invoices, 1)
	assert.Equal(t, mine.ID, resp.Invoices[0].ClientID)

	// A filter for someone else's records is overridden, not honored.
	resp, err = f.svc.List(ctx, domain.ListInvoiceRequest{ClientID: other.ID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Invoices, 1)
	assert.Equal(t, mine.ID, resp.Invoices[0].ClientID)
}

func TestListReturnsNothingForUnlinkedClientUser(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")
	_, err := f.svc.Create(context.Background(), f.createRequest(client))
	require.NoError(t, err)

	ctx := authcontext.WithCaller(context.Background(), authcontext.Caller{
		UserID: f.node.Generate(),
		Role:   authcontext.RoleClient,
	})
	resp, err := f.svc.List(ctx, domain.ListInvoiceRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Invoices)
}

func TestGetByIDDeniesCrossClientAccess(t *testing.T) {
	f := newFixture(t)
	mine := f.createClient(t, "Mine")
	other := f.createClient(t, "Other")

	view, err := f.svc.Create(context.Background(), f.createRequest(other))
	require.NoError(t, err)

	myID := mine.ID
	ctx := authcontext.WithCaller(context.Background(), authcontext.Caller{
		UserID:   f.node.Generate(),
		Role:     authcontext.RoleClient,
		ClientID: &myID,
	})
	_, err = f.svc.GetByID(ctx, domain.GetInvoiceRequest{ID: view.ID.String()})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestOverrideStatusValidatesInput(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")
	view, err := f.svc.Create(context.Background(), f.createRequest(client))
	require.NoError(t, err)

	_, err = f.svc.OverrideStatus(context.Background(), domain.OverrideStatusRequest{
		ID:     view.ID.String(),
		Status: "overdue",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	updated, err := f.svc.OverrideStatus(context.Background(), domain.OverrideStatusRequest{
		ID:     view.ID.String(),
		Status: string(domain.StatusPaid),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, updated.Status)
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	client := f.createClient(t, "Acme")

	base := time.Now().UTC().AddDate(0, 0, -10)
	for i := 0; i < 5; i++ {
		invoice := domain.Invoice{
			ID:        f.node.Generate(),
			InvoiceNo: "INV-PG-" + f.node.Generate().String(),
			ClientID:  client.ID,
			IssueDate: base,
			DueDate:   base.AddDate(0, 0, 30),
			Currency:  "USD",
			Total:     1000,
			Status:    domain.StatusUnpaid,
			Metadata:  datatypes.JSONMap{},
			CreatedAt: base.AddDate(0, 0, i),
			UpdatedAt: base,
		}
		require.NoError(t, f.repo.Insert(context.Background(), f.db, &invoice, nil))
	}

	req := domain.ListInvoiceRequest{}
	req.PageSize = 2
	first, err := f.svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.Invoices, 2)
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	req.PageToken = first.NextPageToken
	second, err := f.svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, second.Invoices, 2)
	assert.NotEqual(t, first.Invoices[0].ID, second.Invoices[0].ID)

	req.PageToken = "!!!not-a-token"
	_, err = f.svc.List(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
