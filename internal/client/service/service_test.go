package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/ledgerly/ledgerly/internal/auth/domain"
	"github.com/ledgerly/ledgerly/internal/authcontext"
	"github.com/ledgerly/ledgerly/internal/client/domain"
	"github.com/ledgerly/ledgerly/internal/client/repository"
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
	svc  domain.Service
	repo domain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.Client{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&paymentdomain.Payment{},
		&authdomain.User{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.Provide()
	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repo,
	})

	return &fixture{db: conn, node: node, svc: svc, repo: repo}
}

func TestCreateSlugifiesName(t *testing.T) {
	f := newFixture(t)

	client, err := f.svc.Create(context.Background(), domain.CreateClientRequest{
		Name:    "  Blue Harbor Café  ",
		Contact: "owner@blueharbor.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "Blue Harbor Café", client.Name)
	assert.Equal(t, "blue-harbor-cafe", client.Slug)
	assert.NotZero(t, client.ID)
}

func TestCreateDisambiguatesSlugCollisions(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(context.Background(), domain.CreateClientRequest{Name: "Acme"})
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), domain.CreateClientRequest{Name: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, "acme", first.Slug)
	assert.Equal(t, "acme-2", second.Slug)
}

func TestCreateRejectsBlankName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateClientRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestUpdatePartialFields(t *testing.T) {
	f := newFixture(t)

	client, err := f.svc.Create(context.Background(), domain.CreateClientRequest{
		Name:    "Acme",
		Contact: "old@acme.example",
		Address: "1 Old Road",
	})
	require.NoError(t, err)

	contact := "new@acme.example"
	updated, err := f.svc.Update(context.Background(), domain.UpdateClientRequest{
		ID:      client.ID.String(),
		Contact: &contact,
	})
	require.NoError(t, err)
	assert.Equal(t, "new@acme.example", updated.Contact)
	assert.Equal(t, "Acme", updated.Name)
	assert.Equal(t, "1 Old Road", updated.Address)

	blank := " "
	_, err = f.svc.Update(context.Background(), domain.UpdateClientRequest{
		ID:   client.ID.String(),
		Name: &blank,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestUpdateUnknownClient(t *testing.T) {
	f := newFixture(t)

	name := "Ghost"
	_, err := f.svc.Update(context.Background(), domain.UpdateClientRequest{
		ID:   f.node.Generate().String(),
		Name: &name,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListScopesClientCallers(t *testing.T) {
	f := newFixture(t)

	mine, err := f.svc.Create(context.Background(), domain.CreateClientRequest{Name: "Mine"})
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), domain.CreateClientRequest{Name: "Other"})
	require.NoError(t, err)

	adminCtx := authcontext.WithCaller(context.Background(), authcontext.Caller{
		UserID: f.node.Generate(),
		Role:   authcontext.RoleAdmin,
	})
	resp, err := f.svc.List(adminCtx, domain.ListClientRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Clients, 2)

	myID := mine.ID
	clientCtx := authcontext.WithCaller(context.Background(), authcontext.Caller{
		UserID:   f.node.Generate(),
		Role:     authcontext.RoleClient,
		ClientID: &myID,
	})
	resp, err = f.svc.List(clientCtx, domain.ListClientRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Clients, 1)
	assert.Equal(t, mine.ID, resp.Clients[0].ID)

	unlinkedCtx := authcontext.WithCaller(context.Background(), authcontext.Caller{
		UserID: f.node.Generate(),
		Role:   authcontext.RoleClient,
	})
	resp, err = f.svc.List(unlinkedCtx, domain.ListClientRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Clients)
}

func TestGetByIDDeniesCrossClientAccess(t *testing.T) {
	f := newFixture(t)

	mine, err := f.svc.Create(context.Background(), domain.CreateClientRequest{Name: "Mine"})
	require.NoError(t, err)
	other, err := f.svc.Create(context.Background(), domain.CreateClientRequest{Name: "Other"})
	require.NoError(t, err)

	myID := mine.ID
	ctx := authcontext.WithCaller(context.Background(), authcontext.Caller{
		UserID:   f.node.Generate(),
		Role:     authcontext.RoleClient,
		ClientID: &myID,
	})

	got, err := f.svc.GetByID(ctx, domain.GetClientRequest{ID: mine.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = f.svc.GetByID(ctx, domain.GetClientRequest{ID: other.ID.String()})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDeleteCascadesInvoicesAndUnlinksUsers(t *testing.T) {
	f := newFixture(t)

	client, err := f.svc.Create(context.Background(), domain.CreateClientRequest{Name: "Acme"})
	require.NoError(t, err)

	now := time.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:        f.node.Generate(),
		InvoiceNo: "INV-" + f.node.Generate().String(),
		ClientID:  client.ID,
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, 30),
		Currency:  "USD",
		Total:     5000,
		Status:    invoicedomain.StatusUnpaid,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&invoice).Error)
	require.NoError(t, f.db.Create(&invoicedomain.LineItem{
		ID:          f.node.Generate(),
		InvoiceID:   invoice.ID,
		Description: "Work",
		Quantity:    1,
		UnitPrice:   5000,
		Amount:      5000,
		CreatedAt:   now,
	}).Error)
	require.NoError(t, f.db.Create(&paymentdomain.Payment{
		ID:        f.node.Generate(),
		InvoiceID: invoice.ID,
		Amount:    1000,
		Method:    paymentdomain.MethodCash,
		PaidAt:    now,
		CreatedAt: now,
	}).Error)

	clientID := client.ID
	hash := "x"
	user := authdomain.User{
		ID:           f.node.Generate(),
		Email:        "user@acme.example",
		Role:         string(authcontext.RoleClient),
		Provider:     "local",
		ClientID:     &clientID,
		PasswordHash: &hash,
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.db.Create(&user).Error)

	require.NoError(t, f.svc.Delete(context.Background(), domain.GetClientRequest{ID: client.ID.String()}))

	for _, table := range []string{"clients", "invoices", "invoice_line_items", "payments"} {
		var count int64
		require.NoError(t, f.db.Table(table).Count(&count).Error)
		assert.Zero(t, count, table)
	}

	var reloaded authdomain.User
	require.NoError(t, f.db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Nil(t, reloaded.ClientID)

	err = f.svc.Delete(context.Background(), domain.GetClientRequest{ID: client.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
