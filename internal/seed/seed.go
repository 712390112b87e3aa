package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	authdomain "github.com/ledgerly/ledgerly/internal/auth/domain"
	"github.com/ledgerly/ledgerly/internal/auth/password"
	"github.com/ledgerly/ledgerly/internal/authcontext"
	clientdomain "github.com/ledgerly/ledgerly/internal/client/domain"
	"github.com/ledgerly/ledgerly/internal/config"
	invoicedomain "github.com/ledgerly/ledgerly/internal/invoice/domain"
	paymentdomain "github.com/ledgerly/ledgerly/internal/payment/domain"
)

const (
	defaultAdminEmail    = "admin@ledgerly.local"
	defaultAdminPassword = "admin"
	defaultAdminName     = "Ledgerly Admin"
)

// EnsureAdmin seeds the bootstrap admin user so a fresh install is usable.
func EnsureAdmin(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	if email == "" {
		email = defaultAdminEmail
	}
	rawPassword := cfg.BootstrapAdminPassword
	if rawPassword == "" {
		rawPassword = defaultAdminPassword
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(rawPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = authdomain.User{
			ID:           node.Generate(),
			Email:        email,
			Name:         defaultAdminName,
			PasswordHash: &hashed,
			Role:         string(authcontext.RoleAdmin),
			Provider:     "local",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}

// EnsureDemoData seeds a sample client with invoices and payments when
// SEED_DEMO_DATA is set. It is a no-op once the client exists.
func EnsureDemoData(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if !cfg.SeedDemoData {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing clientdomain.Client
		err := tx.WithContext(ctx).Where("slug = ?", "acme-studio").First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		demoClient := clientdomain.Client{
			ID:        node.Generate(),
			Name:      "Acme Studio",
			Slug:      "acme-studio",
			Contact:   "billing@acme.example",
			Address:   "1 Example Way, Springfield",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&demoClient).Error; err != nil {
			return err
		}

		paid := invoicedomain.Invoice{
			ID:         node.Generate(),
			InvoiceNo:  "INV-DEMO-0001",
			ClientID:   demoClient.ID,
			IssueDate:  now.AddDate(0, -1, 0),
			DueDate:    now.AddDate(0, 0, -10),
			Currency:   "USD",
			Total:      150000,
			PaidAmount: 150000,
			Status:     invoicedomain.StatusPaid,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		open := invoicedomain.Invoice{
			ID:         node.Generate(),
			InvoiceNo:  "INV-DEMO-0002",
			ClientID:   demoClient.ID,
			IssueDate:  now,
			DueDate:    now.AddDate(0, 0, 14),
			Currency:   "USD",
			Total:      80000,
			PaidAmount: 30000,
			Status:     invoicedomain.StatusPartiallyPaid,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.WithContext(ctx).Create(&paid).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Create(&open).Error; err != nil {
			return err
		}

		items := []invoicedomain.LineItem{
			{ID: node.Generate(), InvoiceID: paid.ID, Description: "Design retainer", Quantity: 1, UnitPrice: 150000, Amount: 150000, CreatedAt: now},
			{ID: node.Generate(), InvoiceID: open.ID, Description: "Consulting hours", Quantity: 8, UnitPrice: 10000, Amount: 80000, CreatedAt: now},
		}
		if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
			return err
		}

		payments := []paymentdomain.Payment{
			{ID: node.Generate(), InvoiceID: paid.ID, Amount: 150000, Method: paymentdomain.MethodBankTransfer, PaidAt: now.AddDate(0, 0, -12), CreatedAt: now},
			{ID: node.Generate(), InvoiceID: open.ID, Amount: 30000, Method: paymentdomain.MethodCard, PaidAt: now.AddDate(0, 0, -1), CreatedAt: now},
		}
		return tx.WithContext(ctx).Create(&payments).Error
	})
}
