// Package export produces and consumes CSV snapshots of the ledger.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	clientdomain "github.com/ledgerly/ledgerly/internal/client/domain"
	invoicedomain "github.com/ledgerly/ledgerly/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImportResult summarizes a CSV import run.
type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

type Service interface {
	ExportInvoicesCSV(ctx context.Context) ([]byte, error)
	ExportClientsCSV(ctx context.Context) ([]byte, error)
	ImportClientsCSV(ctx context.Context, r io.Reader) (ImportResult, error)
	ClientTemplateCSV() []byte
	InvoiceTemplateCSV() []byte
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	clientSvc clientdomain.Service
}

func NewService(db *gorm.DB, log *zap.Logger, clientSvc clientdomain.Service) Service {
	return &service{
		db:        db,
		log:       log.Named("export.service"),
		clientSvc: clientSvc,
	}
}

func (s *service) ExportInvoicesCSV(ctx context.Context) ([]byte, error) {
	var invoices []invoicedomain.Invoice
	err := s.db.WithContext(ctx).
		Preload("Client").
		Order("created_at desc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"invoice_no", "client", "issue_date", "due_date", "currency", "total", "paid_amount", "status", "display_status"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, invoice := range invoices {
		clientName := ""
		if invoice.Client != nil {
			clientName = invoice.Client.Name
		}
		record := []string{
			invoice.InvoiceNo,
			clientName,
			invoice.IssueDate.Format("2006-01-02"),
			invoice.DueDate.Format("2006-01-02"),
			invoice.Currency,
			formatAmount(invoice.Total),
			formatAmount(invoice.PaidAmount),
			string(invoice.Status),
			invoice.DisplayStatus(now),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *service) ExportClientsCSV(ctx context.Context) ([]byte, error) {
	var clients []clientdomain.Client
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"name", "contact", "address", "reference"}); err != nil {
		return nil, err
	}
	for _, client := range clients {
		if err := w.Write([]string{client.Name, client.Contact, client.Address, client.Slug}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *service) ImportClientsCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return ImportResult{}, err
	}
	if len(records) == 0 {
		return ImportResult{}, nil
	}

	// Skip a header row when present.
	start := 0
	if strings.EqualFold(strings.TrimSpace(records[0][0]), "name") {
		start = 1
	}

	result := ImportResult{}
	for i, record := range records[start:] {
		line := start + i + 1
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			result.Skipped++
			continue
		}

		req := clientdomain.CreateClientRequest{Name: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			req.Contact = strings.TrimSpace(record[1])
		}
		if len(record) > 2 {
			req.Address = strings.TrimSpace(record[2])
		}

		if _, err := s.clientSvc.Create(ctx, req); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.Created++
	}

	s.log.Info("client import finished",
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *service) ClientTemplateCSV() []byte {
	return []byte("name,contact,address\nAcme Corp,billing@acme.test,1 Main St\n")
}

func (s *service) InvoiceTemplateCSV() []byte {
	return []byte("invoice_no,client,issue_date,due_date,currency,total\nINV-1001,Acme Corp,2025-01-01,2025-01-31,USD,1500.00\n")
}

// formatAmount renders minor units as a decimal string.
func formatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return sign + strconv.FormatInt(minor/100, 10) + "." + fmt.Sprintf("%02d", minor%100)
}
