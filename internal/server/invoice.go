package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/ledgerly/ledgerly/internal/audit/domain"
	invoicedomain "github.com/ledgerly/ledgerly/internal/invoice/domain"
	"github.com/ledgerly/ledgerly/internal/providers/email"
	"github.com/ledgerly/ledgerly/internal/providers/pdf"
	"github.com/ledgerly/ledgerly/pkg/db/pagination"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := resp.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), string(auditdomain.ActorTypeUser), nil, "invoice.create", "invoice", &targetID, map[string]any{
		"invoice_no": resp.InvoiceNo,
		"total":      resp.Total,
		"currency":   resp.Currency,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClientID string `form:"client_id"`
		Status   string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		Pagination: query.Pagination,
		ClientID:   strings.TrimSpace(query.ClientID),
		Status:     strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) ListOverdueInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClientID string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.ListOverdue(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		Pagination: query.Pagination,
		ClientID:   strings.TrimSpace(query.ClientID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), invoicedomain.GetInvoiceRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) OverrideInvoiceStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.invoiceSvc.OverrideStatus(c.Request.Context(), invoicedomain.OverrideStatusRequest{
		ID:     id,
		Status: strings.TrimSpace(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), string(auditdomain.ActorTypeUser), nil, "invoice.override_status", "invoice", &id, map[string]any{
		"status": resp.Status,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	view, err := s.invoiceSvc.GetByID(c.Request.Context(), invoicedomain.GetInvoiceRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := pdf.InvoiceData{
		BusinessName:  s.cfg.AppName,
		InvoiceNumber: view.InvoiceNo,
		IssueDate:     view.IssueDate.Format(dateOnlyLayout),
		DueDate:       view.DueDate.Format(dateOnlyLayout),
		Status:        view.DisplayStatus,
		Currency:      view.Currency,
		Total:         formatMinorAmount(view.Total),
		Paid:          formatMinorAmount(view.PaidAmount),
		AmountDue:     formatMinorAmount(view.Balance),
		Notes:         view.Notes,
	}
	if view.Client != nil {
		data.ClientName = view.Client.Name
		data.ClientContact = view.Client.Contact
		data.ClientAddress = view.Client.Address
	}
	for _, item := range view.LineItems {
		data.Items = append(data.Items, pdf.InvoiceItem{
			Description: item.Description,
			Qty:         item.Quantity,
			UnitPrice:   formatMinorAmount(item.UnitPrice),
			Amount:      formatMinorAmount(item.Amount),
		})
	}

	doc, err := s.pdfRenderer.GenerateInvoice(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", view.InvoiceNo))
	c.DataFromReader(http.StatusOK, -1, "application/pdf", doc, nil)
}

type sendInvoiceEmailRequest struct {
	To      []string `json:"to"`
	Message string   `json:"message"`
}

func (s *Server) SendInvoiceEmail(c *gin.Context) {
	var req sendInvoiceEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	data, recipients, err := s.invoiceEmailData(c, id, req.To, req.Message)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := email.RenderInvoice(data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.emailer.Send(c.Request.Context(), recipients, email.InvoiceSubject(data), body); err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), string(auditdomain.ActorTypeUser), nil, "invoice.email_sent", "invoice", &id, map[string]any{
		"invoice_no": data.InvoiceNo,
		"recipients": recipients,
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"sent": true, "recipients": recipients}})
}

func (s *Server) PreviewInvoiceEmail(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	data, _, err := s.invoiceEmailData(c, id, nil, strings.TrimSpace(c.Query("message")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := email.RenderInvoice(data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"subject": email.InvoiceSubject(data),
		"html":    body,
	}})
}

func (s *Server) invoiceEmailData(c *gin.Context, id string, to []string, message string) (email.InvoiceEmailData, []string, error) {
	view, err := s.invoiceSvc.GetByID(c.Request.Context(), invoicedomain.GetInvoiceRequest{ID: id})
	if err != nil {
		return email.InvoiceEmailData{}, nil, err
	}

	data := email.InvoiceEmailData{
		BusinessName: s.cfg.AppName,
		InvoiceNo:    view.InvoiceNo,
		IssueDate:    view.IssueDate.Format(dateOnlyLayout),
		DueDate:      view.DueDate.Format(dateOnlyLayout),
		Status:       view.DisplayStatus,
		Currency:     view.Currency,
		Total:        formatMinorAmount(view.Total),
		Paid:         formatMinorAmount(view.PaidAmount),
		AmountDue:    formatMinorAmount(view.Balance),
		Message:      strings.TrimSpace(message),
	}

	var recipients []string
	for _, addr := range to {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	if view.Client != nil {
		data.ClientName = view.Client.Name
		if len(recipients) == 0 && strings.Contains(view.Client.Contact, "@") {
			recipients = append(recipients, strings.TrimSpace(view.Client.Contact))
		}
	}
	if len(recipients) == 0 {
		return email.InvoiceEmailData{}, nil, newValidationError("to", "required", "at least one recipient is required")
	}

	return data, recipients, nil
}

// formatMinorAmount renders minor units as a decimal string for documents.
func formatMinorAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return sign + strconv.FormatInt(minor/100, 10) + "." + fmt.Sprintf("%02d", minor%100)
}
