package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/ledgerly/ledgerly/internal/audit/domain"
	paymentdomain "github.com/ledgerly/ledgerly/internal/payment/domain"
)

func (s *Server) RecordPayment(c *gin.Context) {
	var req paymentdomain.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := resp.Payment.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), string(auditdomain.ActorTypeUser), nil, "payment.record", "payment", &targetID, map[string]any{
		"invoice_id":  resp.Payment.InvoiceID.String(),
		"amount":      resp.Payment.Amount,
		"method":      resp.Payment.Method,
		"paid_amount": resp.Invoice.PaidAmount,
		"status":      resp.Invoice.Status,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePayment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	invoice, err := s.paymentSvc.Delete(c.Request.Context(), paymentdomain.DeletePaymentRequest{ID: id})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), string(auditdomain.ActorTypeUser), nil, "payment.delete", "payment", &id, map[string]any{
		"invoice_id":  invoice.ID.String(),
		"paid_amount": invoice.PaidAmount,
		"status":      invoice.Status,
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"invoice": invoice}})
}

func (s *Server) ListInvoicePayments(c *gin.Context) {
	resp, err := s.paymentSvc.ListByInvoice(c.Request.Context(), paymentdomain.ListByInvoiceRequest{
		InvoiceID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Payments})
}

func (s *Server) RecomputeInvoice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	invoice, err := s.paymentSvc.Recompute(c.Request.Context(), paymentdomain.RecomputeRequest{InvoiceID: id})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), string(auditdomain.ActorTypeUser), nil, "invoice.recompute", "invoice", &id, map[string]any{
		"paid_amount": invoice.PaidAmount,
		"status":      invoice.Status,
	})

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}
