package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/ledgerly/ledgerly/internal/audit/domain"
)

const csvContentType = "text/csv; charset=utf-8"

func (s *Server) ExportInvoicesCSV(c *gin.Context) {
	data, err := s.exportSvc.ExportInvoicesCSV(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), string(auditdomain.ActorTypeUser), nil, "export.invoices", "export", nil, nil)

	c.Header("Content-Disposition", "attachment; filename=invoices.csv")
	c.Data(http.StatusOK, csvContentType, data)
}

func (s *Server) ExportClientsCSV(c *gin.Context) {
	data, err := s.exportSvc.ExportClientsCSV(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), string(auditdomain.ActorTypeUser), nil, "export.clients", "export", nil, nil)

	c.Header("Content-Disposition", "attachment; filename=clients.csv")
	c.Data(http.StatusOK, csvContentType, data)
}

func (s *Server) ImportClientsCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		// Fall back to a raw CSV request body.
		if c.Request.Body == nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		result, err := s.exportSvc.ImportClientsCSV(c.Request.Context(), c.Request.Body)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		s.respondImportResult(c, result)
		return
	}
	defer file.Close()

	result, err := s.exportSvc.ImportClientsCSV(c.Request.Context(), file)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.respondImportResult(c, result)
}

func (s *Server) respondImportResult(c *gin.Context, result any) {
	_ = s.auditSvc.AuditLog(c.Request.Context(), string(auditdomain.ActorTypeUser), nil, "import.clients", "export", nil, nil)
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ClientTemplateCSV(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=clients-template.csv")
	c.Data(http.StatusOK, csvContentType, s.exportSvc.ClientTemplateCSV())
}

func (s *Server) InvoiceTemplateCSV(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=invoices-template.csv")
	c.Data(http.StatusOK, csvContentType, s.exportSvc.InvoiceTemplateCSV())
}
