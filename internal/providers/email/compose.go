package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

var invoiceTmpl = template.Must(template.ParseFS(templatesFS, "templates/invoice.html"))

// InvoiceEmailData carries pre-formatted strings; amount formatting happens
// in the caller so the composer stays currency-agnostic.
type InvoiceEmailData struct {
	BusinessName string

	InvoiceNo string
	IssueDate string
	DueDate   string
	Status    string
	Currency  string

	ClientName string

	Total     string
	Paid      string
	AmountDue string

	Message string
}

// InvoiceSubject builds the subject line for an invoice email.
func InvoiceSubject(data InvoiceEmailData) string {
	return fmt.Sprintf("Invoice %s from %s", data.InvoiceNo, data.BusinessName)
}

// RenderInvoice renders the invoice email body as HTML.
func RenderInvoice(data InvoiceEmailData) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
