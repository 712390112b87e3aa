package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/ledgerly/ledgerly/internal/audit/domain"
	invoicedomain "github.com/ledgerly/ledgerly/internal/invoice/domain"
	paymentdomain "github.com/ledgerly/ledgerly/internal/payment/domain"
)

type fakePaymentService struct {
	recordErr   error
	recordCalls int
	lastRecord  paymentdomain.RecordPaymentRequest
}

func (f *fakePaymentService) Record(ctx context.Context, req paymentdomain.RecordPaymentRequest) (paymentdomain.RecordPaymentResponse, error) {
	f.recordCalls++
	f.lastRecord = req
	_ = ctx
	if f.recordErr != nil {
		return paymentdomain.RecordPaymentResponse{}, f.recordErr
	}
	return paymentdomain.RecordPaymentResponse{
		Payment: paymentdomain.Payment{ID: snowflake.ID(10), Amount: req.Amount},
		Invoice: invoicedomain.InvoiceView{
			Invoice: invoicedomain.Invoice{
				ID:         snowflake.ID(20),
				PaidAmount: req.Amount,
				Status:     invoicedomain.StatusPartiallyPaid,
			},
		},
	}, nil
}

func (f *fakePaymentService) Delete(ctx context.Context, req paymentdomain.DeletePaymentRequest) (invoicedomain.InvoiceView, error) {
	_ = ctx
	_ = req
	return invoicedomain.InvoiceView{}, nil
}

func (f *fakePaymentService) ListByInvoice(ctx context.Context, req paymentdomain.ListByInvoiceRequest) (paymentdomain.ListByInvoiceResponse, error) {
	_ = ctx
	_ = req
	return paymentdomain.ListByInvoiceResponse{}, nil
}

func (f *fakePaymentService) Recompute(ctx context.Context, req paymentdomain.RecomputeRequest) (invoicedomain.InvoiceView, error) {
	_ = ctx
	_ = req
	return invoicedomain.InvoiceView{}, nil
}

type fakeAuditService struct {
	calls   int
	actions []string
}

func (f *fakeAuditService) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	f.calls++
	f.actions = append(f.actions, action)
	_ = ctx
	_ = actorType
	_ = actorID
	_ = targetType
	_ = targetID
	_ = metadata
	return nil
}

func (f *fakeAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	_ = ctx
	_ = req
	return auditdomain.ListAuditLogResponse{}, nil
}

func newPaymentTestRouter(paymentSvc paymentdomain.Service, auditSvc *fakeAuditService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	srv := &Server{
		paymentSvc: paymentSvc,
		auditSvc:   auditSvc,
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/payments", srv.RecordPayment)
	return router
}

func TestRecordPaymentHandlerSuccess(t *testing.T) {
	paymentSvc := &fakePaymentService{}
	auditSvc := &fakeAuditService{}
	router := newPaymentTestRouter(paymentSvc, auditSvc)

	body := bytes.NewBufferString(`{"invoice_id":"20","amount":5000,"method":"card"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payments", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if paymentSvc.recordCalls != 1 {
		t.Fatalf("expected one record call, got %d", paymentSvc.recordCalls)
	}
	if paymentSvc.lastRecord.Amount != 5000 || paymentSvc.lastRecord.Method != "card" {
		t.Fatalf("unexpected request passed to service: %+v", paymentSvc.lastRecord)
	}
	if auditSvc.calls != 1 || auditSvc.actions[0] != "payment.record" {
		t.Fatalf("expected a payment.record audit entry, got %+v", auditSvc.actions)
	}
}

func TestRecordPaymentHandlerBalanceExceeded(t *testing.T) {
	paymentSvc := &fakePaymentService{recordErr: paymentdomain.ErrBalanceExceeded}
	auditSvc := &fakeAuditService{}
	router := newPaymentTestRouter(paymentSvc, auditSvc)

	body := bytes.NewBufferString(`{"invoice_id":"20","amount":999999,"method":"card"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payments", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}

	var payload errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if payload.Error.Type != "balance_exceeded" {
		t.Fatalf("expected balance_exceeded error type, got %q", payload.Error.Type)
	}
	if auditSvc.calls != 0 {
		t.Fatal("expected no audit entry for a rejected payment")
	}
}

func TestRecordPaymentHandlerValidation(t *testing.T) {
	paymentSvc := &fakePaymentService{recordErr: paymentdomain.ErrInvalidAmount}
	router := newPaymentTestRouter(paymentSvc, &fakeAuditService{})

	body := bytes.NewBufferString(`{"invoice_id":"20","amount":-5,"method":"card"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payments", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestRecordPaymentHandlerUnknownInvoice(t *testing.T) {
	paymentSvc := &fakePaymentService{recordErr: paymentdomain.ErrInvoiceNotFound}
	router := newPaymentTestRouter(paymentSvc, &fakeAuditService{})

	body := bytes.NewBufferString(`{"invoice_id":"404","amount":100,"method":"cash"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payments", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestRecordPaymentHandlerMalformedBody(t *testing.T) {
	paymentSvc := &fakePaymentService{}
	router := newPaymentTestRouter(paymentSvc, &fakeAuditService{})

	req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewBufferString(`{"amount":`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if paymentSvc.recordCalls != 0 {
		t.Fatal("expected service not to be called for a malformed body")
	}
}
