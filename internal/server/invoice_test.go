package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// Invoices leave the system only through the client cascade; the API must not
// expose a standalone invoice delete that would drop payment history.
func TestNoStandaloneInvoiceDeleteRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	srv := &Server{engine: router}
	srv.registerAPIRoutes()

	for _, route := range router.Routes() {
		if route.Method == http.MethodDelete && route.Path == "/api/invoices/:id" {
			t.Fatalf("unexpected route %s %s", route.Method, route.Path)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/invoices/123", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for invoice delete, got %d", w.Code)
	}
}
