package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	currencydomain "github.com/ledgerly/ledgerly/internal/currency/domain"
)

func (s *Server) ListCurrencies(c *gin.Context) {
	currencies, err := s.currencySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": currencies})
}

func (s *Server) GetCurrencyRate(c *gin.Context) {
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))

	rate, err := s.currencySvc.Rate(c.Request.Context(), from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"from": from, "to": to, "rate": rate}})
}

func (s *Server) ConvertCurrency(c *gin.Context) {
	var req currencydomain.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.From = strings.TrimSpace(req.From)
	req.To = strings.TrimSpace(req.To)

	resp, err := s.currencySvc.Convert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
