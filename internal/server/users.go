package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/ledgerly/ledgerly/internal/auth/domain"
)

func (s *Server) ListUsers(c *gin.Context) {
	var query struct {
		Role     string `form:"role"`
		ClientID string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	stmt := s.db.WithContext(c.Request.Context()).Model(&authdomain.User{}).Order("created_at desc")
	if role := strings.TrimSpace(query.Role); role != "" {
		stmt = stmt.Where("role = ?", role)
	}
	if clientID, err := parseOptionalSnowflakeID(query.ClientID); err != nil {
		AbortWithError(c, newValidationError("client_id", "invalid_client_id", "invalid client_id"))
		return
	} else if clientID != nil {
		stmt = stmt.Where("client_id = ?", *clientID)
	}

	var users []authdomain.User
	if err := stmt.Find(&users).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	profiles := make([]authdomain.Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, authdomain.ProfileOf(user))
	}

	c.JSON(http.StatusOK, gin.H{"data": profiles})
}
