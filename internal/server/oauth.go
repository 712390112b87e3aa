package server

import (
	"context"
	"crypto/hmac"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/ledgerly/ledgerly/internal/audit/domain"
	authdomain "github.com/ledgerly/ledgerly/internal/auth/domain"
	authoauth "github.com/ledgerly/ledgerly/internal/auth/oauth"
	"github.com/ledgerly/ledgerly/internal/authcontext"
)

const (
	oauthStateCookie     = "oauth_state"
	oauthVerifierCookie  = "oauth_code_verifier"
	oauthRedirectCookie  = "oauth_redirect_to"
	oauthStateTTL        = 10 * time.Minute
	oauthErrorRedirectTo = "/login?error=oauth_login"
)

func (s *Server) OAuthLogin(c *gin.Context) {
	result, err := s.oauthsvc.RedirectURL(c.Request.Context(), authoauth.RedirectRequest{
		RedirectURI: s.cfg.OAuth.RedirectURL,
	})
	if err != nil {
		s.handleOAuthError(c, err)
		return
	}

	s.setOAuthCookie(c, oauthStateCookie, result.State, oauthStateTTL)
	if strings.TrimSpace(result.CodeVerifier) != "" {
		s.setOAuthCookie(c, oauthVerifierCookie, result.CodeVerifier, oauthStateTTL)
	}

	redirectTarget := sanitizeRedirectPath(firstNonEmpty(c.Query("redirectTo"), c.Query("redirect_to")))
	if redirectTarget != "" {
		s.setOAuthCookie(c, oauthRedirectCookie, redirectTarget, oauthStateTTL)
	}

	c.Redirect(http.StatusFound, result.URL)
}

func (s *Server) OAuthCallback(c *gin.Context) {
	if strings.TrimSpace(c.Query("error")) != "" {
		s.log.Warn("oauth provider returned error",
			zap.String("error", c.Query("error")),
			zap.String("description", c.Query("error_description")),
		)
		s.clearOAuthCookies(c)
		c.Redirect(http.StatusFound, oauthErrorRedirectTo)
		return
	}

	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		s.clearOAuthCookies(c)
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	state := strings.TrimSpace(c.Query("state"))
	storedState, err := c.Cookie(oauthStateCookie)
	if err != nil || storedState == "" || state == "" || !hmac.Equal([]byte(state), []byte(storedState)) {
		s.clearOAuthCookies(c)
		AbortWithError(c, ErrUnauthorized)
		return
	}

	verifier, _ := c.Cookie(oauthVerifierCookie)
	redirectTarget, _ := c.Cookie(oauthRedirectCookie)
	s.clearOAuthCookies(c)

	identity, err := s.oauthsvc.Exchange(c.Request.Context(), authoauth.ExchangeRequest{
		Code:         code,
		RedirectURI:  s.cfg.OAuth.RedirectURL,
		CodeVerifier: verifier,
	})
	if err != nil {
		s.handleOAuthError(c, err)
		return
	}

	user, err := s.findOrCreateOAuthUser(c.Request.Context(), *identity)
	if err != nil {
		s.handleOAuthError(c, err)
		return
	}

	result, err := s.authsvc.OpenSessionFor(c.Request.Context(), user, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		s.handleOAuthError(c, err)
		return
	}
	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	userID := user.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), string(auditdomain.ActorTypeUser), &userID, "user.oauth_login", "user", &userID, map[string]any{
		"email": user.Email,
	})

	redirectTarget = sanitizeRedirectPath(redirectTarget)
	if redirectTarget == "" {
		redirectTarget = "/"
	}
	c.Redirect(http.StatusFound, redirectTarget)
}

// findOrCreateOAuthUser links the external identity to a local account.
// New accounts come in as unlinked client users until an admin assigns them.
func (s *Server) findOrCreateOAuthUser(ctx context.Context, identity authoauth.Identity) (*authdomain.User, error) {
	var user authdomain.User
	err := s.db.WithContext(ctx).Where("external_id = ?", identity.ExternalID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if !s.oauthsvc.AllowSignUp() {
			return nil, authoauth.ErrSignUpDisabled
		}
		now := time.Now().UTC()
		externalID := identity.ExternalID
		user = authdomain.User{
			ID:         s.genID.Generate(),
			Email:      strings.ToLower(identity.Email),
			Name:       identity.DisplayName,
			Role:       string(authcontext.RoleClient),
			Provider:   "oauth",
			ExternalID: &externalID,
			Metadata:   datatypes.JSONMap{},
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if identity.Email != "" && !strings.EqualFold(identity.Email, user.Email) {
		updates["email"] = strings.ToLower(identity.Email)
		user.Email = strings.ToLower(identity.Email)
	}
	if identity.DisplayName != "" && identity.DisplayName != user.Name {
		updates["name"] = identity.DisplayName
		user.Name = identity.DisplayName
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		if err := s.db.WithContext(ctx).Model(&authdomain.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return &user, nil
}

func (s *Server) handleOAuthError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, authoauth.ErrProviderDisabled) {
		AbortWithError(c, ErrNotFound)
		return
	}
	s.log.Warn("oauth login failed", zap.Error(err))
	c.Redirect(http.StatusFound, oauthErrorRedirectTo)
}

func (s *Server) setOAuthCookie(c *gin.Context, name string, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", s.cfg.AuthCookieSecure, true)
}

func (s *Server) clearOAuthCookies(c *gin.Context) {
	s.clearCookie(c, oauthStateCookie)
	s.clearCookie(c, oauthVerifierCookie)
	s.clearCookie(c, oauthRedirectCookie)
}

func (s *Server) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", s.cfg.AuthCookieSecure, true)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func sanitizeRedirectPath(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "//") || strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return ""
	}
	if !strings.HasPrefix(value, "/") {
		return ""
	}
	return value
}
