package server

import (
	"github.com/gin-gonic/gin"

	"github.com/ledgerly/ledgerly/internal/authcontext"
)

const contextCallerKey = "caller"

// AuthRequired authenticates the session token and stores the caller in the
// request context so services can apply record-level scoping.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		_, user, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		caller := user.Caller()
		c.Set(contextCallerKey, caller)
		c.Request = c.Request.WithContext(authcontext.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// authorize gates a route on the casbin policy for object/action.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := s.callerFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if err := s.authzSvc.Authorize(c.Request.Context(), caller, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) callerFrom(c *gin.Context) (authcontext.Caller, bool) {
	if value, exists := c.Get(contextCallerKey); exists {
		if caller, ok := value.(authcontext.Caller); ok {
			return caller, true
		}
	}
	return authcontext.CallerFromContext(c.Request.Context())
}
