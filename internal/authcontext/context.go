// Package authcontext carries the authenticated caller through request contexts.
package authcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Role is the caller class used by the access policy.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Caller identifies the authenticated principal of a request.
type Caller struct {
	UserID snowflake.ID
	Email  string
	Role   Role

	// ClientID is the client record a caller with RoleClient is scoped to.
	// Nil for admins and for client users that have not been linked yet.
	ClientID *snowflake.ID
}

// IsAdmin reports whether the caller may operate without client scoping.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// CanViewClient reports whether the caller may observe records owned by clientID.
func (c Caller) CanViewClient(clientID snowflake.ID) bool {
	if c.IsAdmin() {
		return true
	}
	return c.ClientID != nil && *c.ClientID == clientID
}

type callerKey struct{}

// WithCaller stores the caller in the context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller from context, if set.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok
}

type requestMetaKey struct{}

// RequestMeta holds per-request fields recorded on audit entries.
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// WithRequestMeta stores request metadata in the context.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext returns request metadata from context, if set.
func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok
}
