package oauth

import "errors"

var (
	ErrProviderDisabled = errors.New("oauth provider disabled")
	ErrInvalidRequest   = errors.New("invalid oauth request")
	ErrUnauthorized     = errors.New("oauth exchange rejected")
	ErrSignUpDisabled   = errors.New("oauth signup disabled")
)
