package authorization

import (
	"context"
	"errors"

	"github.com/ledgerly/ledgerly/internal/authcontext"
)

type Service interface {
	// Authorize checks whether the caller may perform action on object.
	Authorize(ctx context.Context, caller authcontext.Caller, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
