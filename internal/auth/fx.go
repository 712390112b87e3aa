package auth

import (
	"github.com/ledgerly/ledgerly/internal/auth/oauth"
	"github.com/ledgerly/ledgerly/internal/auth/repository"
	"github.com/ledgerly/ledgerly/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(oauth.NewService),
)
