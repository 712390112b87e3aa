package client

import (
	"github.com/ledgerly/ledgerly/internal/client/repository"
	"github.com/ledgerly/ledgerly/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
