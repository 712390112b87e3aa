package invoice

import (
	"github.com/ledgerly/ledgerly/internal/invoice/repository"
	"github.com/ledgerly/ledgerly/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
