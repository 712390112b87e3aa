package audit

import (
	"github.com/ledgerly/ledgerly/internal/audit/repository"
	"github.com/ledgerly/ledgerly/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
