package fine

import (
	"github.com/hydranet/hydrabill/internal/fine/repository"
	"github.com/hydranet/hydrabill/internal/fine/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fine.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
