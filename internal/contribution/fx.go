package contribution

import (
	"github.com/hydranet/hydrabill/internal/contribution/repository"
	"github.com/hydranet/hydrabill/internal/contribution/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contribution.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
