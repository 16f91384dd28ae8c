package settings

import (
	"github.com/hydranet/hydrabill/internal/settings/repository"
	"github.com/hydranet/hydrabill/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
