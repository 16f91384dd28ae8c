package billing

import (
	"github.com/hydranet/hydrabill/internal/billing/repository"
	"github.com/hydranet/hydrabill/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
