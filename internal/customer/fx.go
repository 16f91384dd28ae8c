package customer

import (
	"github.com/hydranet/hydrabill/internal/customer/repository"
	"github.com/hydranet/hydrabill/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
