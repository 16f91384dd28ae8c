package payment

import (
	"context"

	"github.com/hydranet/hydrabill/internal/payment/domain"
	"github.com/hydranet/hydrabill/internal/payment/intake"
	"github.com/hydranet/hydrabill/internal/payment/repository"
	"github.com/hydranet/hydrabill/internal/payment/service"
	"go.uber.org/fx"
)

func provideIntake(i *intake.Intake) domain.Intake { return i }

func registerHooks(lc fx.Lifecycle, i *intake.Intake) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			i.Run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			i.Shutdown()
			return nil
		},
	})
}

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(intake.New),
	fx.Provide(provideIntake),
	fx.Invoke(registerHooks),
)
