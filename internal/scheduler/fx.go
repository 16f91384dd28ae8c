package scheduler

import (
	"context"

	"go.uber.org/fx"
)

func ProvideConfig() Config {
	return DefaultConfig()
}

func registerHooks(lc fx.Lifecycle, o *Orchestrator) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			o.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			o.Stop()
			return nil
		},
	})
}

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(RegisterJobs),
	fx.Invoke(registerHooks),
)
