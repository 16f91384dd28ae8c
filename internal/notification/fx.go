package notification

import (
	"github.com/hydranet/hydrabill/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.SMTPHost == "" {
		return &NoOpProvider{}
	}
	return NewSMTP(SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func NewDispatcherFromConfig(provider Provider, log *zap.Logger, cfg config.Config) *Dispatcher {
	return NewDispatcher(provider, log, cfg.NotifyTimeout)
}

var Module = fx.Module("notification",
	fx.Provide(NewFromConfig),
	fx.Provide(NewDispatcherFromConfig),
)
