package migration

import (
	"context"

	"github.com/hydranet/hydrabill/internal/config"
	settingsdomain "github.com/hydranet/hydrabill/internal/settings/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, settingsSvc settingsdomain.Service) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}
		return settingsSvc.EnsureDefaults(context.Background())
	}),
)
