package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/billing"
	"github.com/hydranet/hydrabill/internal/clock"
	"github.com/hydranet/hydrabill/internal/config"
	"github.com/hydranet/hydrabill/internal/contribution"
	"github.com/hydranet/hydrabill/internal/customer"
	"github.com/hydranet/hydrabill/internal/fine"
	"github.com/hydranet/hydrabill/internal/jobrun"
	"github.com/hydranet/hydrabill/internal/locks"
	"github.com/hydranet/hydrabill/internal/logger"
	"github.com/hydranet/hydrabill/internal/migration"
	"github.com/hydranet/hydrabill/internal/notification"
	"github.com/hydranet/hydrabill/internal/payment"
	"github.com/hydranet/hydrabill/internal/scheduler"
	"github.com/hydranet/hydrabill/internal/server"
	"github.com/hydranet/hydrabill/internal/settings"
	"github.com/hydranet/hydrabill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		db.Module,
		locks.Module,
		notification.Module,
		jobrun.Module,

		// Functional domains
		settings.Module,
		customer.Module,
		billing.Module,
		contribution.Module,
		fine.Module,
		payment.Module,

		migration.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
