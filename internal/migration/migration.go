package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	billingdomain "github.com/hydranet/hydrabill/internal/billing/domain"
	contributiondomain "github.com/hydranet/hydrabill/internal/contribution/domain"
	customerdomain "github.com/hydranet/hydrabill/internal/customer/domain"
	finedomain "github.com/hydranet/hydrabill/internal/fine/domain"
	"github.com/hydranet/hydrabill/internal/jobrun"
	paymentdomain "github.com/hydranet/hydrabill/internal/payment/domain"
	settingsdomain "github.com/hydranet/hydrabill/internal/settings/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations against postgres.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate is the fallback for non-postgres targets, used for local and
// self-hosted setups where versioned migrations are not required.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&customerdomain.Customer{},
		&billingdomain.Bill{},
		&contributiondomain.Contribution{},
		&finedomain.Fine{},
		&paymentdomain.Payment{},
		&paymentdomain.Allocation{},
		&paymentdomain.EventRecord{},
		&settingsdomain.Setting{},
		&jobrun.JobRun{},
	)
}
