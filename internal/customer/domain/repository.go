package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	FindByAccountNumber(ctx context.Context, db *gorm.DB, accountNumber string) (*Customer, error)
	// ListActive returns active customers, optionally restricted to ids.
	ListActive(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Customer, error)
}
