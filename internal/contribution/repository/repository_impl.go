package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hydranet/hydrabill/internal/contribution/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert inserts a contribution, reporting false when one already exists
	// for the same customer and month.
	Insert(ctx context.Context, db *gorm.DB, c *domain.Contribution) (bool, error)
	ExistsForMonth(ctx context.Context, db *gorm.DB, customerID snowflake.ID, month time.Time) (bool, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Contribution) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO contributions (
			id, customer_id, contribution_month, amount_required, amount_paid,
			due_date, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (customer_id, contribution_month) DO NOTHING`,
		c.ID,
		c.CustomerID,
		c.ContributionMonth,
		c.AmountRequired,
		c.AmountPaid,
		c.DueDate,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ExistsForMonth(ctx context.Context, db *gorm.DB, customerID snowflake.ID, month time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM contributions
		 WHERE customer_id = ? AND contribution_month = ?`,
		customerID,
		month,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
